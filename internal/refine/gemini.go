package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash-latest"

const (
	refineInstruction = "You are an expert prompt engineer. Rewrite the user's rough prompt into a clear, specific, " +
		"well-structured prompt for the named target model. Keep the user's intent. " +
		"Return only the refined prompt text, with no preamble."

	chatInstruction = "You are an expert prompt engineer helping a user improve a prompt through conversation. " +
		"Give concise, concrete suggestions."
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no text")

// generator is the slice of the Gemini API the refiner calls.
type generator interface {
	generate(ctx context.Context, system string, history []*genai.Content, input string) (*genai.GenerateContentResponse, error)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g genaiGenerator) generate(ctx context.Context, system string, history []*genai.Content, input string) (*genai.GenerateContentResponse, error) {
	m := g.client.GenerativeModel(g.model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	if len(history) == 0 {
		return m.GenerateContent(ctx, genai.Text(input))
	}
	cs := m.StartChat()
	cs.History = history
	return cs.SendMessage(ctx, genai.Text(input))
}

// GeminiRefiner refines prompts with a Gemini model.
type GeminiRefiner struct {
	gen    generator
	closer func() error
	log    zerolog.Logger
}

var _ Refiner = (*GeminiRefiner)(nil)

// NewGemini connects to the Gemini API with apiKey. An empty model selects
// DefaultGeminiModel.
func NewGemini(ctx context.Context, apiKey, model string, log zerolog.Logger) (*GeminiRefiner, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &GeminiRefiner{
		gen:    genaiGenerator{client: c, model: model},
		closer: c.Close,
		log:    log.With().Str("component", "gemini").Str("model", model).Logger(),
	}, nil
}

// Close releases the API client.
func (g *GeminiRefiner) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

// Refine asks the model to rewrite req.Text for the configured labels.
func (g *GeminiRefiner) Refine(ctx context.Context, req Request) (out string, err error) {
	defer func() { observe(backendGemini, err) }()
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyPrompt
	}
	resp, err := g.gen.generate(ctx, refineInstruction, nil, brief(req.WithDefaults()))
	if err != nil {
		return "", fmt.Errorf("gemini refine: %w", err)
	}
	return g.text(resp)
}

// Reply continues a refinement chat.
func (g *GeminiRefiner) Reply(ctx context.Context, history []domain.ChatMessage, input string) (out string, err error) {
	defer func() { observe(backendGemini, err) }()
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyPrompt
	}
	resp, err := g.gen.generate(ctx, chatInstruction, chatHistory(history), input)
	if err != nil {
		return "", fmt.Errorf("gemini reply: %w", err)
	}
	return g.text(resp)
}

// brief is the user turn sent for a refinement.
func brief(r Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target model: %s\nTone: %s\nPersona: %s\nOutput format: %s\n", r.TargetModel, r.Tone, r.Persona, r.OutputFormat)
	if kinds := r.AttachmentKinds(); len(kinds) > 0 {
		fmt.Fprintf(&b, "Attached files: %s\n", strings.Join(kinds, ", "))
	}
	fmt.Fprintf(&b, "\nRough prompt:\n%s", r.Text)
	return b.String()
}

// chatHistory maps stored messages to Gemini turns ("user" and "model").
func chatHistory(msgs []domain.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return out
}

func (g *GeminiRefiner) text(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
			continue
		}
		g.log.Debug().Str("type", fmt.Sprintf("%T", part)).Msg("skipping non-text part")
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
