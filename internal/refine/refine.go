// Package refine turns a rough prompt into a refined one.
//
// TemplateRefiner is the built-in placeholder: it wraps the input in a fixed
// template naming the configuration labels and attached file kinds. When a
// Gemini key is configured, GeminiRefiner asks the model instead.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// Labels used when a configuration field is left empty.
const (
	DefaultTargetModel  = "optimal AI model"
	DefaultTone         = "balanced"
	DefaultProfession   = "Software Engineer"
	DefaultOutputFormat = "structured response"
)

// ErrEmptyPrompt is returned when there is nothing to refine.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Request is one refinement.
type Request struct {
	Text         string
	TargetModel  string
	Tone         string
	Persona      string
	OutputFormat string
	// Profession seeds the default persona ("Act as <profession>").
	Profession string
	// AttachmentTypes are the MIME types of the attached files.
	AttachmentTypes []string
}

// WithDefaults fills every empty label.
func (r Request) WithDefaults() Request {
	r.TargetModel = orDefault(r.TargetModel, DefaultTargetModel)
	r.Tone = orDefault(r.Tone, DefaultTone)
	r.Profession = orDefault(r.Profession, DefaultProfession)
	r.Persona = orDefault(r.Persona, "Act as "+r.Profession)
	r.OutputFormat = orDefault(r.OutputFormat, DefaultOutputFormat)
	return r
}

// AttachmentKinds maps AttachmentTypes to human labels.
func (r Request) AttachmentKinds() []string {
	kinds := make([]string, 0, len(r.AttachmentTypes))
	for _, t := range r.AttachmentTypes {
		kinds = append(kinds, domain.AttachmentKind(t))
	}
	return kinds
}

// Refiner produces refined prompts and conversational replies.
type Refiner interface {
	Refine(ctx context.Context, req Request) (string, error)
	// Reply answers input in a refinement chat; history is oldest first and
	// does not include input.
	Reply(ctx context.Context, history []domain.ChatMessage, input string) (string, error)
}

// TemplateRefiner is the offline refiner.
type TemplateRefiner struct{}

var _ Refiner = TemplateRefiner{}

// Refine renders the fixed refinement template.
func (TemplateRefiner) Refine(ctx context.Context, req Request) (out string, err error) {
	defer func() { observe(backendTemplate, err) }()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyPrompt
	}
	return render(req.WithDefaults()), nil
}

func render(r Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Enhanced version of: \"%s\"", r.Text)
	if n := len(r.AttachmentTypes); n > 0 {
		fmt.Fprintf(&b, "\n\nAttached files: %s - Please analyze and incorporate insights from these %d file(s) into your response.",
			strings.Join(r.AttachmentKinds(), ", "), n)
	}
	fmt.Fprintf(&b, "\n\nRefined for %s with %s tone, %s, formatted as %s.", r.TargetModel, r.Tone, r.Persona, r.OutputFormat)
	b.WriteString("\n\nThis refined prompt includes:")
	fmt.Fprintf(&b, "\n- Better context and clarity leveraging your profession as %s", r.Profession)
	b.WriteString("\n- Specific instructions for improved output quality")
	fmt.Fprintf(&b, "\n- Consideration of attached files and their content (%d files analyzed)", len(r.AttachmentTypes))
	b.WriteString("\n- Optimized structure for the selected AI model")
	b.WriteString("\n- Enhanced prompting techniques for better results")
	b.WriteString("\n- Personalized approach based on your professional background")
	return b.String()
}

// Reply returns the canned refinement suggestions.
func (TemplateRefiner) Reply(ctx context.Context, _ []domain.ChatMessage, input string) (out string, err error) {
	defer func() { observe(backendTemplate, err) }()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyPrompt
	}
	return fmt.Sprintf("I understand you want to refine: \"%s\". Here are some suggestions to improve your prompt:\n\n"+
		"1. Add more specific context\n"+
		"2. Define the desired output format\n"+
		"3. Include examples if helpful\n\n"+
		"Would you like me to help you implement any of these improvements?", input), nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
