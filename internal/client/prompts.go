package client

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// DefaultPageSize is applied when an offset is given without a limit.
const DefaultPageSize = 10

// PromptQuery filters GetUserPrompts. Nil flags are not filtered on.
type PromptQuery struct {
	Limit     int
	Offset    int
	Saved     *bool
	Favorited *bool
}

func (q PromptQuery) params() map[string]string {
	p := map[string]string{}
	limit := q.Limit
	if q.Offset > 0 && limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > 0 {
		p["limit"] = strconv.Itoa(limit)
	}
	if q.Offset > 0 {
		p["offset"] = strconv.Itoa(q.Offset)
	}
	if q.Saved != nil {
		p["saved"] = strconv.FormatBool(*q.Saved)
	}
	if q.Favorited != nil {
		p["favorited"] = strconv.FormatBool(*q.Favorited)
	}
	return p
}

// CreatePrompt stores a new prompt for the signed-in user. Each call carries
// a fresh Idempotency-Key so a transport-level resend cannot duplicate it.
func (c *Client) CreatePrompt(ctx context.Context, in domain.NewPrompt) (*domain.Prompt, error) {
	const op = "create prompt"
	if strings.TrimSpace(in.InitialPrompt) == "" {
		return nil, invalidArg(op, "initial_prompt")
	}
	return send[*domain.Prompt](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Idempotency-Key", uuid.NewString()).SetBody(in).Post("/prompts")
	})
}

// GetUserPrompts lists the owner's prompts, newest first.
func (c *Client) GetUserPrompts(ctx context.Context, ownerID string, q PromptQuery) ([]domain.Prompt, error) {
	const op = "list prompts"
	if strings.TrimSpace(ownerID) == "" {
		return nil, invalidArg(op, "owner")
	}
	items, err := send[[]domain.Prompt](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(q.params()).Get("/prompts")
	})
	if items == nil && err == nil {
		items = []domain.Prompt{}
	}
	return items, err
}

// GetPrompt fetches one prompt.
func (c *Client) GetPrompt(ctx context.Context, id string) (*domain.Prompt, error) {
	const op = "get prompt"
	if strings.TrimSpace(id) == "" {
		return nil, invalidArg(op, "id")
	}
	return send[*domain.Prompt](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Get("/prompts/{id}")
	})
}

// UpdatePrompt applies a partial update and returns the stored prompt.
func (c *Client) UpdatePrompt(ctx context.Context, id string, patch domain.PromptPatch) (*domain.Prompt, error) {
	const op = "update prompt"
	if strings.TrimSpace(id) == "" {
		return nil, invalidArg(op, "id")
	}
	return send[*domain.Prompt](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).SetBody(patch).Patch("/prompts/{id}")
	})
}

// DeletePrompt removes a prompt. Attachment objects are not touched from
// here; the server drops dependent rows.
func (c *Client) DeletePrompt(ctx context.Context, id string) error {
	const op = "delete prompt"
	if strings.TrimSpace(id) == "" {
		return invalidArg(op, "id")
	}
	return sendNoContent(ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Delete("/prompts/{id}")
	})
}

// SubmitFeedback rates a prompt. A second submission replaces the first.
func (c *Client) SubmitFeedback(ctx context.Context, promptID string, fb domain.NewFeedback) (*domain.Feedback, error) {
	const op = "submit feedback"
	if strings.TrimSpace(promptID) == "" {
		return nil, invalidArg(op, "prompt_id")
	}
	return send[*domain.Feedback](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", promptID).SetBody(fb).Post("/prompts/{id}/feedback")
	})
}
