package client

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// TemplateQuery filters GetPromptTemplates. Empty fields are ignored.
type TemplateQuery struct {
	Category   string
	PublicOnly bool
	// Search matches title or description, case-insensitively.
	Search string
}

func (q TemplateQuery) params() map[string]string {
	p := map[string]string{}
	if c := strings.TrimSpace(q.Category); c != "" && c != "all" {
		p["category"] = c
	}
	if q.PublicOnly {
		p["public_only"] = "true"
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		p["search"] = s
	}
	return p
}

// GetPromptTemplates lists visible templates, most used first.
func (c *Client) GetPromptTemplates(ctx context.Context, q TemplateQuery) ([]domain.Template, error) {
	items, err := send[[]domain.Template](ctx, c, "list templates", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(q.params()).Get("/templates")
	})
	if items == nil && err == nil {
		items = []domain.Template{}
	}
	return items, err
}

// CreateTemplate stores a template owned by the signed-in user.
func (c *Client) CreateTemplate(ctx context.Context, in domain.NewTemplate) (*domain.Template, error) {
	const op = "create template"
	switch {
	case strings.TrimSpace(in.Title) == "":
		return nil, invalidArg(op, "title")
	case strings.TrimSpace(in.Category) == "":
		return nil, invalidArg(op, "category")
	case strings.TrimSpace(in.TemplatePrompt) == "":
		return nil, invalidArg(op, "template_prompt")
	}
	return send[*domain.Template](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(in).Post("/templates")
	})
}

type usageResponse struct {
	ID         string `json:"id"`
	UsageCount int64  `json:"usage_count"`
}

// IncrementTemplateUsage bumps a template's usage counter by one on the
// server and returns the new count.
func (c *Client) IncrementTemplateUsage(ctx context.Context, id string) (int64, error) {
	const op = "use template"
	if strings.TrimSpace(id) == "" {
		return 0, invalidArg(op, "id")
	}
	res, err := send[usageResponse](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Post("/templates/{id}/use")
	})
	if err != nil {
		return 0, err
	}
	return res.UsageCount, nil
}
