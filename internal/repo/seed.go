package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

func desc(s string) *string { return &s }

// SystemTemplates is the built-in public catalog. System templates have no
// owner.
var SystemTemplates = []domain.Template{
	{
		Title:          "Code Review Assistant",
		Description:    desc("Generate comprehensive code reviews with suggestions for improvement"),
		Category:       "development",
		TemplatePrompt: "Please review the following code and provide detailed feedback on code quality, potential bugs, performance optimizations, and best practices:",
		Tags:           []string{"code", "review", "development"},
	},
	{
		Title:          "Marketing Copy Generator",
		Description:    desc("Create compelling marketing copy for products and services"),
		Category:       "marketing",
		TemplatePrompt: "Create engaging marketing copy for [PRODUCT/SERVICE]. Focus on benefits, emotional appeal, and call-to-action. Target audience: [AUDIENCE]",
		Tags:           []string{"marketing", "copywriting", "sales"},
	},
	{
		Title:          "Technical Documentation",
		Description:    desc("Generate clear and comprehensive technical documentation"),
		Category:       "documentation",
		TemplatePrompt: "Create detailed technical documentation for [FEATURE/API/SYSTEM]. Include overview, implementation details, examples, and troubleshooting guide:",
		Tags:           []string{"documentation", "technical", "guide"},
	},
	{
		Title:          "Customer Support Response",
		Description:    desc("Craft professional and helpful customer support responses"),
		Category:       "support",
		TemplatePrompt: "Generate a professional customer support response for the following inquiry. Be empathetic, helpful, and provide clear next steps:",
		Tags:           []string{"support", "customer", "communication"},
	},
	{
		Title:          "Business Plan Generator",
		Description:    desc("Create comprehensive business plan sections"),
		Category:       "business",
		TemplatePrompt: "Generate a detailed business plan section for [SECTION TYPE]. Include market analysis, financial projections, and strategic recommendations for [BUSINESS TYPE]:",
		Tags:           []string{"business", "planning", "strategy"},
	},
	{
		Title:          "Creative Writing Assistant",
		Description:    desc("Help with creative writing projects and storytelling"),
		Category:       "creative",
		TemplatePrompt: "Help me develop a creative story with the following elements: [GENRE], [SETTING], [CHARACTERS]. Focus on engaging narrative and character development:",
		Tags:           []string{"creative", "writing", "storytelling"},
	},
}

// SeedSystemTemplates inserts the missing entries of SystemTemplates as
// public, ownerless templates and reports how many were added. A system
// template is identified by its title, so reruns add nothing.
func SeedSystemTemplates(ctx context.Context, db *gorm.DB) (int, error) {
	added := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, st := range SystemTemplates {
			var n int64
			if err := tx.Model(&domain.Template{}).
				Where("user_id IS NULL AND title = ?", st.Title).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			t := st
			t.UserID = nil
			t.IsPublic = true
			t.Tags = append([]string(nil), st.Tags...)
			if err := CreateTemplate(ctx, tx, &t); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
