package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// TemplateFilter narrows ListTemplates.
//
// ViewerID limits results to public templates plus the viewer's own. Search
// is a substring match on title or description under Unicode case folding.
type TemplateFilter struct {
	ViewerID   string
	Category   string
	PublicOnly bool
	Search     string
}

// CreateTemplate inserts t with a fresh UUID and a zero usage count.
func CreateTemplate(ctx context.Context, db *gorm.DB, t *domain.Template) error {
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.UsageCount = 0
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return db.WithContext(ctx).Create(t).Error
}

// ListTemplates returns visible templates ordered by usage_count descending.
func ListTemplates(ctx context.Context, db *gorm.DB, f TemplateFilter) ([]domain.Template, error) {
	q := db.WithContext(ctx).Model(&domain.Template{})
	if f.ViewerID != "" {
		q = q.Where("is_public = ? OR user_id = ?", true, f.ViewerID)
	} else {
		q = q.Where("is_public = ?", true)
	}
	if f.PublicOnly {
		q = q.Where("is_public = ?", true)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		q = q.Where("category = ?", c)
	}
	out := []domain.Template{}
	if err := q.Order("usage_count DESC, created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		out = matchTemplates(out, s)
	}
	return out, nil
}

// matchTemplates keeps templates whose title or description contains term
// under Unicode case folding. SQLite's LOWER only folds ASCII, so this runs
// after the query.
func matchTemplates(in []domain.Template, term string) []domain.Template {
	term = cases.Fold().String(term)
	out := in[:0]
	for _, t := range in {
		title := cases.Fold().String(t.Title)
		var d string
		if t.Description != nil {
			d = cases.Fold().String(*t.Description)
		}
		if strings.Contains(title, term) || strings.Contains(d, term) {
			out = append(out, t)
		}
	}
	return out
}

// GetTemplate fetches a template by id.
func GetTemplate(ctx context.Context, db *gorm.DB, id string) (*domain.Template, error) {
	var t domain.Template
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// IncrementTemplateUsage adds one to usage_count in a single UPDATE and
// returns the resulting count. Concurrent calls never lose an increment.
func IncrementTemplateUsage(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Template{}).
			Where("id = ?", id).
			UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&domain.Template{}).
			Where("id = ?", id).
			Select("usage_count").
			Scan(&count).Error
	})
	return count, err
}

// ListTemplatesByOwner returns the templates userID created, newest first.
func ListTemplatesByOwner(ctx context.Context, db *gorm.DB, userID string) ([]domain.Template, error) {
	out := []domain.Template{}
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
