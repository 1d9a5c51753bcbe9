package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"contentgate/api/internal/models"
)

type ContentRepository struct {
	db DBTX
}

func NewContentRepository(db DBTX) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (models.ContentItem, error) {
	const query = `
		SELECT id, kind, title, slug, category, excerpt, body, access_type, price, currency, file_key, published, created_at, updated_at
		FROM content_items WHERE id = $1
	`

	var item models.ContentItem
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.Kind,
		&item.Title,
		&item.Slug,
		&item.Category,
		&item.Excerpt,
		&item.Body,
		&item.AccessType,
		&item.Price,
		&item.Currency,
		&item.FileKey,
		&item.Published,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ContentItem{}, ErrNotFound
		}
		return models.ContentItem{}, fmt.Errorf("get content: %w", err)
	}
	return item, nil
}
