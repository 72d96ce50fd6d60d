package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// KBArticleRepository reads knowledge-base articles.
type KBArticleRepository interface {
	// SearchPublished returns published articles whose title or content contains any of terms,
	// case-insensitively.
	SearchPublished(ctx context.Context, terms []string, limit int) ([]domain.KBArticle, error)
	GetBySlug(ctx context.Context, slug string) (*domain.KBArticle, error)
}

type kbArticleRepository struct {
	pool *pgxpool.Pool
}

// NewKBArticleRepository builds the repository.
func NewKBArticleRepository(pool *pgxpool.Pool) KBArticleRepository {
	return &kbArticleRepository{pool: pool}
}

func (r *kbArticleRepository) SearchPublished(ctx context.Context, terms []string, limit int) ([]domain.KBArticle, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	patterns := make([]string, len(terms))
	for i, term := range terms {
		patterns[i] = "%" + term + "%"
	}
	const query = `
        SELECT id, title, slug, content, published, created_at, updated_at
        FROM kb_articles
        WHERE published = TRUE AND (title ILIKE ANY($1) OR content ILIKE ANY($1))
        ORDER BY updated_at DESC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, patterns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KBArticle
	for rows.Next() {
		var a domain.KBArticle
		if err := rows.Scan(&a.ID, &a.Title, &a.Slug, &a.Content, &a.Published, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *kbArticleRepository) GetBySlug(ctx context.Context, slug string) (*domain.KBArticle, error) {
	const query = `
        SELECT id, title, slug, content, published, created_at, updated_at
        FROM kb_articles WHERE slug=$1`
	var a domain.KBArticle
	if err := r.pool.QueryRow(ctx, query, slug).Scan(&a.ID, &a.Title, &a.Slug, &a.Content, &a.Published, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
