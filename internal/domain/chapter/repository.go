package chapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrChapterNotFound = errors.New("chapter not found")
	ErrInternal        = errors.New("internal chapter error")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetPricing returns the pricing slice of a chapter.
func (r *Repository) GetPricing(ctx context.Context, chapterID uuid.UUID) (*Pricing, error) {
	var p Pricing
	err := r.db.GetContext(ctx, &p, `
		SELECT c.id, n.author_id, c.coin_price
		FROM chapters c
		JOIN novels n ON n.id = c.novel_id
		WHERE c.id = $1
	`, chapterID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChapterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get pricing", ErrInternal)
	}
	return &p, nil
}
