package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns purchasable packs ordered for display.
func (r *Repository) ListActive(ctx context.Context) ([]CoinPack, error) {
	packs := []CoinPack{}
	err := r.db.SelectContext(ctx, &packs, `
		SELECT id, name, price, coins, bonus_coins, is_active, is_featured, sort_order, created_at
		FROM coin_packs
		WHERE is_active = true
		ORDER BY sort_order ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list packs", ErrInternal)
	}
	return packs, nil
}

// Get returns a pack by id regardless of active flag; callers decide
// whether inactive is acceptable.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*CoinPack, error) {
	var pack CoinPack
	err := r.db.GetContext(ctx, &pack, `
		SELECT id, name, price, coins, bonus_coins, is_active, is_featured, sort_order, created_at
		FROM coin_packs
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get pack", ErrInternal)
	}
	return &pack, nil
}
