package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository provides the append-only coin ledger. Append is the only
// mutation primitive; everything else in the engine builds on it.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// lockUser takes a per-user advisory lock for the duration of the
// transaction. The ledger has no balance row to SELECT ... FOR UPDATE, so
// this is what serializes read-sum-then-append against concurrent
// mutations for the same user.
func lockUser(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID.String())
	if err != nil {
		return fmt.Errorf("%w: acquire user lock", ErrInternal)
	}
	return nil
}

// BalanceOf returns the derived balance: the sum of all entry deltas.
func (r *Repository) BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance, `
		SELECT COALESCE(SUM(delta), 0) FROM coin_ledger WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: sum ledger", ErrInternal)
	}
	return balance, nil
}

// BalanceTx derives the balance inside an external transaction. Callers
// must hold the user lock (AppendTx takes it) for the read to be safe
// against concurrent appends.
func (r *Repository) BalanceTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.GetContext(ctx, &balance, `
		SELECT COALESCE(SUM(delta), 0) FROM coin_ledger WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: sum ledger", ErrInternal)
	}
	return balance, nil
}

// AppendTx appends one entry inside an external transaction. For debits
// it re-derives the balance under the user lock and refuses to let it go
// negative. The caller commits or rolls back.
func (r *Repository) AppendTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta int64, reason Reason, referenceID string) (*Entry, error) {
	if delta == 0 {
		return nil, ErrInvalidAmount
	}

	if err := lockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	if delta < 0 {
		balance, err := r.BalanceTx(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		if balance+delta < 0 {
			return nil, ErrInsufficientBalance
		}
	}

	var ref interface{}
	if referenceID != "" {
		ref = referenceID
	}

	var entry Entry
	err := tx.GetContext(ctx, &entry, `
		INSERT INTO coin_ledger (user_id, delta, reason, reference_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, delta, reason, reference_id, created_at
	`, userID, delta, string(reason), ref)
	if err != nil {
		return nil, fmt.Errorf("%w: insert entry", ErrInternal)
	}
	return &entry, nil
}

// Append appends one entry in its own transaction.
func (r *Repository) Append(ctx context.Context, userID uuid.UUID, delta int64, reason Reason, referenceID string) (*Entry, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	entry, err := r.AppendTx(ctx, tx, userID, delta, reason, referenceID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return entry, nil
}

// History returns the user's entries, newest first.
func (r *Repository) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, error) {
	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, delta, reason, reference_id, created_at
		FROM coin_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: select history", ErrInternal)
	}
	return entries, nil
}
