package revenue

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

// AccrueTx increments a writer's accrual inside an external transaction.
// Called from the unlock path so the accrual commits or rolls back with
// the debit and the unlock record.
func (r *Repository) AccrueTx(ctx context.Context, tx *sqlx.Tx, writerID uuid.UUID, coins int64) error {
	if coins <= 0 {
		return fmt.Errorf("%w: accrual must be positive", ErrInternal)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO writer_revenue (writer_id, accrued_coins)
		VALUES ($1, $2)
		ON CONFLICT (writer_id) DO UPDATE
		SET accrued_coins = writer_revenue.accrued_coins + EXCLUDED.accrued_coins,
		    updated_at = now()
	`, writerID, coins)
	if err != nil {
		return fmt.Errorf("%w: accrue", ErrInternal)
	}
	return nil
}

// getAccrualForUpdate locks the writer's accrual row, creating it first
// so writers with no spends yet still get a deterministic zero row.
func (r *Repository) getAccrualForUpdate(ctx context.Context, tx *sqlx.Tx, writerID uuid.UUID) (*Accrual, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO writer_revenue (writer_id, accrued_coins)
		VALUES ($1, 0)
		ON CONFLICT (writer_id) DO NOTHING
	`, writerID); err != nil {
		return nil, fmt.Errorf("%w: ensure accrual row", ErrInternal)
	}

	var acc Accrual
	err := tx.GetContext(ctx, &acc, `
		SELECT writer_id, accrued_coins, withdrawn_coins, updated_at
		FROM writer_revenue
		WHERE writer_id = $1
		FOR UPDATE
	`, writerID)
	if err != nil {
		return nil, fmt.Errorf("%w: lock accrual row", ErrInternal)
	}
	return &acc, nil
}

// reservedTx sums open (PENDING or APPROVED) withdrawal requests.
func (r *Repository) reservedTx(ctx context.Context, tx *sqlx.Tx, writerID uuid.UUID) (int64, error) {
	var reserved int64
	err := tx.GetContext(ctx, &reserved, `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawal_requests
		WHERE writer_id = $1 AND status IN ('PENDING', 'APPROVED')
	`, writerID)
	if err != nil {
		return 0, fmt.Errorf("%w: sum reservations", ErrInternal)
	}
	return reserved, nil
}

// CreateWithdrawal inserts a request after checking, under a row lock on
// the accrual, that the amount fits in accrued − withdrawn − reserved.
func (r *Repository) CreateWithdrawal(ctx context.Context, writerID uuid.UUID, amount int64) (*WithdrawalRequest, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	acc, err := r.getAccrualForUpdate(ctx, tx, writerID)
	if err != nil {
		return nil, err
	}
	reserved, err := r.reservedTx(ctx, tx, writerID)
	if err != nil {
		return nil, err
	}

	available := acc.AccruedCoins - acc.WithdrawnCoins - reserved
	if amount > available {
		return nil, ErrInsufficientAccrual
	}

	var req WithdrawalRequest
	err = tx.GetContext(ctx, &req, `
		INSERT INTO withdrawal_requests (writer_id, amount, status)
		VALUES ($1, $2, 'PENDING')
		RETURNING id, writer_id, amount, status, created_at, updated_at
	`, writerID, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: insert request", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return &req, nil
}

// GetSummary returns the writer's revenue position.
func (r *Repository) GetSummary(ctx context.Context, writerID uuid.UUID) (*Summary, error) {
	var acc Accrual
	err := r.db.GetContext(ctx, &acc, `
		SELECT writer_id, accrued_coins, withdrawn_coins, updated_at
		FROM writer_revenue
		WHERE writer_id = $1
	`, writerID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get accrual", ErrInternal)
	}

	var reserved int64
	err = r.db.GetContext(ctx, &reserved, `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawal_requests
		WHERE writer_id = $1 AND status IN ('PENDING', 'APPROVED')
	`, writerID)
	if err != nil {
		return nil, fmt.Errorf("%w: sum reservations", ErrInternal)
	}

	return &Summary{
		AccruedCoins:   acc.AccruedCoins,
		WithdrawnCoins: acc.WithdrawnCoins,
		ReservedCoins:  reserved,
		AvailableCoins: acc.AccruedCoins - acc.WithdrawnCoins - reserved,
	}, nil
}

// ListWithdrawals returns a writer's requests, newest first.
func (r *Repository) ListWithdrawals(ctx context.Context, writerID uuid.UUID, limit, offset int) ([]WithdrawalRequest, error) {
	requests := []WithdrawalRequest{}
	err := r.db.SelectContext(ctx, &requests, `
		SELECT id, writer_id, amount, status, created_at, updated_at
		FROM withdrawal_requests
		WHERE writer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, writerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list requests", ErrInternal)
	}
	return requests, nil
}

// UpdateStatus transitions a request. PAID moves the amount from the
// reservation into withdrawn_coins; REJECTED just releases it (the open
// statuses stop counting toward the reserved sum).
func (r *Repository) UpdateStatus(ctx context.Context, requestID uuid.UUID, status WithdrawalStatus) (*WithdrawalRequest, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	var req WithdrawalRequest
	err = tx.GetContext(ctx, &req, `
		SELECT id, writer_id, amount, status, created_at, updated_at
		FROM withdrawal_requests
		WHERE id = $1
		FOR UPDATE
	`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock request", ErrInternal)
	}

	if !validTransition(req.Status, status) {
		return nil, ErrInvalidTransition
	}

	err = tx.GetContext(ctx, &req, `
		UPDATE withdrawal_requests
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, writer_id, amount, status, created_at, updated_at
	`, requestID, string(status))
	if err != nil {
		return nil, fmt.Errorf("%w: update request", ErrInternal)
	}

	if status == WithdrawalPaid {
		if _, err := tx.ExecContext(ctx, `
			UPDATE writer_revenue
			SET withdrawn_coins = withdrawn_coins + $2, updated_at = now()
			WHERE writer_id = $1
		`, req.WriterID, req.Amount); err != nil {
			return nil, fmt.Errorf("%w: record payout", ErrInternal)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return &req, nil
}

func validTransition(from, to WithdrawalStatus) bool {
	switch from {
	case WithdrawalPending:
		return to == WithdrawalApproved || to == WithdrawalRejected
	case WithdrawalApproved:
		return to == WithdrawalPaid || to == WithdrawalRejected
	default:
		return false
	}
}
