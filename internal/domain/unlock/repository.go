package unlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/inkwell/inkwell-api/internal/domain/ledger"
	"github.com/inkwell/inkwell-api/internal/domain/revenue"
)

type Repository struct {
	db      *sqlx.DB
	ledger  *ledger.Repository
	revenue *revenue.Repository
}

func NewRepository(db *sqlx.DB, ledgerRepo *ledger.Repository, revenueRepo *revenue.Repository) *Repository {
	return &Repository{db: db, ledger: ledgerRepo, revenue: revenueRepo}
}

// Exists reports whether the user already unlocked the chapter.
func (r *Repository) Exists(ctx context.Context, userID, chapterID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM chapter_unlocks WHERE user_id = $1 AND chapter_id = $2)
	`, userID, chapterID)
	if err != nil {
		return false, fmt.Errorf("%w: existence check", ErrInternal)
	}
	return exists, nil
}

// Unlock performs the whole spend as one transaction: debit the reader's
// ledger, create the unlock record, credit the writer's accrual. All
// three commit together or none does, so a debited but unrecorded unlock
// can never become visible.
//
// Returns errDuplicate when a concurrent request won the unique
// constraint race on (user_id, chapter_id); the debit rolls back with the
// transaction.
func (r *Repository) Unlock(ctx context.Context, userID, chapterID, writerID uuid.UUID, price, writerShare int64) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if _, err := r.ledger.AppendTx(ctx, tx, userID, -price, ledger.ReasonUnlockDebit, chapterID.String()); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chapter_unlocks (user_id, chapter_id, coins_spent)
		VALUES ($1, $2, $3)
	`, userID, chapterID, price); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, errDuplicate
		}
		return 0, fmt.Errorf("%w: insert record", ErrInternal)
	}

	// Integer split can round a small price down to a zero share; the
	// unlock still proceeds, there is just nothing to accrue.
	if writerShare > 0 {
		if err := r.revenue.AccrueTx(ctx, tx, writerID, writerShare); err != nil {
			return 0, err
		}
	}

	balance, err := r.ledger.BalanceTx(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return balance, nil
}
