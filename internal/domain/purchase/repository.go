package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/inkwell/inkwell-api/internal/domain/ledger"
)

const intentColumns = `
	id, user_id, coin_pack_id, coins_granted, paid_amount, payment_gateway,
	gateway_tx_id, payment_method, gateway_payload, status,
	failure_code, failure_message, created_at, settled_at, expired_at`

type Repository struct {
	db     *sqlx.DB
	ledger *ledger.Repository
}

func NewRepository(db *sqlx.DB, ledgerRepo *ledger.Repository) *Repository {
	return &Repository{db: db, ledger: ledgerRepo}
}

// CreateIntentParams captures everything snapshotted onto a new intent.
type CreateIntentParams struct {
	UserID         uuid.UUID
	CoinPackID     uuid.UUID
	CoinsGranted   int64
	PaidAmount     int64
	PaymentGateway string
	GatewayTxID    string
	PaymentMethod  string
	GatewayPayload []byte
}

// CreateIntent persists a new PENDING intent. gateway_tx_id carries a
// unique index; a duplicate charge id is a gateway/engine desync and
// surfaces as ErrInternal.
func (r *Repository) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	var intent Intent
	err := r.db.GetContext(ctx, &intent, `
		INSERT INTO coin_purchases (
			user_id, coin_pack_id, coins_granted, paid_amount, payment_gateway,
			gateway_tx_id, payment_method, gateway_payload, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'PENDING')
		RETURNING`+intentColumns+`
	`, p.UserID, p.CoinPackID, p.CoinsGranted, p.PaidAmount, p.PaymentGateway,
		p.GatewayTxID, p.PaymentMethod, p.GatewayPayload)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: duplicate gateway transaction %s", ErrInternal, p.GatewayTxID)
		}
		return nil, fmt.Errorf("%w: insert intent", ErrInternal)
	}
	return &intent, nil
}

// GetByGatewayTxID looks an intent up by the gateway's charge id.
func (r *Repository) GetByGatewayTxID(ctx context.Context, gatewayTxID string) (*Intent, error) {
	var intent Intent
	err := r.db.GetContext(ctx, &intent, `
		SELECT`+intentColumns+`
		FROM coin_purchases
		WHERE gateway_tx_id = $1
	`, gatewayTxID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownTransaction
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get intent", ErrInternal)
	}
	return &intent, nil
}

// lockByGatewayTxID loads the intent row FOR UPDATE. Combined with the
// unique index this serializes two concurrent deliveries of the same
// gateway transaction: the loser blocks here and then sees the terminal
// status the winner committed.
func (r *Repository) lockByGatewayTxID(ctx context.Context, tx *sqlx.Tx, gatewayTxID string) (*Intent, error) {
	var intent Intent
	err := tx.GetContext(ctx, &intent, `
		SELECT`+intentColumns+`
		FROM coin_purchases
		WHERE gateway_tx_id = $1
		FOR UPDATE
	`, gatewayTxID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownTransaction
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock intent", ErrInternal)
	}
	return &intent, nil
}

// SettleFunc applies a transition to a locked PENDING intent and returns
// the outcome. It runs inside the settlement transaction.
type SettleFunc func(tx *sqlx.Tx, intent *Intent) (SettlementOutcome, error)

// Settle runs the settlement protocol for one gateway transaction: lock
// the intent, no-op if it is already terminal, otherwise apply fn. Both
// the status transition and any ledger credit fn performs commit
// together or not at all.
func (r *Repository) Settle(ctx context.Context, gatewayTxID string, fn SettleFunc) (*SettlementResult, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	intent, err := r.lockByGatewayTxID(ctx, tx, gatewayTxID)
	if err != nil {
		return nil, err
	}

	if intent.Status.IsTerminal() {
		return &SettlementResult{Outcome: OutcomeNoop, Intent: intent}, nil
	}

	outcome, err := fn(tx, intent)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return &SettlementResult{Outcome: outcome, Intent: intent}, nil
}

// CompleteTx marks the intent COMPLETED and credits the buyer's ledger in
// the same transaction.
func (r *Repository) CompleteTx(ctx context.Context, tx *sqlx.Tx, intent *Intent) error {
	err := tx.GetContext(ctx, intent, `
		UPDATE coin_purchases
		SET status = 'COMPLETED', settled_at = now()
		WHERE id = $1
		RETURNING`+intentColumns+`
	`, intent.ID)
	if err != nil {
		return fmt.Errorf("%w: mark completed", ErrInternal)
	}

	if _, err := r.ledger.AppendTx(ctx, tx, intent.UserID, intent.CoinsGranted, ledger.ReasonPurchaseCredit, intent.ID.String()); err != nil {
		return err
	}
	return nil
}

// FailTx marks the intent FAILED with the gateway's failure details.
func (r *Repository) FailTx(ctx context.Context, tx *sqlx.Tx, intent *Intent, code, message string) error {
	err := tx.GetContext(ctx, intent, `
		UPDATE coin_purchases
		SET status = 'FAILED', settled_at = now(), failure_code = $2, failure_message = $3
		WHERE id = $1
		RETURNING`+intentColumns+`
	`, intent.ID, nullable(code), nullable(message))
	if err != nil {
		return fmt.Errorf("%w: mark failed", ErrInternal)
	}
	return nil
}

// ExpireTx marks the intent EXPIRED.
func (r *Repository) ExpireTx(ctx context.Context, tx *sqlx.Tx, intent *Intent) error {
	err := tx.GetContext(ctx, intent, `
		UPDATE coin_purchases
		SET status = 'EXPIRED', expired_at = now()
		WHERE id = $1
		RETURNING`+intentColumns+`
	`, intent.ID)
	if err != nil {
		return fmt.Errorf("%w: mark expired", ErrInternal)
	}
	return nil
}

// ListByUser returns the user's purchase history, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Intent, error) {
	intents := []Intent{}
	err := r.db.SelectContext(ctx, &intents, `
		SELECT`+intentColumns+`
		FROM coin_purchases
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list intents", ErrInternal)
	}
	return intents, nil
}

// ExpireStale marks PENDING intents older than the cutoff EXPIRED.
// Settlement takes the same row lock, so a webhook racing the sweep
// either wins (intent terminal, sweep skips it) or loses (intent
// EXPIRED, webhook no-ops).
func (r *Repository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE coin_purchases
		SET status = 'EXPIRED', expired_at = now()
		WHERE status = 'PENDING' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: expire stale intents", ErrInternal)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected", ErrInternal)
	}
	return n, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
