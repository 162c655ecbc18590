package revenue

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus tracks a request through its lifecycle. Fulfillment
// (the actual bank transfer) happens outside this service; PAID records
// its outcome.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "PENDING"
	WithdrawalApproved WithdrawalStatus = "APPROVED"
	WithdrawalPaid     WithdrawalStatus = "PAID"
	WithdrawalRejected WithdrawalStatus = "REJECTED"
)

// Accrual is a writer's running revenue total from reader spends.
type Accrual struct {
	WriterID       uuid.UUID `db:"writer_id" json:"writer_id"`
	AccruedCoins   int64     `db:"accrued_coins" json:"accrued_coins"`
	WithdrawnCoins int64     `db:"withdrawn_coins" json:"withdrawn_coins"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// WithdrawalRequest reserves part of a writer's accrual for payout.
type WithdrawalRequest struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	WriterID  uuid.UUID        `db:"writer_id" json:"writer_id"`
	Amount    int64            `db:"amount" json:"amount"`
	Status    WithdrawalStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// Summary is the writer-facing view of their revenue position.
type Summary struct {
	AccruedCoins   int64 `json:"accrued_coins"`
	WithdrawnCoins int64 `json:"withdrawn_coins"`
	ReservedCoins  int64 `json:"reserved_coins"`
	AvailableCoins int64 `json:"available_coins"`
}
