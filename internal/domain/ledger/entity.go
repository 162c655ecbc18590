package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Reason classifies a ledger entry.
type Reason string

const (
	ReasonPurchaseCredit Reason = "PURCHASE_CREDIT"
	ReasonUnlockDebit    Reason = "UNLOCK_DEBIT"
	ReasonRefund         Reason = "REFUND"
	ReasonAdjustment     Reason = "ADJUSTMENT"
)

// Entry is one immutable, signed balance adjustment. A user's balance is
// the sum of their entries' deltas; there is no balance column anywhere.
type Entry struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Delta       int64     `db:"delta" json:"delta"`
	Reason      Reason    `db:"reason" json:"reason"`
	ReferenceID *string   `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
