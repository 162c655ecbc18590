package purchase

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status of a purchase intent. PENDING transitions to exactly one
// terminal state and never regresses; the settlement processor enforces
// this against repeated gateway deliveries.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusExpired   Status = "EXPIRED"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// JSONRawMessage handles NULL json fields from DB
type JSONRawMessage []byte

func (j *JSONRawMessage) Scan(src any) error {
	if src == nil {
		*j = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = []byte(v)
	default:
		return fmt.Errorf("unsupported type: %T", src)
	}
	return nil
}

func (j JSONRawMessage) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// Intent is one attempted coin purchase. coins_granted is snapshotted at
// creation from the pack so later catalog edits cannot change what a
// pending purchase pays out.
type Intent struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	UserID         uuid.UUID      `db:"user_id" json:"user_id"`
	CoinPackID     uuid.UUID      `db:"coin_pack_id" json:"coin_pack_id"`
	CoinsGranted   int64          `db:"coins_granted" json:"coins_granted"`
	PaidAmount     int64          `db:"paid_amount" json:"paid_amount"`
	PaymentGateway string         `db:"payment_gateway" json:"payment_gateway"`
	GatewayTxID    string         `db:"gateway_tx_id" json:"gateway_tx_id"`
	PaymentMethod  string         `db:"payment_method" json:"payment_method"`
	GatewayPayload JSONRawMessage `db:"gateway_payload" json:"gateway_payload,omitempty"`
	Status         Status         `db:"status" json:"status"`
	FailureCode    sql.NullString `db:"failure_code" json:"failure_code,omitempty"`
	FailureMessage sql.NullString `db:"failure_message" json:"failure_message,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	SettledAt      sql.NullTime   `db:"settled_at" json:"settled_at,omitempty"`
	ExpiredAt      sql.NullTime   `db:"expired_at" json:"expired_at,omitempty"`
}

// CheckoutResponse is what the checkout endpoint hands to the client so
// it can drive the gateway's payment flow.
type CheckoutResponse struct {
	IntentID      uuid.UUID  `json:"intent_id"`
	ChargeID      string     `json:"charge_id"`
	PaymentMethod string     `json:"payment_method"`
	Amount        int64      `json:"amount"`
	QRCodeURL     string     `json:"qr_code_url,omitempty"`
	AuthorizeURI  string     `json:"authorize_uri,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// SettlementOutcome says what a webhook delivery did.
type SettlementOutcome string

const (
	OutcomeCompleted SettlementOutcome = "COMPLETED"
	OutcomeFailed    SettlementOutcome = "FAILED"
	OutcomeExpired   SettlementOutcome = "EXPIRED"
	// OutcomeNoop covers already-terminal intents, unrecognized event
	// kinds and unrecognized charge statuses; the gateway gets a 2xx so
	// it stops retrying.
	OutcomeNoop SettlementOutcome = "NOOP"
)

// SettlementResult pairs the outcome with the affected intent, when any.
type SettlementResult struct {
	Outcome SettlementOutcome
	Intent  *Intent
}
