package omise

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EventChargeComplete is the only event kind that settles a purchase.
const EventChargeComplete = "charge.complete"

// WebhookEvent represents an Omise webhook delivery
type WebhookEvent struct {
	ID   string          `json:"id"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// ParseWebhook parses a raw webhook body
func ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if event.Key == "" {
		return nil, fmt.Errorf("invalid webhook payload: missing event key")
	}
	return &event, nil
}

// Charge decodes the event payload as a charge
func (e *WebhookEvent) Charge() (*Charge, error) {
	var charge Charge
	if err := json.Unmarshal(e.Data, &charge); err != nil {
		return nil, fmt.Errorf("invalid charge data: %w", err)
	}
	if charge.ID == "" {
		return nil, fmt.Errorf("invalid charge data: missing charge id")
	}
	return &charge, nil
}

// VerifySignature validates the HMAC-SHA256 hex signature over the raw
// webhook body. Returns false for an empty secret or signature.
func VerifySignature(payload []byte, signature string, secretKey string) bool {
	if secretKey == "" || signature == "" {
		return false
	}

	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	expected := h.Sum(nil)

	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(given, expected)
}

// GenerateSignature creates HMAC-SHA256 signature for testing
func GenerateSignature(payload []byte, secretKey string) string {
	if secretKey == "" {
		return ""
	}

	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
