package purchase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-api/internal/pkg/omise"
)

const testWebhookSecret = "whsec_test"

func newTestService(secret string) *Service {
	// Nil deps: every case below short-circuits before repo, catalog or
	// gateway are touched.
	return NewService(nil, nil, nil, Config{WebhookSecret: secret})
}

func TestCreateCheckoutUnsupportedMethod(t *testing.T) {
	svc := newTestService(testWebhookSecret)

	_, err := svc.CreateCheckout(context.Background(), uuid.New(), CheckoutRequest{
		PaymentMethod: "credit_card",
	})
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	svc := newTestService(testWebhookSecret)
	body := []byte(`{"key":"charge.complete","data":{"id":"chrg_1","status":"successful"}}`)

	_, err := svc.HandleWebhook(context.Background(), body, "deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	_, err = svc.HandleWebhook(context.Background(), body, "")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing header, got %v", err)
	}
}

func TestHandleWebhookInvalidPayload(t *testing.T) {
	svc := newTestService(testWebhookSecret)
	body := []byte(`{not json`)

	_, err := svc.HandleWebhook(context.Background(), body, omise.GenerateSignature(body, testWebhookSecret))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestHandleWebhookChargeWithoutID(t *testing.T) {
	svc := newTestService(testWebhookSecret)
	body := []byte(`{"key":"charge.complete","data":{"status":"successful"}}`)

	_, err := svc.HandleWebhook(context.Background(), body, omise.GenerateSignature(body, testWebhookSecret))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	svc := newTestService(testWebhookSecret)
	body := []byte(`{"key":"charge.create","data":{"id":"chrg_1","status":"pending"}}`)

	result, err := svc.HandleWebhook(context.Background(), body, omise.GenerateSignature(body, testWebhookSecret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeNoop {
		t.Fatalf("expected NOOP outcome, got %s", result.Outcome)
	}
}

func TestHandleWebhookSkipsVerificationWithoutSecret(t *testing.T) {
	svc := newTestService("")
	body := []byte(`{"key":"customer.update","data":{}}`)

	result, err := svc.HandleWebhook(context.Background(), body, "not-a-real-signature")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeNoop {
		t.Fatalf("expected NOOP outcome, got %s", result.Outcome)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if StatusPending.IsTerminal() {
		t.Fatal("PENDING must not be terminal")
	}
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusExpired} {
		if !s.IsTerminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
}
