package purchase_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/inkwell/inkwell-api/internal/domain/catalog"
	"github.com/inkwell/inkwell-api/internal/domain/ledger"
	"github.com/inkwell/inkwell-api/internal/domain/purchase"
	"github.com/inkwell/inkwell-api/internal/pkg/omise"
)

const webhookSecret = "whsec_integration"

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("db not available: %v", err)
	}
	return db
}

func cleanupTestDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	db.Exec("DELETE FROM coin_ledger")
	db.Exec("DELETE FROM coin_purchases")
	db.Exec("DELETE FROM coin_packs WHERE name LIKE 'test-%'")
	db.Exec("DELETE FROM users WHERE email LIKE '%@purchase.test'")
	db.Close()
}

func createTestUser(t *testing.T, db *sqlx.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO users (id, email, role) VALUES ($1, $2, 'reader')
	`, id, fmt.Sprintf("%s@purchase.test", id.String()[:8]))
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return id
}

func createTestPack(t *testing.T, db *sqlx.DB, coins, bonus int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO coin_packs (id, name, price, coins, bonus_coins, is_active)
		VALUES ($1, $2, 5900, $3, $4, true)
	`, id, "test-"+id.String()[:8], coins, bonus)
	if err != nil {
		t.Fatalf("create pack failed: %v", err)
	}
	return id
}

func newSettlementService(db *sqlx.DB, gateway purchase.Gateway) (*purchase.Service, *purchase.Repository) {
	ledgerRepo := ledger.NewRepository(db)
	repo := purchase.NewRepository(db, ledgerRepo)
	catalogSvc := catalog.NewService(catalog.NewRepository(db))
	svc := purchase.NewService(repo, catalogSvc, gateway, purchase.Config{WebhookSecret: webhookSecret})
	return svc, repo
}

func chargeCompleteBody(chargeID, status string) ([]byte, string) {
	body := []byte(fmt.Sprintf(
		`{"key":"charge.complete","data":{"id":"%s","status":"%s","failure_code":"insufficient_fund","failure_message":"not enough balance"}}`,
		chargeID, status))
	return body, omise.GenerateSignature(body, webhookSecret)
}

func seedIntent(t *testing.T, repo *purchase.Repository, userID, packID uuid.UUID, coins int64) *purchase.Intent {
	t.Helper()
	intent, err := repo.CreateIntent(context.Background(), purchase.CreateIntentParams{
		UserID:         userID,
		CoinPackID:     packID,
		CoinsGranted:   coins,
		PaidAmount:     5900,
		PaymentGateway: "omise",
		GatewayTxID:    "chrg_" + uuid.New().String()[:13],
		PaymentMethod:  "promptpay",
	})
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	return intent
}

func TestSettlementCreditsExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	packID := createTestPack(t, db, 65, 5)
	svc, repo := newSettlementService(db, nil)
	ledgerRepo := ledger.NewRepository(db)

	intent := seedIntent(t, repo, userID, packID, 70)
	body, sig := chargeCompleteBody(intent.GatewayTxID, omise.ChargeStatusSuccessful)

	result, err := svc.HandleWebhook(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if result.Outcome != purchase.OutcomeCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.Outcome)
	}

	balance, err := ledgerRepo.BalanceOf(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 70 {
		t.Fatalf("expected balance 70, got %d", balance)
	}

	// Redelivery of the same event must not credit again.
	result, err = svc.HandleWebhook(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if result.Outcome != purchase.OutcomeNoop {
		t.Fatalf("expected NOOP on redelivery, got %s", result.Outcome)
	}

	balance, _ = ledgerRepo.BalanceOf(context.Background(), userID)
	if balance != 70 {
		t.Fatalf("expected balance 70 after redelivery, got %d", balance)
	}

	settled, err := repo.GetByGatewayTxID(context.Background(), intent.GatewayTxID)
	if err != nil {
		t.Fatalf("get intent failed: %v", err)
	}
	if settled.Status != purchase.StatusCompleted {
		t.Fatalf("expected COMPLETED status, got %s", settled.Status)
	}
	if !settled.SettledAt.Valid {
		t.Fatal("expected settled_at to be set")
	}
}

func TestSettlementFailedChargeDoesNotCredit(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	packID := createTestPack(t, db, 30, 0)
	svc, repo := newSettlementService(db, nil)
	ledgerRepo := ledger.NewRepository(db)

	intent := seedIntent(t, repo, userID, packID, 30)
	body, sig := chargeCompleteBody(intent.GatewayTxID, omise.ChargeStatusFailed)

	result, err := svc.HandleWebhook(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("delivery failed: %v", err)
	}
	if result.Outcome != purchase.OutcomeFailed {
		t.Fatalf("expected FAILED, got %s", result.Outcome)
	}

	balance, _ := ledgerRepo.BalanceOf(context.Background(), userID)
	if balance != 0 {
		t.Fatalf("expected balance 0 after failed charge, got %d", balance)
	}

	failed, err := repo.GetByGatewayTxID(context.Background(), intent.GatewayTxID)
	if err != nil {
		t.Fatalf("get intent failed: %v", err)
	}
	if failed.FailureCode.String != "insufficient_fund" {
		t.Fatalf("expected failure code recorded, got %q", failed.FailureCode.String)
	}
}

func TestSettlementLateSuccessAfterExpiry(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	packID := createTestPack(t, db, 30, 0)
	svc, repo := newSettlementService(db, nil)
	ledgerRepo := ledger.NewRepository(db)

	intent := seedIntent(t, repo, userID, packID, 30)
	if _, err := db.Exec(
		`UPDATE coin_purchases SET created_at = now() - interval '48 hours' WHERE id = $1`,
		intent.ID); err != nil {
		t.Fatalf("backdate intent failed: %v", err)
	}

	n, err := svc.ExpireStale(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("expire sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired intent, got %d", n)
	}

	// A success arriving after expiry must not revive the intent.
	body, sig := chargeCompleteBody(intent.GatewayTxID, omise.ChargeStatusSuccessful)
	result, err := svc.HandleWebhook(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("late delivery failed: %v", err)
	}
	if result.Outcome != purchase.OutcomeNoop {
		t.Fatalf("expected NOOP for expired intent, got %s", result.Outcome)
	}

	balance, _ := ledgerRepo.BalanceOf(context.Background(), userID)
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestWebhookUnknownTransaction(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	svc, _ := newSettlementService(db, nil)
	body, sig := chargeCompleteBody("chrg_does_not_exist", omise.ChargeStatusSuccessful)

	_, err := svc.HandleWebhook(context.Background(), body, sig)
	if !errors.Is(err, purchase.ErrUnknownTransaction) {
		t.Fatalf("expected ErrUnknownTransaction, got %v", err)
	}
}

type fakeGateway struct {
	failCharge bool
	lastCharge omise.CreateChargeRequest
}

func (f *fakeGateway) CreateSource(ctx context.Context, sourceType string, amount int64, currency string) (*omise.Source, error) {
	return &omise.Source{ID: "src_test", Type: sourceType, Amount: amount, Currency: currency}, nil
}

func (f *fakeGateway) CreateCharge(ctx context.Context, req omise.CreateChargeRequest) (*omise.Charge, error) {
	if f.failCharge {
		return nil, errors.New("gateway is down")
	}
	f.lastCharge = req
	return &omise.Charge{
		ID:     "chrg_" + uuid.New().String()[:13],
		Status: omise.ChargeStatusPending,
		Amount: req.Amount,
	}, nil
}

func TestCheckoutSnapshotsCoins(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	packID := createTestPack(t, db, 140, 20)
	gw := &fakeGateway{}
	svc, repo := newSettlementService(db, gw)

	checkout, err := svc.CreateCheckout(context.Background(), userID, purchase.CheckoutRequest{
		CoinPackID:    packID,
		PaymentMethod: "promptpay",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if gw.lastCharge.Amount != 5900 {
		t.Fatalf("expected charge amount 5900, got %d", gw.lastCharge.Amount)
	}

	intent, err := repo.GetByGatewayTxID(context.Background(), checkout.ChargeID)
	if err != nil {
		t.Fatalf("get intent failed: %v", err)
	}
	if intent.Status != purchase.StatusPending {
		t.Fatalf("expected PENDING intent, got %s", intent.Status)
	}
	if intent.CoinsGranted != 160 {
		t.Fatalf("expected coins_granted 160 (coins + bonus), got %d", intent.CoinsGranted)
	}
}

func TestCheckoutGatewayFailureLeavesNothing(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	packID := createTestPack(t, db, 30, 0)
	svc, _ := newSettlementService(db, &fakeGateway{failCharge: true})

	_, err := svc.CreateCheckout(context.Background(), userID, purchase.CheckoutRequest{
		CoinPackID:    packID,
		PaymentMethod: "truemoney",
	})
	if !errors.Is(err, purchase.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}

	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM coin_purchases WHERE user_id = $1`, userID); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no intents persisted, got %d", count)
	}
}

func TestCheckoutInactivePack(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	packID := createTestPack(t, db, 30, 0)
	if _, err := db.Exec(`UPDATE coin_packs SET is_active = false WHERE id = $1`, packID); err != nil {
		t.Fatalf("deactivate pack failed: %v", err)
	}
	svc, _ := newSettlementService(db, &fakeGateway{})

	_, err := svc.CreateCheckout(context.Background(), userID, purchase.CheckoutRequest{
		CoinPackID:    packID,
		PaymentMethod: "promptpay",
	})
	if !errors.Is(err, purchase.ErrInvalidPack) {
		t.Fatalf("expected ErrInvalidPack, got %v", err)
	}
}
