package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/inkwell/inkwell-api/internal/domain/ledger"
)

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
	db.Exec("DELETE FROM users WHERE email LIKE '%@ledger.test'")
	db.Close()
}

func createTestUser(t *testing.T, db *sqlx.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO users (id, email, role) VALUES ($1, $2, 'reader')
	`, id, fmt.Sprintf("%s@ledger.test", id.String()[:8]))
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return id
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	repo := ledger.NewRepository(db)

	if _, err := repo.Append(context.Background(), userID, 5, ledger.ReasonPurchaseCredit, "seed"); err != nil {
		t.Fatalf("seed credit failed: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Append(context.Background(), userID, -1, ledger.ReasonUnlockDebit, fmt.Sprintf("debit-%d", i))
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ledger.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if success != 5 {
		t.Fatalf("expected 5 successful debits, got %d", success)
	}

	balance, err := repo.BalanceOf(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestDebitBelowZeroRejected(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	repo := ledger.NewRepository(db)

	if _, err := repo.Append(context.Background(), userID, 10, ledger.ReasonPurchaseCredit, "seed"); err != nil {
		t.Fatalf("seed credit failed: %v", err)
	}

	_, err := repo.Append(context.Background(), userID, -11, ledger.ReasonUnlockDebit, "too-much")
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	balance, _ := repo.BalanceOf(context.Background(), userID)
	if balance != 10 {
		t.Fatalf("expected balance 10 after rejected debit, got %d", balance)
	}
}

func TestZeroDeltaRejected(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	repo := ledger.NewRepository(db)

	_, err := repo.Append(context.Background(), userID, 0, ledger.ReasonAdjustment, "noop")
	if !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := createTestUser(t, db)
	repo := ledger.NewRepository(db)
	svc := ledger.NewService(repo)

	refs := []string{"first", "second", "third"}
	deltas := []int64{100, -30, -20}
	for i := range refs {
		if _, err := repo.Append(context.Background(), userID, deltas[i], ledger.ReasonAdjustment, refs[i]); err != nil {
			t.Fatalf("append %s failed: %v", refs[i], err)
		}
	}

	entries, err := svc.GetHistory(context.Background(), userID, 2, 0)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Delta != -20 || entries[1].Delta != -30 {
		t.Fatalf("expected newest first, got deltas %d, %d", entries[0].Delta, entries[1].Delta)
	}

	balance, _ := repo.BalanceOf(context.Background(), userID)
	if balance != 50 {
		t.Fatalf("expected derived balance 50, got %d", balance)
	}
}
