package catalog_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/inkwell/inkwell-api/internal/domain/catalog"
)

func TestTotalCoinsIncludesBonus(t *testing.T) {
	pack := catalog.CoinPack{Coins: 140, BonusCoins: 20}
	if pack.TotalCoins() != 160 {
		t.Fatalf("expected 160, got %d", pack.TotalCoins())
	}
}

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

func TestListActiveSkipsInactiveAndOrders(t *testing.T) {
	db := setupTestDB(t)
	defer func() {
		db.Exec("DELETE FROM coin_packs WHERE name LIKE 'catalogtest-%'")
		db.Close()
	}()

	insert := func(name string, sortOrder int, active bool) {
		if _, err := db.Exec(`
			INSERT INTO coin_packs (name, price, coins, sort_order, is_active)
			VALUES ($1, 1000, 10, $2, $3)
		`, "catalogtest-"+name, sortOrder, active); err != nil {
			t.Fatalf("insert pack failed: %v", err)
		}
	}
	insert("second", 102, true)
	insert("first", 101, true)
	insert("hidden", 100, false)

	svc := catalog.NewService(catalog.NewRepository(db))
	packs, err := svc.ListActivePacks(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var mine []catalog.CoinPack
	for _, p := range packs {
		if len(p.Name) > 12 && p.Name[:12] == "catalogtest-" {
			mine = append(mine, p)
		}
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 active test packs, got %d", len(mine))
	}
	if mine[0].Name != "catalogtest-first" || mine[1].Name != "catalogtest-second" {
		t.Fatalf("expected sort_order ascending, got %s, %s", mine[0].Name, mine[1].Name)
	}
}

func TestGetUnknownPack(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := catalog.NewService(catalog.NewRepository(db))
	_, err := svc.GetPack(context.Background(), uuid.New())
	if !errors.Is(err, catalog.ErrPackNotFound) {
		t.Fatalf("expected ErrPackNotFound, got %v", err)
	}
}
