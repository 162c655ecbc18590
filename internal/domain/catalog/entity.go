package catalog

import (
	"time"

	"github.com/google/uuid"
)

// CoinPack is a catalog entry: a coin bundle sold for a fixed THB price
// (satang). Packs referenced by a settled purchase are never repriced in
// place; the purchase snapshots coins_granted at creation time.
type CoinPack struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Price      int64     `db:"price" json:"price"`
	Coins      int64     `db:"coins" json:"coins"`
	BonusCoins int64     `db:"bonus_coins" json:"bonus_coins"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	IsFeatured bool      `db:"is_featured" json:"is_featured"`
	SortOrder  int       `db:"sort_order" json:"sort_order"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TotalCoins is what a completed purchase of this pack grants.
func (p *CoinPack) TotalCoins() int64 {
	return p.Coins + p.BonusCoins
}
