package unlock

import (
	"time"

	"github.com/google/uuid"
)

// Record is one permanent reader-to-chapter access grant. At most one
// exists per (user, chapter); the second attempt is a no-op, never a
// double charge.
type Record struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	ChapterID  uuid.UUID `db:"chapter_id" json:"chapter_id"`
	CoinsSpent int64     `db:"coins_spent" json:"coins_spent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Result is what the reader gets back from an unlock attempt.
type Result struct {
	Unlocked         bool  `json:"unlocked"`
	AlreadyUnlocked  bool  `json:"already_unlocked"`
	CoinsSpent       int64 `json:"coins_spent"`
	RemainingBalance int64 `json:"remaining_balance"`
}
