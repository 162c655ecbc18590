package chapter

import "github.com/google/uuid"

// Pricing is the slice of a chapter row the coin engine consumes. The
// rest of the chapter (content, ordering, publication state) belongs to
// the reading service.
type Pricing struct {
	ChapterID uuid.UUID `db:"id"`
	AuthorID  uuid.UUID `db:"author_id"`
	CoinPrice int64     `db:"coin_price"`
}

// IsPaid reports whether the chapter requires an unlock at all.
func (p *Pricing) IsPaid() bool {
	return p.CoinPrice > 0
}
