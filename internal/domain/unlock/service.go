package unlock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/domain/chapter"
	"github.com/inkwell/inkwell-api/internal/domain/ledger"
)

// Config carries the spend-engine policy knobs.
type Config struct {
	// WriterRevenuePercent of each spend credited to the writer; the
	// remainder is the platform fee.
	WriterRevenuePercent int
	// AuthorFree lets writers read their own paid chapters without a
	// charge or an unlock record.
	AuthorFree bool
}

type Service struct {
	repo     *Repository
	chapters *chapter.Repository
	ledger   *ledger.Repository
	cfg      Config
}

func NewService(repo *Repository, chapters *chapter.Repository, ledgerRepo *ledger.Repository, cfg Config) *Service {
	return &Service{repo: repo, chapters: chapters, ledger: ledgerRepo, cfg: cfg}
}

// UnlockChapter spends coins to grant permanent access to one paid
// chapter. Idempotent: a repeat call reports success without side
// effects.
func (s *Service) UnlockChapter(ctx context.Context, userID, chapterID uuid.UUID) (*Result, error) {
	// An existing record wins before any pricing rule, so a chapter that
	// was repriced to free after purchase still retries as a no-op. The
	// unique constraint still closes the concurrent race below.
	exists, err := s.repo.Exists(ctx, userID, chapterID)
	if err != nil {
		return nil, err
	}
	if exists {
		return s.alreadyUnlocked(ctx, userID)
	}

	pricing, err := s.chapters.GetPricing(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if !pricing.IsPaid() {
		return nil, ErrNotPurchasable
	}

	if s.cfg.AuthorFree && pricing.AuthorID == userID {
		balance, err := s.ledger.BalanceOf(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &Result{Unlocked: true, CoinsSpent: 0, RemainingBalance: balance}, nil
	}

	writerShare := pricing.CoinPrice * int64(s.cfg.WriterRevenuePercent) / 100

	balance, err := s.repo.Unlock(ctx, userID, chapterID, pricing.AuthorID, pricing.CoinPrice, writerShare)
	if errors.Is(err, errDuplicate) {
		return s.alreadyUnlocked(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("chapter_id", chapterID.String()).
		Int64("coins_spent", pricing.CoinPrice).
		Int64("writer_share", writerShare).
		Msg("chapter unlocked")

	return &Result{
		Unlocked:         true,
		CoinsSpent:       pricing.CoinPrice,
		RemainingBalance: balance,
	}, nil
}

func (s *Service) alreadyUnlocked(ctx context.Context, userID uuid.UUID) (*Result, error) {
	balance, err := s.ledger.BalanceOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Result{
		Unlocked:         true,
		AlreadyUnlocked:  true,
		CoinsSpent:       0,
		RemainingBalance: balance,
	}, nil
}

// IsUnlocked is the read side consumed by the reader UI.
func (s *Service) IsUnlocked(ctx context.Context, userID, chapterID uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, userID, chapterID)
}
