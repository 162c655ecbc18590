package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxHistoryLimit = 50

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.BalanceOf(ctx, userID)
}

func (s *Service) GetHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.History(ctx, userID, limit, offset)
}

// Adjust appends a manual correction entry. Positive or negative; a
// negative adjustment still may not drive the balance below zero.
func (s *Service) Adjust(ctx context.Context, userID uuid.UUID, delta int64, note string) (*Entry, error) {
	entry, err := s.repo.Append(ctx, userID, delta, ReasonAdjustment, note)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("user_id", userID.String()).
		Int64("delta", delta).
		Str("entry_id", entry.ID.String()).
		Msg("ledger adjustment applied")
	return entry, nil
}
