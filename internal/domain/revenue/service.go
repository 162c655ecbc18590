package revenue

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo          *Repository
	minWithdrawal int64
}

func NewService(repo *Repository, minWithdrawal int64) *Service {
	return &Service{repo: repo, minWithdrawal: minWithdrawal}
}

// RequestWithdrawal reserves part of the writer's available accrual.
func (s *Service) RequestWithdrawal(ctx context.Context, writerID uuid.UUID, amount int64) (*WithdrawalRequest, error) {
	if amount < s.minWithdrawal {
		return nil, ErrBelowMinimum
	}

	req, err := s.repo.CreateWithdrawal(ctx, writerID, amount)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("writer_id", writerID.String()).
		Str("request_id", req.ID.String()).
		Int64("amount", amount).
		Msg("withdrawal requested")
	return req, nil
}

func (s *Service) GetSummary(ctx context.Context, writerID uuid.UUID) (*Summary, error) {
	return s.repo.GetSummary(ctx, writerID)
}

func (s *Service) ListWithdrawals(ctx context.Context, writerID uuid.UUID, limit, offset int) ([]WithdrawalRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListWithdrawals(ctx, writerID, limit, offset)
}

// UpdateStatus is the admin-side transition used after manual payout.
func (s *Service) UpdateStatus(ctx context.Context, requestID uuid.UUID, status WithdrawalStatus) (*WithdrawalRequest, error) {
	req, err := s.repo.UpdateStatus(ctx, requestID, status)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", requestID.String()).
		Str("status", string(status)).
		Msg("withdrawal status updated")
	return req, nil
}
