package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListActivePacks(ctx context.Context) ([]CoinPack, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) GetPack(ctx context.Context, id uuid.UUID) (*CoinPack, error) {
	return s.repo.Get(ctx, id)
}
