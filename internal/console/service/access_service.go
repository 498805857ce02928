package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/domain"
)

// AccessRepository описывает требования к журналу для выборок консоли.
type AccessRepository interface {
	FetchAccessHistory(ctx context.Context, f domain.AccessFilter) ([]domain.AccessRecord, error)
	GetGateStats(ctx context.Context) (*domain.GateStats, error)
}

// AccessService отдает историю проходов и агрегаты для дашборда.
type AccessService struct {
	repo   AccessRepository
	logger *zap.Logger
}

func NewAccessService(repo AccessRepository, logger *zap.Logger) *AccessService {
	return &AccessService{
		repo:   repo,
		logger: logger.Named("access-service"),
	}
}

func (s *AccessService) GetHistory(ctx context.Context, f domain.AccessFilter) ([]domain.AccessRecord, error) {
	records, err := s.repo.FetchAccessHistory(ctx, f)
	if err != nil {
		s.logger.Error("failed to fetch access history", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch history: %w", err)
	}
	if records == nil {
		return []domain.AccessRecord{}, nil
	}
	return records, nil
}

func (s *AccessService) GetStats(ctx context.Context) (*domain.GateStats, error) {
	// Тяжелые аналитические запросы; при росте нагрузки сюда просится
	// кэширование в Redis на минуту
	return s.repo.GetGateStats(ctx)
}
