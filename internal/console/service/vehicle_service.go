package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/domain"
	"github.com/xela07ax/integra-gate/internal/infra"
	"github.com/xela07ax/integra-gate/internal/infra/auth"
	"github.com/xela07ax/integra-gate/internal/registry"
)

// VehicleRepository описывает требования к хранилищу реестра транспорта.
type VehicleRepository interface {
	Register(ctx context.Context, plate string) (bool, error)
	Remove(ctx context.Context, plate string) (bool, error)
	List(ctx context.Context) ([]domain.RegisteredVehicle, error)
}

// VehicleService управляет реестром номеров: Postgres — источник правды,
// Redis — сигнальная шина для горячих реестров на шлюзах.
type VehicleService struct {
	*auth.BaseValidator
	repo   VehicleRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewVehicleService(rdb *redis.Client, repo VehicleRepository, validator *auth.BaseValidator, logger *zap.Logger) *VehicleService {
	return &VehicleService{
		BaseValidator: validator,
		repo:          repo,
		rdb:           rdb,
		logger:        logger.Named("vehicle-service"),
	}
}

// RegisterVehicle добавляет номер в реестр. Дубликат — штатный отказ
// (success=false), а не ошибка.
func (s *VehicleService) RegisterVehicle(ctx context.Context, rawPlate string) (*domain.RegistrationResult, error) {
	plate := registry.Normalize(rawPlate)
	if plate == "" {
		return &domain.RegistrationResult{Success: false, Message: "Plate is empty"}, nil
	}

	// 1. Persistence Layer
	inserted, err := s.repo.Register(ctx, plate)
	if err != nil {
		s.logger.Error("failed to register vehicle in DB",
			zap.String("plate", plate), zap.Error(err))
		return nil, fmt.Errorf("vehicle registration database error: %w", err)
	}
	if !inserted {
		return &domain.RegistrationResult{Success: false, Message: "Vehicle already registered"}, nil
	}

	// 2. Real-time Signaling: сет для прогрева + сигнал горячим реестрам
	s.signalRegistryChange(ctx, plate, true, "vehicle-register")

	return &domain.RegistrationResult{Success: true, Message: "Vehicle registered"}, nil
}

// RemoveVehicle убирает номер из реестра. false — номера и не было.
func (s *VehicleService) RemoveVehicle(ctx context.Context, rawPlate string) (bool, error) {
	plate := registry.Normalize(rawPlate)

	removed, err := s.repo.Remove(ctx, plate)
	if err != nil {
		s.logger.Error("failed to remove vehicle from DB",
			zap.String("plate", plate), zap.Error(err))
		return false, fmt.Errorf("vehicle removal database error: %w", err)
	}
	if !removed {
		return false, nil
	}

	s.signalRegistryChange(ctx, plate, false, "vehicle-remove")
	return true, nil
}

func (s *VehicleService) ListVehicles(ctx context.Context) ([]domain.RegisteredVehicle, error) {
	vehicles, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list vehicles", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch vehicles: %w", err)
	}
	// Фронтенд должен получить пустой массив [], а не null
	if vehicles == nil {
		return []domain.RegisteredVehicle{}, nil
	}
	return vehicles, nil
}

// signalRegistryChange транслирует изменение реестра в Redis: обновляет
// прогревочный сет и публикует сигнал для горячих реестров на шлюзах.
// Redis недоступен — не фатально: шлюз подтянет реестр при переподключении.
func (s *VehicleService) signalRegistryChange(ctx context.Context, plate string, registered bool, actionName string) {
	signal := "off"
	pipe := s.rdb.Pipeline()
	if registered {
		signal = "on"
		pipe.SAdd(ctx, infra.RedisKeyVehicleSet, plate)
	} else {
		pipe.SRem(ctx, infra.RedisKeyVehicleSet, plate)
	}
	pipe.Publish(ctx, infra.RedisChanVehicleRegistry, fmt.Sprintf("%s:%s", plate, signal))

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("registry signal delivery failed",
			zap.String("action", actionName),
			zap.String("plate", plate),
			zap.Error(err))
		return
	}

	s.logger.Info("vehicle registry updated",
		zap.String("action", actionName),
		zap.String("plate", plate))
}
