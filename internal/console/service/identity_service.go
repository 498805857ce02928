package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/domain"
	"github.com/xela07ax/integra-gate/internal/face"
)

// IdentityRepository описывает требования к справочнику людей.
type IdentityRepository interface {
	Add(ctx context.Context, name, externalID, email string) (*domain.Identity, error)
	List(ctx context.Context) ([]domain.Identity, error)
}

// EnrollmentReport — итог регистрации человека: сколько образцов собрано
// и сколько лиц в модели после переобучения.
type EnrollmentReport struct {
	Identity       *domain.Identity `json:"identity"`
	SamplesSaved   int              `json:"samples_saved"`
	FacesInModel   int              `json:"faces_in_model"`
	ModelRetrained bool             `json:"model_retrained"`
}

// IdentityService ведет регистрацию людей: запись в справочник, сбор
// обучающих снимков и переобучение модели одним потоком.
type IdentityService struct {
	repo           IdentityRepository
	training       *face.Training
	samplesPerFace int
	logger         *zap.Logger
}

func NewIdentityService(repo IdentityRepository, training *face.Training, samplesPerFace int, logger *zap.Logger) *IdentityService {
	return &IdentityService{
		repo:           repo,
		training:       training,
		samplesPerFace: samplesPerFace,
		logger:         logger.Named("identity-service"),
	}
}

// Enroll регистрирует человека и сразу готовит модель: справочник ->
// сбор образцов -> переобучение. Повторная регистрация того же external_id
// идемпотентна — образцы дособерутся под существующей меткой.
func (s *IdentityService) Enroll(ctx context.Context, name, externalID, email string) (*EnrollmentReport, error) {
	identity, err := s.repo.Add(ctx, name, externalID, email)
	if err != nil {
		return nil, fmt.Errorf("identity enrollment failed: %w", err)
	}

	saved, err := s.training.CaptureSamples(ctx, identity.ID, identity.Name, s.samplesPerFace)
	if err != nil {
		// Запись в справочнике уже есть — образцы можно доснять повторным вызовом
		s.logger.Error("sample capture failed, identity left without training data",
			zap.Int64("identity_id", identity.ID), zap.Error(err))
		return nil, err
	}

	faces, err := s.training.Retrain(ctx)
	if err != nil {
		return &EnrollmentReport{Identity: identity, SamplesSaved: saved}, err
	}

	return &EnrollmentReport{
		Identity:       identity,
		SamplesSaved:   saved,
		FacesInModel:   faces,
		ModelRetrained: true,
	}, nil
}

// Retrain переобучает модель по накопленному набору без новой регистрации.
func (s *IdentityService) Retrain(ctx context.Context) (int, error) {
	return s.training.Retrain(ctx)
}

func (s *IdentityService) ListIdentities(ctx context.Context) ([]domain.Identity, error) {
	identities, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list identities", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch identities: %w", err)
	}
	if identities == nil {
		return []domain.Identity{}, nil
	}
	return identities, nil
}
