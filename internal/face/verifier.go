package face

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/domain"
	"go.uber.org/zap"
)

// Region — прямоугольник лица в кадре. Crop содержит вырезанные пиксели
// (JPEG), подготовленные детектором: ядро само с пикселями не работает.
type Region struct {
	X, Y, W, H int
	Crop       []byte
}

// Detector — внешний детектор лиц (каскад, нейросеть — неважно).
type Detector interface {
	DetectFaces(ctx context.Context, frame *camera.Frame) ([]Region, error)
}

// Matcher — обученный сопоставитель лиц. Возвращает ID личности и дистанцию
// (чем меньше, тем увереннее). Если артефакт модели отсутствует, обязан
// вернуть domain.ErrModelNotTrained, а не прикидываться «все неизвестные».
type Matcher interface {
	MatchFace(ctx context.Context, frame *camera.Frame, region Region) (int64, float64, error)
}

// IdentityDirectory — справочник личностей (обычно Postgres-репозиторий).
type IdentityDirectory interface {
	GetIdentity(ctx context.Context, id int64) (*domain.Identity, error)
}

// UnknownSink — боковой канал для снимков с откровенно плохим совпадением.
// Это аудит/подпитка переобучения, на возвращаемый вердикт не влияет.
type UnknownSink interface {
	Capture(ctx context.Context, crop []byte) error
}

// Verifier применяет пороговую политику к результатам внешнего матчера.
type Verifier struct {
	detector Detector
	matcher  Matcher
	dir      IdentityDirectory
	unknown  UnknownSink
	logger   *zap.Logger

	confidenceThreshold float64 // Строго меньше — принимаем
	poorMatchThreshold  float64 // Строго больше — снимок в боковой канал
}

func NewVerifier(
	detector Detector,
	matcher Matcher,
	dir IdentityDirectory,
	unknown UnknownSink,
	confidenceThreshold, poorMatchThreshold float64,
	logger *zap.Logger,
) *Verifier {
	return &Verifier{
		detector:            detector,
		matcher:             matcher,
		dir:                 dir,
		unknown:             unknown,
		logger:              logger.Named("face-verifier"),
		confidenceThreshold: confidenceThreshold,
		poorMatchThreshold:  poorMatchThreshold,
	}
}

// Evaluate возвращает по одному вердикту на каждый найденный регион,
// в порядке обнаружения. Пустой срез — в кадре нет лиц. Агрегация до
// одного вердикта на кадр — забота движка (см. Fold).
func (v *Verifier) Evaluate(ctx context.Context, frame *camera.Frame) ([]domain.FaceMatch, error) {
	regions, err := v.detector.DetectFaces(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	results := make([]domain.FaceMatch, 0, len(regions))
	for _, region := range regions {
		match, err := v.evaluateRegion(ctx, frame, region)
		if err != nil {
			// ErrModelNotTrained фатален: не глотаем, отдаем наверх
			return nil, err
		}
		results = append(results, match)
	}
	return results, nil
}

func (v *Verifier) evaluateRegion(ctx context.Context, frame *camera.Frame, region Region) (domain.FaceMatch, error) {
	identityID, distance, err := v.matcher.MatchFace(ctx, frame, region)
	if err != nil {
		if errors.Is(err, domain.ErrModelNotTrained) {
			return domain.FaceMatch{}, err
		}
		return domain.FaceMatch{}, fmt.Errorf("face match failed: %w", err)
	}

	switch {
	// Принимаем только при СТРОГОМ неравенстве: дистанция, равная порогу,
	// остается UNKNOWN
	case distance < v.confidenceThreshold:
		identity, err := v.dir.GetIdentity(ctx, identityID)
		if err != nil {
			if !errors.Is(err, domain.ErrIdentityNotFound) {
				v.logger.Warn("identity lookup failed, downgrading to unknown",
					zap.Int64("identity_id", identityID), zap.Error(err))
			}
			// Модель знает метку, а справочник — нет. Понижаем до UNKNOWN.
			return domain.FaceMatch{Status: domain.FaceUnknown, Distance: distance}, nil
		}
		return domain.FaceMatch{
			Status:     domain.FaceKnown,
			IdentityID: identityID,
			Distance:   distance,
			Identity:   identity,
		}, nil

	case distance > v.poorMatchThreshold:
		// Совсем чужое лицо — сохраняем снимок для разбора и дообучения.
		// Сбой бокового канала не влияет на вердикт.
		if err := v.unknown.Capture(ctx, region.Crop); err != nil {
			v.logger.Warn("unknown face capture failed", zap.Error(err))
		}
		return domain.FaceMatch{Status: domain.FaceUnknown, Distance: distance}, nil

	default:
		// Серая зона между порогами: не пускаем, но и снимок не пишем
		return domain.FaceMatch{Status: domain.FaceUnknown, Distance: distance}, nil
	}
}

// Fold сводит вердикты регионов к одному вердикту на кадр:
// первый KNOWN в порядке обнаружения, иначе UNKNOWN, на пустом списке NO_FACE.
func Fold(matches []domain.FaceMatch) domain.FaceMatch {
	if len(matches) == 0 {
		return domain.FaceMatch{Status: domain.FaceNone}
	}
	for _, m := range matches {
		if m.Status == domain.FaceKnown {
			return m
		}
	}
	return matches[0]
}
