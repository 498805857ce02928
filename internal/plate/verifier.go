package plate

import (
	"context"

	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/domain"
	"github.com/xela07ax/integra-gate/internal/registry"
	"go.uber.org/zap"
)

// RegistryLookup — горячий реестр номеров (см. пакет registry).
type RegistryLookup interface {
	Lookup(plate string) bool
}

// Verifier связывает извлечение текста номера с проверкой по реестру.
type Verifier struct {
	extractor Extractor // Обычно обернут в engine.Reliability
	cache     *Cache
	registry  RegistryLookup
	logger    *zap.Logger
}

func NewVerifier(extractor Extractor, cache *Cache, reg RegistryLookup, logger *zap.Logger) *Verifier {
	return &Verifier{
		extractor: extractor,
		cache:     cache,
		registry:  reg,
		logger:    logger.Named("plate-verifier"),
	}
}

// Evaluate возвращает вердикт по номеру для одного кадра.
// Любой сбой извлечения (таймаут, отказ вендора) деградирует до
// «номер не распознан» — кадр не должен ронять сессию (fail-safe).
func (v *Verifier) Evaluate(ctx context.Context, frame *camera.Frame) domain.PlateMatch {
	text, hit := v.cache.Get(ctx, frame.Fingerprint())
	if !hit {
		var err error
		text, err = v.extractor.ExtractText(ctx, frame)
		if err != nil {
			// Мягкая деградация: логируем и считаем, что номера нет
			v.logger.Warn("plate extraction failed, treating as no plate",
				zap.String("frame_id", frame.ID), zap.Error(err))
			return domain.PlateMatch{}
		}
		v.cache.Set(ctx, frame.Fingerprint(), text)
	}

	if text == "" {
		return domain.PlateMatch{}
	}

	norm := registry.Normalize(text)
	return domain.PlateMatch{
		Plate:      norm,
		Registered: v.registry.Lookup(norm),
	}
}
