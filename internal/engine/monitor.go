package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/domain"
)

// Monitor — живой цикл мониторинга: фоновый продюсер кадров наполняет
// однослотовый буфер, решающий цикл на фиксированном каденсе забирает
// свежайший кадр. Отмена возможна только между кадрами, и любой выход
// идет через EndSession — сводка сбрасывается всегда.
type Monitor struct {
	gate     *Gate
	source   camera.Source
	interval time.Duration
	logger   *zap.Logger
}

func NewMonitor(gate *Gate, source camera.Source, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		gate:     gate,
		source:   source,
		interval: interval,
		logger:   logger.Named("monitor"),
	}
}

// Run гоняет сессию до дедлайна или отмены контекста.
// Недоступная камера — фатально на старте (сессия не открывается).
func (m *Monitor) Run(ctx context.Context, duration time.Duration) (domain.SessionSummary, error) {
	// Пробный захват: не стартуем сессию вслепую
	probeCtx, cancelProbe := context.WithTimeout(ctx, 5*time.Second)
	probe, err := m.source.Capture(probeCtx)
	cancelProbe()
	if err != nil {
		return domain.SessionSummary{}, fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, err)
	}

	sess := m.gate.StartSession(duration)

	// Продюсер живет в своем контексте: глушим его до финализации
	prodCtx, stopProducer := context.WithCancel(ctx)
	defer stopProducer()

	slot := camera.NewLatestSlot()
	slot.Put(probe)
	go camera.Produce(prodCtx, m.source, slot, m.logger)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var runErr error

loop:
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitoring cancelled", zap.String("session_id", sess.ID))
			break loop

		case <-ticker.C:
			frame := slot.Take()
			if frame == nil {
				continue // Свежего кадра нет — ждем следующий тик
			}

			decision, err := m.gate.ProcessFrame(ctx, sess.ID, frame)
			if err != nil {
				if errors.Is(err, domain.ErrSessionNotRunning) {
					// Дедлайн сессии — штатное завершение
					break loop
				}
				// Фатальный сбой (нет модели) — завершаем с ошибкой,
				// но через финализацию
				runErr = err
				break loop
			}

			m.logger.Debug("frame processed",
				zap.String("session_id", sess.ID),
				zap.String("decision", string(decision.Decision)),
				zap.String("reason", string(decision.Reason)))
		}
	}

	stopProducer()

	// FINALIZING: сводка уходит в журнал при любом исходе.
	// Background — внешний контекст может быть уже отменен.
	summary, endErr := m.gate.EndSession(context.Background(), sess.ID)
	if runErr != nil {
		return summary, runErr
	}
	return summary, endErr
}
