package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/infra"
	"github.com/xela07ax/integra-gate/internal/plate"
)

// Reliability оборачивает вызовы vision-вендора (извлечение номера)
// в слой надежности: Rate Limiter -> Circuit Breaker -> Retries -> Timeout.
// Медленный или лежащий вендор не должен останавливать цикл кадров —
// наверху это деградирует до «номер не распознан» (fail-safe).
type Reliability struct {
	next    plate.Extractor
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	metrics *Metrics
}

func NewReliability(next plate.Extractor, cfg infra.PlateConfig, metrics *Metrics) *Reliability {
	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "plate-vision",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Если более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := 0.0
			if to == gobreaker.StateOpen {
				state = 1.0
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)
		},
	})

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)

	return &Reliability{
		next:    next,
		cb:      cb,
		limiter: limiter,
		timeout: cfg.CallTimeout,
		metrics: metrics,
	}
}

func (w *Reliability) ExtractText(ctx context.Context, frame *camera.Frame) (string, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit exceeded: %w", err)
	}

	var finalText string

	// 2. Circuit Breaker
	cbResult, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Если вендор вернул ThrottleError (считал Retry-After заголовок)
				var tErr *plate.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}

				// В остальных случаях (сетевой лаг, 500-ка) — стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, w.timeout)
			defer cancel()

			start := time.Now()
			var callErr error
			finalText, callErr = w.next.ExtractText(tCtx, frame)
			w.metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
			return callErr
		})

		return finalText, retryErr
	})

	if err != nil {
		return "", err
	}

	return cbResult.(string), nil
}
