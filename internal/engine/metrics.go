package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько заняла обработка кадра (обе проверки + журнал)
	FrameDuration *prometheus.HistogramVec

	// Traffic: общее кол-во обработанных кадров
	FramesTotal prometheus.Counter

	// Решения в разрезе исход/причина
	DecisionsTotal *prometheus.CounterVec

	// Latency внешнего извлечения номера (вендор)
	ExtractionDuration prometheus.Histogram

	// Saturation: состояние Circuit Breaker вендора (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec

	// Audit: заполненность буфера журнала (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		FrameDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gate_frame_duration_seconds",
			Help:    "Histogram of per-frame processing latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"decision"}),

		FramesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gate_frames_total",
			Help: "Total number of processed frames.",
		}),

		DecisionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Total number of decisions by outcome and reason.",
		}, []string{"decision", "reason"}),

		ExtractionDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "gate_plate_extraction_duration_seconds",
			Help:    "Histogram of vendor plate-extraction latencies.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "gate_circuit_breaker_state",
			Help: "Current state of the vendor circuit breaker (0=closed, 1=open).",
		}, []string{"connector_id"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gate_audit_buffer_utilization",
			Help: "Current number of records in audit buffer.",
		}),
	}
}
