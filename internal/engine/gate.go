package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/audit"
	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/domain"
	"github.com/xela07ax/integra-gate/internal/face"
)

// FaceEvaluator — проверка лиц (см. face.Verifier). Вердикты по регионам
// в порядке обнаружения.
type FaceEvaluator interface {
	Evaluate(ctx context.Context, frame *camera.Frame) ([]domain.FaceMatch, error)
}

// PlateEvaluator — проверка номера (см. plate.Verifier). Сбои уже
// деградированы внутри до «номера нет».
type PlateEvaluator interface {
	Evaluate(ctx context.Context, frame *camera.Frame) domain.PlateMatch
}

// Gate — ядро принятия решения. Сводит два независимых сигнала по правилу
// AND-fusion: проход только когда И лицо опознано, И номер зарегистрирован.
// Ослабление до OR меняет гарантию безопасности — правило не трогать.
type Gate struct {
	faces   FaceEvaluator
	plates  PlateEvaluator
	tracker *Tracker
	sink    audit.Sink
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewGate(
	faces FaceEvaluator,
	plates PlateEvaluator,
	tracker *Tracker,
	sink audit.Sink,
	metrics *Metrics,
	logger *zap.Logger,
) *Gate {
	return &Gate{
		faces:   faces,
		plates:  plates,
		tracker: tracker,
		sink:    sink,
		metrics: metrics,
		logger:  logger.Named("gate"),
		now:     time.Now,
	}
}

// StartSession открывает сессию мониторинга с заданным бюджетом времени.
func (g *Gate) StartSession(duration time.Duration) *Session {
	return g.tracker.Start(duration)
}

// ProcessFrame обрабатывает один кадр и возвращает решение.
// Каждый вызов дает ровно одну запись в журнале попыток.
// Наружу выходят только фатальные ошибки (нет модели, сессия не активна);
// сбои проверок деградируют до DENIED с конкретной причиной.
func (g *Gate) ProcessFrame(ctx context.Context, sessionID string, frame *camera.Frame) (*domain.GateDecision, error) {
	sess, err := g.tracker.Acquire(sessionID)
	if err != nil {
		return nil, err
	}

	g.metrics.FramesTotal.Inc()
	start := g.now()

	// 1. Оба сигнала проверяются независимо, порядок не влияет на исход
	faceVerdict := g.evaluateFace(ctx, frame)
	if faceVerdict.err != nil {
		// ModelNotTrained: не маскируем, сессия не должна молча
		// отказывать всем подряд
		return nil, faceVerdict.err
	}
	plateVerdict := g.plates.Evaluate(ctx, frame)

	// 2. Fusion (AND-rule): причины отказа в фиксированном приоритете
	decision := g.fuse(sessionID, extractTraceID(ctx), faceVerdict.match, plateVerdict)

	// 3. Session bookkeeping: first-grant дедуплицируется по личности
	sess.markProcessed()
	if decision.Decision == domain.DecisionGranted {
		if sess.RecordAdmission(decision.Identity.ID) {
			grant := audit.FirstGrant{
				SessionID:  sessionID,
				IdentityID: decision.Identity.ID,
				Timestamp:  decision.Timestamp,
			}
			// Синхронно: first-grant обязан попасть в журнал не позже
			// самой GRANTED-попытки
			if err := g.sink.AppendFirstGrant(ctx, grant); err != nil {
				g.logger.Error("failed to append first-grant record",
					zap.String("session_id", sessionID),
					zap.Int64("identity_id", decision.Identity.ID),
					zap.Error(err))
			}
		}
	}

	// 4. Каждая попытка — в журнал, независимо от исхода
	g.sink.AppendAttempt(audit.AttemptFromDecision(decision))

	g.metrics.DecisionsTotal.WithLabelValues(string(decision.Decision), string(decision.Reason)).Inc()
	g.metrics.FrameDuration.WithLabelValues(string(decision.Decision)).Observe(g.now().Sub(start).Seconds())

	return decision, nil
}

// EndSession финализирует сессию и всегда сбрасывает сводку в журнал —
// пути «тихого выхода» нет, в том числе при отмене.
func (g *Gate) EndSession(ctx context.Context, sessionID string) (domain.SessionSummary, error) {
	summary, err := g.tracker.Finalize(sessionID)
	if err != nil {
		return domain.SessionSummary{}, err
	}

	if err := g.sink.AppendSessionSummary(ctx, summary); err != nil {
		g.logger.Error("failed to flush session summary",
			zap.String("session_id", sessionID), zap.Error(err))
		return summary, fmt.Errorf("session summary flush failed: %w", err)
	}
	return summary, nil
}

type faceVerdict struct {
	match domain.FaceMatch
	err   error
}

func (g *Gate) evaluateFace(ctx context.Context, frame *camera.Frame) faceVerdict {
	results, err := g.faces.Evaluate(ctx, frame)
	if err != nil {
		if errors.Is(err, domain.ErrModelNotTrained) {
			return faceVerdict{err: err}
		}
		// Прочие сбои бэкенда лиц — fail-safe к NO_FACE на этом кадре
		g.logger.Warn("face evaluation failed, treating as no face",
			zap.String("frame_id", frame.ID), zap.Error(err))
		return faceVerdict{match: domain.FaceMatch{Status: domain.FaceNone}}
	}
	return faceVerdict{match: face.Fold(results)}
}

// fuse применяет AND-правило и собирает итоговое решение.
func (g *Gate) fuse(sessionID, traceID string, faceMatch domain.FaceMatch, plateMatch domain.PlateMatch) *domain.GateDecision {
	d := &domain.GateDecision{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		TraceID:   traceID,
		Timestamp: g.now(),
	}

	switch {
	case faceMatch.Status == domain.FaceNone:
		d.Decision = domain.DecisionDenied
		d.Reason = domain.ReasonNoFaceDetected

	case faceMatch.Status != domain.FaceKnown:
		d.Decision = domain.DecisionDenied
		d.Reason = domain.ReasonUnknownFace

	case plateMatch.Plate == "":
		d.Decision = domain.DecisionDenied
		d.Reason = domain.ReasonNoPlateDetected

	case !plateMatch.Registered:
		d.Decision = domain.DecisionDenied
		d.Reason = domain.ReasonUnregisteredVehicle
		d.Plate = plateMatch.Plate

	default:
		// Оба сигнала прошли независимо
		d.Decision = domain.DecisionGranted
		d.Reason = domain.ReasonAllVerified
		d.Identity = faceMatch.Identity
		d.Plate = plateMatch.Plate
	}

	d.Detail = d.Reason.Detail()
	return d
}
