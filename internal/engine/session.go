package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/integra-gate/internal/domain"
	"go.uber.org/zap"
)

// Состояния сессии: IDLE -> RUNNING -> FINALIZING -> IDLE.
// Кадры принимаются только в RUNNING; FINALIZING всегда пишет сводку.
type sessionState int32

const (
	stateRunning sessionState = iota
	stateFinalizing
)

// Session — состояние одного прогона мониторинга.
type Session struct {
	ID        string
	StartedAt time.Time
	Deadline  time.Time

	mu       sync.Mutex
	state    sessionState
	admitted map[int64]struct{} // Кого уже пускали в этой сессии
	frames   int64
	decided  int64
}

// RecordAdmission отмечает проход личности. true — это первый проход
// в сессии (нужна first-grant запись), false — повтор (вставка идемпотентна,
// повторной записи не будет, но решение кадра не меняется).
func (s *Session) RecordAdmission(identityID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.admitted[identityID]; seen {
		return false
	}
	s.admitted[identityID] = struct{}{}
	return true
}

// IsExpired — сверка с wall-clock дедлайном.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.Deadline)
}

func (s *Session) markProcessed() {
	s.mu.Lock()
	s.frames++
	s.decided++
	s.mu.Unlock()
}

// Tracker владеет активными сессиями и их жизненным циклом.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time // Инжектируемые часы для тестов
	logger   *zap.Logger
}

func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		sessions: make(map[string]*Session),
		now:      time.Now,
		logger:   logger.Named("session-tracker"),
	}
}

// Start открывает новую сессию с wall-clock дедлайном (IDLE -> RUNNING).
func (t *Tracker) Start(duration time.Duration) *Session {
	now := t.now()
	s := &Session{
		ID:        uuid.New().String(),
		StartedAt: now,
		Deadline:  now.Add(duration),
		state:     stateRunning,
		admitted:  make(map[int64]struct{}),
	}

	t.mu.Lock()
	t.sessions[s.ID] = s
	t.mu.Unlock()

	t.logger.Info("monitoring session started",
		zap.String("session_id", s.ID),
		zap.Duration("duration", duration))
	return s
}

// Acquire возвращает сессию, пригодную для обработки кадра.
// Истекшая или финализируемая сессия кадров не принимает.
func (t *Tracker) Acquire(id string) (*Session, error) {
	t.mu.RLock()
	s, ok := t.sessions[id]
	t.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateRunning || s.IsExpired(t.now()) {
		return nil, domain.ErrSessionNotRunning
	}
	return s, nil
}

// Finalize переводит сессию в FINALIZING, считает сводку и убирает сессию
// из трекера (возврат в IDLE). Повторная финализация — ErrSessionNotFound.
func (t *Tracker) Finalize(id string) (domain.SessionSummary, error) {
	t.mu.Lock()
	s, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	t.mu.Unlock()

	if !ok {
		return domain.SessionSummary{}, domain.ErrSessionNotFound
	}

	s.mu.Lock()
	s.state = stateFinalizing
	endedAt := t.now()
	summary := domain.SessionSummary{
		SessionID:       s.ID,
		StartedAt:       s.StartedAt,
		EndedAt:         endedAt,
		Duration:        endedAt.Sub(s.StartedAt),
		FramesProcessed: s.frames,
		DecisionsMade:   s.decided,
		AdmittedCount:   len(s.admitted),
	}
	s.mu.Unlock()

	t.logger.Info("monitoring session finalized",
		zap.String("session_id", s.ID),
		zap.Int("admitted", summary.AdmittedCount),
		zap.Duration("elapsed", summary.Duration))
	return summary, nil
}
