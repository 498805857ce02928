package engine

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/domain"
	"github.com/xela07ax/integra-gate/internal/infra/auth"
)

// ScopeOperate — право дергать решающий контур шлюза.
const ScopeOperate = "gate.operate"

// API — HTTP-обвязка произведенного интерфейса ядра:
// start_session / process_frame / end_session.
type API struct {
	gate            *Gate
	monitor         *Monitor
	defaultDuration time.Duration
	logger          *zap.Logger
}

func NewAPI(gate *Gate, monitor *Monitor, defaultDuration time.Duration, logger *zap.Logger) *API {
	return &API{
		gate:            gate,
		monitor:         monitor,
		defaultDuration: defaultDuration,
		logger:          logger.Named("gate-api"),
	}
}

// Routes регистрирует эндпоинты на стандартном mux (data plane обходится
// без роутер-фреймворка, как и шлюзовая часть в остальной платформе).
func (a *API) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", a.handleStartSession)
	mux.HandleFunc("POST /v1/sessions/{id}/frames", a.handleProcessFrame)
	mux.HandleFunc("POST /v1/sessions/{id}/end", a.handleEndSession)
	mux.HandleFunc("POST /v1/monitor", a.handleRunMonitor)
}

type startSessionRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

type startSessionResponse struct {
	SessionID string    `json:"session_id"`
	Deadline  time.Time `json:"deadline"`
}

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if !a.authorized(w, r) {
		return
	}

	var req startSessionRequest
	// Пустое тело допустимо — возьмем длительность из конфига
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	duration := a.defaultDuration
	if req.DurationSeconds > 0 {
		duration = time.Duration(req.DurationSeconds) * time.Second
	}

	sess := a.gate.StartSession(duration)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(startSessionResponse{
		SessionID: sess.ID,
		Deadline:  sess.Deadline,
	})
}

func (a *API) handleProcessFrame(w http.ResponseWriter, r *http.Request) {
	if !a.authorized(w, r) {
		return
	}

	sessionID := r.PathValue("id")

	// Тело запроса — JPEG кадра как есть
	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		http.Error(w, "frame body is required", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	frame := camera.NewFrame(uuid.New().String(), data, time.Now())

	decision, err := a.gate.ProcessFrame(r.Context(), sessionID, frame)
	if err != nil {
		a.writeProcessError(w, sessionID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(decision)
}

func (a *API) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if !a.authorized(w, r) {
		return
	}

	sessionID := r.PathValue("id")

	summary, err := a.gate.EndSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		a.logger.Error("failed to end session", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "failed to end session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// handleRunMonitor гоняет живой цикл с камерой до дедлайна сессии
// и возвращает итоговую сводку. Вызов синхронный — как кнопка
// «начать мониторинг» у охраны.
func (a *API) handleRunMonitor(w http.ResponseWriter, r *http.Request) {
	if !a.authorized(w, r) {
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	duration := a.defaultDuration
	if req.DurationSeconds > 0 {
		duration = time.Duration(req.DurationSeconds) * time.Second
	}

	summary, err := a.monitor.Run(r.Context(), duration)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCameraUnavailable):
			http.Error(w, "camera unavailable", http.StatusServiceUnavailable)
		case errors.Is(err, domain.ErrModelNotTrained):
			http.Error(w, "face model is not trained", http.StatusServiceUnavailable)
		default:
			a.logger.Error("monitoring run failed", zap.Error(err))
			http.Error(w, "monitoring run failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// authorized проверяет право из токена (прокинуто Auth-middleware в контекст).
func (a *API) authorized(w http.ResponseWriter, r *http.Request) bool {
	scopes, ok := auth.ScopesFromContext(r.Context())
	if !ok || !scopes[ScopeOperate] {
		http.Error(w, "token does not grant gate.operate", http.StatusForbidden)
		return false
	}
	return true
}

func (a *API) writeProcessError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrSessionNotRunning):
		// Дедлайн прошел — state machine кадры больше не принимает
		http.Error(w, "session is not running", http.StatusConflict)
	case errors.Is(err, domain.ErrModelNotTrained):
		a.logger.Error("face model is not trained", zap.String("session_id", sessionID))
		http.Error(w, "face model is not trained", http.StatusServiceUnavailable)
	default:
		a.logger.Error("frame processing failed", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "frame processing failed", http.StatusInternalServerError)
	}
}
