package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/domain"
	"github.com/xela07ax/integra-gate/internal/infra/auth"
)

func newAPIFixture() (*API, *fakeSink) {
	faces := &fakeFaces{matches: []domain.FaceMatch{{
		Status:     domain.FaceKnown,
		IdentityID: 7,
		Distance:   40,
		Identity:   &domain.Identity{ID: 7, Name: "Ivanov"},
	}}}
	plates := &fakePlates{match: domain.PlateMatch{Plate: "AB123CD", Registered: true}}
	sink := &fakeSink{}
	gate := NewGate(faces, plates, NewTracker(zap.NewNop()), sink, NewMetrics(nil), zap.NewNop())
	monitor := NewMonitor(gate, &fakeSource{}, 10*time.Millisecond, zap.NewNop())
	return NewAPI(gate, monitor, 20*time.Second, zap.NewNop()), sink
}

func operatorRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), auth.CtxKeyScopes, map[string]bool{ScopeOperate: true})
	return req.WithContext(ctx)
}

func TestAPISessionFlow(t *testing.T) {
	api, sink := newAPIFixture()
	mux := http.NewServeMux()
	api.Routes(mux)

	// Открываем сессию
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, operatorRequest(http.MethodPost, "/v1/sessions", []byte(`{"duration_seconds": 30}`)))
	require.Equal(t, http.StatusOK, w.Code)

	var started struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.SessionID)

	// Кадр — решение
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, operatorRequest(http.MethodPost, "/v1/sessions/"+started.SessionID+"/frames", []byte{0xff, 0xd8}))
	require.Equal(t, http.StatusOK, w.Code)

	var decision domain.GateDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, domain.DecisionGranted, decision.Decision)

	// Завершение — сводка
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, operatorRequest(http.MethodPost, "/v1/sessions/"+started.SessionID+"/end", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var summary domain.SessionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, int64(1), summary.FramesProcessed)
	assert.Len(t, sink.summaries, 1)
}

func TestAPIErrors(t *testing.T) {
	api, _ := newAPIFixture()
	mux := http.NewServeMux()
	api.Routes(mux)

	t.Run("frame without session", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, operatorRequest(http.MethodPost, "/v1/sessions/ghost/frames", []byte{0xff}))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("empty frame body", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, operatorRequest(http.MethodPost, "/v1/sessions/ghost/frames", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing scope is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
		ctx := context.WithValue(req.Context(), auth.CtxKeyScopes, map[string]bool{"other": true})

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req.WithContext(ctx))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no auth context is forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAPIMonitorRun(t *testing.T) {
	api, sink := newAPIFixture()
	mux := http.NewServeMux()
	api.Routes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, operatorRequest(http.MethodPost, "/v1/monitor", []byte(`{"duration_seconds": 1}`)))
	require.Equal(t, http.StatusOK, w.Code)

	var summary domain.SessionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Greater(t, summary.FramesProcessed, int64(0))
	assert.Len(t, sink.summaries, 1)
}
