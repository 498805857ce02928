package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/domain"
)

type fakeSource struct {
	err error
}

func (s *fakeSource) Capture(_ context.Context) (*camera.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	return camera.NewFrame("live", []byte{0xff, 0xd8}, time.Now()), nil
}

func newMonitorFixture(src camera.Source) (*Monitor, *fakeSink) {
	faces := &fakeFaces{}
	plates := &fakePlates{}
	sink := &fakeSink{}
	gate := NewGate(faces, plates, NewTracker(zap.NewNop()), sink, NewMetrics(nil), zap.NewNop())
	return NewMonitor(gate, src, 10*time.Millisecond, zap.NewNop()), sink
}

func TestMonitorRunsUntilDeadline(t *testing.T) {
	monitor, sink := newMonitorFixture(&fakeSource{})

	summary, err := monitor.Run(context.Background(), 80*time.Millisecond)
	require.NoError(t, err)

	// Сводка сброшена ровно один раз, кадры обрабатывались
	require.Len(t, sink.summaries, 1)
	assert.Equal(t, summary.SessionID, sink.summaries[0].SessionID)
	assert.Greater(t, summary.FramesProcessed, int64(0))
}

func TestMonitorCameraUnavailable(t *testing.T) {
	monitor, sink := newMonitorFixture(&fakeSource{err: errors.New("no signal")})

	_, err := monitor.Run(context.Background(), time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCameraUnavailable)
	// Сессия не открывалась — нечего финализировать
	assert.Empty(t, sink.summaries)
}

func TestMonitorFinalizesOnCancel(t *testing.T) {
	monitor, sink := newMonitorFixture(&fakeSource{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := monitor.Run(ctx, time.Minute)
	require.NoError(t, err)
	// Отмена — не «тихий выход»: сводка все равно в журнале
	require.Len(t, sink.summaries, 1)
}
