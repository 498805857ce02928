package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/domain"
)

func newTestTracker(start time.Time) (*Tracker, *time.Time) {
	current := start
	tr := NewTracker(zap.NewNop())
	tr.now = func() time.Time { return current }
	return tr, &current
}

func TestTrackerLifecycle(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	t.Run("running session accepts frames", func(t *testing.T) {
		tr, _ := newTestTracker(base)
		sess := tr.Start(20 * time.Second)

		got, err := tr.Acquire(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, base.Add(20*time.Second), sess.Deadline)
	})

	t.Run("unknown session", func(t *testing.T) {
		tr, _ := newTestTracker(base)
		_, err := tr.Acquire("no-such-session")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("expired session rejects frames", func(t *testing.T) {
		tr, current := newTestTracker(base)
		sess := tr.Start(20 * time.Second)

		*current = base.Add(21 * time.Second)
		_, err := tr.Acquire(sess.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotRunning)
	})

	t.Run("deadline itself is still running", func(t *testing.T) {
		tr, current := newTestTracker(base)
		sess := tr.Start(20 * time.Second)

		*current = base.Add(20 * time.Second)
		_, err := tr.Acquire(sess.ID)
		assert.NoError(t, err)
	})
}

func TestTrackerFinalize(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	tr, current := newTestTracker(base)
	sess := tr.Start(20 * time.Second)

	sess.markProcessed()
	sess.markProcessed()
	require.True(t, sess.RecordAdmission(7))
	require.False(t, sess.RecordAdmission(7)) // Повтор не считается
	require.True(t, sess.RecordAdmission(9))

	*current = base.Add(15 * time.Second)
	summary, err := tr.Finalize(sess.ID)
	require.NoError(t, err)

	assert.Equal(t, sess.ID, summary.SessionID)
	assert.Equal(t, int64(2), summary.FramesProcessed)
	assert.Equal(t, int64(2), summary.DecisionsMade)
	assert.Equal(t, 2, summary.AdmittedCount)
	assert.Equal(t, 15*time.Second, summary.Duration)

	// Повторная финализация и кадры после нее невозможны
	_, err = tr.Finalize(sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = tr.Acquire(sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
