package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatestSlot(t *testing.T) {
	slot := NewLatestSlot()

	t.Run("empty slot returns nil", func(t *testing.T) {
		assert.Nil(t, slot.Take())
	})

	t.Run("newer frame replaces older", func(t *testing.T) {
		slot.Put(NewFrame("old", []byte{1}, time.Now()))
		slot.Put(NewFrame("new", []byte{2}, time.Now()))

		got := slot.Take()
		assert.NotNil(t, got)
		assert.Equal(t, "new", got.ID)
	})

	t.Run("take drains the slot", func(t *testing.T) {
		assert.Nil(t, slot.Take())
	})
}

func TestFrameFingerprint(t *testing.T) {
	a := NewFrame("a", []byte("same-pixels"), time.Now())
	b := NewFrame("b", []byte("same-pixels"), time.Now())
	c := NewFrame("c", []byte("other-pixels"), time.Now())

	// Отпечаток зависит только от пикселей, не от ID кадра
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 32)
}
