package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	plates []string
	err    error
}

func (s *fakeStore) AllPlates(_ context.Context) ([]string, error) {
	return s.plates, s.err
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"ab 123-cd":  "AB123CD",
		"AB123CD":    "AB123CD",
		" a1.b2\tc3": "A1B2C3",
		"":           "",
		"х123ор":     "Х123ОР", // Кириллица сохраняется как есть
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewVehicleRegistry(&fakeStore{plates: []string{"ab 123-cd", "XX999YY"}}, zap.NewNop())

	t.Run("empty registry denies everything", func(t *testing.T) {
		assert.False(t, reg.Lookup("AB123CD"))
	})

	require.NoError(t, reg.Refresh(context.Background()))

	t.Run("lookup normalizes both sides", func(t *testing.T) {
		assert.True(t, reg.Lookup("AB123CD"))
		assert.True(t, reg.Lookup("ab 123-cd"))
		assert.True(t, reg.Lookup("xx999yy"))
	})

	t.Run("unknown plate is denied", func(t *testing.T) {
		assert.False(t, reg.Lookup("ZZ000ZZ"))
	})
}

func TestRegistryRefreshFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	reg := NewVehicleRegistry(store, zap.NewNop())

	assert.Error(t, reg.Refresh(context.Background()))
}

func TestRegistryApply(t *testing.T) {
	reg := NewVehicleRegistry(&fakeStore{}, zap.NewNop())

	reg.Apply("ab 123-cd", true)
	assert.True(t, reg.Lookup("AB123CD"))

	reg.Apply("AB123CD", false)
	assert.False(t, reg.Lookup("AB123CD"))

	// Снятие несуществующего номера безвредно
	reg.Apply("ZZ000ZZ", false)
	assert.False(t, reg.Lookup("ZZ000ZZ"))
}

func TestRegistrySnapshot(t *testing.T) {
	reg := NewVehicleRegistry(&fakeStore{plates: []string{"A1", "B2"}}, zap.NewNop())
	require.NoError(t, reg.Refresh(context.Background()))

	snap := reg.Snapshot()
	assert.ElementsMatch(t, []string{"A1", "B2"}, snap)
}
