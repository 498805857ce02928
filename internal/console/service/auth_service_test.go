package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xela07ax/integra-gate/internal/domain"
	"github.com/xela07ax/integra-gate/internal/infra/auth"
)

type stubOperators struct {
	operators map[string]*domain.Operator
}

func (s *stubOperators) GetOperatorByUsername(_ context.Context, username string) (*domain.Operator, error) {
	return s.operators[username], nil
}

func newAuthFixture(t *testing.T) (*AuthService, *auth.BaseValidator) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &stubOperators{operators: map[string]*domain.Operator{
		"guard": {
			ID:           "op-1",
			Username:     "guard",
			PasswordHash: string(hash),
			Scopes:       map[string]bool{"gate.operate": true},
		},
	}}

	return NewAuthService(repo, key, time.Hour), auth.NewBaseValidator(&key.PublicKey)
}

func TestGenerateToken(t *testing.T) {
	svc, validator := newAuthFixture(t)
	ctx := context.Background()

	t.Run("valid credentials yield verifiable token", func(t *testing.T) {
		resp, err := svc.GenerateToken(ctx, "guard", "secret")
		require.NoError(t, err)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Greater(t, resp.ExpiresIn, int64(0))

		claims, err := validator.VerifyToken("Bearer " + resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "op-1", claims.OperatorID)
		assert.True(t, claims.Scopes["gate.operate"])
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.GenerateToken(ctx, "guard", "wrong")
		assert.Error(t, err)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, err := svc.GenerateToken(ctx, "ghost", "secret")
		assert.Error(t, err)
	})
}
