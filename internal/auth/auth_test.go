package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/models"
	"github.com/luzzdev/luzzia/internal/storage"
)

func newTestAuth(t *testing.T) (*Service, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	return NewService(store, "test-secret", time.Hour, zap.NewNop()), store
}

func seedUser(t *testing.T, store *storage.MemoryStorage, username, password, role string) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Username: username, PasswordHash: hash, Role: role}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func TestLoginSuccess(t *testing.T) {
	svc, store := newTestAuth(t)
	seedUser(t, store, "maria", "segredo123", "admin")

	user, token, err := svc.Login(context.Background(), "maria", "segredo123")
	require.NoError(t, err)
	assert.Equal(t, "maria", user.Username)
	assert.NotEmpty(t, token)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "maria", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, store := newTestAuth(t)
	seedUser(t, store, "maria", "segredo123", "user")

	_, _, err := svc.Login(context.Background(), "maria", "errada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newTestAuth(t)
	_, _, err := svc.Login(context.Background(), "ninguem", "tanto faz")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUpdatesLastLogin(t *testing.T) {
	svc, store := newTestAuth(t)
	seeded := seedUser(t, store, "maria", "segredo123", "user")
	require.True(t, seeded.LastLogin.IsZero())

	_, _, err := svc.Login(context.Background(), "maria", "segredo123")
	require.NoError(t, err)

	stored, err := store.GetUserByUsername(context.Background(), "maria")
	require.NoError(t, err)
	assert.False(t, stored.LastLogin.IsZero())
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuth(t)
	_, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	store := storage.NewMemoryStorage()
	issuer := NewService(store, "secret-a", time.Hour, zap.NewNop())
	verifier := NewService(store, "secret-b", time.Hour, zap.NewNop())
	seedUser(t, store, "maria", "segredo123", "user")

	_, token, err := issuer.Login(context.Background(), "maria", "segredo123")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc := NewService(store, "test-secret", -time.Minute, zap.NewNop())
	seedUser(t, store, "maria", "segredo123", "user")

	_, token, err := svc.Login(context.Background(), "maria", "segredo123")
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashPasswordDistinctSalts(t *testing.T) {
	a, err := HashPassword("mesma senha")
	require.NoError(t, err)
	b, err := HashPassword("mesma senha")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
