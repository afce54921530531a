package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidesk-io/aidesk/internal/repository"
)

func newAuthFixture(t *testing.T) (*AuthService, context.Context) {
	t.Helper()
	repo := repository.NewMemoryTechnicianRepository()
	svc := NewAuthService(repo, "test-secret", WithTokenTTL(time.Hour))

	_, err := svc.Register(context.Background(), "carlos", "s3nha-forte", "Carlos Souza", "carlos@example.com")
	require.NoError(t, err)
	return svc, context.Background()
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, ctx := newAuthFixture(t)

	tech, token, err := svc.Login(ctx, "carlos", "s3nha-forte")
	require.NoError(t, err)
	assert.Equal(t, "carlos", tech.Username)
	require.NotEmpty(t, token)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, parsed.ID)
	assert.Equal(t, "Carlos Souza", parsed.Name)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, ctx := newAuthFixture(t)

	_, _, err := svc.Login(ctx, "carlos", "senha-errada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "ninguem", "s3nha-forte")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)

	// Token signed with a different secret.
	other := NewAuthService(repository.NewMemoryTechnicianRepository(), "other-secret")
	tech, err := other.Register(context.Background(), "ana", "senha", "Ana", "ana@example.com")
	require.NoError(t, err)
	foreign, err := other.generateToken(tech)
	require.NoError(t, err)

	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	repo := repository.NewMemoryTechnicianRepository()
	svc := NewAuthService(repo, "test-secret", WithTokenTTL(-time.Minute))

	_, err := svc.Register(context.Background(), "carlos", "senha", "Carlos", "")
	require.NoError(t, err)

	_, token, err := svc.Login(context.Background(), "carlos", "senha")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
