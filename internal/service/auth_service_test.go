package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/crm-admin-api/internal/models"
	appErrors "github.com/noah-isme/crm-admin-api/pkg/errors"
)

func newAuthFixture(t *testing.T, status models.UserStatus) (*AuthService, *fakeUserRepo, *fakeAudit) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newFakeUserRepo(models.User{
		ID:       7,
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: string(hash),
		Role:     models.RoleAdministrator,
		Status:   status,
	})
	audit := &fakeAudit{}
	svc := NewAuthService(repo, audit, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "crm-admin-api",
	})
	return svc, repo, audit
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo, audit := newAuthFixture(t, models.StatusActive)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password123", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, int64(7), resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, models.RoleAdministrator, claims.Role)
	assert.Equal(t, "7", claims.Subject)

	stored := repo.snapshot()[7]
	require.NotNil(t, stored.LastLogin)
	assert.Equal(t, []string{models.AuditActionLogin}, audit.actions())
}

func TestAuthServiceLoginFailures(t *testing.T) {
	svc, _, _ := newAuthFixture(t, models.StatusActive)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "bad", Password: ""})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceRejectsInactiveAccounts(t *testing.T) {
	for _, status := range []models.UserStatus{models.StatusInactive, models.StatusPending} {
		svc, repo, _ := newAuthFixture(t, status)

		_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password123"})
		assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount), status)
		assert.Nil(t, repo.snapshot()[7].LastLogin)
	}
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _, _ := newAuthFixture(t, models.StatusActive)
	other := NewAuthService(newFakeUserRepo(), nil, nil, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "crm-admin-api"})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLoginRefreshesCachedListing(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newFakeUserRepo(models.User{ID: 7, Name: "Admin", Email: "admin@example.com", Password: string(hash), Role: models.RoleAdministrator, Status: models.StatusActive})
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	users := NewUserService(UserServiceParams{Repo: repo, Cache: cache, Logger: zap.NewNop(), BcryptCost: bcrypt.MinCost})
	auth := NewAuthService(repo, nil, cache, zap.NewNop(), AuthConfig{AccessTokenSecret: "test-secret", Issuer: "crm-admin-api"})
	ctx := context.Background()

	before, hit, err := users.List(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, before, 1)
	assert.Nil(t, before[0].LastLogin)
	require.True(t, cacheRepo.has(cacheKeyUsersList))

	_, err = auth.Login(ctx, models.LoginRequest{Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.False(t, cacheRepo.has(cacheKeyUsersList))

	after, hit, err := users.List(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NotNil(t, after[0].LastLogin)
}

func TestAuthServiceLoginKeepsCacheWhenLastLoginFails(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, models.StatusActive)
	cacheRepo := newFakeCacheRepo()
	svc.cache = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	repo.lastLoginErr = errBoom

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Empty(t, cacheRepo.deleted)
}
