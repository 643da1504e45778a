package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/crm-admin-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "crm", nil)
	ctx := context.Background()

	assert.False(t, repo.Available())

	var dest []string
	err := repo.Get(ctx, "users:list", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "users:list", []string{"a"}, time.Minute))

	n, err := repo.DeleteByPattern(ctx, "users:*")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCacheRepositoryKeyNamespace(t *testing.T) {
	assert.Equal(t, "crm:users:list", NewCacheRepository(nil, "crm", nil).key("users:list"))
	assert.Equal(t, "users:list", NewCacheRepository(nil, "", nil).key("users:list"))
}
