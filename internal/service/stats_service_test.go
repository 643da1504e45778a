package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/crm-admin-api/internal/models"
)

type fakeStatRepo struct {
	calls int
	stats []models.Stat
}

func (f *fakeStatRepo) List(ctx context.Context) ([]models.Stat, error) {
	f.calls++
	return f.stats, nil
}

func newStatsFixture(users ...models.User) (*StatsService, *fakeStatRepo) {
	stats := &fakeStatRepo{stats: []models.Stat{{ID: 1, Title: "Total Contacts", Value: "3,842"}}}
	cache := NewCacheService(newFakeCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	return NewStatsService(StatsServiceParams{Stats: stats, Users: newFakeUserRepo(users...), Cache: cache}), stats
}

func TestStatsServiceListCaches(t *testing.T) {
	svc, repo := newStatsFixture()

	first, hit, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)
}

func TestStatsServiceUserDistribution(t *testing.T) {
	svc, _ := newStatsFixture(
		models.User{ID: 1, Role: models.RoleManager},
		models.User{ID: 2, Role: models.RoleManager},
		models.User{ID: 3, Role: models.RoleGuest},
	)

	shares, _, err := svc.UserDistribution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.RoleShare{
		{Role: models.RoleAdministrator, Count: 0, Percentage: 0},
		{Role: models.RoleManager, Count: 2, Percentage: 66.67},
		{Role: models.RoleEmployee, Count: 0, Percentage: 0},
		{Role: models.RoleGuest, Count: 1, Percentage: 33.33},
	}, shares)
}

func TestStatsServiceUserDistributionEmpty(t *testing.T) {
	svc, _ := newStatsFixture()

	shares, _, err := svc.UserDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, shares, 4)
	for _, s := range shares {
		assert.Zero(t, s.Count)
		assert.Zero(t, s.Percentage)
	}
}
