package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/crm-admin-api/internal/models"
	appErrors "github.com/noah-isme/crm-admin-api/pkg/errors"
)

type statRepository interface {
	List(ctx context.Context) ([]models.Stat, error)
}

type roleCounter interface {
	CountByRole(ctx context.Context) (map[models.UserRole]int, error)
}

// StatsServiceParams groups constructor dependencies.
type StatsServiceParams struct {
	Stats    statRepository
	Users    roleCounter
	Cache    *CacheService
	Logger   *zap.Logger
	CacheTTL time.Duration
}

// StatsService serves dashboard KPI cards and the user role distribution.
type StatsService struct {
	stats    statRepository
	users    roleCounter
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewStatsService constructs a StatsService.
func NewStatsService(p StatsServiceParams) *StatsService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &StatsService{stats: p.Stats, users: p.Users, cache: p.Cache, logger: p.Logger, cacheTTL: p.CacheTTL}
}

// List returns every KPI card.
func (s *StatsService) List(ctx context.Context) ([]models.Stat, bool, error) {
	stats, hit, err := cachedLoad(ctx, s.cache, cacheKeyStatsList, s.cacheTTL, s.stats.List)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stats")
	}
	return stats, hit, nil
}

// UserDistribution returns the share of users per role. Every role is
// present, in display order, even when it has no users.
func (s *StatsService) UserDistribution(ctx context.Context) ([]models.RoleShare, bool, error) {
	shares, hit, err := cachedLoad(ctx, s.cache, cacheKeyStatsDistribution, s.cacheTTL, s.computeDistribution)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user distribution")
	}
	return shares, hit, nil
}

func (s *StatsService) computeDistribution(ctx context.Context) ([]models.RoleShare, error) {
	counts, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, role := range models.Roles {
		total += counts[role]
	}

	shares := make([]models.RoleShare, 0, len(models.Roles))
	for _, role := range models.Roles {
		share := models.RoleShare{Role: role, Count: counts[role]}
		if total > 0 {
			share.Percentage = math.Round(float64(share.Count)*10000/float64(total)) / 100
		}
		shares = append(shares, share)
	}
	return shares, nil
}
