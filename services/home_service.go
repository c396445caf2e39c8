package services

import (
	"context"
	"time"

	"github.com/Templasan/MarketPlacer/cache"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/pkg/metrics"
	"github.com/Templasan/MarketPlacer/repository"
	"go.uber.org/zap"
)

const (
	homeCacheKey = "home"
	HomeCacheTTL = 5 * time.Minute
)

type HomeService interface {
	Get(ctx context.Context) (*models.HomePage, error)
	ClearCache(ctx context.Context) error
}

type homeServiceImpl struct {
	store   repository.Store
	cache   cache.Cache
	metrics *metrics.Metrics
	clock   Clock
	logger  *zap.Logger
}

func NewHomeService(store repository.Store, c cache.Cache, m *metrics.Metrics, clock Clock, logger *zap.Logger) HomeService {
	return &homeServiceImpl{store: store, cache: c, metrics: m, clock: clock, logger: logger}
}

// Get serves the home page from cache, rebuilding it on a miss. Cache errors
// degrade to a direct build.
func (s *homeServiceImpl) Get(ctx context.Context) (*models.HomePage, error) {
	var cached models.HomePage
	hit, err := s.cache.Get(ctx, homeCacheKey, &cached)
	if err != nil {
		s.logger.Warn("Home cache read failed", zap.Error(err))
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return &cached, nil
	}

	page := &models.HomePage{Sections: []models.HomeSection{}, CachedAt: s.clock.Now()}
	for _, category := range models.HomeCategories {
		products, err := s.store.Products().LatestByCategory(ctx, category, models.HomeItemsPerSection)
		if err != nil {
			return nil, storageFailure(s.logger, "failed to build home page", err)
		}
		if len(products) == 0 {
			continue
		}
		page.Sections = append(page.Sections, models.HomeSection{Category: category, Products: products})
	}

	if err := s.cache.Set(ctx, homeCacheKey, page, HomeCacheTTL); err != nil {
		s.logger.Warn("Home cache write failed", zap.Error(err))
	}
	return page, nil
}

func (s *homeServiceImpl) ClearCache(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx); err != nil {
		return storageFailure(s.logger, "failed to clear home cache", err)
	}
	s.logger.Info("Home cache cleared")
	return nil
}
