package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/pkg/cache"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

// CacheRepository is the key/value store behind the report list cache.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches report list pages per visibility scope. Cache failures never fail a
// request: a nil, disabled or erroring cache reads as a miss.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool

	// generation advances on every invalidation; pages read under an older one are not stored.
	generation atomic.Uint64
}

// NewCacheService constructs the list cache. ttl defaults to one minute.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled reports whether lookups reach the backing store.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// LoadReportList fills dest with the cached page for scope and reports a hit.
func (s *CacheService) LoadReportList(ctx context.Context, scope []string, page, pageSize int, dest *dto.ReportListResult) bool {
	if !s.Enabled() {
		return false
	}
	key := cache.ReportListKey(scope, page, pageSize)
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("report list cache read failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// ListGeneration returns the invalidation generation. Capture it before reading the store
// and hand it to StoreReportList.
func (s *CacheService) ListGeneration() uint64 {
	if s == nil {
		return 0
	}
	return s.generation.Load()
}

// StoreReportList caches one page for scope unless an invalidation happened since generation
// was captured.
func (s *CacheService) StoreReportList(ctx context.Context, generation uint64, scope []string, page, pageSize int, result *dto.ReportListResult) {
	if !s.Enabled() || result == nil {
		return
	}
	key := cache.ReportListKey(scope, page, pageSize)
	if s.generation.Load() != generation {
		s.logger.Debug("report list changed during read, skipping cache write", zap.String("key", key))
		return
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, result, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("report list cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	// An invalidation may have landed while the write was in flight.
	if s.generation.Load() != generation {
		if err := s.repo.DeleteByPattern(ctx, key); err != nil {
			s.logger.Warn("report list cache rollback failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// InvalidateReportLists drops every cached page. Any report mutation can change any scope's view.
func (s *CacheService) InvalidateReportLists(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	s.generation.Add(1)
	if err := s.repo.DeleteByPattern(ctx, cache.ReportListPattern); err != nil {
		s.logger.Warn("report list cache invalidation failed", zap.Error(err))
		return err
	}
	return nil
}
