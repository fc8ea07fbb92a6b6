package store

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/redis"
)

// ReportCache keeps evaluation reports in Redis as JSON
type ReportCache struct {
	cache *redis.Cache
	ttl   time.Duration
}

var _ contracts.ReportCache = (*ReportCache)(nil)

// NewReportCache creates a report cache; a disabled client makes it a no-op
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &ReportCache{
		cache: redis.NewCache(client, "demandcast"),
		ttl:   ttl,
	}
}

// GetReport returns a cached report; ok is false on a miss
func (c *ReportCache) GetReport(ctx context.Context, key string) (*contracts.EvaluationReport, bool, error) {
	var report contracts.EvaluationReport
	found, err := c.cache.Get(ctx, key, &report)
	if err != nil || !found {
		return nil, false, err
	}
	return &report, true, nil
}

// PutReport stores the report under key, under its run id and as the latest report
func (c *ReportCache) PutReport(ctx context.Context, key string, report *contracts.EvaluationReport) error {
	if err := c.cache.Set(ctx, key, report, c.ttl); err != nil {
		return err
	}
	if report.RunID != "" {
		if err := c.cache.Set(ctx, redis.RunReportKey(report.RunID), report, c.ttl); err != nil {
			return err
		}
	}
	return c.cache.Set(ctx, redis.LatestReportKey(), report, redis.TTLShort)
}

// CachedReader serves reports from the cache before the database
type CachedReader struct {
	contracts.ReportReader
	cache *ReportCache
}

// NewCachedReader wraps reader with cache
func NewCachedReader(reader contracts.ReportReader, cache *ReportCache) *CachedReader {
	return &CachedReader{ReportReader: reader, cache: cache}
}

// LatestReport implements contracts.ReportReader
func (r *CachedReader) LatestReport(ctx context.Context) (*contracts.EvaluationReport, error) {
	return r.cached(ctx, redis.LatestReportKey(), redis.TTLShort, r.ReportReader.LatestReport)
}

// ReportByRunID implements contracts.ReportReader
func (r *CachedReader) ReportByRunID(ctx context.Context, runID string) (*contracts.EvaluationReport, error) {
	return r.cached(ctx, redis.RunReportKey(runID), r.cache.ttl, func(ctx context.Context) (*contracts.EvaluationReport, error) {
		return r.ReportReader.ReportByRunID(ctx, runID)
	})
}

func (r *CachedReader) cached(
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(context.Context) (*contracts.EvaluationReport, error),
) (*contracts.EvaluationReport, error) {
	if report, ok, err := r.cache.GetReport(ctx, key); err == nil && ok {
		return report, nil
	}

	report, err := load(ctx)
	if err != nil {
		return nil, err
	}
	// 캐시 실패는 무시 (DB가 SSOT)
	_ = r.cache.cache.Set(ctx, key, report, ttl)
	return report, nil
}

// IsNotFound reports a missing run or product
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
