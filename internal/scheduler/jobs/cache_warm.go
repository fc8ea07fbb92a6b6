package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/store"
	"github.com/wonny/demandcast/pkg/logger"
)

// CacheWarmJob reloads the latest report through the cached reader
type CacheWarmJob struct {
	reader contracts.ReportReader
	logger *logger.Logger
}

// NewCacheWarmJob creates a new cache warm job
func NewCacheWarmJob(reader contracts.ReportReader, log *logger.Logger) *CacheWarmJob {
	return &CacheWarmJob{
		reader: reader,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheWarmJob) Name() string {
	return "report_cache_warm"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *CacheWarmJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run loads the latest report; no report yet is not a failure
func (j *CacheWarmJob) Run(ctx context.Context) error {
	report, err := j.reader.LatestReport(ctx)
	if errors.Is(err, store.ErrNotFound) {
		j.logger.Debug("No report to warm yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest report: %w", err)
	}

	j.logger.WithField("run_id", report.RunID).Debug("Report cache warmed")
	return nil
}
