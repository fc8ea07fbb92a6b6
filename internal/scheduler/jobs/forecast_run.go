package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/demandcast/internal/pipeline"
	"github.com/wonny/demandcast/pkg/logger"
)

// Runner is the part of the orchestrator the job needs
type Runner interface {
	Run(ctx context.Context, rc pipeline.RunConfig) (*pipeline.RunResult, error)
}

// ForecastRunJob runs the full pipeline on the configured source
// Schedule: 02:30 daily by default, after the nightly sales load
type ForecastRunJob struct {
	runner   Runner
	schedule string
	dryRun   bool
	logger   *logger.Logger
}

// NewForecastRunJob creates a new forecast run job
func NewForecastRunJob(runner Runner, schedule string, dryRun bool, log *logger.Logger) *ForecastRunJob {
	return &ForecastRunJob{
		runner:   runner,
		schedule: schedule,
		dryRun:   dryRun,
		logger:   log,
	}
}

// Name returns the job name
func (j *ForecastRunJob) Name() string {
	return "forecast_run"
}

// Schedule returns the cron schedule
func (j *ForecastRunJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline run
func (j *ForecastRunJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled forecast run")

	result, err := j.runner.Run(ctx, pipeline.RunConfig{DryRun: j.dryRun})
	if err != nil {
		return fmt.Errorf("forecast run: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":    result.RunID,
		"qualified": result.Summary.Qualified,
		"cache_hit": result.CacheHit,
	}
	if best, ok := result.Report.Best(); ok {
		fields["best_model"] = best.Model
		fields["best_wmape"] = best.WMAPE.Float()
	}
	j.logger.WithFields(fields).Info("Scheduled forecast run completed")

	return nil
}
