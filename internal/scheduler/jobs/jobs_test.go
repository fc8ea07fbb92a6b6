package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/pipeline"
	"github.com/wonny/demandcast/internal/store"
	"github.com/wonny/demandcast/pkg/logger"
)

type stubRunner struct {
	got pipeline.RunConfig
	err error
}

func (r *stubRunner) Run(ctx context.Context, rc pipeline.RunConfig) (*pipeline.RunResult, error) {
	r.got = rc
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.RunResult{
		RunID: "run-1",
		Report: &contracts.EvaluationReport{Scores: []contracts.ModelScore{
			{Model: contracts.ModelLag, WMAPE: 0.2, Defined: true, Rank: 1},
		}},
	}, nil
}

func TestForecastRunJob(t *testing.T) {
	runner := &stubRunner{}
	job := NewForecastRunJob(runner, "0 30 2 * * *", true, logger.Nop())

	assert.Equal(t, "forecast_run", job.Name())
	assert.Equal(t, "0 30 2 * * *", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.True(t, runner.got.DryRun)

	runner.err = errors.New("db down")
	assert.ErrorContains(t, job.Run(context.Background()), "db down")
}

func TestCacheWarmJob(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	job := NewCacheWarmJob(mem, logger.Nop())

	// nothing persisted yet
	require.NoError(t, job.Run(ctx))

	require.NoError(t, mem.SaveReport(ctx, &contracts.EvaluationReport{RunID: "run-1"}))
	require.NoError(t, job.Run(ctx))
}
