package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
	"github.com/wonny/demandcast/internal/metrics"
	"github.com/wonny/demandcast/internal/store"
	"github.com/wonny/demandcast/pkg/logger"
)

type sliceSource []contracts.RawRecord

func (s sliceSource) LoadRecords(ctx context.Context) ([]contracts.RawRecord, error) {
	return s, nil
}

type memCache struct {
	mu      sync.Mutex
	reports map[string]*contracts.EvaluationReport
}

func (c *memCache) GetReport(ctx context.Context, key string) (*contracts.EvaluationReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[key]
	return r, ok, nil
}

func (c *memCache) PutReport(ctx context.Context, key string, report *contracts.EvaluationReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[key] = report
	return nil
}

// failingStore rejects every save
type failingStore struct{ calls int }

func (s *failingStore) SaveRun(ctx context.Context, report *contracts.EvaluationReport, results []contracts.QualificationResult) error {
	s.calls++
	return errors.New("disk full")
}

func ptr(v float64) *float64 { return &v }

// syntheticRecords: SKU-A sells with a weekly pattern, SKU-B stopped selling,
// SKU-C never had stock.
func syntheticRecords(days int) []contracts.RawRecord {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var raw []contracts.RawRecord
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		weekly := []float64{2, 3, 4, 5, 8, 12, 6}[i%7]

		raw = append(raw,
			contracts.RawRecord{ProductID: "SKU-A", Date: date, UnitsSold: ptr(weekly), OnHand: ptr(50), Price: ptr(30), Cost: ptr(12)},
			contracts.RawRecord{ProductID: "SKU-C", Date: date, UnitsSold: ptr(0), OnHand: ptr(0), Price: ptr(30), Cost: ptr(12)},
		)
		bSales := 0.0
		if i < 10 {
			bSales = 3
		}
		raw = append(raw, contracts.RawRecord{ProductID: "SKU-B", Date: date, UnitsSold: ptr(bSales), OnHand: ptr(20), Price: ptr(30), Cost: ptr(12)})
	}
	return raw
}

func testConfig() *forecastconfig.Config {
	cfg := forecastconfig.Default()
	cfg.Models.Lag.NumTrees = 20
	cfg.Models.Full.NumTrees = 20
	return cfg
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	cache := &memCache{reports: map[string]*contracts.EvaluationReport{}}

	o, err := NewOrchestrator(testConfig(), sliceSource(syntheticRecords(120)), logger.Nop(),
		WithStore(mem), WithCache(cache), WithMetrics(metrics.New()), WithWorkers(2))
	require.NoError(t, err)

	result, err := o.Run(ctx, RunConfig{})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.CacheHit)
	assert.Equal(t, contracts.AllStages(), result.CompletedStages)
	assert.NotEmpty(t, result.RunID)

	require.Len(t, result.Histories, 3)
	assert.Equal(t, 1, result.Summary.Qualified)
	for _, q := range result.Qualifications {
		switch q.ProductID {
		case "SKU-A":
			assert.True(t, q.ShouldForecast)
		case "SKU-B":
			assert.Equal(t, []string{contracts.ReasonStale}, q.Reasons)
		case "SKU-C":
			assert.True(t, q.HasReason(contracts.ReasonNoInventory))
		}
	}

	// lags up to 28 days: days 28..119 are usable, the last 28 are held out
	assert.Len(t, result.Features.Rows, 92)
	assert.Len(t, result.Split.Test, 28)
	assert.Len(t, result.Split.Train, 64)

	report := result.Report
	require.NotNil(t, report)
	assert.Equal(t, result.RunID, report.RunID)
	assert.Equal(t, int64(42), report.Seed)
	assert.Equal(t, o.ConfigHash(), report.ConfigHash)
	require.Len(t, report.Scores, 3)
	for _, s := range report.Scores {
		assert.True(t, s.Defined, "model %s", s.Model)
	}
	assert.NotEmpty(t, report.FeatureImportance)

	saved, err := mem.ReportByRunID(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, saved.RunID)

	t.Run("second run reuses the cached report", func(t *testing.T) {
		again, err := o.Run(ctx, RunConfig{RunID: "run-2"})
		require.NoError(t, err)
		assert.True(t, again.CacheHit)
		assert.Equal(t, "run-2", again.Report.RunID)
		assert.Equal(t, []contracts.Stage{contracts.StageHistory, contracts.StageQualification}, again.CompletedStages)
	})

	t.Run("force refits", func(t *testing.T) {
		again, err := o.Run(ctx, RunConfig{Force: true, DryRun: true})
		require.NoError(t, err)
		assert.False(t, again.CacheHit)
		assert.Equal(t, report.Scores, again.Report.Scores)
	})
}

func TestOrchestrator_SkipsMalformedProducts(t *testing.T) {
	raw := append(syntheticRecords(90), contracts.RawRecord{ProductID: "", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)})

	o, err := NewOrchestrator(testConfig(), sliceSource(raw), logger.Nop())
	require.NoError(t, err)

	result, err := o.Run(context.Background(), RunConfig{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, result.NormalizeErrors, 1)
	assert.Len(t, result.Histories, 3)
}

func TestOrchestrator_Errors(t *testing.T) {
	t.Run("empty source", func(t *testing.T) {
		o, err := NewOrchestrator(testConfig(), sliceSource(nil), logger.Nop())
		require.NoError(t, err)

		result, err := o.Run(context.Background(), RunConfig{DryRun: true})
		assert.True(t, contracts.IsDataError(err))
		assert.False(t, result.Success)
		assert.Empty(t, result.CompletedStages)
	})

	t.Run("history too short for lags", func(t *testing.T) {
		o, err := NewOrchestrator(testConfig(), sliceSource(syntheticRecords(20)), logger.Nop())
		require.NoError(t, err)

		_, err = o.Run(context.Background(), RunConfig{DryRun: true})
		assert.True(t, contracts.IsInsufficientHistoryError(err))
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.Models.Full.LearningRate = 0
		_, err := NewOrchestrator(cfg, sliceSource(nil), logger.Nop())
		assert.True(t, contracts.IsConfigurationError(err))
	})

	t.Run("store failure fails the run and skips the cache", func(t *testing.T) {
		st := &failingStore{}
		cache := &memCache{reports: map[string]*contracts.EvaluationReport{}}
		o, err := NewOrchestrator(testConfig(), sliceSource(syntheticRecords(90)), logger.Nop(),
			WithStore(st), WithCache(cache))
		require.NoError(t, err)

		result, err := o.Run(context.Background(), RunConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "save run")
		assert.False(t, result.Success)
		assert.Equal(t, 1, st.calls)
		assert.Empty(t, cache.reports)
	})

	t.Run("cancelled", func(t *testing.T) {
		o, err := NewOrchestrator(testConfig(), sliceSource(syntheticRecords(60)), logger.Nop())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = o.Run(ctx, RunConfig{DryRun: true})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFingerprint_ChangesWithData(t *testing.T) {
	h := &contracts.ProductHistory{ProductID: "SKU-A", Records: []contracts.DailyRecord{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), UnitsSold: 1},
	}}
	a := Fingerprint([]*contracts.ProductHistory{h})
	assert.Equal(t, a, Fingerprint([]*contracts.ProductHistory{h}))

	h.Records[0].UnitsSold = 2
	assert.NotEqual(t, a, Fingerprint([]*contracts.ProductHistory{h}))
}
