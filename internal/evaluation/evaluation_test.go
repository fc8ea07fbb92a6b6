package evaluation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
	"github.com/wonny/demandcast/pkg/logger"
)

func day(n int) time.Time {
	return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func rowsFor(id string, targets ...float64) []contracts.FeatureRow {
	out := make([]contracts.FeatureRow, len(targets))
	for i, t := range targets {
		out[i] = contracts.FeatureRow{ProductID: id, Date: day(i), Target: t}
	}
	return out
}

func TestWMAPE(t *testing.T) {
	tests := []struct {
		name      string
		actual    []float64
		predicted []float64
		want      float64
		undefined bool
		dataErr   bool
	}{
		{name: "perfect forecast", actual: []float64{3, 1, 4}, predicted: []float64{3, 1, 4}, want: 0},
		{name: "weighted error", actual: []float64{10, 0, 10}, predicted: []float64{5, 2, 10}, want: 7.0 / 20.0},
		{name: "all zero actuals", actual: []float64{0, 0}, predicted: []float64{1, 0}, undefined: true},
		{name: "empty", actual: nil, predicted: nil, undefined: true},
		{name: "length mismatch", actual: []float64{1}, predicted: []float64{1, 2}, dataErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WMAPE(tt.actual, tt.predicted)
			switch {
			case tt.undefined:
				assert.True(t, contracts.IsUndefinedMetricError(err))
				assert.True(t, math.IsNaN(got))
			case tt.dataErr:
				assert.True(t, contracts.IsDataError(err))
			default:
				require.NoError(t, err)
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestEvaluator_RanksModels(t *testing.T) {
	cfg := forecastconfig.Default().Evaluation
	e := NewEvaluator(cfg, logger.Nop())

	rows := append(rowsFor("SKU-A", 10, 10), rowsFor("SKU-B", 0, 0)...)
	report, err := e.Evaluate(rows, map[contracts.ModelName][]float64{
		contracts.ModelBaseline: {5, 5, 0, 0},
		contracts.ModelLag:      {9, 11, 0, 0},
		contracts.ModelFull:     {9, 11, 1, 1},
	})
	require.NoError(t, err)
	require.Len(t, report.Scores, 3)

	// lag 0.1, full 0.2 (misses on zero-sales days), baseline 0.5
	assert.Equal(t, contracts.ModelLag, report.Scores[0].Model)
	assert.Equal(t, 1, report.Scores[0].Rank)
	assert.InDelta(t, 0.1, report.Scores[0].WMAPE.Float(), 1e-12)
	assert.Equal(t, contracts.ModelFull, report.Scores[1].Model)
	assert.Equal(t, contracts.ModelBaseline, report.Scores[2].Model)
	assert.InDelta(t, 0.5, report.Scores[2].WMAPE.Float(), 1e-12)

	base, ok := report.Score(contracts.ModelBaseline)
	require.True(t, ok)
	assert.InDelta(t, 2.5, base.MAE.Float(), 1e-12)
	assert.InDelta(t, math.Sqrt(12.5), base.RMSE.Float(), 1e-12)
	assert.InDelta(t, -2.5, base.Bias.Float(), 1e-12)

	best, ok := report.Best()
	require.True(t, ok)
	assert.Equal(t, contracts.ModelLag, best.Model)

	assert.InDelta(t, 0.8, Improvement(report, contracts.ModelLag).Float(), 1e-12)

	// per product: SKU-B has zero actuals and is undefined for every model
	require.Len(t, report.Products, 6)
	for _, ps := range report.Products {
		if ps.ProductID == "SKU-B" {
			assert.False(t, ps.Defined)
		} else {
			assert.True(t, ps.Defined)
		}
	}
}

func TestEvaluator_UndefinedRanksLast(t *testing.T) {
	e := NewEvaluator(forecastconfig.Default().Evaluation, logger.Nop())

	report, err := e.Evaluate(rowsFor("SKU-A", 0, 0), map[contracts.ModelName][]float64{
		contracts.ModelLag:      {1, 0},
		contracts.ModelBaseline: {0, 0},
	})
	require.NoError(t, err)

	for _, s := range report.Scores {
		assert.False(t, s.Defined)
		assert.True(t, math.IsNaN(s.WMAPE.Float()))
	}
	assert.Equal(t, contracts.ModelBaseline, report.Scores[0].Model)
	_, ok := report.Best()
	assert.False(t, ok)
}

func TestEvaluator_ExcludeZeroActuals(t *testing.T) {
	cfg := forecastconfig.Default().Evaluation
	cfg.ExcludeZeroActuals = true
	cfg.PerProduct = false
	e := NewEvaluator(cfg, logger.Nop())

	report, err := e.Evaluate(rowsFor("SKU-A", 4, 0, 4), map[contracts.ModelName][]float64{
		contracts.ModelLag: {4, 100, 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.TestRows)
	assert.InDelta(t, 0.25, report.Scores[0].WMAPE.Float(), 1e-12)
	assert.Empty(t, report.Products)
}

func TestEvaluator_PredictionLengthMismatch(t *testing.T) {
	e := NewEvaluator(forecastconfig.Default().Evaluation, logger.Nop())
	_, err := e.Evaluate(rowsFor("SKU-A", 1, 2), map[contracts.ModelName][]float64{
		contracts.ModelLag: {1},
	})
	assert.True(t, contracts.IsDataError(err))
}

type rankedStub struct{}

func (rankedStub) Name() contracts.ModelName { return contracts.ModelFull }
func (rankedStub) Predict(rows []contracts.FeatureRow) ([]float64, error) {
	return make([]float64, len(rows)), nil
}
func (rankedStub) FeatureImportance() []contracts.FeatureImportance {
	return []contracts.FeatureImportance{{Feature: "lag_7", Importance: 1, Rank: 1}}
}

func TestEvaluator_WithImportance(t *testing.T) {
	e := NewEvaluator(forecastconfig.Default().Evaluation, logger.Nop())
	report := &contracts.EvaluationReport{}

	e.WithImportance(report, rankedStub{})
	require.Len(t, report.FeatureImportance, 1)
	assert.Equal(t, "lag_7", report.FeatureImportance[0].Feature)
}

func TestSplitByDate(t *testing.T) {
	rows := append(rowsFor("SKU-A", 1, 2, 3, 4, 5), rowsFor("SKU-B", 1, 2, 3)...)

	s, err := SplitByDate(rows, 2)
	require.NoError(t, err)
	assert.Equal(t, day(2), s.Cutoff)
	assert.Len(t, s.Train, 3+3)
	assert.Len(t, s.Test, 2)
	for _, r := range s.Test {
		assert.True(t, r.Date.After(s.Cutoff))
	}

	_, err = SplitByDate(rows, 10)
	assert.True(t, contracts.IsInsufficientHistoryError(err))

	_, err = SplitByDate(rows, 0)
	assert.True(t, contracts.IsConfigurationError(err))
}
