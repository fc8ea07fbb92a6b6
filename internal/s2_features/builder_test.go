package s2_features

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
	"github.com/wonny/demandcast/pkg/logger"
)

func day(n int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func makeHistory(id string, sales []float64) *contracts.ProductHistory {
	h := &contracts.ProductHistory{ProductID: id}
	for i, s := range sales {
		h.Records = append(h.Records, contracts.DailyRecord{
			Date:             day(i),
			UnitsSold:        s,
			OnHand:           10,
			Price:            20,
			Cost:             15,
			Observed:         true,
			ReferenceMissing: true,
			MarginMissing:    true,
		})
	}
	return h
}

func qualified(id string) contracts.QualificationResult {
	return contracts.QualificationResult{ProductID: id, ShouldForecast: true, Reasons: []string{}}
}

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func smallConfig() forecastconfig.Features {
	return forecastconfig.Features{
		LagOffsets:         []int{1, 2},
		RollingWindowDays:  3,
		BaselineWindowDays: 4,
	}
}

func TestBuild_ShortHistoryYieldsNoRows(t *testing.T) {
	b := NewBuilder(forecastconfig.Default().Features, logger.Nop())
	h := makeHistory("SKU-1", []float64{1, 2, 3, 4, 5})

	set, err := b.Build(h, qualified("SKU-1"))
	require.NoError(t, err)

	assert.Empty(t, set.Rows)
	require.Len(t, set.Excluded, 5)
	for _, ex := range set.Excluded {
		assert.Contains(t, ex.Reason, "insufficient lookback")
		assert.Contains(t, ex.Reason, "lag_28")
	}
}

func TestBuild_FeatureValues(t *testing.T) {
	b := NewBuilder(smallConfig(), logger.Nop())
	h := makeHistory("SKU-1", seq(10))
	h.Records[6].OnHand = 0
	h.Records[6].Price = 15

	set, err := b.Build(h, qualified("SKU-1"))
	require.NoError(t, err)

	// the first usable day needs 3 prior days for the rolling window
	require.Len(t, set.Rows, 7)
	require.Len(t, set.Excluded, 3)
	assert.Equal(t, day(3), set.Rows[0].Date)

	row := set.Rows[3] // day 6, units 7
	assert.Equal(t, day(6), row.Date)
	assert.Equal(t, 7.0, row.Target)
	assert.Equal(t, []int{1, 2}, row.LagOffsets())
	assert.Equal(t, []float64{6, 5}, row.LagVector())
	assert.InDelta(t, 5.0, row.RollingMean, 1e-12) // days 3..5 -> 4,5,6
	assert.InDelta(t, 1.0, row.RollingStd, 1e-12)
	assert.InDelta(t, 4.5, row.TrailingMean, 1e-12) // days 2..5 -> 3,4,5,6
	assert.Equal(t, 4, row.TrailingDays)
	assert.InDelta(t, 6.0/7.0, row.WeeksSinceLaunch, 1e-12)
	assert.InDelta(t, 0.25, row.MarkdownPct, 1e-12) // max price 20, now 15
	assert.InDelta(t, 0.0, row.Margin, 1e-12)       // (15-15)/15
	assert.True(t, row.StockoutFlag)

	full := row.FullVector()
	assert.Len(t, full, len(contracts.FullFeatureNames(row.LagOffsets())))
	assert.Equal(t, 1.0, full[len(full)-1])
}

func TestBuild_RollingWindowOfOne(t *testing.T) {
	cfg := smallConfig()
	cfg.RollingWindowDays = 1
	b := NewBuilder(cfg, logger.Nop())

	row, err := b.RowAt(makeHistory("SKU-1", seq(5)), 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, row.RollingMean)
	assert.Equal(t, 0.0, row.RollingStd)
}

func TestBuild_MarginFallbacks(t *testing.T) {
	b := NewBuilder(smallConfig(), logger.Nop())
	h := makeHistory("SKU-1", seq(6))
	h.Records[4].CostMissing = true
	h.Records[4].Margin = 0.4
	h.Records[4].MarginMissing = false
	h.Records[5].CostMissing = true

	row, err := b.RowAt(h, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.4, row.Margin)

	row, err = b.RowAt(h, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, row.Margin)
}

func TestBuild_NoLookAhead(t *testing.T) {
	b := NewBuilder(smallConfig(), logger.Nop())
	h := makeHistory("SKU-1", seq(12))

	before, err := b.RowAt(h, 6)
	require.NoError(t, err)

	for i := 7; i < 12; i++ {
		h.Records[i].UnitsSold = 1000
		h.Records[i].Price = 1
		h.Records[i].OnHand = 0
	}
	after, err := b.RowAt(h, 6)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestBuild_DisqualifiedAndMismatch(t *testing.T) {
	b := NewBuilder(smallConfig(), logger.Nop())
	h := makeHistory("SKU-1", seq(10))

	set, err := b.Build(h, contracts.QualificationResult{ProductID: "SKU-1", Reasons: []string{contracts.ReasonStale}})
	require.NoError(t, err)
	assert.Empty(t, set.Rows)
	assert.Empty(t, set.Excluded)

	_, err = b.Build(h, qualified("SKU-9"))
	assert.True(t, contracts.IsDataError(err))
}

func TestRowAt_Errors(t *testing.T) {
	b := NewBuilder(smallConfig(), logger.Nop())
	h := makeHistory("SKU-1", seq(4))

	_, err := b.RowAt(h, 1)
	assert.True(t, contracts.IsInsufficientHistoryError(err))

	_, err = b.RowAt(h, 10)
	assert.True(t, contracts.IsDataError(err))
}

func TestNewBuilder_SortsOffsets(t *testing.T) {
	cfg := smallConfig()
	cfg.LagOffsets = []int{2, 1}
	b := NewBuilder(cfg, logger.Nop())

	assert.Equal(t, []int{1, 2}, b.LagOffsets())
	assert.Equal(t, []int{2, 1}, cfg.LagOffsets)
}

func TestBuildAll_OrderedByProductThenDate(t *testing.T) {
	b := NewBuilder(smallConfig(), logger.Nop())
	histories := []*contracts.ProductHistory{
		makeHistory("SKU-C", seq(6)),
		makeHistory("SKU-A", seq(5)),
		makeHistory("SKU-B", seq(8)),
	}
	results := []contracts.QualificationResult{
		qualified("SKU-A"),
		{ProductID: "SKU-B", Reasons: []string{contracts.ReasonNoInventory}},
		qualified("SKU-C"),
	}

	set, err := b.BuildAll(context.Background(), histories, results, 2)
	require.NoError(t, err)

	require.Len(t, set.Rows, 2+3)
	for i := 1; i < len(set.Rows); i++ {
		prev, cur := set.Rows[i-1], set.Rows[i]
		if prev.ProductID == cur.ProductID {
			assert.True(t, prev.Date.Before(cur.Date))
		} else {
			assert.Less(t, prev.ProductID, cur.ProductID)
		}
	}
	assert.Equal(t, "SKU-A", set.Rows[0].ProductID)
	assert.Equal(t, "SKU-C", set.Rows[len(set.Rows)-1].ProductID)
}

func TestBuildAll_Cancelled(t *testing.T) {
	b := NewBuilder(smallConfig(), logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.BuildAll(ctx, []*contracts.ProductHistory{makeHistory("SKU-A", seq(5))},
		[]contracts.QualificationResult{qualified("SKU-A")}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
