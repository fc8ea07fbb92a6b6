package contracts

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func historyOf(prices ...float64) *ProductHistory {
	h := &ProductHistory{ProductID: "SKU-1"}
	for i, p := range prices {
		h.Records = append(h.Records, DailyRecord{Date: day(i), Price: p, ReferenceMissing: true})
	}
	return h
}

func TestDailyRecord_UnitMargin(t *testing.T) {
	tests := []struct {
		name   string
		rec    DailyRecord
		want   float64
		wantOK bool
	}{
		{"price and cost", DailyRecord{Price: 100, Cost: 60}, 0.4, true},
		{"cost missing uses indicator", DailyRecord{Price: 100, CostMissing: true, Margin: 0.3}, 0.3, true},
		{"zero price uses indicator", DailyRecord{Price: 0, Cost: 10, Margin: 0.2}, 0.2, true},
		{"nothing known", DailyRecord{PriceMissing: true, CostMissing: true, MarginMissing: true}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.rec.UnitMargin()
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestProductHistory_Window(t *testing.T) {
	h := historyOf(1, 2, 3, 4, 5)

	assert.Len(t, h.Window(4, 3), 3)
	assert.Equal(t, day(2), h.Window(4, 3)[0].Date)
	assert.Len(t, h.Window(1, 10), 2)
	assert.Nil(t, h.Window(-1, 3))
	assert.Nil(t, h.Window(2, 0))
}

func TestProductHistory_IndexOfAndPrefix(t *testing.T) {
	h := historyOf(1, 2, 3)

	assert.Equal(t, 0, h.IndexOf(day(0)))
	assert.Equal(t, 2, h.IndexOf(day(2).Add(13*time.Hour)))
	assert.Equal(t, -1, h.IndexOf(day(3)))
	assert.Equal(t, -1, h.IndexOf(day(-1)))

	p := h.Prefix(1)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, day(1), p.LastDate())
	assert.Same(t, h, h.Prefix(5))
}

func TestProductHistory_MarkdownAt(t *testing.T) {
	h := historyOf(100, 100, 80, 60)

	assert.InDelta(t, 0.0, h.MarkdownAt(0), 1e-9)
	assert.InDelta(t, 0.2, h.MarkdownAt(2), 1e-9)
	assert.InDelta(t, 0.4, h.MarkdownAt(3), 1e-9)

	h.Records[3].ReferencePrice = 120
	h.Records[3].ReferenceMissing = false
	assert.InDelta(t, 0.5, h.MarkdownAt(3), 1e-9)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(day(0), day(0).Add(23*time.Hour)))
	assert.Equal(t, 40, DaysBetween(day(0), day(40)))
	assert.Equal(t, -1, DaysBetween(day(1), day(0)))
}

func TestMetric_JSON(t *testing.T) {
	type payload struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}

	data, err := json.Marshal(payload{A: 0.25, B: Undefined()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0.25,"b":null}`, string(data))

	var back payload
	require.NoError(t, json.Unmarshal(data, &back))
	assert.InDelta(t, 0.25, back.A.Float(), 1e-12)
	assert.True(t, math.IsNaN(back.B.Float()))
	assert.False(t, Metric(math.Inf(1)).IsDefined())
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, IsDataError(NewDataError("product %s has no records", "SKU-1")))
	assert.True(t, IsInsufficientHistoryError(NewInsufficientHistoryError("0 prior days")))
	assert.True(t, IsConfigurationError(NewConfigurationError("negative window")))
	assert.True(t, IsUndefinedMetricError(NewUndefinedMetricError("sum of actuals is zero")))
	assert.False(t, IsDataError(NewConfigurationError("x")))
	assert.Contains(t, NewDataError("product %s", "SKU-9").Error(), "SKU-9")
}

func TestFeatureRow_Vectors(t *testing.T) {
	row := FeatureRow{
		Lags:             []LagValue{{Offset: 7, Value: 3}, {Offset: 14, Value: 2}},
		RollingMean:      2.5,
		RollingStd:       0.5,
		WeeksSinceLaunch: 4,
		MarkdownPct:      0.1,
		Margin:           0.45,
		StockoutFlag:     true,
	}

	assert.Equal(t, []float64{3, 2}, row.LagVector())
	assert.Equal(t, []float64{3, 2, 2.5, 0.5, 4, 0.1, 0.45, 1}, row.FullVector())
	assert.Equal(t, []int{7, 14}, row.LagOffsets())
	assert.Equal(t, []string{"lag_7", "lag_14"}, LagFeatureNames(row.LagOffsets()))
	assert.Len(t, FullFeatureNames(row.LagOffsets()), len(row.FullVector()))
}

func TestStage_ShortName(t *testing.T) {
	for i, s := range AllStages() {
		assert.Equal(t, "S"+string(rune('0'+i)), s.ShortName())
	}
	assert.Equal(t, "UNKNOWN", Stage("nope").ShortName())
}
