package contracts

import (
	"fmt"
	"time"
)

// Engineered feature names, in FullVector order after the lags
const (
	FeatureRollingMean      = "rolling_mean"
	FeatureRollingStd       = "rolling_std"
	FeatureWeeksSinceLaunch = "weeks_since_launch"
	FeatureMarkdownPct      = "markdown_pct"
	FeatureMargin           = "margin"
	FeatureStockoutFlag     = "stockout_flag"
)

// LagValue is units sold Offset days before the row date
type LagValue struct {
	Offset int     `json:"offset"`
	Value  float64 `json:"value"`
}

// FeatureRow is one (product, date) training or scoring row
type FeatureRow struct {
	ProductID string    `json:"product_id"`
	Date      time.Time `json:"date"`
	Target    float64   `json:"target"` // units sold on Date

	Lags         []LagValue `json:"lags"`
	RollingMean  float64    `json:"rolling_mean"`
	RollingStd   float64    `json:"rolling_std"`
	TrailingMean float64    `json:"trailing_mean"` // baseline window mean
	TrailingDays int        `json:"trailing_days"`

	WeeksSinceLaunch float64 `json:"weeks_since_launch"`
	MarkdownPct      float64 `json:"markdown_pct"`
	Margin           float64 `json:"margin"`
	StockoutFlag     bool    `json:"stockout_flag"`
}

// LagOffsets returns the lag offsets carried by the row
func (r FeatureRow) LagOffsets() []int {
	out := make([]int, len(r.Lags))
	for i, l := range r.Lags {
		out[i] = l.Offset
	}
	return out
}

// LagVector returns lag values in offset order
func (r FeatureRow) LagVector() []float64 {
	out := make([]float64, len(r.Lags))
	for i, l := range r.Lags {
		out[i] = l.Value
	}
	return out
}

// FullVector returns lags followed by the engineered features
func (r FeatureRow) FullVector() []float64 {
	stockout := 0.0
	if r.StockoutFlag {
		stockout = 1
	}
	return append(r.LagVector(),
		r.RollingMean,
		r.RollingStd,
		r.WeeksSinceLaunch,
		r.MarkdownPct,
		r.Margin,
		stockout,
	)
}

// LagFeatureNames returns "lag_<k>" for each offset
func LagFeatureNames(offsets []int) []string {
	names := make([]string, len(offsets))
	for i, k := range offsets {
		names[i] = fmt.Sprintf("lag_%d", k)
	}
	return names
}

// FullFeatureNames matches FullVector
func FullFeatureNames(offsets []int) []string {
	return append(LagFeatureNames(offsets),
		FeatureRollingMean,
		FeatureRollingStd,
		FeatureWeeksSinceLaunch,
		FeatureMarkdownPct,
		FeatureMargin,
		FeatureStockoutFlag,
	)
}

// ExcludedRow is a day dropped for insufficient lookback, kept for audit
type ExcludedRow struct {
	ProductID string    `json:"product_id"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
}

// FeatureSet is the builder output for one or more products
type FeatureSet struct {
	Rows     []FeatureRow  `json:"rows"`
	Excluded []ExcludedRow `json:"excluded"`
}
