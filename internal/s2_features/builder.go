package s2_features

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
	"github.com/wonny/demandcast/pkg/logger"
)

// Builder derives lag and engineered features from daily histories
// ⭐ SSOT: S2 피처 생성은 여기서만 (미래 데이터 참조 금지)
type Builder struct {
	cfg    forecastconfig.Features
	logger *logger.Logger
}

var _ contracts.FeatureBuilder = (*Builder)(nil)

// NewBuilder creates a new feature builder
func NewBuilder(cfg forecastconfig.Features, log *logger.Logger) *Builder {
	offsets := append([]int(nil), cfg.LagOffsets...)
	sort.Ints(offsets)
	cfg.LagOffsets = offsets

	return &Builder{
		cfg:    cfg,
		logger: log.WithField("module", "s2_features"),
	}
}

// LagOffsets returns the configured offsets in ascending order
func (b *Builder) LagOffsets() []int {
	return append([]int(nil), b.cfg.LagOffsets...)
}

// Build implements contracts.FeatureBuilder.
// Disqualified products yield an empty set.
func (b *Builder) Build(h *contracts.ProductHistory, q contracts.QualificationResult) (contracts.FeatureSet, error) {
	set := contracts.FeatureSet{
		Rows:     []contracts.FeatureRow{},
		Excluded: []contracts.ExcludedRow{},
	}
	if h == nil {
		return set, contracts.NewDataError("nil history")
	}
	if q.ProductID != h.ProductID {
		return set, contracts.NewDataError("qualification for %q applied to history %q", q.ProductID, h.ProductID)
	}
	if !q.ShouldForecast {
		return set, nil
	}

	sales := h.Sales()
	for t := range h.Records {
		row, err := b.rowAt(h, sales, t)
		if err != nil {
			set.Excluded = append(set.Excluded, contracts.ExcludedRow{
				ProductID: h.ProductID,
				Date:      h.Records[t].Date,
				Reason:    err.Error(),
			})
			continue
		}
		set.Rows = append(set.Rows, row)
	}

	if len(set.Excluded) > 0 {
		b.logger.WithFields(map[string]interface{}{
			"product_id": h.ProductID,
			"rows":       len(set.Rows),
			"excluded":   len(set.Excluded),
		}).Debug("Rows excluded for insufficient lookback")
	}

	return set, nil
}

// RowAt builds the feature row for day index t.
// Returns InsufficientHistoryError when a lag or the rolling window is unavailable.
func (b *Builder) RowAt(h *contracts.ProductHistory, t int) (contracts.FeatureRow, error) {
	if t < 0 || t >= h.Len() {
		return contracts.FeatureRow{}, contracts.NewDataError("day index %d outside history of %d days", t, h.Len())
	}
	return b.rowAt(h, h.Sales(), t)
}

func (b *Builder) rowAt(h *contracts.ProductHistory, sales []float64, t int) (contracts.FeatureRow, error) {
	rec := h.Records[t]
	row := contracts.FeatureRow{
		ProductID:        h.ProductID,
		Date:             rec.Date,
		Target:           rec.UnitsSold,
		Lags:             make([]contracts.LagValue, 0, len(b.cfg.LagOffsets)),
		WeeksSinceLaunch: float64(t) / 7.0,
		MarkdownPct:      h.MarkdownAt(t),
		StockoutFlag:     rec.IsStockout(),
	}

	var missing []string
	for _, k := range b.cfg.LagOffsets {
		v, ok := lagAt(sales, t, k)
		if !ok {
			missing = append(missing, fmt.Sprintf("lag_%d", k))
			continue
		}
		row.Lags = append(row.Lags, contracts.LagValue{Offset: k, Value: v})
	}

	mean, std, ok := rollingStats(sales, t, b.cfg.RollingWindowDays)
	if !ok {
		missing = append(missing, fmt.Sprintf("rolling_%d", b.cfg.RollingWindowDays))
	}
	if len(missing) > 0 {
		return contracts.FeatureRow{}, contracts.NewInsufficientHistoryError(
			"insufficient lookback: %s need more than %d prior days", strings.Join(missing, ", "), t)
	}
	row.RollingMean = mean
	row.RollingStd = std

	row.TrailingMean, row.TrailingDays = trailingMean(sales, t, b.cfg.BaselineWindowDays)

	if m, ok := rec.UnitMargin(); ok {
		row.Margin = m
	}

	return row, nil
}

// BuildAll builds every product in parallel and merges the sets.
// Rows are ordered by product id, then date.
func (b *Builder) BuildAll(ctx context.Context, histories []*contracts.ProductHistory, results []contracts.QualificationResult, workers int) (contracts.FeatureSet, error) {
	byProduct := make(map[string]contracts.QualificationResult, len(results))
	for _, r := range results {
		byProduct[r.ProductID] = r
	}

	sets := make([]contracts.FeatureSet, len(histories))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, h := range histories {
		i, h := i, h // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			q, ok := byProduct[h.ProductID]
			if !ok {
				return nil
			}
			set, err := b.Build(h, q)
			if err != nil {
				return fmt.Errorf("build features for %s: %w", h.ProductID, err)
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return contracts.FeatureSet{}, err
	}

	merged := contracts.FeatureSet{
		Rows:     []contracts.FeatureRow{},
		Excluded: []contracts.ExcludedRow{},
	}
	for _, s := range sets {
		merged.Rows = append(merged.Rows, s.Rows...)
		merged.Excluded = append(merged.Excluded, s.Excluded...)
	}
	SortRows(merged.Rows)

	b.logger.WithFields(map[string]interface{}{
		"products": len(histories),
		"rows":     len(merged.Rows),
		"excluded": len(merged.Excluded),
	}).Info("Feature build completed")

	return merged, nil
}

// SortRows orders rows by product id, then date ascending
func SortRows(rows []contracts.FeatureRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ProductID != rows[j].ProductID {
			return rows[i].ProductID < rows[j].ProductID
		}
		return rows[i].Date.Before(rows[j].Date)
	})
}
