package forecastconfig

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/demandcast/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", contracts.ErrConfiguration, e.Field, e.Message)
}

// Unwrap lets errors.Is match contracts.ErrConfiguration
func (e ValidationError) Unwrap() error {
	return contracts.ErrConfiguration
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ConfigID == "" {
		return ValidationError{"meta.config_id", "required"}
	}

	// === Qualification ===
	q := cfg.Qualification
	if err := validateNonNegative(q.NewProductGraceDays, "qualification.new_product_grace_days"); err != nil {
		return err
	}
	if err := validatePositive(q.SalesRecencyWindowDays, "qualification.sales_recency_window_days"); err != nil {
		return err
	}
	if err := validatePositive(q.MinRecentSaleDays, "qualification.min_recent_sale_days"); err != nil {
		return err
	}
	if q.MinRecentSaleDays > q.SalesRecencyWindowDays+1 {
		return ValidationError{"qualification.min_recent_sale_days", "must fit inside sales_recency_window_days"}
	}
	if err := validatePositive(q.InventoryLookbackDays, "qualification.inventory_lookback_days"); err != nil {
		return err
	}
	// a product without stock must not outlive the recency window on old sales
	if q.InventoryLookbackDays > q.SalesRecencyWindowDays {
		return ValidationError{"qualification.inventory_lookback_days", "must be <= sales_recency_window_days"}
	}
	if !isFinite(q.MinMarginThreshold) || q.MinMarginThreshold < -1 || q.MinMarginThreshold > 1 {
		return ValidationError{"qualification.min_margin_threshold", "must be in range [-1, 1]"}
	}
	if err := validatePositive(q.ProfitabilityWindowDays, "qualification.profitability_window_days"); err != nil {
		return err
	}
	if err := validatePctRange(q.MaxStockoutRate, "qualification.max_stockout_rate"); err != nil {
		return err
	}
	if err := validatePctRange(q.MaxMissingDataRatio, "qualification.max_missing_data_ratio"); err != nil {
		return err
	}
	if err := validatePctRange(q.ClearanceMarkdownPct, "qualification.clearance_markdown_pct"); err != nil {
		return err
	}
	if err := validateNonNegative(q.MaxProductAgeDays, "qualification.max_product_age_days"); err != nil {
		return err
	}

	// === Features ===
	f := cfg.Features
	if len(f.LagOffsets) == 0 {
		return ValidationError{"features.lag_offsets", "must not be empty"}
	}
	seen := make(map[int]bool, len(f.LagOffsets))
	for _, k := range f.LagOffsets {
		if k <= 0 {
			return ValidationError{"features.lag_offsets", fmt.Sprintf("offset must be > 0, got %d", k)}
		}
		if seen[k] {
			return ValidationError{"features.lag_offsets", fmt.Sprintf("duplicate offset %d", k)}
		}
		seen[k] = true
	}
	if !sort.IntsAreSorted(f.LagOffsets) {
		return ValidationError{"features.lag_offsets", "must be ascending"}
	}
	if err := validatePositive(f.RollingWindowDays, "features.rolling_window_days"); err != nil {
		return err
	}
	if err := validatePositive(f.BaselineWindowDays, "features.baseline_window_days"); err != nil {
		return err
	}

	// === Models ===
	if err := validateGBRT(cfg.Models.Lag, "models.lag"); err != nil {
		return err
	}
	if err := validateGBRT(cfg.Models.Full, "models.full"); err != nil {
		return err
	}

	// === Evaluation ===
	if err := validatePositive(cfg.Evaluation.TestDays, "evaluation.test_days"); err != nil {
		return err
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Qualification.SalesRecencyWindowDays < 7 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_RECENCY_WINDOW",
			Message: "sales recency window < 7 days: weekly sellers will flap between stale and active",
		})
	}

	if cfg.Features.RollingWindowDays < cfg.Features.MaxLag() {
		warnings = append(warnings, Warning{
			Code:    "ROLLING_SHORTER_THAN_LAG",
			Message: "rolling window shorter than the largest lag: rolling stats ignore part of the lag horizon",
		})
	}

	if cfg.Qualification.MaxStockoutRate > 0.5 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_STOCKOUT_CEILING",
			Message: "stockout ceiling > 50%: zero-sales days may reflect unavailability, not demand",
		})
	}

	for _, m := range []struct {
		name string
		g    GBRT
	}{{"lag", cfg.Models.Lag}, {"full", cfg.Models.Full}} {
		if m.g.MaxDepth > 8 {
			warnings = append(warnings, Warning{
				Code:    "DEEP_TREES",
				Message: fmt.Sprintf("models.%s.max_depth > 8: expect overfitting on sparse histories", m.name),
			})
		}
	}

	return warnings
}

// === Helper Functions ===

func validateGBRT(g GBRT, field string) error {
	if g.NumTrees < 1 {
		return ValidationError{field + ".num_trees", "must be >= 1"}
	}
	if g.MaxDepth < 1 {
		return ValidationError{field + ".max_depth", "must be >= 1"}
	}
	if !isFinite(g.LearningRate) || g.LearningRate <= 0 || g.LearningRate > 1 {
		return ValidationError{field + ".learning_rate", "must be in (0, 1]"}
	}
	if g.MinSamplesLeaf < 1 {
		return ValidationError{field + ".min_samples_leaf", "must be >= 1"}
	}
	return nil
}

func validatePositive(v int, field string) error {
	if v <= 0 {
		return ValidationError{field, "must be > 0"}
	}
	return nil
}

func validateNonNegative(v int, field string) error {
	if v < 0 {
		return ValidationError{field, "must be >= 0"}
	}
	return nil
}

// validatePctRange는 비율 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if !isFinite(pct) || pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}

// NaN은 모든 비교를 통과하므로 별도 검사
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
