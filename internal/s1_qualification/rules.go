package s1_qualification

import (
	"math"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
)

// ruleInput is the read-only view every rule evaluates.
// t is the as-of index; nothing after t is visible to a rule.
type ruleInput struct {
	h     *contracts.ProductHistory
	t     int
	age   int
	isNew bool
	th    forecastconfig.Qualification
}

// Rule is a pure predicate over a history prefix
type Rule func(in ruleInput) contracts.RuleOutcome

// orderedRules fixes evaluation and reason order
var orderedRules = []Rule{
	checkInventory,
	checkNewProduct,
	checkSalesRecency,
	checkProfitability,
	checkStockoutRate,
	checkDataQuality,
	checkMaxAge,
}

// trailing returns days d with t-d <= days (inclusive edge)
func trailing(in ruleInput, days int) []contracts.DailyRecord {
	return in.h.Window(in.t, days+1)
}

// checkInventory: stock on hand today, or units sold within the lookback
func checkInventory(in ruleInput) contracts.RuleOutcome {
	rec := in.h.Records[in.t]
	out := contracts.RuleOutcome{
		Rule:      contracts.RuleInventory,
		Evidence:  contracts.Metric(rec.OnHand),
		Threshold: 0,
	}
	if rec.InventoryMissing {
		out.Evidence = contracts.Undefined()
	}

	if !rec.InventoryMissing && rec.OnHand > 0 {
		out.Passed = true
		return out
	}
	for _, r := range trailing(in, in.th.InventoryLookbackDays) {
		if r.UnitsSold > 0 {
			out.Passed = true
			return out
		}
	}

	out.Reason = contracts.ReasonNoInventory
	return out
}

// checkNewProduct never fails; it marks the grace period
func checkNewProduct(in ruleInput) contracts.RuleOutcome {
	return contracts.RuleOutcome{
		Rule:      contracts.RuleNewProduct,
		Passed:    true,
		Evidence:  contracts.Metric(in.age),
		Threshold: contracts.Metric(in.th.NewProductGraceDays),
	}
}

// checkSalesRecency: enough selling days inside the recency window.
// Clearance items (markdown at or above the clearance level) always pass.
func checkSalesRecency(in ruleInput) contracts.RuleOutcome {
	out := contracts.RuleOutcome{
		Rule:      contracts.RuleSalesRecency,
		Evidence:  contracts.Metric(daysSinceLastSale(in)),
		Threshold: contracts.Metric(in.th.SalesRecencyWindowDays),
	}
	if in.isNew {
		out.Skipped = true
		return out
	}

	if in.th.ClearanceMarkdownPct > 0 && in.h.MarkdownAt(in.t) >= in.th.ClearanceMarkdownPct {
		out.Passed = true
		return out
	}

	sellingDays := 0
	for _, r := range trailing(in, in.th.SalesRecencyWindowDays) {
		if r.UnitsSold > 0 {
			sellingDays++
		}
	}
	if sellingDays >= in.th.MinRecentSaleDays {
		out.Passed = true
		return out
	}

	out.Reason = contracts.ReasonStale
	return out
}

// checkProfitability: mean known margin over the trailing window
func checkProfitability(in ruleInput) contracts.RuleOutcome {
	out := contracts.RuleOutcome{
		Rule:      contracts.RuleProfitability,
		Threshold: contracts.Metric(in.th.MinMarginThreshold),
	}

	sum, n := 0.0, 0
	for _, r := range in.h.Window(in.t, in.th.ProfitabilityWindowDays) {
		if m, ok := r.UnitMargin(); ok {
			sum += m
			n++
		}
	}
	if n == 0 {
		out.Evidence = contracts.Undefined()
		out.Reason = contracts.ReasonUnprofitable
		return out
	}

	mean := sum / float64(n)
	out.Evidence = contracts.Metric(mean)
	if mean >= in.th.MinMarginThreshold {
		out.Passed = true
		return out
	}

	out.Reason = contracts.ReasonUnprofitable
	return out
}

// checkStockoutRate: share of days with known zero on-hand over the history
func checkStockoutRate(in ruleInput) contracts.RuleOutcome {
	out := contracts.RuleOutcome{
		Rule:      contracts.RuleStockoutRate,
		Threshold: contracts.Metric(in.th.MaxStockoutRate),
	}

	stockouts := 0
	for _, r := range in.h.Records[:in.t+1] {
		if r.IsStockout() {
			stockouts++
		}
	}
	rate := float64(stockouts) / float64(in.t+1)
	out.Evidence = contracts.Metric(rate)

	if in.isNew {
		out.Skipped = true
		return out
	}
	if rate <= in.th.MaxStockoutRate {
		out.Passed = true
		return out
	}

	out.Reason = contracts.ReasonExcessiveStockouts
	return out
}

// checkDataQuality: worst missing ratio of price and inventory
func checkDataQuality(in ruleInput) contracts.RuleOutcome {
	out := contracts.RuleOutcome{
		Rule:      contracts.RuleDataQuality,
		Threshold: contracts.Metric(in.th.MaxMissingDataRatio),
	}

	priceGaps, inventoryGaps := 0, 0
	for _, r := range in.h.Records[:in.t+1] {
		if r.PriceGap() {
			priceGaps++
		}
		if r.InventoryGap() {
			inventoryGaps++
		}
	}
	days := float64(in.t + 1)
	worst := math.Max(float64(priceGaps)/days, float64(inventoryGaps)/days)
	out.Evidence = contracts.Metric(worst)

	if worst <= in.th.MaxMissingDataRatio {
		out.Passed = true
		return out
	}

	out.Reason = contracts.ReasonInsufficientData
	return out
}

// checkMaxAge: optional ceiling on days since launch
func checkMaxAge(in ruleInput) contracts.RuleOutcome {
	out := contracts.RuleOutcome{
		Rule:      contracts.RuleMaxAge,
		Evidence:  contracts.Metric(in.age),
		Threshold: contracts.Metric(in.th.MaxProductAgeDays),
	}
	if in.th.MaxProductAgeDays == 0 {
		out.Skipped = true
		return out
	}
	if in.age <= in.th.MaxProductAgeDays {
		out.Passed = true
		return out
	}

	out.Reason = contracts.ReasonAgedOut
	return out
}

// daysSinceLastSale scans back from t; +Inf when the product never sold
func daysSinceLastSale(in ruleInput) float64 {
	for i := in.t; i >= 0; i-- {
		if in.h.Records[i].UnitsSold > 0 {
			return float64(in.t - i)
		}
	}
	return math.Inf(1)
}
