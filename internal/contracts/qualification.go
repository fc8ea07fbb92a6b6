package contracts

import "time"

// Rule identifies a qualification rule
type Rule string

const (
	RuleInventory     Rule = "inventory"
	RuleNewProduct    Rule = "new_product"
	RuleSalesRecency  Rule = "sales_recency"
	RuleProfitability Rule = "profitability"
	RuleStockoutRate  Rule = "stockout_rate"
	RuleDataQuality   Rule = "data_quality"
	RuleMaxAge        Rule = "max_age"
)

// Failure reasons reported in QualificationResult.Reasons
const (
	ReasonNoInventory        = "no inventory"
	ReasonStale              = "stale — no recent sales"
	ReasonUnprofitable       = "unprofitable"
	ReasonExcessiveStockouts = "excessive stockouts"
	ReasonInsufficientData   = "insufficient data quality"
	ReasonAgedOut            = "aged out"
)

// RuleOutcome is the result of a single rule with its numeric evidence
type RuleOutcome struct {
	Rule      Rule   `json:"rule"`
	Passed    bool   `json:"passed"`
	Skipped   bool   `json:"skipped"`
	Evidence  Metric `json:"evidence"`
	Threshold Metric `json:"threshold"`
	Reason    string `json:"reason,omitempty"` // set only on failure
}

// Failed reports a rule that ran and did not pass
func (o RuleOutcome) Failed() bool {
	return !o.Skipped && !o.Passed
}

// QualificationResult is the forecast/no-forecast decision for one product
type QualificationResult struct {
	ProductID      string        `json:"product_id"`
	AsOf           time.Time     `json:"as_of"`
	AgeDays        int           `json:"age_days"`
	IsNew          bool          `json:"is_new"`
	ShouldForecast bool          `json:"should_forecast"`
	Reasons        []string      `json:"reasons"`
	Outcomes       []RuleOutcome `json:"outcomes"`
}

// HasReason reports whether reason is among the failures
func (r QualificationResult) HasReason(reason string) bool {
	for _, got := range r.Reasons {
		if got == reason {
			return true
		}
	}
	return false
}

// Outcome returns the outcome of rule, if evaluated
func (r QualificationResult) Outcome(rule Rule) (RuleOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Rule == rule {
			return o, true
		}
	}
	return RuleOutcome{}, false
}

// DailyDecision is the as-of decision for one day of a history
type DailyDecision struct {
	Date           time.Time `json:"date"`
	ShouldForecast bool      `json:"should_forecast"`
	Reasons        []string  `json:"reasons"`
}

// QualificationSummary aggregates a batch of decisions
type QualificationSummary struct {
	Total         int            `json:"total"`
	Qualified     int            `json:"qualified"`
	Disqualified  int            `json:"disqualified"`
	QualifiedPct  Metric         `json:"qualified_pct"`
	NewProducts   int            `json:"new_products"`
	MedianAgeDays Metric         `json:"median_age_days"`
	ByReason      map[string]int `json:"by_reason"`
}
