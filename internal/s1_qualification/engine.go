package s1_qualification

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
	"github.com/wonny/demandcast/pkg/logger"
)

// ShouldForecastProduct evaluates every rule as of the last day of history.
// Pure and deterministic: same history and thresholds give the same result.
func ShouldForecastProduct(h *contracts.ProductHistory, th forecastconfig.Qualification) contracts.QualificationResult {
	if h == nil {
		return insufficientData("", th)
	}
	return evaluate(h, h.Len()-1, th)
}

// ShouldForecastProductAsOf evaluates the history prefix ending at asOf.
// Dates after the last record evaluate as of the last record.
func ShouldForecastProductAsOf(h *contracts.ProductHistory, asOf time.Time, th forecastconfig.Qualification) contracts.QualificationResult {
	if h == nil {
		return insufficientData("", th)
	}
	t := h.IndexOf(asOf)
	if t < 0 && h.Len() > 0 && contracts.DayOf(asOf).After(h.LastDate()) {
		t = h.Len() - 1
	}
	return evaluate(h, t, th)
}

func evaluate(h *contracts.ProductHistory, t int, th forecastconfig.Qualification) contracts.QualificationResult {
	if t < 0 || t >= h.Len() {
		return insufficientData(h.ProductID, th)
	}

	in := ruleInput{
		h:     h,
		t:     t,
		age:   t, // contiguous history: index == days since launch
		isNew: t < th.NewProductGraceDays,
		th:    th,
	}

	result := contracts.QualificationResult{
		ProductID: h.ProductID,
		AsOf:      h.Records[t].Date,
		AgeDays:   in.age,
		IsNew:     in.isNew,
		Reasons:   []string{},
		Outcomes:  make([]contracts.RuleOutcome, 0, len(orderedRules)),
	}

	// 모든 규칙 실행 (short-circuit 없음) → 실패 사유 전부 보고
	for _, rule := range orderedRules {
		out := rule(in)
		result.Outcomes = append(result.Outcomes, out)
		if out.Failed() {
			result.Reasons = append(result.Reasons, out.Reason)
		}
	}
	result.ShouldForecast = len(result.Reasons) == 0

	return result
}

// insufficientData is the verdict for a missing or out-of-range history
func insufficientData(productID string, th forecastconfig.Qualification) contracts.QualificationResult {
	return contracts.QualificationResult{
		ProductID: productID,
		Reasons:   []string{contracts.ReasonInsufficientData},
		Outcomes: []contracts.RuleOutcome{{
			Rule:      contracts.RuleDataQuality,
			Evidence:  1,
			Threshold: contracts.Metric(th.MaxMissingDataRatio),
			Reason:    contracts.ReasonInsufficientData,
		}},
	}
}

var _ contracts.Qualifier = (*Engine)(nil)

// Engine implements S1 over batches of histories
// ⭐ SSOT: S1 예측 대상 판정은 여기서만
type Engine struct {
	thresholds forecastconfig.Qualification
	logger     *logger.Logger
}

// NewEngine creates a new qualification engine
func NewEngine(thresholds forecastconfig.Qualification, log *logger.Logger) *Engine {
	return &Engine{
		thresholds: thresholds,
		logger:     log.WithField("module", "s1_qualification"),
	}
}

// Thresholds returns the engine's immutable thresholds
func (e *Engine) Thresholds() forecastconfig.Qualification {
	return e.thresholds
}

// Evaluate qualifies a single product
func (e *Engine) Evaluate(h *contracts.ProductHistory) contracts.QualificationResult {
	return ShouldForecastProduct(h, e.thresholds)
}

// Qualify implements contracts.Qualifier
func (e *Engine) Qualify(histories []*contracts.ProductHistory) []contracts.QualificationResult {
	results := make([]contracts.QualificationResult, len(histories))
	for i, h := range histories {
		results[i] = e.Evaluate(h)
	}

	e.LogSummary(Summarize(results))
	return results
}

// LogSummary writes one summary line for a batch
func (e *Engine) LogSummary(s contracts.QualificationSummary) {
	e.logger.WithFields(map[string]interface{}{
		"total":        s.Total,
		"qualified":    s.Qualified,
		"disqualified": s.Disqualified,
		"new_products": s.NewProducts,
		"reasons":      s.ByReason,
	}).Info("Qualification completed")
}

// Timeline evaluates the rules as of every day of the history.
// Day i only sees records[0..i].
func (e *Engine) Timeline(h *contracts.ProductHistory) []contracts.DailyDecision {
	if h == nil {
		return nil
	}
	out := make([]contracts.DailyDecision, h.Len())
	for i := range h.Records {
		r := evaluate(h, i, e.thresholds)
		out[i] = contracts.DailyDecision{
			Date:           h.Records[i].Date,
			ShouldForecast: r.ShouldForecast,
			Reasons:        r.Reasons,
		}
	}
	return out
}

// Summarize aggregates decisions into a report
func Summarize(results []contracts.QualificationResult) contracts.QualificationSummary {
	s := contracts.QualificationSummary{
		Total:         len(results),
		QualifiedPct:  contracts.Undefined(),
		MedianAgeDays: contracts.Undefined(),
		ByReason:      make(map[string]int),
	}

	ages := make([]float64, 0, len(results))
	for _, r := range results {
		if r.ShouldForecast {
			s.Qualified++
		} else {
			s.Disqualified++
		}
		if r.IsNew {
			s.NewProducts++
		}
		for _, reason := range r.Reasons {
			s.ByReason[reason]++
		}
		ages = append(ages, float64(r.AgeDays))
	}

	if s.Total > 0 {
		s.QualifiedPct = contracts.Metric(float64(s.Qualified) / float64(s.Total))
	}
	if median, err := stats.Median(ages); err == nil {
		s.MedianAgeDays = contracts.Metric(median)
	}

	return s
}

// SortedReasons returns reason names by descending count, then name
func SortedReasons(s contracts.QualificationSummary) []string {
	reasons := make([]string, 0, len(s.ByReason))
	for r := range s.ByReason {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		ci, cj := s.ByReason[reasons[i]], s.ByReason[reasons[j]]
		if ci != cj {
			return ci > cj
		}
		return reasons[i] < reasons[j]
	})
	return reasons
}
