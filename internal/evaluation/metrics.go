package evaluation

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/wonny/demandcast/internal/contracts"
)

// WMAPE returns sum|a-p| / sum(a).
// Empty input or zero total actuals is undefined: (NaN, UndefinedMetricError).
func WMAPE(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return math.NaN(), contracts.NewDataError("%d actuals but %d predictions", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return math.NaN(), contracts.NewUndefinedMetricError("WMAPE of an empty series")
	}

	absErr, total := 0.0, 0.0
	for i := range actual {
		absErr += math.Abs(actual[i] - predicted[i])
		total += actual[i]
	}
	if total == 0 {
		return math.NaN(), contracts.NewUndefinedMetricError("WMAPE with zero total actuals")
	}
	return absErr / total, nil
}

// errorStats returns MAE, RMSE and bias (mean of predicted - actual)
func errorStats(actual, predicted []float64) (mae, rmse, bias contracts.Metric) {
	if len(actual) == 0 {
		return contracts.Undefined(), contracts.Undefined(), contracts.Undefined()
	}

	abs := make(stats.Float64Data, len(actual))
	sq := make(stats.Float64Data, len(actual))
	diff := make(stats.Float64Data, len(actual))
	for i := range actual {
		d := predicted[i] - actual[i]
		diff[i] = d
		abs[i] = math.Abs(d)
		sq[i] = d * d
	}

	m, _ := abs.Mean()
	s, _ := sq.Mean()
	b, _ := diff.Mean()
	return contracts.Metric(m), contracts.Metric(math.Sqrt(s)), contracts.Metric(b)
}
