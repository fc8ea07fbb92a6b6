package forecast

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/demandcast/internal/contracts"
)

// DefaultBaselineWindow is the trailing window of the naive forecast
const DefaultBaselineWindow = 28

// Baseline forecasts the mean of recent sales.
// Stateless: Fit returns the same predictor.
type Baseline struct {
	window int
}

// NewBaseline creates a baseline over the given trailing window
func NewBaseline(window int) *Baseline {
	if window < 1 {
		window = DefaultBaselineWindow
	}
	return &Baseline{window: window}
}

// Name implements contracts.Model
func (b *Baseline) Name() contracts.ModelName {
	return contracts.ModelBaseline
}

// Fit implements contracts.Model
func (b *Baseline) Fit(rows []contracts.FeatureRow) (contracts.Fitted, error) {
	return b, nil
}

// Predict returns each row's trailing mean
func (b *Baseline) Predict(rows []contracts.FeatureRow) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if row.TrailingDays == 0 {
			return nil, contracts.NewInsufficientHistoryError(
				"baseline for %s on %s: no prior days", row.ProductID, row.Date.Format("2006-01-02"))
		}
		if !finite(row.TrailingMean) {
			return nil, contracts.NewDataError("row %d: non-finite trailing mean", i)
		}
		out[i] = math.Max(0, row.TrailingMean)
	}
	return out, nil
}

// PredictNext forecasts the day after sales from its last window values
func (b *Baseline) PredictNext(sales []float64) (float64, error) {
	if len(sales) == 0 {
		return 0, contracts.NewInsufficientHistoryError("baseline needs at least one day of sales")
	}
	n := b.window
	if len(sales) < n {
		n = len(sales)
	}
	tail := sales[len(sales)-n:]
	for _, v := range tail {
		if !finite(v) {
			return 0, contracts.NewDataError("non-finite sales value %v", v)
		}
	}
	return math.Max(0, floats.Sum(tail)/float64(n)), nil
}
