package forecast

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
)

// vectorizer maps a row to the model's feature vector
type vectorizer func(contracts.FeatureRow) []float64

// gbrtModel is the shared trainer behind LagModel and FullModel
type gbrtModel struct {
	name   contracts.ModelName
	params forecastconfig.GBRT
	vector vectorizer
	names  func(offsets []int) []string
	log    zerolog.Logger
}

func (m *gbrtModel) Name() contracts.ModelName {
	return m.name
}

// Fit implements contracts.Model
func (m *gbrtModel) Fit(rows []contracts.FeatureRow) (contracts.Fitted, error) {
	if len(rows) == 0 {
		return nil, contracts.NewDataError("%s: empty training batch", m.name)
	}

	offsets := rows[0].LagOffsets()
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		if len(row.Lags) != len(offsets) {
			return nil, contracts.NewDataError("%s: row %d has %d lags, expected %d", m.name, i, len(row.Lags), len(offsets))
		}
		X[i] = m.vector(row)
		y[i] = row.Target
	}

	ens, err := FitGBRT(X, y, m.params)
	if err != nil {
		return nil, err
	}

	m.log.Debug().
		Str("model", string(m.name)).
		Int("rows", len(rows)).
		Int("features", ens.Width()).
		Int("trees", m.params.NumTrees).
		Msg("model fitted")

	fitted := &fittedGBRT{
		name:     m.name,
		ensemble: ens,
		vector:   m.vector,
		features: m.names(offsets),
	}
	// 피처 중요도는 FullModel만 노출
	if m.name == contracts.ModelFull {
		return &fittedFull{fitted}, nil
	}
	return fitted, nil
}

// fittedGBRT is immutable and safe for concurrent Predict calls
type fittedGBRT struct {
	name     contracts.ModelName
	ensemble *Ensemble
	vector   vectorizer
	features []string
}

func (f *fittedGBRT) Name() contracts.ModelName {
	return f.name
}

// Predict implements contracts.Fitted; outputs are floored at 0
func (f *fittedGBRT) Predict(rows []contracts.FeatureRow) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		x := f.vector(row)
		if err := checkVector(x, f.ensemble.Width(), i); err != nil {
			return nil, err
		}
		out[i] = math.Max(0, f.ensemble.Predict(x))
	}
	return out, nil
}

// fittedFull is a fitted FullModel; the only fitted model that ranks features
type fittedFull struct {
	*fittedGBRT
}

var _ contracts.ImportanceRanker = (*fittedFull)(nil)

// FeatureImportance implements contracts.ImportanceRanker
func (f *fittedFull) FeatureImportance() []contracts.FeatureImportance {
	return rankImportance(f.features, f.ensemble.Gain())
}

// rankImportance normalizes gain to sum 1 and sorts descending, ties by name
func rankImportance(names []string, gain []float64) []contracts.FeatureImportance {
	total := 0.0
	for _, g := range gain {
		total += g
	}

	out := make([]contracts.FeatureImportance, len(names))
	for i, name := range names {
		out[i].Feature = name
		if total > 0 {
			out[i].Importance = gain[i] / total
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Importance != out[b].Importance {
			return out[a].Importance > out[b].Importance
		}
		return out[a].Feature < out[b].Feature
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
