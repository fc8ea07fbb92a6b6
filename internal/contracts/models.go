package contracts

// ModelName identifies a forecast model variant
type ModelName string

const (
	ModelBaseline ModelName = "baseline"
	ModelLag      ModelName = "lag"
	ModelFull     ModelName = "full"
)

// Model is trained once on a batch of feature rows
type Model interface {
	Name() ModelName
	Fit(rows []FeatureRow) (Fitted, error)
}

// Fitted is an immutable trained model; Predict is safe for concurrent use.
// Predictions are non-negative, one per row, in input order.
type Fitted interface {
	Name() ModelName
	Predict(rows []FeatureRow) ([]float64, error)
}

// ImportanceRanker is implemented by fitted models that expose feature importance
type ImportanceRanker interface {
	FeatureImportance() []FeatureImportance
}

// FeatureImportance is the normalized split gain of one feature
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Rank       int     `json:"rank"`
}
