package contracts

import "time"

// ModelScore is one model's aggregate error on the evaluation set
type ModelScore struct {
	Model   ModelName `json:"model"`
	WMAPE   Metric    `json:"wmape"`
	Defined bool      `json:"defined"` // false when sum(actual) == 0
	MAE     Metric    `json:"mae"`
	RMSE    Metric    `json:"rmse"`
	Bias    Metric    `json:"bias"` // mean(predicted - actual)
	Rows    int       `json:"rows"`
	Rank    int       `json:"rank"`
}

// ProductScore is one model's WMAPE for one product
type ProductScore struct {
	ProductID string    `json:"product_id"`
	Model     ModelName `json:"model"`
	WMAPE     Metric    `json:"wmape"`
	Defined   bool      `json:"defined"`
	Rows      int       `json:"rows"`
}

// EvaluationReport compares model variants on held-out rows
type EvaluationReport struct {
	RunID       string    `json:"run_id"`
	ConfigHash  string    `json:"config_hash"`
	Seed        int64     `json:"seed"`
	GeneratedAt time.Time `json:"generated_at"`
	Cutoff      time.Time `json:"cutoff"`
	TrainRows   int       `json:"train_rows"`
	TestRows    int       `json:"test_rows"`

	Scores            []ModelScore         `json:"scores"`
	Products          []ProductScore       `json:"products,omitempty"`
	FeatureImportance []FeatureImportance  `json:"feature_importance,omitempty"`
	Qualification     QualificationSummary `json:"qualification"`
}

// Best returns the top-ranked defined score
func (r *EvaluationReport) Best() (ModelScore, bool) {
	for _, s := range r.Scores {
		if s.Rank == 1 && s.Defined {
			return s, true
		}
	}
	return ModelScore{}, false
}

// Score returns the score for model
func (r *EvaluationReport) Score(model ModelName) (ModelScore, bool) {
	for _, s := range r.Scores {
		if s.Model == model {
			return s, true
		}
	}
	return ModelScore{}, false
}
