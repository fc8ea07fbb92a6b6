package contracts

import "context"

// HistoryNormalizer builds daily histories from raw rows (S0)
// ⭐ SSOT: S0 히스토리 정규화 인터페이스
type HistoryNormalizer interface {
	Normalize(productID string, raw []RawRecord) (*ProductHistory, error)
}

// Qualifier decides which products are forecastable (S1)
// ⭐ SSOT: S1 예측 대상 선별 인터페이스
type Qualifier interface {
	Qualify(histories []*ProductHistory) []QualificationResult
}

// FeatureBuilder derives feature rows for a qualified product (S2)
// ⭐ SSOT: S2 피처 생성 인터페이스
type FeatureBuilder interface {
	Build(history *ProductHistory, qualification QualificationResult) (FeatureSet, error)
}

// ReportEvaluator scores model predictions against actuals (S4)
// ⭐ SSOT: S4 평가 인터페이스
type ReportEvaluator interface {
	Evaluate(rows []FeatureRow, predictions map[ModelName][]float64) (*EvaluationReport, error)
}

// RecordSource loads raw history rows (CSV, XLSX, Postgres)
type RecordSource interface {
	LoadRecords(ctx context.Context) ([]RawRecord, error)
}
