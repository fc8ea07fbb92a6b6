package contracts

import "context"

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ResultStore persists run outputs.
// SaveRun writes a run's decisions and report atomically: both or neither.
type ResultStore interface {
	SaveRun(ctx context.Context, report *EvaluationReport, results []QualificationResult) error
}

// ReportReader serves persisted reports and decisions
type ReportReader interface {
	LatestReport(ctx context.Context) (*EvaluationReport, error)
	ReportByRunID(ctx context.Context, runID string) (*EvaluationReport, error)
	LatestQualification(ctx context.Context, productID string) (*QualificationResult, error)
	ListQualifications(ctx context.Context, runID string, onlyQualified bool) ([]QualificationResult, error)
}

// ReportCache caches reports keyed by config hash and dataset fingerprint
type ReportCache interface {
	GetReport(ctx context.Context, key string) (*EvaluationReport, bool, error)
	PutReport(ctx context.Context, key string, report *EvaluationReport) error
}
