package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4
//   History  Qualification  Features  Models  Evaluation

// Stage represents a pipeline stage
type Stage string

const (
	// StageHistory S0: 원본 레코드를 일별 캘린더로 정규화
	// 위치: internal/s0_history/
	StageHistory Stage = "S0_HISTORY"

	// StageQualification S1: 비즈니스 규칙 기반 예측 대상 판정
	// 위치: internal/s1_qualification/
	StageQualification Stage = "S1_QUALIFICATION"

	// StageFeatures S2: lag / rolling / lifecycle / pricing 피처
	// 위치: internal/s2_features/
	StageFeatures Stage = "S2_FEATURES"

	// StageModels S3: baseline, lag, full 모델 학습 및 예측
	// 위치: internal/forecast/
	StageModels Stage = "S3_MODELS"

	// StageEvaluation S4: WMAPE 기반 모델 비교
	// 위치: internal/evaluation/
	StageEvaluation Stage = "S4_EVALUATION"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageHistory:
		return "S0"
	case StageQualification:
		return "S1"
	case StageFeatures:
		return "S2"
	case StageModels:
		return "S3"
	case StageEvaluation:
		return "S4"
	default:
		return "UNKNOWN"
	}
}

// AllStages returns stages in execution order
func AllStages() []Stage {
	return []Stage{
		StageHistory,
		StageQualification,
		StageFeatures,
		StageModels,
		StageEvaluation,
	}
}
