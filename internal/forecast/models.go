package forecast

import (
	"github.com/rs/zerolog"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
)

// NewLagModel creates a GBRT over the lag vector only.
// log is expected to carry the component tag already.
func NewLagModel(params forecastconfig.GBRT, log zerolog.Logger) contracts.Model {
	return &gbrtModel{
		name:   contracts.ModelLag,
		params: params,
		vector: contracts.FeatureRow.LagVector,
		names:  contracts.LagFeatureNames,
		log:    log,
	}
}

// NewFullModel creates a GBRT over lags plus engineered features
func NewFullModel(params forecastconfig.GBRT, log zerolog.Logger) contracts.Model {
	return &gbrtModel{
		name:   contracts.ModelFull,
		params: params,
		vector: contracts.FeatureRow.FullVector,
		names:  contracts.FullFeatureNames,
		log:    log,
	}
}

// Lineup returns baseline, lag and full models in report order
// ⭐ SSOT: 비교 대상 모델 구성은 여기서만
func Lineup(cfg *forecastconfig.Config, log zerolog.Logger) []contracts.Model {
	return []contracts.Model{
		NewBaseline(cfg.Features.BaselineWindowDays),
		NewLagModel(cfg.Models.Lag, log),
		NewFullModel(cfg.Models.Full, log),
	}
}
