package evaluation

import (
	"sort"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
	"github.com/wonny/demandcast/pkg/logger"
)

// Evaluator scores model predictions against held-out actuals
// ⭐ SSOT: S4 모델 비교 (WMAPE)는 여기서만
type Evaluator struct {
	cfg    forecastconfig.Evaluation
	logger *logger.Logger
}

var _ contracts.ReportEvaluator = (*Evaluator)(nil)

// NewEvaluator creates a new evaluator
func NewEvaluator(cfg forecastconfig.Evaluation, log *logger.Logger) *Evaluator {
	return &Evaluator{
		cfg:    cfg,
		logger: log.WithField("module", "evaluation"),
	}
}

// Evaluate implements contracts.ReportEvaluator.
// predictions[m][i] is model m's forecast for rows[i].
func (e *Evaluator) Evaluate(rows []contracts.FeatureRow, predictions map[contracts.ModelName][]float64) (*contracts.EvaluationReport, error) {
	for model, preds := range predictions {
		if len(preds) != len(rows) {
			return nil, contracts.NewDataError("model %s: %d predictions for %d rows", model, len(preds), len(rows))
		}
	}

	keep := e.scoredRows(rows)

	report := &contracts.EvaluationReport{
		GeneratedAt: time.Now().UTC(),
		TestRows:    len(keep),
		Scores:      make([]contracts.ModelScore, 0, len(predictions)),
	}

	for _, model := range modelNames(predictions) {
		actual, pred := gather(rows, predictions[model], keep)
		report.Scores = append(report.Scores, e.score(model, actual, pred))

		if e.cfg.PerProduct {
			report.Products = append(report.Products, productScores(model, rows, predictions[model], keep)...)
		}
	}
	RankScores(report.Scores)

	sort.SliceStable(report.Products, func(i, j int) bool {
		a, b := report.Products[i], report.Products[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.Model < b.Model
	})

	fields := map[string]interface{}{
		"rows":   len(keep),
		"models": len(report.Scores),
	}
	if best, ok := report.Best(); ok {
		fields["best_model"] = best.Model
		fields["best_wmape"] = best.WMAPE.Float()
	}
	e.logger.WithFields(fields).Info("Evaluation completed")

	return report, nil
}

// WithImportance attaches the ranking of a fitted model that exposes one
func (e *Evaluator) WithImportance(report *contracts.EvaluationReport, fitted contracts.Fitted) {
	if ranker, ok := fitted.(contracts.ImportanceRanker); ok {
		report.FeatureImportance = ranker.FeatureImportance()
	}
}

func (e *Evaluator) score(model contracts.ModelName, actual, pred []float64) contracts.ModelScore {
	s := contracts.ModelScore{Model: model, Rows: len(actual)}
	s.MAE, s.RMSE, s.Bias = errorStats(actual, pred)

	w, err := WMAPE(actual, pred)
	if err != nil {
		// undefined metrics are flagged, the batch continues
		e.logger.WithFields(map[string]interface{}{
			"model": model,
			"error": err.Error(),
		}).Warn("WMAPE undefined")
		s.WMAPE = contracts.Undefined()
		return s
	}
	s.WMAPE = contracts.Metric(w)
	s.Defined = true
	return s
}

// scoredRows returns the row indexes that enter scoring
func (e *Evaluator) scoredRows(rows []contracts.FeatureRow) []int {
	keep := make([]int, 0, len(rows))
	for i, r := range rows {
		if e.cfg.ExcludeZeroActuals && r.Target <= 0 {
			continue
		}
		keep = append(keep, i)
	}
	return keep
}

// RankScores orders scores by WMAPE ascending; undefined last, ties by model name
func RankScores(scores []contracts.ModelScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Defined != b.Defined {
			return a.Defined
		}
		if a.Defined && a.WMAPE != b.WMAPE {
			return a.WMAPE < b.WMAPE
		}
		return a.Model < b.Model
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
}

func productScores(model contracts.ModelName, rows []contracts.FeatureRow, preds []float64, keep []int) []contracts.ProductScore {
	byProduct := make(map[string][]int)
	var order []string
	for _, i := range keep {
		id := rows[i].ProductID
		if _, ok := byProduct[id]; !ok {
			order = append(order, id)
		}
		byProduct[id] = append(byProduct[id], i)
	}

	out := make([]contracts.ProductScore, 0, len(order))
	for _, id := range order {
		actual, pred := gather(rows, preds, byProduct[id])
		ps := contracts.ProductScore{ProductID: id, Model: model, Rows: len(actual), WMAPE: contracts.Undefined()}
		if w, err := WMAPE(actual, pred); err == nil {
			ps.WMAPE = contracts.Metric(w)
			ps.Defined = true
		}
		out = append(out, ps)
	}
	return out
}

func gather(rows []contracts.FeatureRow, preds []float64, idx []int) (actual, pred []float64) {
	actual = make([]float64, len(idx))
	pred = make([]float64, len(idx))
	for j, i := range idx {
		actual[j] = rows[i].Target
		pred[j] = preds[i]
	}
	return actual, pred
}

func modelNames(predictions map[contracts.ModelName][]float64) []contracts.ModelName {
	names := make([]contracts.ModelName, 0, len(predictions))
	for m := range predictions {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Improvement returns the relative WMAPE reduction of model over the baseline
func Improvement(report *contracts.EvaluationReport, model contracts.ModelName) contracts.Metric {
	base, ok1 := report.Score(contracts.ModelBaseline)
	other, ok2 := report.Score(model)
	if !ok1 || !ok2 || !base.Defined || !other.Defined || base.WMAPE == 0 {
		return contracts.Undefined()
	}
	return contracts.Metric((base.WMAPE.Float() - other.WMAPE.Float()) / base.WMAPE.Float())
}

