package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/evaluation"
	"github.com/wonny/demandcast/internal/forecast"
	"github.com/wonny/demandcast/internal/forecastconfig"
	"github.com/wonny/demandcast/internal/metrics"
	"github.com/wonny/demandcast/internal/s0_history"
	"github.com/wonny/demandcast/internal/s1_qualification"
	"github.com/wonny/demandcast/internal/s2_features"
	"github.com/wonny/demandcast/pkg/logger"
	"github.com/wonny/demandcast/pkg/redis"
)

// Orchestrator coordinates the S0-S4 pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	cfg        *forecastconfig.Config
	configHash string

	source     contracts.RecordSource
	normalizer contracts.HistoryNormalizer
	qualifier  *s1_qualification.Engine
	features   *s2_features.Builder
	models     []contracts.Model
	evaluator  *evaluation.Evaluator

	// optional
	store   contracts.ResultStore
	cache   contracts.ReportCache
	metrics *metrics.Metrics

	workers int
	logger  *logger.Logger
}

// Option configures optional collaborators
type Option func(*Orchestrator)

// WithStore persists qualifications and reports
func WithStore(store contracts.ResultStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithCache reuses reports for an unchanged config and dataset
func WithCache(cache contracts.ReportCache) Option {
	return func(o *Orchestrator) { o.cache = cache }
}

// WithMetrics publishes stage timings and results
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithWorkers bounds the per-product fan-out
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewOrchestrator wires every stage from one immutable config
func NewOrchestrator(cfg *forecastconfig.Config, source contracts.RecordSource, log *logger.Logger, opts ...Option) (*Orchestrator, error) {
	if err := forecastconfig.Validate(cfg); err != nil {
		return nil, err
	}
	hash, err := forecastconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash forecast config: %w", err)
	}

	o := &Orchestrator{
		cfg:        cfg,
		configHash: hash,
		source:     source,
		normalizer: s0_history.NewNormalizer(log),
		qualifier:  s1_qualification.NewEngine(cfg.Qualification, log),
		features:   s2_features.NewBuilder(cfg.Features, log),
		models:     forecast.Lineup(cfg, log.Component("forecast")),
		evaluator:  evaluation.NewEvaluator(cfg.Evaluation, log),
		workers:    4,
		logger:     log.WithField("module", "pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// ConfigHash returns the SHA-256 of the run configuration
func (o *Orchestrator) ConfigHash() string {
	return o.configHash
}

// RunConfig holds per-run settings
type RunConfig struct {
	RunID  string // generated when empty
	DryRun bool   // skip persistence
	Force  bool   // ignore cached reports
}

// RunResult holds every intermediate product of a run
type RunResult struct {
	RunID           string
	Success         bool
	CacheHit        bool
	CompletedStages []contracts.Stage
	Duration        time.Duration

	Histories       []*contracts.ProductHistory
	NormalizeErrors []error
	Fingerprint     string
	Qualifications  []contracts.QualificationResult
	Summary         contracts.QualificationSummary
	Features        contracts.FeatureSet
	Split           evaluation.Split
	Fitted          map[contracts.ModelName]contracts.Fitted
	Predictions     map[contracts.ModelName][]float64
	Report          *contracts.EvaluationReport
}

// Run executes S0 → S1 → S2 → S3 → S4
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig) (result *RunResult, err error) {
	start := time.Now()
	if rc.RunID == "" {
		rc.RunID = uuid.NewString()
	}

	result = &RunResult{
		RunID:           rc.RunID,
		CompletedStages: make([]contracts.Stage, 0, len(contracts.AllStages())),
	}
	defer func() {
		result.Duration = time.Since(start)
		if o.metrics != nil {
			o.metrics.RunFinished(err)
		}
	}()

	runLog := o.logger.WithRun(rc.RunID)
	ctx = runLog.IntoContext(ctx)

	runLog.WithFields(map[string]interface{}{
		"config_id":   o.cfg.Meta.ConfigID,
		"config_hash": o.configHash[:12],
		"workers":     o.workers,
		"dry_run":     rc.DryRun,
	}).Info("Starting pipeline run")

	if err = o.stage(ctx, result, contracts.StageHistory, o.runS0); err != nil {
		return result, err
	}
	if err = o.stage(ctx, result, contracts.StageQualification, o.runS1); err != nil {
		return result, err
	}

	cacheKey := redis.ReportKey(o.configHash, result.Fingerprint)
	if !rc.Force && o.cache != nil {
		if cached, ok, cerr := o.cache.GetReport(ctx, cacheKey); cerr == nil && ok {
			report := *cached
			report.RunID = rc.RunID
			report.GeneratedAt = time.Now().UTC()
			result.Report = &report
			result.CacheHit = true
			runLog.Info("Reusing cached report")
		}
	}

	if !result.CacheHit {
		for _, st := range []struct {
			stage contracts.Stage
			fn    func(context.Context, *RunResult) error
		}{
			{contracts.StageFeatures, o.runS2},
			{contracts.StageModels, o.runS3},
			{contracts.StageEvaluation, o.runS4},
		} {
			if err = o.stage(ctx, result, st.stage, st.fn); err != nil {
				return result, err
			}
		}
	}

	if o.metrics != nil {
		o.metrics.SetScores(result.Report.Scores)
	}

	if !rc.DryRun {
		if err = o.persist(ctx, result, cacheKey); err != nil {
			return result, err
		}
	}

	result.Success = true
	runLog.WithFields(map[string]interface{}{
		"products":  len(result.Histories),
		"qualified": result.Summary.Qualified,
		"cache_hit": result.CacheHit,
		"duration":  time.Since(start).String(),
	}).Info("Pipeline run completed")

	return result, nil
}

// runLogger returns the run-scoped logger placed in ctx by Run
func (o *Orchestrator) runLogger(ctx context.Context) *logger.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l
	}
	return o.logger
}

func (o *Orchestrator) stage(ctx context.Context, result *RunResult, stage contracts.Stage, fn func(context.Context, *RunResult) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s cancelled: %w", stage.ShortName(), err)
	}

	stageLog := o.runLogger(ctx).WithStage(stage.ShortName())

	start := time.Now()
	if err := fn(ctx, result); err != nil {
		stageLog.WithError(err).Error("Stage failed")
		return fmt.Errorf("%s failed: %w", stage.ShortName(), err)
	}
	elapsed := time.Since(start)
	if o.metrics != nil {
		o.metrics.ObserveStage(stage, elapsed)
	}
	stageLog.WithField("duration", elapsed.String()).Debug("Stage completed")
	result.CompletedStages = append(result.CompletedStages, stage)
	return nil
}

// runS0 loads raw rows and normalizes each product in parallel
func (o *Orchestrator) runS0(ctx context.Context, result *RunResult) error {
	raw, err := o.source.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if len(raw) == 0 {
		return contracts.NewDataError("no input records")
	}

	groups := s0_history.GroupByProduct(raw)
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	histories := make([]*contracts.ProductHistory, len(ids))
	errs := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, id := range ids {
		i, id := i, id // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// 상품 단위 실패는 배치를 중단하지 않음
			histories[i], errs[i] = o.normalizer.Normalize(id, groups[id])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range ids {
		if errs[i] != nil {
			result.NormalizeErrors = append(result.NormalizeErrors, errs[i])
			o.runLogger(ctx).WithFields(map[string]interface{}{
				"product_id": ids[i],
				"error":      errs[i].Error(),
			}).Warn("Skipping product with malformed history")
			continue
		}
		result.Histories = append(result.Histories, histories[i])
	}
	if len(result.Histories) == 0 {
		return contracts.NewDataError("no product could be normalized (%d failed)", len(result.NormalizeErrors))
	}

	result.Fingerprint = Fingerprint(result.Histories)
	return nil
}

// runS1 evaluates every product as of its last day
func (o *Orchestrator) runS1(ctx context.Context, result *RunResult) error {
	results := make([]contracts.QualificationResult, len(result.Histories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, h := range result.Histories {
		i, h := i, h // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = o.qualifier.Evaluate(h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	result.Qualifications = results
	result.Summary = s1_qualification.Summarize(results)
	o.qualifier.LogSummary(result.Summary)
	if o.metrics != nil {
		o.metrics.SetQualification(result.Summary)
	}
	return nil
}

// runS2 builds features for qualified products and splits train/test
func (o *Orchestrator) runS2(ctx context.Context, result *RunResult) error {
	set, err := o.features.BuildAll(ctx, result.Histories, result.Qualifications, o.workers)
	if err != nil {
		return err
	}
	result.Features = set

	if len(set.Rows) == 0 {
		return contracts.NewInsufficientHistoryError(
			"no usable feature rows (%d qualified products, %d rows excluded)", result.Summary.Qualified, len(set.Excluded))
	}

	split, err := evaluation.SplitByDate(set.Rows, o.cfg.Evaluation.TestDays)
	if err != nil {
		return err
	}
	if len(split.Test) == 0 {
		return contracts.NewInsufficientHistoryError("no rows after cutoff %s", split.Cutoff.Format("2006-01-02"))
	}
	result.Split = split

	if o.metrics != nil {
		o.metrics.SetFeatureRows(len(split.Train), len(split.Test), len(set.Excluded))
	}
	return nil
}

// runS3 fits every model once on the training rows, then predicts the test rows
func (o *Orchestrator) runS3(ctx context.Context, result *RunResult) error {
	result.Fitted = make(map[contracts.ModelName]contracts.Fitted, len(o.models))
	result.Predictions = make(map[contracts.ModelName][]float64, len(o.models))

	for _, m := range o.models {
		if err := ctx.Err(); err != nil {
			return err
		}

		fitted, err := m.Fit(result.Split.Train)
		if err != nil {
			return fmt.Errorf("fit %s: %w", m.Name(), err)
		}
		preds, err := fitted.Predict(result.Split.Test)
		if err != nil {
			return fmt.Errorf("predict %s: %w", m.Name(), err)
		}

		result.Fitted[m.Name()] = fitted
		result.Predictions[m.Name()] = preds
	}
	return nil
}

// runS4 scores predictions and stamps the run metadata
func (o *Orchestrator) runS4(ctx context.Context, result *RunResult) error {
	report, err := o.evaluator.Evaluate(result.Split.Test, result.Predictions)
	if err != nil {
		return err
	}
	if full, ok := result.Fitted[contracts.ModelFull]; ok {
		o.evaluator.WithImportance(report, full)
	}

	report.RunID = result.RunID
	report.ConfigHash = o.configHash
	report.Seed = o.cfg.Meta.Seed
	report.Cutoff = result.Split.Cutoff
	report.TrainRows = len(result.Split.Train)
	report.Qualification = result.Summary

	result.Report = report
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, result *RunResult, cacheKey string) error {
	if o.store != nil {
		if err := o.store.SaveRun(ctx, result.Report, result.Qualifications); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	if o.cache != nil {
		// 캐시 실패는 실행 실패가 아님
		if err := o.cache.PutReport(ctx, cacheKey, result.Report); err != nil {
			o.runLogger(ctx).WithError(err).Warn("Failed to cache report")
		}
	}
	return nil
}
