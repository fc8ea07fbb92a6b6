package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/demandcast/internal/contracts"
)

// Metrics holds the pipeline and API collectors
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	Products        *prometheus.GaugeVec
	DisqualifiedBy  *prometheus.GaugeVec
	FeatureRows     *prometheus.GaugeVec
	ModelWMAPE      *prometheus.GaugeVec
	APIRequests     *prometheus.CounterVec
	APIRateLimited  prometheus.Counter
	LastRunUnixTime prometheus.Gauge
}

// New creates and registers all metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_runs_total",
				Help: "Pipeline runs by outcome",
			},
			[]string{"status"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demandcast_stage_duration_seconds",
				Help:    "Wall time per pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		Products: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "demandcast_products",
				Help: "Products in the last run by qualification state",
			},
			[]string{"state"},
		),
		DisqualifiedBy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "demandcast_disqualified_products",
				Help: "Products failing each qualification rule in the last run",
			},
			[]string{"reason"},
		),
		FeatureRows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "demandcast_feature_rows",
				Help: "Feature rows in the last run",
			},
			[]string{"set"},
		),
		ModelWMAPE: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "demandcast_model_wmape",
				Help: "WMAPE per model in the last run (NaN when undefined)",
			},
			[]string{"model"},
		),
		APIRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_api_requests_total",
				Help: "Report API requests by route and status code",
			},
			[]string{"route", "code"},
		),
		APIRateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "demandcast_api_rate_limited_total",
			Help: "Report API requests rejected by the rate limiter",
		}),
		LastRunUnixTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "demandcast_last_run_timestamp_seconds",
			Help: "Completion time of the last successful run",
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one stage's duration
func (m *Metrics) ObserveStage(stage contracts.Stage, d time.Duration) {
	m.StageDuration.WithLabelValues(stage.ShortName()).Observe(d.Seconds())
}

// RunFinished counts a run; err == nil marks success
func (m *Metrics) RunFinished(err error) {
	if err != nil {
		m.RunsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.RunsTotal.WithLabelValues("success").Inc()
	m.LastRunUnixTime.SetToCurrentTime()
}

// SetQualification publishes a qualification summary
func (m *Metrics) SetQualification(s contracts.QualificationSummary) {
	m.Products.WithLabelValues("total").Set(float64(s.Total))
	m.Products.WithLabelValues("qualified").Set(float64(s.Qualified))
	m.Products.WithLabelValues("new").Set(float64(s.NewProducts))

	m.DisqualifiedBy.Reset()
	for reason, n := range s.ByReason {
		m.DisqualifiedBy.WithLabelValues(reason).Set(float64(n))
	}
}

// SetFeatureRows publishes train/test/excluded row counts
func (m *Metrics) SetFeatureRows(train, test, excluded int) {
	m.FeatureRows.WithLabelValues("train").Set(float64(train))
	m.FeatureRows.WithLabelValues("test").Set(float64(test))
	m.FeatureRows.WithLabelValues("excluded").Set(float64(excluded))
}

// SetScores publishes per-model WMAPE
func (m *Metrics) SetScores(scores []contracts.ModelScore) {
	for _, s := range scores {
		m.ModelWMAPE.WithLabelValues(string(s.Model)).Set(s.WMAPE.Float())
	}
}
