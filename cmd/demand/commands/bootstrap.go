package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
	"github.com/wonny/demandcast/internal/metrics"
	"github.com/wonny/demandcast/internal/pipeline"
	"github.com/wonny/demandcast/internal/s0_history"
	"github.com/wonny/demandcast/internal/store"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/database"
	"github.com/wonny/demandcast/pkg/logger"
	"github.com/wonny/demandcast/pkg/redis"
)

// app holds the shared dependencies of every command
type app struct {
	cfg      *config.Config
	forecast *forecastconfig.Config
	log      *logger.Logger

	db    *database.DB  // nil without DATABASE_URL
	redis *redis.Client // disabled unless REDIS_ENABLED
}

// bootstrap loads env and forecast configuration and creates the logger.
// Connections are opened lazily by the commands that need them.
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if forecastConfigFile != "" {
		cfg.Pipeline.ForecastConfig = forecastConfigFile
	}
	if dataFile != "" {
		cfg.Pipeline.DataFile = dataFile
	}

	log := logger.New(cfg)

	fc, err := loadForecastConfig(cfg.Pipeline.ForecastConfig, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		forecast: fc,
		log:      log,
		redis:    redis.Disabled(),
	}, nil
}

// loadForecastConfig reads the YAML file, falling back to defaults when it does not exist
func loadForecastConfig(path string, log *logger.Logger) (*forecastconfig.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.WithField("path", path).Warn("Forecast config not found, using defaults")
		return forecastconfig.Default(), nil
	}

	fc, _, err := forecastconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load forecast config: %w", err)
	}

	for _, w := range forecastconfig.Warn(fc) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	return fc, nil
}

// openDB connects to Postgres and ensures the schema exists
func (a *app) openDB(ctx context.Context) (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if a.cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := database.New(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	a.log.Info("Connected to database")
	a.db = db
	return db, nil
}

// openRedis connects to Redis when enabled; failures degrade to a disabled client
func (a *app) openRedis() *redis.Client {
	if !a.cfg.Redis.Enabled || a.redis.Enabled() {
		return a.redis
	}

	client, err := redis.New(a.cfg)
	if err != nil {
		a.log.WithError(err).Warn("Redis unavailable, continuing without cache")
		return a.redis
	}

	a.log.Info("Connected to Redis")
	a.redis = client
	return client
}

// close releases every opened connection
func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	_ = a.redis.Close()
}

// source picks the record source from the --db flag or the data file
func (a *app) source(ctx context.Context) (contracts.RecordSource, error) {
	if fromDB {
		db, err := a.openDB(ctx)
		if err != nil {
			return nil, err
		}
		from, to, err := dateRange(rangeFrom, rangeTo)
		if err != nil {
			return nil, err
		}
		return s0_history.NewSalesRepository(db.Pool).WithRange(from, to), nil
	}

	if a.cfg.Pipeline.DataFile == "" {
		return nil, fmt.Errorf("no input: pass --data <file> or --db, or set DATA_FILE")
	}
	return s0_history.NewFileSource(a.cfg.Pipeline.DataFile, sheetName, a.log), nil
}

// orchestrator wires the pipeline. With persist, results go to Postgres
// (or to mem when given) and reports are cached in Redis.
func (a *app) orchestrator(ctx context.Context, persist bool, mem *store.Memory, m *metrics.Metrics) (*pipeline.Orchestrator, error) {
	src, err := a.source(ctx)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithWorkers(a.cfg.Pipeline.Workers)}
	if m != nil {
		opts = append(opts, pipeline.WithMetrics(m))
	}

	if persist {
		switch {
		case mem != nil:
			opts = append(opts, pipeline.WithStore(mem))
		default:
			db, err := a.openDB(ctx)
			if err != nil {
				return nil, err
			}
			opts = append(opts, pipeline.WithStore(store.NewRepository(db.Pool)))
		}

		if client := a.openRedis(); client.Enabled() {
			opts = append(opts, pipeline.WithCache(store.NewReportCache(client, a.cfg.Redis.ReportTTL)))
		}
	}

	return pipeline.NewOrchestrator(a.forecast, src, a.log, opts...)
}

// histories runs S0 only, for the inspection commands
func (a *app) histories(ctx context.Context) ([]*contracts.ProductHistory, error) {
	src, err := a.source(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := src.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	histories, errs := s0_history.NewNormalizer(a.log).NormalizeAll(raw)
	for _, e := range errs {
		a.log.WithError(e).Warn("Skipping product")
	}
	if len(histories) == 0 {
		return nil, contracts.NewDataError("no product could be normalized from %d rows", len(raw))
	}
	return histories, nil
}

// dateRange parses the optional --from/--to bounds; empty means open
func dateRange(from, to string) (time.Time, time.Time, error) {
	var bounds [2]time.Time
	for i, v := range []string{from, to} {
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", v, err)
		}
		bounds[i] = t
	}
	if !bounds[0].IsZero() && !bounds[1].IsZero() && bounds[1].Before(bounds[0]) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return bounds[0], bounds[1], nil
}
