package commands

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/api"
	"github.com/wonny/demandcast/internal/api/handlers"
	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/metrics"
	"github.com/wonny/demandcast/internal/pipeline"
	"github.com/wonny/demandcast/internal/scheduler"
	"github.com/wonny/demandcast/internal/scheduler/jobs"
	"github.com/wonny/demandcast/internal/store"
	"github.com/wonny/demandcast/pkg/database"
	"github.com/wonny/demandcast/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "리포트 API 서버 시작",
	Long: `읽기 전용 리포트 API 서버를 시작합니다.

DATABASE_URL이 설정되어 있으면 저장된 리포트를 제공하고,
없으면 시작 시 파이프라인을 한 번 실행해 메모리에 보관합니다.

Endpoints:
  GET  /health                           - Health check
  GET  /metrics                          - Prometheus metrics
  GET  /api/reports/latest               - 최신 평가 리포트
  GET  /api/reports/{run_id}             - 실행별 평가 리포트
  GET  /api/qualifications               - 최신 실행의 판정 목록 (?run_id=, ?qualified=true)
  GET  /api/qualifications/{product_id}  - 상품별 최신 판정

Example:
  go run ./cmd/demand serve
  go run ./cmd/demand serve --data sales.csv --port 8090
  go run ./cmd/demand serve --db --refresh`,
	RunE: runServe,
}

var (
	servePort    string
	serveRefresh bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API port (default API_PORT)")
	serveCmd.Flags().BoolVar(&serveRefresh, "refresh", false, "rerun the pipeline on SCHEDULE_CRON while serving")
}

// purgingRunner drops cached product lookups after every successful run
type purgingRunner struct {
	orch *pipeline.Orchestrator
	qh   *handlers.QualificationHandler
}

func (p purgingRunner) Run(ctx context.Context, rc pipeline.RunConfig) (*pipeline.RunResult, error) {
	result, err := p.orch.Run(ctx, rc)
	if err == nil {
		p.qh.Purge()
	}
	return result, err
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if servePort != "" {
		a.cfg.API.Port = servePort
	}

	var m *metrics.Metrics
	if a.cfg.MetricsEnabled {
		m = metrics.New()
	}
	client := a.openRedis()

	// 1. Report reader: Postgres when configured, otherwise an in-memory store
	var (
		reader contracts.ReportReader
		mem    *store.Memory
		pgDB   *database.DB
	)
	if a.cfg.Database.URL != "" {
		db, err := a.openDB(ctx)
		if err != nil {
			return err
		}
		reader = store.NewRepository(db.Pool)
		pgDB = db
	} else {
		mem = store.NewMemory()
		reader = mem
		a.log.Info("DATABASE_URL not set, serving from memory")
	}
	if client.Enabled() {
		reader = store.NewCachedReader(reader, store.NewReportCache(client, a.cfg.Redis.ReportTTL))
	}

	// 2. Handlers and router
	qualificationHandler := handlers.NewQualificationHandler(reader, a.cfg.API.LookupCache, a.log)
	limiter := api.NewLimiter(a.cfg.API.RateLimit, a.cfg.API.RateBurst, redis.NewRateLimiter(client, "demandcast"))
	router := api.NewRouter(api.Deps{
		Reports:        handlers.NewReportHandler(reader, a.log),
		Qualifications: qualificationHandler,
		Metrics:        m,
		Limiter:        limiter,
		Database:       pgDB,
		Redis:          client,
	}, a.log)

	// 3. Pipeline: run once at startup for the in-memory store, on schedule with --refresh
	if mem != nil || serveRefresh {
		orch, err := a.orchestrator(ctx, true, mem, m)
		if err != nil {
			return err
		}
		runner := purgingRunner{orch: orch, qh: qualificationHandler}

		if mem != nil {
			if _, err := runner.Run(ctx, pipeline.RunConfig{}); err != nil {
				return fmt.Errorf("initial run: %w", err)
			}
		}

		if serveRefresh {
			sched := scheduler.New(a.log)
			if err := sched.AddJob(jobs.NewForecastRunJob(runner, a.cfg.Pipeline.Schedule, false, a.log)); err != nil {
				return fmt.Errorf("add forecast job: %w", err)
			}
			if client.Enabled() {
				if err := sched.AddJob(jobs.NewCacheWarmJob(reader, a.log)); err != nil {
					return fmt.Errorf("add cache job: %w", err)
				}
			}
			sched.Start()
			defer sched.Stop()
		}
	}

	// 4. Start server with graceful shutdown
	server := api.New(a.cfg, a.log, router)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n✅ Server running on http://%s\n", net.JoinHostPort("localhost", a.cfg.API.Port))
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
