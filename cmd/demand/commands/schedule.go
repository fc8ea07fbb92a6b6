package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/metrics"
	"github.com/wonny/demandcast/internal/scheduler"
	"github.com/wonny/demandcast/internal/scheduler/jobs"
	"github.com/wonny/demandcast/internal/store"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "스케줄러 관리",
	Long: `예측 파이프라인을 주기적으로 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/demand schedule start --db
  go run ./cmd/demand schedule list
  go run ./cmd/demand schedule run forecast_run --data sales.csv`,
}

var (
	scheduleStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- forecast_run      : SCHEDULE_CRON (기본 매일 02:30)
- report_cache_warm : 5분마다 (REDIS_ENABLED일 때)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	scheduleListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	scheduleRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}

	scheduleDryRun bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)

	scheduleCmd.PersistentFlags().BoolVar(&scheduleDryRun, "dry-run", false, "run jobs without persisting results")
}

// initScheduler registers every job against the configured source and stores
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	ctx, stop := signalContext()
	defer stop()

	var m *metrics.Metrics
	if a.cfg.MetricsEnabled {
		m = metrics.New()
	}

	orch, err := a.orchestrator(ctx, !scheduleDryRun, nil, m)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewForecastRunJob(orch, a.cfg.Pipeline.Schedule, scheduleDryRun, a.log)); err != nil {
		return nil, fmt.Errorf("add forecast job: %w", err)
	}

	if client := a.openRedis(); client.Enabled() && a.db != nil {
		reader := store.NewCachedReader(store.NewRepository(a.db.Pool), store.NewReportCache(client, a.cfg.Redis.ReportTTL))
		if err := sched.AddJob(jobs.NewCacheWarmJob(reader, a.log)); err != nil {
			return nil, fmt.Errorf("add cache job: %w", err)
		}
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n✅ Scheduler started successfully")
	fmt.Fprintln(out, "\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Fprintf(out, "  - %s (next: %s)\n", jobName, next.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	ctx, stop := signalContext()
	defer stop()
	<-ctx.Done()

	sched.Stop()
	printStats(cmd, sched)
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	rows := make([][]string, 0, len(stats))
	for _, name := range sched.GetAllJobs() {
		rows = append(rows, []string{name, stats[name].Schedule})
	}
	printTable(cmd.OutOrStdout(), []string{"Job", "Schedule"}, rows)
	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	result, err := sched.RunJob(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !result.Success {
		fmt.Fprintf(out, "❌ %s failed after %s: %s\n", result.JobName, result.Duration, result.Error)
		return fmt.Errorf("job %s failed", result.JobName)
	}
	fmt.Fprintf(out, "✅ %s completed in %s\n", result.JobName, result.Duration)
	return nil
}

// printStats prints the run history of every job
func printStats(cmd *cobra.Command, sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := stats[name]
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", s.TotalRuns),
			fmt.Sprintf("%d", s.FailureCount),
			fmt.Sprintf("%d", s.ConsecutiveFailures),
			fmt.Sprintf("%.0f%%", s.SuccessRate*100),
		})
	}
	printTable(cmd.OutOrStdout(), []string{"Job", "Runs", "Failures", "Failing streak", "Success"}, rows)
}
