package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "파이프라인 실행 및 저장",
	Long: `전체 파이프라인(S0 → S4)을 실행하고 결과를 저장합니다.

저장 대상:
- Postgres : forecast.runs, forecast.qualifications, forecast.model_scores
- Redis    : config hash + 데이터 fingerprint 키로 리포트 캐시 (REDIS_ENABLED)

같은 설정과 데이터로 다시 실행하면 캐시된 리포트를 재사용합니다.
--force로 캐시를 무시하고 다시 학습합니다.

Example:
  go run ./cmd/demand run --db
  go run ./cmd/demand run --data sales.csv --force
  go run ./cmd/demand run --data sales.csv --dry-run`,
	RunE: runPipeline,
}

var (
	runID     string
	runDryRun bool
	runForce  bool
	runJSON   bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runID, "run-id", "", "run id (default: generated UUID)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "skip persistence")
	runCmd.Flags().BoolVar(&runForce, "force", false, "ignore cached reports and refit")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "JSON output")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	orch, err := a.orchestrator(ctx, !runDryRun, nil, nil)
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx, pipeline.RunConfig{
		RunID:  runID,
		DryRun: runDryRun,
		Force:  runForce,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	out := cmd.OutOrStdout()
	if runJSON {
		return printJSON(out, result.Report)
	}

	printReport(out, result.Report, result.CacheHit)
	fmt.Fprintf(out, "\n✅ Run %s completed in %s", result.RunID, result.Duration.Round(time.Millisecond))
	if runDryRun {
		fmt.Fprint(out, " (dry run, nothing saved)")
	}
	fmt.Fprintln(out)
	return nil
}
