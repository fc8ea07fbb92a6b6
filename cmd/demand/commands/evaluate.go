package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/pipeline"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "모델 비교 (S0 → S4, 저장 없음)",
	Long: `전체 파이프라인을 실행하고 baseline, lag, full 모델을
마지막 test_days 구간의 WMAPE로 비교합니다. 결과는 저장하지 않습니다.

Example:
  go run ./cmd/demand evaluate --data sales.csv
  go run ./cmd/demand evaluate --data sales.xlsx --sheet daily --json`,
	RunE: runEvaluate,
}

var evaluateJSON bool

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "JSON output")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	orch, err := a.orchestrator(ctx, false, nil, nil)
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx, pipeline.RunConfig{DryRun: true})
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	out := cmd.OutOrStdout()
	if evaluateJSON {
		return printJSON(out, result.Report)
	}
	printReport(out, result.Report, result.CacheHit)
	printQualificationSummary(out, result.Summary)
	return nil
}
