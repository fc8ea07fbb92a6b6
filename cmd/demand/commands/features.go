package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/s1_qualification"
	"github.com/wonny/demandcast/internal/s2_features"
)

// featuresCmd represents the features command
var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "피처 생성 (S0 → S2)",
	Long: `예측 대상 상품의 일별 피처 행을 생성합니다.

피처:
- lag_k            : k일 전 판매량 (기본 7, 14, 28)
- rolling_mean/std : 직전 N일 판매량 평균/표준편차
- weeks_since_launch : 출시 후 주차
- price            : 할인율, 마진, 품절 여부

조회 기간이 부족한 날은 제외되고 사유가 기록됩니다.

Example:
  go run ./cmd/demand features --data sales.csv
  go run ./cmd/demand features --data sales.csv --limit 20 --json`,
	RunE: runFeatures,
}

var (
	featuresLimit int
	featuresJSON  bool
)

func init() {
	rootCmd.AddCommand(featuresCmd)

	featuresCmd.Flags().IntVar(&featuresLimit, "limit", 10, "rows to print (0 = all)")
	featuresCmd.Flags().BoolVar(&featuresJSON, "json", false, "JSON output")
}

func runFeatures(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	histories, err := a.histories(ctx)
	if err != nil {
		return err
	}

	results := s1_qualification.NewEngine(a.forecast.Qualification, a.log).Qualify(histories)

	builder := s2_features.NewBuilder(a.forecast.Features, a.log)
	set, err := builder.BuildAll(ctx, histories, results, a.cfg.Pipeline.Workers)
	if err != nil {
		return fmt.Errorf("build features: %w", err)
	}

	rows := set.Rows
	if featuresLimit > 0 && len(rows) > featuresLimit {
		rows = rows[:featuresLimit]
	}

	out := cmd.OutOrStdout()
	if featuresJSON {
		set.Rows = rows
		return printJSON(out, set)
	}

	printHeader(out, "Feature Build",
		"Products", fmt.Sprintf("%d", len(histories)),
		"Rows", fmt.Sprintf("%d", len(set.Rows)),
		"Excluded", fmt.Sprintf("%d", len(set.Excluded)),
	)

	columns := []string{"Product", "Date"}
	for _, k := range builder.LagOffsets() {
		columns = append(columns, fmt.Sprintf("lag_%d", k))
	}
	columns = append(columns, "roll_mean", "roll_std", "markdown", "margin", "target")

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := []string{r.ProductID, formatDate(r.Date)}
		for _, v := range r.LagVector() {
			line = append(line, fmt.Sprintf("%.0f", v))
		}
		line = append(line,
			fmt.Sprintf("%.2f", r.RollingMean),
			fmt.Sprintf("%.2f", r.RollingStd),
			fmt.Sprintf("%.2f", r.MarkdownPct),
			fmt.Sprintf("%.2f", r.Margin),
			fmt.Sprintf("%.0f", r.Target),
		)
		table = append(table, line)
	}
	printTable(out, columns, table)
	return nil
}
