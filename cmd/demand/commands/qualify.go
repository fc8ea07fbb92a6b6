package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/s1_qualification"
)

// qualifyCmd represents the qualify command
var qualifyCmd = &cobra.Command{
	Use:   "qualify",
	Short: "예측 대상 판정 (S0 → S1)",
	Long: `판매 이력을 정규화하고 상품별 예측 대상 여부를 판정합니다.

판정 규칙:
- inventory      : 재고 없음 (최근 판매로 대체 가능)
- sales_recency  : 최근 판매 없음 (신상품 제외)
- profitability  : 평균 마진 미달
- stockout_rate  : 품절 비율 초과 (신상품 제외)
- data_quality   : 가격/재고 결측 비율 초과
- max_age        : 최대 판매 기간 초과 (0 = 비활성)

Example:
  go run ./cmd/demand qualify --data sales.csv
  go run ./cmd/demand qualify --data sales.csv --product SKU-001
  go run ./cmd/demand qualify --db --qualified --json`,
	RunE: runQualify,
}

var (
	qualifyProduct       string
	qualifyOnlyQualified bool
	qualifyJSON          bool
)

func init() {
	rootCmd.AddCommand(qualifyCmd)

	qualifyCmd.Flags().StringVar(&qualifyProduct, "product", "", "print the daily decision timeline of one product")
	qualifyCmd.Flags().BoolVar(&qualifyOnlyQualified, "qualified", false, "list qualified products only")
	qualifyCmd.Flags().BoolVar(&qualifyJSON, "json", false, "JSON output")
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runQualify(cmd *cobra.Command, args []string) error {
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

	engine := s1_qualification.NewEngine(a.forecast.Qualification, a.log)
	out := cmd.OutOrStdout()

	if qualifyProduct != "" {
		for _, h := range histories {
			if h.ProductID != qualifyProduct {
				continue
			}
			timeline := engine.Timeline(h)
			if qualifyJSON {
				return printJSON(out, timeline)
			}
			printTimeline(cmd, h.ProductID, timeline)
			return nil
		}
		return contracts.NewDataError("product %q not found", qualifyProduct)
	}

	results := engine.Qualify(histories)
	summary := s1_qualification.Summarize(results)

	if qualifyOnlyQualified {
		kept := results[:0:0]
		for _, r := range results {
			if r.ShouldForecast {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	if qualifyJSON {
		return printJSON(out, struct {
			Summary contracts.QualificationSummary  `json:"summary"`
			Results []contracts.QualificationResult `json:"results"`
		}{summary, results})
	}

	printQualifications(out, results)
	printQualificationSummary(out, summary)
	return nil
}

func printTimeline(cmd *cobra.Command, productID string, timeline []contracts.DailyDecision) {
	out := cmd.OutOrStdout()
	printHeader(out, "Qualification Timeline", "Product", productID, "Days", fmt.Sprintf("%d", len(timeline)))

	rows := make([][]string, 0, len(timeline))
	for _, d := range timeline {
		decision := "forecast"
		if !d.ShouldForecast {
			decision = "skip"
		}
		rows = append(rows, []string{formatDate(d.Date), decision, strings.Join(d.Reasons, ", ")})
	}
	printTable(out, []string{"Date", "Decision", "Reasons"}, rows)
}
