package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/evaluation"
	"github.com/wonny/demandcast/internal/s1_qualification"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	doubleLine = "═══════════════════════════════════════════════════════════"
	singleLine = "───────────────────────────────────────────────────────────"
)

// printHeader prints a titled block with key/value lines
func printHeader(w io.Writer, title string, kv ...string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(w, "  %-12s: %s\n", kv[i], kv[i+1])
	}
	fmt.Fprintln(w, singleLine)
}

// printTable prints aligned columns with a separator under the header
func printTable(w io.Writer, columns []string, rows [][]string) {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len([]rune(c))
	}
	for _, row := range rows {
		for i, v := range row {
			if n := len([]rune(v)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(values []string) {
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = v + strings.Repeat(" ", widths[i]-len([]rune(v)))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}

	line(columns)
	total := 2 * (len(widths) - 1)
	for _, n := range widths {
		total += n
	}
	fmt.Fprintln(w, strings.Repeat("─", total))
	for _, row := range rows {
		line(row)
	}
}

// printJSON writes v indented
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMetric(m contracts.Metric, pct bool) string {
	if !m.IsDefined() {
		return "n/a"
	}
	if pct {
		return fmt.Sprintf("%.1f%%", m.Float()*100)
	}
	return fmt.Sprintf("%.3f", m.Float())
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// printQualificationSummary prints totals and failures per reason
func printQualificationSummary(w io.Writer, s contracts.QualificationSummary) {
	printHeader(w, "Qualification Report",
		"Products", fmt.Sprintf("%d", s.Total),
		"Qualified", fmt.Sprintf("%d (%s)", s.Qualified, formatMetric(s.QualifiedPct, true)),
		"New", fmt.Sprintf("%d", s.NewProducts),
		"Median age", formatMetric(s.MedianAgeDays, false)+" days",
	)

	reasons := s1_qualification.SortedReasons(s)
	if len(reasons) == 0 {
		fmt.Fprintln(w, "  No failures")
		return
	}

	rows := make([][]string, 0, len(reasons))
	for _, r := range reasons {
		rows = append(rows, []string{r, fmt.Sprintf("%d", s.ByReason[r])})
	}
	printTable(w, []string{"Reason", "Products"}, rows)
}

// printQualifications prints one line per product decision
func printQualifications(w io.Writer, results []contracts.QualificationResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		decision := "✅ forecast"
		if !r.ShouldForecast {
			decision = "❌ skip"
		}
		rows = append(rows, []string{
			r.ProductID,
			decision,
			fmt.Sprintf("%d", r.AgeDays),
			strings.Join(r.Reasons, ", "),
		})
	}
	printTable(w, []string{"Product", "Decision", "Age", "Reasons"}, rows)
}

// printReport prints model scores, best first
func printReport(w io.Writer, report *contracts.EvaluationReport, cacheHit bool) {
	source := "fitted"
	if cacheHit {
		source = "cache"
	}
	printHeader(w, "Evaluation Report",
		"Run ID", report.RunID,
		"Config", shortID(report.ConfigHash),
		"Cutoff", formatDate(report.Cutoff),
		"Rows", fmt.Sprintf("train %d / test %d", report.TrainRows, report.TestRows),
		"Source", source,
	)

	rows := make([][]string, 0, len(report.Scores))
	for _, s := range report.Scores {
		wmape := formatMetric(s.WMAPE, true)
		if !s.Defined {
			wmape = "undefined"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.Rank),
			string(s.Model),
			wmape,
			formatMetric(s.MAE, false),
			formatMetric(s.RMSE, false),
			formatMetric(s.Bias, false),
			formatMetric(evaluation.Improvement(report, s.Model), true),
		})
	}
	printTable(w, []string{"Rank", "Model", "WMAPE", "MAE", "RMSE", "Bias", "vs baseline"}, rows)

	if best, ok := report.Best(); ok {
		fmt.Fprintf(w, "\n✅ Best model: %s (WMAPE %s)\n", best.Model, formatMetric(best.WMAPE, true))
	} else {
		fmt.Fprintln(w, "\n⚠️  WMAPE is undefined for every model (no sales in the test window)")
	}

	if len(report.FeatureImportance) > 0 {
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(report.FeatureImportance))
		for _, fi := range report.FeatureImportance {
			rows = append(rows, []string{fi.Feature, fmt.Sprintf("%.3f", fi.Importance)})
		}
		printTable(w, []string{"Feature", "Importance"}, rows)
	}
}

func shortID(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
