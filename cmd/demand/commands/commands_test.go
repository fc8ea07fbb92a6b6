package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/internal/contracts"
)

func TestPrintTable_AlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"Model", "WMAPE"}, [][]string{
		{"baseline", "50.0%"},
		{"lag", "n/a"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Model     WMAPE", lines[0])
	assert.Equal(t, strings.Repeat("─", 15), lines[1])
	assert.Equal(t, "baseline  50.0%", lines[2])
	assert.Equal(t, "lag       n/a", lines[3])
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "n/a", formatMetric(contracts.Undefined(), true))
	assert.Equal(t, "n/a", formatMetric(contracts.Metric(math.Inf(1)), false))
	assert.Equal(t, "12.5%", formatMetric(0.125, true))
	assert.Equal(t, "0.125", formatMetric(0.125, false))
}

func TestPrintReport(t *testing.T) {
	report := &contracts.EvaluationReport{
		RunID:      "run-1",
		ConfigHash: "0123456789abcdef0123",
		Cutoff:     time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		TrainRows:  64,
		TestRows:   28,
		Scores: []contracts.ModelScore{
			{Model: contracts.ModelLag, WMAPE: 0.25, Defined: true, Rank: 1},
			{Model: contracts.ModelBaseline, WMAPE: 0.5, Defined: true, Rank: 2},
		},
		FeatureImportance: []contracts.FeatureImportance{{Feature: "lag_7", Importance: 1}},
	}

	var buf bytes.Buffer
	printReport(&buf, report, true)
	out := buf.String()

	assert.Contains(t, out, "0123456789ab")
	assert.Contains(t, out, "2024-06-02")
	assert.Contains(t, out, "train 64 / test 28")
	assert.Contains(t, out, "cache")
	assert.Contains(t, out, "Best model: lag (WMAPE 25.0%)")
	assert.Contains(t, out, "50.0%") // lag improves on the baseline by half
	assert.Contains(t, out, "lag_7")
}

func TestPrintReport_AllUndefined(t *testing.T) {
	report := &contracts.EvaluationReport{
		Scores: []contracts.ModelScore{
			{Model: contracts.ModelBaseline, WMAPE: contracts.Undefined(), Rank: 1},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report, false)
	assert.Contains(t, buf.String(), "undefined")
	assert.Contains(t, buf.String(), "WMAPE is undefined for every model")
}

func TestDateRange(t *testing.T) {
	from, to, err := dateRange("2024-01-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, 2024, from.Year())
	assert.Equal(t, time.March, to.Month())

	from, to, err = dateRange("", "")
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())

	_, _, err = dateRange("2024-13-01", "")
	assert.Error(t, err)

	_, _, err = dateRange("2024-03-01", "2024-01-01")
	assert.Error(t, err)
}

func writeSalesCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,product_id,units_sold,on_hand,price,cost\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		d := start.AddDate(0, 0, i).Format("2006-01-02")
		fmt.Fprintf(&b, "%s,SKU-A,2,50,20.00,10.00\n", d)
		fmt.Fprintf(&b, "%s,SKU-B,0,0,20.00,10.00\n", d)
	}

	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestQualifyCommand_JSON(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("FORECAST_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"qualify", "--data", writeSalesCSV(t), "--json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		dataFile = ""
		qualifyJSON = false
	})

	require.NoError(t, Execute())

	var got struct {
		Summary contracts.QualificationSummary  `json:"summary"`
		Results []contracts.QualificationResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, 2, got.Summary.Total)
	assert.Equal(t, 1, got.Summary.Qualified)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "SKU-A", got.Results[0].ProductID)
	assert.True(t, got.Results[0].ShouldForecast)
	assert.Equal(t, []string{contracts.ReasonNoInventory}, got.Results[1].Reasons)
}
