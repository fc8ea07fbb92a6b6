package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	forecastConfigFile string
	dataFile           string
	sheetName          string
	fromDB             bool
	rangeFrom          string
	rangeTo            string
	verbose            bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "demand",
	Short: "demandcast - 패션 리테일 수요 예측 파이프라인",
	Long: `demandcast Unified CLI

일별 판매 이력으로부터 예측 대상 상품을 선별하고,
피처를 만들어 세 가지 모델(baseline, lag, full)을 WMAPE로 비교합니다.

Pipeline:
  S0 history → S1 qualification → S2 features → S3 models → S4 evaluation

Usage:
  go run ./cmd/demand [command]

Examples:
  go run ./cmd/demand qualify --data sales.csv
  go run ./cmd/demand evaluate --data sales.xlsx --sheet daily
  go run ./cmd/demand run --db
  go run ./cmd/demand serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&forecastConfigFile, "forecast-config", "", "forecast YAML (default FORECAST_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data", "", "CSV or XLSX input (default DATA_FILE)")
	rootCmd.PersistentFlags().StringVar(&sheetName, "sheet", "", "XLSX sheet name (default first sheet)")
	rootCmd.PersistentFlags().BoolVar(&fromDB, "db", false, "load history from retail.daily_sales")
	rootCmd.PersistentFlags().StringVar(&rangeFrom, "from", "", "first sale date with --db (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&rangeTo, "to", "", "last sale date with --db (YYYY-MM-DD)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
