package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/demandcast/internal/forecastconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "예측 설정 확인",
	Long: `예측 설정(YAML)을 검증하고 출력합니다.

Subcommands:
  show      - 기본값이 채워진 전체 설정 출력
  validate  - 검증 및 경고 출력
  hash      - 실행/캐시 키에 쓰이는 설정 해시

Example:
  go run ./cmd/demand config show
  go run ./cmd/demand config validate --forecast-config config/forecast/default.yaml`,
}

var (
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "전체 설정 출력",
		RunE:  showForecastConfig,
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "설정 검증",
		RunE:  validateForecastConfig,
	}

	configHashCmd = &cobra.Command{
		Use:   "hash",
		Short: "설정 해시 출력",
		RunE:  hashForecastConfig,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configHashCmd)
}

func showForecastConfig(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(a.forecast)
}

func validateForecastConfig(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	warnings := forecastconfig.Warn(a.forecast)
	for _, w := range warnings {
		fmt.Fprintf(out, "⚠️  [%s] %s\n", w.Code, w.Message)
	}
	fmt.Fprintf(out, "✅ %s is valid (%d warnings)\n", a.cfg.Pipeline.ForecastConfig, len(warnings))
	return nil
}

func hashForecastConfig(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	hash, err := forecastconfig.Hash(a.forecast)
	if err != nil {
		return fmt.Errorf("hash forecast config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
