package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/s0_history"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "판매 이력 적재 (CSV/XLSX → Postgres)",
	Long: `CSV 또는 XLSX 판매 이력을 retail.daily_sales에 적재합니다.
같은 (product_id, sale_date) 행은 덮어씁니다.

Example:
  go run ./cmd/demand import sales.csv
  go run ./cmd/demand import sales.xlsx --sheet daily`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	path := a.cfg.Pipeline.DataFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no input file: pass [file] or --data")
	}

	records, err := s0_history.NewFileSource(path, sheetName, a.log).LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}

	repo := s0_history.NewSalesRepository(db.Pool)
	if err := repo.SaveBatch(ctx, records); err != nil {
		return fmt.Errorf("import records: %w", err)
	}

	products, err := repo.CountProducts(ctx)
	if err != nil {
		return err
	}

	a.log.WithFields(map[string]interface{}{
		"file": path,
		"rows": len(records),
	}).Info("Import completed")
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Imported %d rows from %s (%d products in retail.daily_sales)\n", len(records), path, products)
	return nil
}
