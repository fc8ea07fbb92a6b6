package s0_history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/logger"
)

// column aliases accepted in the header row (case-insensitive)
var columnAliases = map[string][]string{
	"date":            {"date", "sale_date", "day"},
	"product_id":      {"product_id", "sku", "product", "item_id"},
	"units_sold":      {"units_sold", "sales", "units", "qty_sold"},
	"on_hand":         {"on_hand", "inventory", "on_hand_inventory", "stock"},
	"price":           {"price", "current_price", "selling_price"},
	"cost":            {"cost", "unit_cost"},
	"reference_price": {"reference_price", "original_price", "full_price", "list_price"},
	"margin":          {"margin", "margin_indicator"},
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"01-02-06",
}

// FileSource loads raw rows from a CSV or XLSX file
// ⭐ SSOT: 파일 입력 파싱은 여기서만
type FileSource struct {
	path   string
	sheet  string
	logger *logger.Logger
}

// NewFileSource creates a source for path. sheet is only used for XLSX;
// empty selects the first sheet.
func NewFileSource(path, sheet string, log *logger.Logger) *FileSource {
	return &FileSource{
		path:   path,
		sheet:  sheet,
		logger: log.WithField("module", "s0_history.loader"),
	}
}

// LoadRecords implements contracts.RecordSource
func (s *FileSource) LoadRecords(ctx context.Context) ([]contracts.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		records []contracts.RawRecord
		err     error
	)
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".csv":
		f, openErr := os.Open(s.path)
		if openErr != nil {
			return nil, fmt.Errorf("open %s: %w", s.path, openErr)
		}
		defer f.Close()
		records, err = ParseCSV(f)
	case ".xlsx", ".xlsm":
		records, err = ParseXLSX(s.path, s.sheet)
	default:
		return nil, contracts.NewDataError("unsupported input format %q", filepath.Ext(s.path))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path": s.path,
		"rows": len(records),
	}).Info("Loaded raw records")

	return records, nil
}

// ParseCSV reads a header row followed by data rows
func ParseCSV(r io.Reader) ([]contracts.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, contracts.NewDataError("read csv: %v", err)
	}
	return parseRows(rows)
}

// ParseXLSX reads the named (or first) sheet of a workbook
func ParseXLSX(path, sheet string) ([]contracts.RawRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, contracts.NewDataError("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) ([]contracts.RawRecord, error) {
	if len(rows) == 0 {
		return nil, contracts.NewDataError("input has no header row")
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]contracts.RawRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for idx, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for canonical, aliases := range columnAliases {
			for _, alias := range aliases {
				if name == alias {
					if _, dup := cols[canonical]; !dup {
						cols[canonical] = idx
					}
				}
			}
		}
	}

	for _, required := range []string{"date", "product_id", "units_sold"} {
		if _, ok := cols[required]; !ok {
			return nil, contracts.NewDataError("missing required column %q", required)
		}
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int) (contracts.RawRecord, error) {
	cell := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rec contracts.RawRecord
	rec.ProductID = cell("product_id")
	if rec.ProductID == "" {
		return rec, contracts.NewDataError("empty product_id")
	}

	date, err := parseDate(cell("date"))
	if err != nil {
		return rec, err
	}
	rec.Date = date

	fields := []struct {
		name  string
		dst   **float64
		money bool
	}{
		{"units_sold", &rec.UnitsSold, false},
		{"on_hand", &rec.OnHand, false},
		{"price", &rec.Price, true},
		{"cost", &rec.Cost, true},
		{"reference_price", &rec.ReferencePrice, true},
		{"margin", &rec.MarginIndicator, false},
	}
	for _, f := range fields {
		v, err := parseNumber(cell(f.name), f.money)
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", f.name, err)
		}
		*f.dst = v
	}

	if rec.UnitsSold != nil && *rec.UnitsSold < 0 {
		return rec, contracts.NewDataError("negative units_sold %v", *rec.UnitsSold)
	}
	if rec.OnHand != nil && *rec.OnHand < 0 {
		return rec, contracts.NewDataError("negative on_hand %v", *rec.OnHand)
	}
	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, contracts.NewDataError("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return contracts.DayOf(t), nil
		}
	}
	return time.Time{}, contracts.NewDataError("unparseable date %q", s)
}

// parseNumber returns nil for empty / NA cells. Money values are rounded to
// cents; a trailing % divides by 100.
func parseNumber(s string, money bool) (*float64, error) {
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "null", "none", "-":
		return nil, nil
	}

	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, contracts.NewDataError("not a number %q", s)
	}
	if pct {
		d = d.Div(decimal.NewFromInt(100))
	}
	if money {
		d = d.Round(2)
	}

	v := d.InexactFloat64()
	return &v, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
