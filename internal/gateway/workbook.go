package gateway

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"order-reconciliation/internal/domain"
)

// StampLayout is the timestamp appended to every file the tool writes.
const StampLayout = "01_02_2006-15_04_05"

const maxSheetName = 31

// DecodeWorkbook reads the first sheet of an xlsx export. The first row is the
// header; short rows are padded to the header width.
func DecodeWorkbook(data []byte) (domain.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Table{}, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return tableFromRecords(records)
}

func tableFromRecords(records [][]string) (domain.Table, error) {
	if len(records) == 0 {
		return domain.Table{}, fmt.Errorf("export is empty")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]domain.Row, 0, len(records)-1)
	for _, r := range records[1:] {
		if blank(r) {
			continue
		}
		rows = append(rows, domain.Row(r))
	}

	table := domain.NewTable(header, rows)
	if err := table.RequireColumns(domain.RequiredColumns); err != nil {
		return domain.Table{}, err
	}
	return table, nil
}

func blank(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WorkbookWriter writes the discrepancy tables to Report_<stamp>.xlsx, one
// sheet per table.
type WorkbookWriter struct {
	dir    string
	logger *zap.Logger
}

// NewWorkbookWriter creates a writer that saves into dir.
func NewWorkbookWriter(dir string, logger *zap.Logger) *WorkbookWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkbookWriter{dir: dir, logger: logger}
}

// Write implements usecase.DiscrepancyWriter.
func (w *WorkbookWriter) Write(ctx context.Context, tables []domain.DiscrepancyTable, runAt time.Time) (string, error) {
	if len(tables) == 0 {
		return "", fmt.Errorf("no tables to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool, len(tables))
	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		sheet := sheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return "", fmt.Errorf("failed to name sheet %q: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("failed to add sheet %q: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, t); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", w.dir, err)
	}
	path := filepath.Join(w.dir, "Report_"+runAt.Format(StampLayout)+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}

	w.logger.Debug("Workbook saved", zap.String("path", path), zap.Int("sheets", len(tables)))
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, t domain.DiscrepancyTable) error {
	header := append([]string(nil), t.Header...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}
	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []string(r)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+1, sheet, err)
		}
	}
	return nil
}

// sheetName makes name acceptable to Excel: no []:*?/\ characters, at most
// 31 characters and unique within the workbook.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.Trim(name, "'"))
	if clean == "" {
		clean = "Sheet"
	}
	clean = truncateRunes(clean, maxSheetName)

	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
