package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"order-reconciliation/internal/domain"
)

// FileReportSource replays exports saved by a previous run instead of
// downloading them. For each category the newest <file stem><stamp> file in
// the directory is used, either .xlsx or .csv.
type FileReportSource struct {
	dir    string
	logger *zap.Logger
}

// NewFileReportSource creates a new replay source reading from dir.
func NewFileReportSource(dir string, logger *zap.Logger) *FileReportSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileReportSource{dir: dir, logger: logger}
}

// FetchReport implements usecase.ReportSource. Saved exports are already
// limited to the range they were downloaded for, so dates are only logged.
func (r *FileReportSource) FetchReport(ctx context.Context, category domain.ReportCategory, dates domain.DateRange) (*domain.Report, error) {
	path, err := r.newest(category.FileStem())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrReportSource, category.DisplayName(), err)
	}
	r.logger.Info("Replaying saved report",
		zap.String("report", category.DisplayName()),
		zap.String("path", path),
		zap.String("requested_range", dates.String()),
	)

	var table domain.Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		table, err = readCSVExport(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			table, err = DecodeWorkbook(data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrReportSource, path, err)
	}
	return domain.NewReport(category, table), nil
}

// newest picks the file with the latest stamp in its name. Files without a
// readable stamp are ordered by modification time.
func (r *FileReportSource) newest(stem string) (string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", r.dir, err)
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".xlsx" && ext != ".csv" {
			continue
		}
		rest, ok := strings.CutPrefix(strings.TrimSuffix(name, filepath.Ext(name)), stem)
		if !ok {
			continue
		}

		stamp, err := time.Parse(StampLayout, rest)
		if err != nil {
			info, err := e.Info()
			if err != nil {
				continue
			}
			stamp = info.ModTime()
		}
		if best == "" || stamp.After(bestTime) {
			best, bestTime = name, stamp
		}
	}

	if best == "" {
		return "", fmt.Errorf("no saved export %s* in %s", stem, r.dir)
	}
	return filepath.Join(r.dir, best), nil
}

func readCSVExport(path string) (domain.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to open export file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("error reading record from %s: %w", path, err)
		}
		records = append(records, record)
	}
	return tableFromRecords(records)
}
