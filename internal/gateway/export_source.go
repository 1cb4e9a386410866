package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"order-reconciliation/internal/domain"
)

// ExportOptions configures ExportReportSource.
type ExportOptions struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	// SaveReports keeps a copy of every downloaded export in ReportsDir.
	SaveReports bool
	ReportsDir  string
}

// ExportReportSource downloads category exports from the order back office.
type ExportReportSource struct {
	client *http.Client
	opts   ExportOptions
	logger *zap.Logger
	// createdAt stamps the saved copies of one run with the same suffix.
	createdAt time.Time
}

// NewExportReportSource creates a report source for the export endpoint.
func NewExportReportSource(opts ExportOptions, logger *zap.Logger) *ExportReportSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportReportSource{
		client:    &http.Client{Timeout: opts.Timeout},
		opts:      opts,
		logger:    logger,
		createdAt: time.Now(),
	}
}

// FetchReport implements usecase.ReportSource. It never retries.
func (s *ExportReportSource) FetchReport(ctx context.Context, category domain.ReportCategory, dates domain.DateRange) (*domain.Report, error) {
	name := category.DisplayName()
	s.logger.Info("Fetching report", zap.String("report", name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrReportSource, err)
	}
	setHeaders(req, s.opts.Headers)
	req.Header.Set("filterdatefrom", dates.StartString())
	req.Header.Set("filterdateto", dates.EndString())
	req.Header.Set("filterplantype", string(category.PlanType))
	req.Header.Set("filterrateplan", category.RatePlan)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrReportSource, name, err)
	}
	s.logger.Info("Export response",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp)
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrReportSource, name, statusError(resp))
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrReportSource, name, err)
	}

	if s.opts.SaveReports {
		s.save(category, body)
	}

	table, err := DecodeWorkbook(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrReportSource, name, err)
	}
	s.logger.Info("Report fetched", zap.String("report", name), zap.Int("rows", table.Len()))
	return domain.NewReport(category, table), nil
}

func (s *ExportReportSource) save(category domain.ReportCategory, body []byte) {
	path := filepath.Join(s.opts.ReportsDir, category.FileStem()+s.createdAt.Format(StampLayout)+".xlsx")
	if err := os.MkdirAll(s.opts.ReportsDir, 0o755); err != nil {
		s.logger.Warn("Could not save report", zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		s.logger.Warn("Could not save report", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Info("Report saved", zap.String("path", path))
}
