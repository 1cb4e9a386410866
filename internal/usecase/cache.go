package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"order-reconciliation/internal/domain"
)

// ReportCache keeps at most one report per category for the lifetime of a
// run. Categories are compared by value. Cached reports must be treated as
// read-only; use ApplyFilters to derive narrowed views.
type ReportCache struct {
	source   ReportSource
	progress *Progress
	logger   *zap.Logger

	mu      sync.Mutex
	reports []*domain.Report
}

// NewReportCache creates an empty cache in front of source.
func NewReportCache(source ReportSource, progress *Progress, logger *zap.Logger) *ReportCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCache{source: source, progress: progress, logger: logger}
}

// GetOrFetch returns the cached report for category or fetches and stores it.
// The lock is held across the fetch so a category is only ever written once.
func (c *ReportCache) GetOrFetch(ctx context.Context, category domain.ReportCategory, dates domain.DateRange) (*domain.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, report := range c.reports {
		if report.Category.Equal(category) {
			c.logger.Info("Report found in cache", zap.String("report", report.Name))
			c.progress.CacheResult(true)
			return report, nil
		}
	}

	c.progress.CacheResult(false)
	report, err := c.source.FetchReport(ctx, category, dates)
	if err != nil {
		return nil, err
	}
	c.reports = append(c.reports, report)
	return report, nil
}

// Len is the number of cached reports.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reports)
}
