package usecase

import (
	"context"
	"time"

	"order-reconciliation/internal/domain"
)

// ReportSource fetches one category's export for a date range. It does not
// retry; failures are returned wrapped in domain.ErrReportSource.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go
type ReportSource interface {
	FetchReport(ctx context.Context, category domain.ReportCategory, dates domain.DateRange) (*domain.Report, error)
}

// OrderLookup queries the delivery portal. Connect logs in and warms the
// session up; Lookup only returns an error for conditions that must stop the
// run (domain.ErrAuthRejected) or for cancellation.
type OrderLookup interface {
	Connect(ctx context.Context) error
	Lookup(ctx context.Context, externalID string) (domain.LookupResult, error)
}

// LegacyOrderFetcher reads order status rows from the legacy portal.
type LegacyOrderFetcher interface {
	Connect(ctx context.Context) error
	Fetch(ctx context.Context, orderID string) (domain.LegacyOrder, error)
}

// DiscrepancyWriter persists the grouped discrepancy tables and returns where
// they were written.
type DiscrepancyWriter interface {
	Write(ctx context.Context, tables []domain.DiscrepancyTable, runAt time.Time) (string, error)
}
