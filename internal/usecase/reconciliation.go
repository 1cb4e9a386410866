package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"order-reconciliation/internal/domain"
)

// Extra columns appended to legacy-portal discrepancy rows.
var legacyColumns = []string{"Legacy_Order_ID", "Interface_ID", "Interface_Log_ID", "Event_Message", "Lookup_Error"}

// Options tunes a ReconciliationUseCase.
type Options struct {
	// Workers bounds concurrent lookups. 1 reproduces the sequential baseline.
	Workers int
	// Registerer receives the run counters. A private registry is used when nil.
	Registerer prometheus.Registerer
	// Now is the clock used to stamp the run.
	Now func() time.Time
}

// ReconciliationUseCase orchestrates the reconciliation process.
type ReconciliationUseCase struct {
	source ReportSource
	lookup OrderLookup
	legacy LegacyOrderFetcher
	writer DiscrepancyWriter
	logger *zap.Logger
	opts   Options
}

// NewReconciliationUseCase creates a new instance of the usecase.
func NewReconciliationUseCase(source ReportSource, lookup OrderLookup, legacy LegacyOrderFetcher, writer DiscrepancyWriter, logger *zap.Logger, opts Options) *ReconciliationUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReconciliationUseCase{
		source: source,
		lookup: lookup,
		legacy: legacy,
		writer: writer,
		logger: logger,
		opts:   opts,
	}
}

// run holds the state owned by a single Reconcile call.
type run struct {
	logger     *zap.Logger
	dates      domain.DateRange
	cache      *ReportCache
	aggregator *DiscrepancyAggregator
	progress   *Progress

	deliveryConnected bool
	legacyConnected   bool
	legacyErr         error
}

// Reconcile runs every plan in order and writes the grouped discrepancy
// report. Report-source failures skip only their category. An authentication
// rejection aborts the run and is returned together with the partial result.
// Cancelling ctx stops dispatching new lookups; whatever was collected so far
// is still written.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, dates domain.DateRange, plans []domain.CategoryPlan) (*domain.RunResult, error) {
	startedAt := uc.opts.Now()
	runID := uuid.NewString()
	logger := uc.logger.With(zap.String("run_id", runID))
	progress := NewProgress(uc.opts.Registerer, logger)

	r := &run{
		logger:     logger,
		dates:      dates,
		cache:      NewReportCache(uc.source, progress, logger),
		aggregator: NewDiscrepancyAggregator(),
		progress:   progress,
	}

	result := &domain.RunResult{
		RunID:      runID,
		StartedAt:  startedAt,
		DateRange:  dates,
		Categories: make([]domain.CategorySummary, 0, len(plans)),
	}

	logger.Info("Range selected", zap.String("from", dates.StartString()), zap.String("to", dates.EndString()))

	var fatal error
	for _, plan := range plans {
		if ctx.Err() != nil {
			result.Cancelled = true
			result.Categories = append(result.Categories, domain.CategorySummary{
				Name:   plan.Name,
				Report: plan.Category.DisplayName(),
				Status: domain.CategoryCancelled,
			})
			continue
		}

		summary, err := uc.reconcileCategory(ctx, r, plan)
		result.Categories = append(result.Categories, summary)
		if summary.Status == domain.CategoryCancelled {
			result.Cancelled = true
		}
		if err != nil {
			fatal = err
			break
		}
	}

	result.Tables = r.aggregator.Tables()
	uc.logSummary(logger, result)

	if fatal != nil {
		return result, fatal
	}

	if r.aggregator.Empty() {
		logger.Info("All orders reconciled, no discrepancy report generated")
		return result, nil
	}

	// A cancelled run still persists what it collected.
	path, err := uc.writer.Write(context.WithoutCancel(ctx), result.Tables, startedAt)
	if err != nil {
		logger.Error("Unable to write discrepancy report", zap.Error(err))
		result.OutputError = err.Error()
		return result, nil
	}
	result.OutputPath = path
	logger.Info("Report generated successfully", zap.String("path", path))
	return result, nil
}

func (uc *ReconciliationUseCase) reconcileCategory(ctx context.Context, r *run, plan domain.CategoryPlan) (domain.CategorySummary, error) {
	logger := r.logger.With(zap.String("category", plan.Name))
	summary := domain.CategorySummary{
		Name:   plan.Name,
		Report: plan.Category.DisplayName(),
		Status: domain.CategoryCompleted,
	}

	report, err := r.cache.GetOrFetch(ctx, plan.Category, r.dates)
	if err != nil {
		logger.Error("Could not fetch report, skipping category", zap.Error(err))
		summary.Status = domain.CategorySkipped
		summary.Error = err.Error()
		return summary, nil
	}

	filtered := ApplyFilters(report, plan.Filters, logger)
	summary.Checked = filtered.Table.Len()
	if summary.Checked == 0 {
		logger.Info("No orders to check")
		return summary, nil
	}

	switch plan.Target {
	case domain.TargetLegacy:
		return uc.reconcileLegacy(ctx, r, plan, filtered, summary, logger)
	default:
		return uc.reconcileDelivery(ctx, r, plan, filtered, summary, logger)
	}
}

func (uc *ReconciliationUseCase) reconcileDelivery(ctx context.Context, r *run, plan domain.CategoryPlan, report *domain.Report, summary domain.CategorySummary, logger *zap.Logger) (domain.CategorySummary, error) {
	if !r.deliveryConnected {
		if err := uc.lookup.Connect(ctx); err != nil {
			summary.Status = domain.CategoryAborted
			summary.Error = err.Error()
			return summary, fmt.Errorf("could not start delivery portal session: %w", err)
		}
		r.deliveryConnected = true
	}

	rows := report.Table.Rows
	keys := make([]domain.OrderKey, len(rows))
	for i, row := range rows {
		keys[i] = MapOrderID(report.Table.Value(row, domain.ColumnOrderNo), plan.Category.PlanType)
	}

	tracker := r.progress.Start(plan.Name, len(keys))
	results := make([]*domain.LookupResult, len(keys))

	dispatchErr := uc.dispatch(ctx, len(keys), func(ctx context.Context, i int) error {
		res, err := uc.lookup.Lookup(ctx, keys[i].ExternalID)
		if err != nil {
			if errors.Is(err, domain.ErrAuthRejected) {
				return err
			}
			if ctx.Err() != nil {
				logger.Warn("Lookup interrupted, order reported as unknown", zap.String("order_id", keys[i].ExternalID), zap.Error(err))
			} else {
				logger.Error("Lookup failed", zap.String("order_id", keys[i].ExternalID), zap.Error(err))
			}
			res = domain.LookupResult{Status: domain.LookupUnknown}
		}
		results[i] = &res
		tracker.Observe(lookupOutcome(res.Status))
		return nil
	})

	var discrepancies []domain.Row
	var missing []string
	for i, res := range results {
		if res == nil {
			continue
		}
		if res.Resolved() {
			summary.Found++
			continue
		}
		if res.Status == domain.LookupUnknown {
			summary.Unknown++
		} else {
			summary.NotFound++
		}
		discrepancies = append(discrepancies, rows[i])
		missing = append(missing, keys[i].ExternalID)
	}
	r.aggregator.Append(report.Name, report.Table.Header, discrepancies)

	if len(missing) > 0 {
		logger.Info("Orders not found", zap.String("orders", strings.Join(missing, ", ")))
	}

	if dispatchErr != nil {
		summary.Status = domain.CategoryAborted
		summary.Error = dispatchErr.Error()
		return summary, fmt.Errorf("lookup aborted for %s: %w", plan.Name, dispatchErr)
	}
	if ctx.Err() != nil {
		summary.Status = domain.CategoryCancelled
	}
	return summary, nil
}

func (uc *ReconciliationUseCase) reconcileLegacy(ctx context.Context, r *run, plan domain.CategoryPlan, report *domain.Report, summary domain.CategorySummary, logger *zap.Logger) (domain.CategorySummary, error) {
	if !r.legacyConnected && r.legacyErr == nil {
		if err := uc.legacy.Connect(ctx); err != nil {
			r.legacyErr = err
		} else {
			r.legacyConnected = true
		}
	}
	if r.legacyErr != nil {
		logger.Error("Legacy portal unavailable, skipping category", zap.Error(r.legacyErr))
		summary.Status = domain.CategorySkipped
		summary.Error = r.legacyErr.Error()
		return summary, nil
	}

	type outcome struct {
		order domain.LegacyOrder
		err   error
	}

	rows := report.Table.Rows
	tracker := r.progress.Start(plan.Name, len(rows))
	outcomes := make([]*outcome, len(rows))

	_ = uc.dispatch(ctx, len(rows), func(ctx context.Context, i int) error {
		orderID := report.Table.Value(rows[i], domain.ColumnOrderNo)
		order, err := uc.legacy.Fetch(ctx, orderID)
		outcomes[i] = &outcome{order: order, err: err}

		var parseErr *domain.ParseError
		switch {
		case err != nil && ctx.Err() != nil:
			logger.Warn("Legacy portal request interrupted, order reported as failed", zap.String("order_id", orderID), zap.Error(err))
			tracker.Observe(OutcomeFailed)
		case errors.As(err, &parseErr):
			logger.Warn("Could not parse legacy portal response", zap.String("order_id", orderID), zap.Error(err))
			tracker.Observe(OutcomeParseError)
		case err != nil:
			logger.Error("Legacy portal request failed", zap.String("order_id", orderID), zap.Error(err))
			tracker.Observe(OutcomeFailed)
		case order.Failed():
			tracker.Observe(OutcomeFailed)
		default:
			tracker.Observe(OutcomeResolved)
		}
		return nil
	})

	header := append(append([]string(nil), report.Table.Header...), legacyColumns...)
	var failed []domain.Row
	for i, o := range outcomes {
		if o == nil {
			continue
		}
		if o.err == nil && !o.order.Failed() {
			summary.Found++
			continue
		}
		summary.Failed++
		errText := ""
		if o.err != nil {
			errText = o.err.Error()
		}
		row := append(append(domain.Row(nil), rows[i]...),
			o.order.OrderID, o.order.InterfaceID, o.order.InterfaceLogID, o.order.EventMessage, errText)
		failed = append(failed, row)
	}
	r.aggregator.Append(plan.Name, header, failed)

	if summary.Failed > 0 {
		logger.Info("Some orders failed at the legacy portal", zap.Int("failed", summary.Failed))
	} else {
		logger.Info("No orders failed at the legacy portal")
	}
	if ctx.Err() != nil {
		summary.Status = domain.CategoryCancelled
	}
	return summary, nil
}

// dispatch runs fn for indexes 0..n-1 on at most Workers goroutines. No new
// work starts once ctx is cancelled or fn returns an error; work already
// running is waited for.
func (uc *ReconciliationUseCase) dispatch(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	g := new(errgroup.Group)
	g.SetLimit(uc.opts.Workers)

	for i := 0; i < n; i++ {
		if runCtx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}
			if err := fn(ctx, i); err != nil {
				cancel(err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (uc *ReconciliationUseCase) logSummary(logger *zap.Logger, result *domain.RunResult) {
	for _, c := range result.Categories {
		fields := []zap.Field{
			zap.String("category", c.Name),
			zap.String("status", string(c.Status)),
			zap.Int("checked", c.Checked),
			zap.Int("found", c.Found),
			zap.Int("not_found", c.NotFound),
			zap.Int("unknown", c.Unknown),
			zap.Int("failed", c.Failed),
		}
		if c.Error != "" {
			fields = append(fields, zap.String("error", c.Error))
			logger.Warn("Category summary", fields...)
			continue
		}
		logger.Info("Category summary", fields...)
	}
}

func lookupOutcome(status domain.LookupStatus) string {
	switch status {
	case domain.LookupFound:
		return OutcomeFound
	case domain.LookupUnknown:
		return OutcomeUnknown
	}
	return OutcomeNotFound
}
