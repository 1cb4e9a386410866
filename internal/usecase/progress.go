package usecase

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Outcome labels for the lookup counter.
const (
	OutcomeFound      = "found"
	OutcomeNotFound   = "not_found"
	OutcomeUnknown    = "unknown"
	OutcomeFailed     = "failed"
	OutcomeResolved   = "resolved"
	OutcomeParseError = "parse_error"
)

// Progress counts per-order outcomes. All methods are safe for concurrent use
// and a nil *Progress is a no-op.
type Progress struct {
	logger  *zap.Logger
	lookups *prometheus.CounterVec
	cache   *prometheus.CounterVec
}

// NewProgress registers the run counters on reg. Collectors already present on
// reg are reused.
func NewProgress(reg prometheus.Registerer, logger *zap.Logger) *Progress {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Progress{
		logger: logger,
		lookups: registerCounterVec(reg, prometheus.CounterOpts{
			Name: "reconciler_lookups_total",
			Help: "Orders checked against an external system, by category and outcome.",
		}, []string{"category", "outcome"}),
		cache: registerCounterVec(reg, prometheus.CounterOpts{
			Name: "reconciler_report_cache_total",
			Help: "Report cache lookups by result.",
		}, []string{"result"}),
	}
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return vec
}

// CacheResult records a report cache hit or miss.
func (p *Progress) CacheResult(hit bool) {
	if p == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

// Start begins tracking a category with total orders to check.
func (p *Progress) Start(category string, total int) *CategoryProgress {
	if p == nil {
		return nil
	}
	p.logger.Info("Checking orders", zap.String("category", category), zap.Int("total", total))
	return &CategoryProgress{parent: p, category: category, total: int64(total)}
}

// CategoryProgress tracks one category's lookups.
type CategoryProgress struct {
	parent   *Progress
	category string
	total    int64
	done     atomic.Int64
	logged   atomic.Int64
}

// Observe records one finished order and logs every tenth of the way.
func (c *CategoryProgress) Observe(outcome string) {
	if c == nil {
		return
	}
	c.parent.lookups.WithLabelValues(c.category, outcome).Inc()

	done := c.done.Add(1)
	if c.total == 0 {
		return
	}
	step := done * 10 / c.total
	for {
		last := c.logged.Load()
		if step <= last {
			return
		}
		if c.logged.CompareAndSwap(last, step) {
			c.parent.logger.Info("Progress",
				zap.String("category", c.category),
				zap.Int64("done", done),
				zap.Int64("total", c.total),
			)
			return
		}
	}
}

// Done is the number of orders observed so far.
func (c *CategoryProgress) Done() int64 {
	if c == nil {
		return 0
	}
	return c.done.Load()
}
