package usecase

import (
	"slices"
	"sync"

	"order-reconciliation/internal/domain"
)

// DiscrepancyAggregator merges per-category discrepancy rows into tables keyed
// by name. Rows for the same name are concatenated in arrival order and never
// deduplicated.
type DiscrepancyAggregator struct {
	mu     sync.Mutex
	order  []string
	tables map[string]*domain.DiscrepancyTable
}

// NewDiscrepancyAggregator creates an empty aggregator.
func NewDiscrepancyAggregator() *DiscrepancyAggregator {
	return &DiscrepancyAggregator{tables: make(map[string]*domain.DiscrepancyTable)}
}

// Append adds rows to the table called name. When header differs from the
// table's existing header, rows are aligned by column name and unseen columns
// are appended.
func (a *DiscrepancyAggregator) Append(name string, header []string, rows []domain.Row) {
	if len(rows) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	table, ok := a.tables[name]
	if !ok {
		table = &domain.DiscrepancyTable{Name: name, Header: append([]string(nil), header...)}
		a.tables[name] = table
		a.order = append(a.order, name)
	}

	if slices.Equal(table.Header, header) {
		for _, r := range rows {
			table.Rows = append(table.Rows, append(domain.Row(nil), r...))
		}
		return
	}

	positions := make([]int, len(header))
	for i, col := range header {
		positions[i] = slices.Index(table.Header, col)
		if positions[i] < 0 {
			table.Header = append(table.Header, col)
			positions[i] = len(table.Header) - 1
		}
	}
	for i, r := range table.Rows {
		if len(r) < len(table.Header) {
			padded := make(domain.Row, len(table.Header))
			copy(padded, r)
			table.Rows[i] = padded
		}
	}
	for _, r := range rows {
		aligned := make(domain.Row, len(table.Header))
		for i, v := range r {
			if i < len(positions) {
				aligned[positions[i]] = v
			}
		}
		table.Rows = append(table.Rows, aligned)
	}
}

// Tables returns copies of the tables in first-insertion order.
func (a *DiscrepancyAggregator) Tables() []domain.DiscrepancyTable {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.DiscrepancyTable, 0, len(a.order))
	for _, name := range a.order {
		t := a.tables[name]
		rows := make([]domain.Row, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = append(domain.Row(nil), r...)
		}
		out = append(out, domain.DiscrepancyTable{
			Name:   t.Name,
			Header: append([]string(nil), t.Header...),
			Rows:   rows,
		})
	}
	return out
}

// Empty reports whether no discrepancy rows were collected.
func (a *DiscrepancyAggregator) Empty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order) == 0
}
