package usecase

import (
	"strings"

	"go.uber.org/zap"

	"order-reconciliation/internal/domain"
)

// ApplyFilters narrows a report by each rule in order and returns a new
// report. The input report, which may be the cached original, is not touched
// and row order is preserved.
func ApplyFilters(report *domain.Report, rules []domain.FilterRule, logger *zap.Logger) *domain.Report {
	if logger == nil {
		logger = zap.NewNop()
	}

	table := report.Table.WithRows(append([]domain.Row(nil), report.Table.Rows...))
	for _, rule := range rules {
		table = applyRule(table, rule, logger.With(
			zap.String("report", report.Name),
			zap.String("column", rule.Column),
			zap.String("method", string(rule.Method)),
		))
	}

	if len(rules) > 0 {
		logger.Info("Filters applied",
			zap.String("report", report.Name),
			zap.Int("rows_before", report.Table.Len()),
			zap.Int("rows_after", table.Len()),
		)
	}

	return &domain.Report{
		Category: report.Category,
		Name:     report.Name,
		Table:    table,
	}
}

func applyRule(table domain.Table, rule domain.FilterRule, logger *zap.Logger) domain.Table {
	if !rule.Method.Known() {
		// Unknown methods pass rows through so newer configuration keeps working.
		logger.Warn("Filter method not supported, rows left unchanged")
		return table
	}

	var keep func(value string) bool
	switch rule.Method {
	case domain.FilterContains:
		if len(rule.Values) == 0 {
			logger.Warn("contains filter has no pattern, rows left unchanged")
			return table
		}
		pattern := rule.Values[0]
		keep = func(value string) bool { return strings.Contains(value, pattern) }
	case domain.FilterExists:
		set := toSet(rule.Values)
		keep = func(value string) bool { _, ok := set[value]; return ok }
	case domain.FilterNotExists:
		set := toSet(rule.Values)
		keep = func(value string) bool { _, ok := set[value]; return !ok }
	}

	if !table.HasColumn(rule.Column) {
		logger.Warn("Filter column not present in report, cells treated as empty")
	}

	rows := make([]domain.Row, 0, table.Len())
	for _, row := range table.Rows {
		if keep(table.Value(row, rule.Column)) {
			rows = append(rows, row)
		}
	}
	return table.WithRows(rows)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
