package usecase_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"order-reconciliation/internal/domain"
	"order-reconciliation/internal/usecase"
)

func filterFixture() *domain.Report {
	header := []string{domain.ColumnOrderNo, domain.ColumnFulfillmentMode, domain.ColumnOrderDeliveryStatus, domain.ColumnPackageType}
	return domain.NewReport(
		domain.ReportCategory{PlanType: domain.PlanTypePostpaid, RatePlan: domain.RatePlanMaxisPostpaid},
		domain.NewTable(header, []domain.Row{
			{"ORD1", "Standard Delivery", "fulfilled", "Device + Plan"},
			{"MOS2", "Standard Delivery", "pending", "Plan Only"},
			{"ORD3", "In-Store Pickup", "pending", "Device + Plan"},
			{"MOS4", "standard delivery", "pending", "Device + Plan"},
			{"ORD5", "Standard Delivery", "cancelled", "Device + Plan"},
		}),
	)
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name  string
		rules []domain.FilterRule
		want  []string
	}{
		{
			name: "no rules keeps everything in order",
			want: []string{"ORD1", "MOS2", "ORD3", "MOS4", "ORD5"},
		},
		{
			name:  "contains is a case sensitive substring match",
			rules: []domain.FilterRule{{Column: domain.ColumnOrderNo, Method: domain.FilterContains, Values: []string{"MOS"}}},
			want:  []string{"MOS2", "MOS4"},
		},
		{
			name:  "contains only looks at the first value",
			rules: []domain.FilterRule{{Column: domain.ColumnOrderNo, Method: domain.FilterContains, Values: []string{"ORD", "MOS"}}},
			want:  []string{"ORD1", "ORD3", "ORD5"},
		},
		{
			name:  "exists keeps members",
			rules: []domain.FilterRule{{Column: domain.ColumnFulfillmentMode, Method: domain.FilterExists, Values: []string{"Standard Delivery"}}},
			want:  []string{"ORD1", "MOS2", "ORD5"},
		},
		{
			name:  "notExists drops members",
			rules: []domain.FilterRule{{Column: domain.ColumnOrderDeliveryStatus, Method: domain.FilterNotExists, Values: []string{"fulfilled", "cancelled"}}},
			want:  []string{"MOS2", "ORD3", "MOS4"},
		},
		{
			name: "rules apply in order",
			rules: []domain.FilterRule{
				{Column: domain.ColumnFulfillmentMode, Method: domain.FilterExists, Values: []string{"Standard Delivery"}},
				{Column: domain.ColumnOrderDeliveryStatus, Method: domain.FilterNotExists, Values: []string{"fulfilled"}},
			},
			want: []string{"MOS2", "ORD5"},
		},
		{
			name:  "unknown method passes rows through",
			rules: []domain.FilterRule{{Column: domain.ColumnOrderNo, Method: "startsWith", Values: []string{"MOS"}}},
			want:  []string{"ORD1", "MOS2", "ORD3", "MOS4", "ORD5"},
		},
		{
			name:  "contains without a pattern passes rows through",
			rules: []domain.FilterRule{{Column: domain.ColumnOrderNo, Method: domain.FilterContains}},
			want:  []string{"ORD1", "MOS2", "ORD3", "MOS4", "ORD5"},
		},
		{
			name:  "exists on a missing column matches nothing",
			rules: []domain.FilterRule{{Column: domain.ColumnOrderType, Method: domain.FilterExists, Values: []string{"Pre Order"}}},
			want:  []string{},
		},
		{
			name:  "exists with no values matches nothing",
			rules: []domain.FilterRule{{Column: domain.ColumnOrderNo, Method: domain.FilterExists}},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := filterFixture()
			before := filterFixture()

			got := usecase.ApplyFilters(report, tt.rules, zap.NewNop())

			assert.Equal(t, tt.want, got.OrderIDs())
			assert.LessOrEqual(t, got.Table.Len(), report.Table.Len())
			assert.Equal(t, report.Name, got.Name)
			assert.Equal(t, report.Category, got.Category)
			assert.Equal(t, before, report, "input report must not be modified")
		})
	}
}

func TestApplyFilters_ContainsInvariant(t *testing.T) {
	patterns := []string{"S", "OR", "Delivery", "x", ""}
	for _, p := range patterns {
		got := usecase.ApplyFilters(filterFixture(), []domain.FilterRule{
			{Column: domain.ColumnFulfillmentMode, Method: domain.FilterContains, Values: []string{p}},
		}, nil)
		for _, row := range got.Table.Rows {
			assert.True(t, strings.Contains(got.Table.Value(row, domain.ColumnFulfillmentMode), p))
		}
	}
}

func TestApplyFilters_UnknownMethodWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	got := usecase.ApplyFilters(filterFixture(), []domain.FilterRule{
		{Column: domain.ColumnOrderNo, Method: "regex", Values: []string{"^MOS"}},
	}, zap.New(core))

	assert.Equal(t, 5, got.Table.Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("not supported").Len())
}
