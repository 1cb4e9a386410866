package usecase_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"order-reconciliation/internal/domain"
	"order-reconciliation/internal/usecase"
)

func TestDiscrepancyAggregator(t *testing.T) {
	header := []string{domain.ColumnOrderNo, domain.ColumnFulfillmentMode}

	agg := usecase.NewDiscrepancyAggregator()
	assert.True(t, agg.Empty())

	agg.Append("Maxis Postpaid Report", header, []domain.Row{{"MOS1", "Standard Delivery"}})
	agg.Append("Hotlink Prepaid Report", header, []domain.Row{{"ORD9", "Standard Delivery"}})
	agg.Append("Maxis Postpaid Report", header, []domain.Row{{"MOS1", "Standard Delivery"}, {"MOS2", "In-Store Pickup"}})
	agg.Append("Empty", header, nil)

	want := []domain.DiscrepancyTable{
		{
			Name:   "Maxis Postpaid Report",
			Header: header,
			Rows: []domain.Row{
				{"MOS1", "Standard Delivery"},
				{"MOS1", "Standard Delivery"},
				{"MOS2", "In-Store Pickup"},
			},
		},
		{
			Name:   "Hotlink Prepaid Report",
			Header: header,
			Rows:   []domain.Row{{"ORD9", "Standard Delivery"}},
		},
	}

	assert.False(t, agg.Empty())
	if diff := cmp.Diff(want, agg.Tables()); diff != "" {
		t.Errorf("Tables() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscrepancyAggregator_AlignsDifferentHeaders(t *testing.T) {
	agg := usecase.NewDiscrepancyAggregator()
	agg.Append("Report", []string{"A", "B"}, []domain.Row{{"a1", "b1"}})
	agg.Append("Report", []string{"B", "C"}, []domain.Row{{"b2", "c2"}})

	want := []domain.DiscrepancyTable{{
		Name:   "Report",
		Header: []string{"A", "B", "C"},
		Rows: []domain.Row{
			{"a1", "b1", ""},
			{"", "b2", "c2"},
		},
	}}
	if diff := cmp.Diff(want, agg.Tables()); diff != "" {
		t.Errorf("Tables() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscrepancyAggregator_TablesAreCopies(t *testing.T) {
	agg := usecase.NewDiscrepancyAggregator()
	agg.Append("Report", []string{"A"}, []domain.Row{{"a1"}})

	tables := agg.Tables()
	tables[0].Rows[0][0] = "changed"
	tables[0].Header[0] = "changed"

	assert.Equal(t, domain.Row{"a1"}, agg.Tables()[0].Rows[0])
	assert.Equal(t, []string{"A"}, agg.Tables()[0].Header)
}
