package domain

import "fmt"

// Column names the export is required to carry.
const (
	ColumnOrderNo                 = "Order_No"
	ColumnOrderDeliveryStatus     = "Order_Delivery_Status"
	ColumnOrderCancellationStatus = "Order_Cancellation_Status"
	ColumnPackageType             = "Package_Type"
	ColumnFulfillmentMode         = "Fulfillment_Mode"
	ColumnOrderType               = "Order_Type"
)

// RequiredColumns is the fixed export schema.
var RequiredColumns = []string{
	ColumnOrderNo,
	ColumnOrderDeliveryStatus,
	ColumnOrderCancellationStatus,
	ColumnPackageType,
	ColumnFulfillmentMode,
	ColumnOrderType,
}

// Row is one record of a tabular export, aligned with the table header.
type Row []string

// Table is an ordered set of rows with named columns.
type Table struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// NewTable normalises every row to the header width.
func NewTable(header []string, rows []Row) Table {
	h := append([]string(nil), header...)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, padRow(r, len(h)))
	}
	return Table{Header: h, Rows: out}
}

func padRow(r Row, width int) Row {
	if len(r) == width {
		return append(Row(nil), r...)
	}
	out := make(Row, width)
	copy(out, r)
	return out
}

// ColumnIndex returns the position of a column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the header carries name.
func (t Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Value returns the cell of row under column, or "" when the column is absent.
func (t Table) Value(row Row, column string) string {
	i := t.ColumnIndex(column)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Len is the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// WithRows returns a table sharing the header with a new row slice.
func (t Table) WithRows(rows []Row) Table {
	return Table{Header: t.Header, Rows: rows}
}

// RequireColumns checks the table against a schema.
func (t Table) RequireColumns(columns []string) error {
	var missing []string
	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns %v", missing)
	}
	return nil
}

// Report is one category's export for the run.
type Report struct {
	Category ReportCategory `json:"category"`
	Name     string         `json:"name"`
	Table    Table          `json:"table"`
}

// NewReport names the report after its category.
func NewReport(category ReportCategory, table Table) *Report {
	return &Report{
		Category: category,
		Name:     category.DisplayName(),
		Table:    table,
	}
}

// OrderIDs lists the Order_No column in row order.
func (r *Report) OrderIDs() []string {
	ids := make([]string, 0, r.Table.Len())
	for _, row := range r.Table.Rows {
		ids = append(ids, r.Table.Value(row, ColumnOrderNo))
	}
	return ids
}
