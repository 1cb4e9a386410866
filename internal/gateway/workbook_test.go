package gateway

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"order-reconciliation/internal/domain"
)

func xlsxBytes(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := append([]string(nil), r...)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeWorkbook(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]string
		want    domain.Table
		wantErr bool
	}{
		{
			name: "pads short rows and skips blank ones",
			rows: [][]string{
				exportHeader,
				{"ORD1", "pending"},
				{},
				{"ORD2", "fulfilled", "", "Plan Only", "Standard Delivery", "Normal"},
			},
			want: domain.Table{
				Header: exportHeader,
				Rows: []domain.Row{
					{"ORD1", "pending", "", "", "", ""},
					{"ORD2", "fulfilled", "", "Plan Only", "Standard Delivery", "Normal"},
				},
			},
		},
		{
			name: "header is trimmed",
			rows: [][]string{
				{" Order_No ", "Order_Delivery_Status", "Order_Cancellation_Status", "Package_Type", "Fulfillment_Mode", "Order_Type", "Extra"},
				{"ORD1", "", "", "", "", "", "x"},
			},
			want: domain.Table{
				Header: append(append([]string(nil), exportHeader...), "Extra"),
				Rows:   []domain.Row{{"ORD1", "", "", "", "", "", "x"}},
			},
		},
		{
			name:    "missing required columns",
			rows:    [][]string{{"Order_No"}, {"ORD1"}},
			wantErr: true,
		},
		{
			name:    "empty sheet",
			rows:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeWorkbook(xlsxBytes(t, tt.rows))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeWorkbook_NotAWorkbook(t *testing.T) {
	_, err := DecodeWorkbook([]byte("<html>session expired</html>"))
	assert.Error(t, err)
}

func TestWorkbookWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	writer := NewWorkbookWriter(dir, nil)
	runAt := time.Date(2025, 3, 2, 14, 5, 9, 0, time.UTC)

	tables := []domain.DiscrepancyTable{
		{
			Name:   "Hotlink Prepaid Report",
			Header: exportHeader,
			Rows:   []domain.Row{{"ORD1", "pending", "", "Plan Only", "Standard Delivery", "Normal"}},
		},
		{
			Name:   "wm prepaid",
			Header: []string{"Order_No", "Interface_Log_ID"},
			Rows:   []domain.Row{{"MOS1", "FAIL"}, {"MOS2", ""}},
		},
	}

	path, err := writer.Write(context.Background(), tables, runAt)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Report_03_02_2025-14_05_09.xlsx"), path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	assert.Equal(t, []string{"Hotlink Prepaid Report", "wm prepaid"}, f.GetSheetList())

	rows, err := f.GetRows("wm prepaid")
	assert.NoError(t, err)
	assert.Equal(t, [][]string{{"Order_No", "Interface_Log_ID"}, {"MOS1", "FAIL"}, {"MOS2"}}, rows)

	rows, err = f.GetRows("Hotlink Prepaid Report")
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "ORD1", rows[1][0])
}

func TestWorkbookWriter_NoTables(t *testing.T) {
	_, err := NewWorkbookWriter(t.TempDir(), nil).Write(context.Background(), nil, time.Now())
	assert.Error(t, err)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	long := strings.Repeat("x", 40)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Maxis Postpaid Report", want: "Maxis Postpaid Report"},
		{name: "invalid characters", input: "a/b:c*d?[e]", want: "a_b_c_d__e_"},
		{name: "too long", input: long, want: strings.Repeat("x", 31)},
		{name: "duplicate of a long name", input: long, want: strings.Repeat("x", 27) + " (2)"},
		{name: "case insensitive duplicate", input: "MAXIS POSTPAID REPORT", want: "MAXIS POSTPAID REPORT (2)"},
		{name: "empty", input: "", want: "Sheet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sheetName(tt.input, used)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), maxSheetName)
		})
	}
}
