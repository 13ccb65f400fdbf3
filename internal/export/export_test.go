package export

import (
	"bytes"
	"testing"

	"cashlog/internal/core"

	"github.com/xuri/excelize/v2"
)

func sampleRows() []core.ReportRow {
	return []core.ReportRow{
		{Key: "2024-11", Label: "2024-11", Income: core.Money{Cents: 150000}, Expense: core.Money{Cents: 42000}},
		{Key: "2024-12", Label: "2024-12", Income: core.Money{Cents: 0}, Expense: core.Money{Cents: 30000}},
	}
}

func TestWriteReportXLSX(t *testing.T) {
	start, _ := core.ParseDate("2024-11-01")
	end, _ := core.ParseDate("2024-12-31")

	var buf bytes.Buffer
	if err := WriteReportXLSX(&buf, core.ReportMonthly, sampleRows(), start, end); err != nil {
		t.Fatalf("WriteReportXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	cases := []struct {
		cell string
		want string
	}{
		{"A2", "Period"},
		{"A3", "2024-11"},
		{"B3", "1500.00"},
		{"C3", "420.00"},
		{"D3", "1080.00"},
		{"A5", "Total"},
		{"B5", "1500.00"},
		{"C5", "720.00"},
		{"D5", "780.00"},
	}
	for _, tc := range cases {
		got, err := f.GetCellValue("Report", tc.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) error = %v", tc.cell, err)
		}
		if got != tc.want {
			t.Errorf("cell %s = %q, want %q", tc.cell, got, tc.want)
		}
	}
}

func TestWriteReportXLSXEmpty(t *testing.T) {
	start, _ := core.ParseDate("2024-01-01")
	end, _ := core.ParseDate("2024-01-31")

	var buf bytes.Buffer
	if err := WriteReportXLSX(&buf, core.ReportCategory, nil, start, end); err != nil {
		t.Fatalf("WriteReportXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if got, _ := f.GetCellValue("Report", "A3"); got != "Total" {
		t.Errorf("A3 = %q, want Total directly under the header", got)
	}
	if got, _ := f.GetCellValue("Report", "B3"); got != "0.00" {
		t.Errorf("B3 = %q, want 0.00", got)
	}
}

func TestWriteReportPDF(t *testing.T) {
	start, _ := core.ParseDate("2024-11-01")
	end, _ := core.ParseDate("2024-12-31")

	var buf bytes.Buffer
	if err := WriteReportPDF(&buf, core.ReportMonthly, sampleRows(), start, end); err != nil {
		t.Fatalf("WriteReportPDF() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("output does not start with a PDF header")
	}
}

func TestWriteInvoicePDF(t *testing.T) {
	date, _ := core.ParseDate("2024-12-05")
	tx := &core.Transaction{
		ID:               "tx-1",
		Date:             date,
		Type:             core.Expense,
		Description:      "weekly shop",
		RelatedPartyName: "Corner Shop",
		Amount:           core.Money{Cents: 2500},
		Items: []core.Item{
			{Name: "bread", Price: core.Money{Cents: 1000}, Quantity: 2, Total: core.Money{Cents: 2000}},
			{Name: "milk", Price: core.Money{Cents: 500}, Quantity: 1, Total: core.Money{Cents: 500}},
		},
	}

	var buf bytes.Buffer
	if err := WriteInvoicePDF(&buf, tx); err != nil {
		t.Fatalf("WriteInvoicePDF() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("output does not start with a PDF header")
	}
}
