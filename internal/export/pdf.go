package export

import (
	"fmt"
	"io"

	"cashlog/internal/core"

	"github.com/go-pdf/fpdf"
)

// WriteReportPDF renders report rows as a one-page table mirroring the
// XLSX layout.
func WriteReportPDF(w io.Writer, kind core.ReportKind, rows []core.ReportRow, start, end core.Date) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, reportTitle(kind, start, end), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	colWidths := []float64{70, 40, 40, 40}
	headers := []string{keyHeader(kind), "Income", "Expense", "Balance"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(colWidths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	var totalIncome, totalExpense core.Money
	for _, row := range rows {
		balance := core.Money{Cents: row.Income.Cents - row.Expense.Cents}
		pdf.CellFormat(colWidths[0], 7, row.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 7, row.Income.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[2], 7, row.Expense.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 7, balance.String(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)

		totalIncome = totalIncome.Add(row.Income)
		totalExpense = totalExpense.Add(row.Expense)
	}

	totalBalance := core.Money{Cents: totalIncome.Cents - totalExpense.Cents}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colWidths[0], 8, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colWidths[1], 8, totalIncome.String(), "1", 0, "R", true, 0, "")
	pdf.CellFormat(colWidths[2], 8, totalExpense.String(), "1", 0, "R", true, 0, "")
	pdf.CellFormat(colWidths[3], 8, totalBalance.String(), "1", 0, "R", true, 0, "")
	pdf.Ln(-1)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report pdf: %w", err)
	}
	return nil
}

// WriteInvoicePDF renders a single transaction as an invoice document with
// its line items and grand total.
func WriteInvoicePDF(w io.Writer, tx *core.Transaction) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Invoice", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Reference: %s", tx.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", tx.Date), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Party: %s", tx.RelatedPartyName), "", 1, "L", false, 0, "")
	if tx.Description != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Description: %s", tx.Description), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	colWidths := []float64{80, 30, 25, 35}
	headers := []string{"Item", "Price", "Qty", "Total"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(colWidths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range tx.Items {
		pdf.CellFormat(colWidths[0], 7, it.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 7, it.Price.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[2], 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 7, it.Total.String(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colWidths[0]+colWidths[1]+colWidths[2], 8, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colWidths[3], 8, tx.Amount.String(), "1", 0, "R", true, 0, "")
	pdf.Ln(-1)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice pdf: %w", err)
	}
	return nil
}
