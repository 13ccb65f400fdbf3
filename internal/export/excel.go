package export

import (
	"fmt"
	"io"

	"cashlog/internal/core"

	"github.com/xuri/excelize/v2"
)

// reportTitle builds the human heading shared by the XLSX and PDF renderers.
func reportTitle(kind core.ReportKind, start, end core.Date) string {
	return fmt.Sprintf("%s report %s to %s", kind, start, end)
}

// keyHeader names the grouping column for a report kind.
func keyHeader(kind core.ReportKind) string {
	switch kind {
	case core.ReportMonthly, core.ReportYearly:
		return "Period"
	case core.ReportCategory:
		return "Category"
	case core.ReportRelatedParty:
		return "Related party"
	default:
		return "Group"
	}
}

// WriteReportXLSX renders report rows as a single-sheet workbook with a
// header row, one row per group, and a totals row.
func WriteReportXLSX(w io.Writer, kind core.ReportKind, rows []core.ReportRow, start, end core.Date) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetCellValue(sheet, "A1", reportTitle(kind, start, end)); err != nil {
		return fmt.Errorf("write title: %w", err)
	}

	headers := []string{keyHeader(kind), "Income", "Expense", "Balance"}
	for i, h := range headers {
		cell := fmt.Sprintf("%c2", 'A'+i)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", h, err)
		}
	}

	var totalIncome, totalExpense core.Money
	for idx, row := range rows {
		n := idx + 3
		balance := core.Money{Cents: row.Income.Cents - row.Expense.Cents}
		cells := []any{row.Label, row.Income.String(), row.Expense.String(), balance.String()}
		for i, v := range cells {
			cell := fmt.Sprintf("%c%d", 'A'+i, n)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", n, err)
			}
		}
		totalIncome = totalIncome.Add(row.Income)
		totalExpense = totalExpense.Add(row.Expense)
	}

	totalRow := len(rows) + 3
	totalBalance := core.Money{Cents: totalIncome.Cents - totalExpense.Cents}
	totals := []any{"Total", totalIncome.String(), totalExpense.String(), totalBalance.String()}
	for i, v := range totals {
		cell := fmt.Sprintf("%c%d", 'A'+i, totalRow)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("write totals: %w", err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "D", 14); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
