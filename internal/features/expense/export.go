package expense

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// BuildExpenseReport renders expenses into an xlsx workbook for the
// admin export endpoint.
func BuildExpenseReport(expenses []Expense) (*excelize.File, error) {
	f := excelize.NewFile()

	const sheet = "Expenses"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Submitted By", "Amount", "Currency", "Category", "Description", "Expense Date", "Status", "Approvals", "Created At"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, e := range expenses {
		values := []interface{}{
			e.ID.Hex(),
			e.SubmittedBy.Hex(),
			e.Amount,
			e.Currency,
			e.Category,
			e.Description,
			e.ExpenseDate.Format("2006-01-02"),
			string(e.Status),
			len(e.ApprovalHistory),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", row+2, err)
			}
		}
	}

	return f, nil
}
