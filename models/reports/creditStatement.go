package reports

import (
	"context"
	"fmt"
	"net/http"

	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/xuri/excelize/v2"
)

// WriteCreditStatementXlsx streams a user's full ledger as an xlsx statement.
// Rows come straight from the ledger, oldest first, with a running balance
// column so the final row equals the reconciled balance.
func WriteCreditStatementXlsx(ctx context.Context, w http.ResponseWriter, userId int) error {

	records, err := models.ListTransactionsForStatement(ctx, userId)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Statement"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	// Add headers
	f.SetCellValue(sheet, "A1", "Date")
	f.SetCellValue(sheet, "B1", "Type")
	f.SetCellValue(sheet, "C1", "Reference")
	f.SetCellValue(sheet, "D1", "Description")
	f.SetCellValue(sheet, "E1", "Amount")
	f.SetCellValue(sheet, "F1", "Balance")

	// Add data
	running := 0
	for i, record := range records {
		running += record.Amount
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheet, "A"+row, record.CreatedAt.Format("2006-01-02 15:04"))
		f.SetCellValue(sheet, "B"+row, string(record.Type))
		f.SetCellValue(sheet, "C"+row, fmt.Sprintf("%s-%d", record.ReferenceType, record.ReferenceId))
		f.SetCellValue(sheet, "D"+row, record.Description)
		f.SetCellValue(sheet, "E"+row, record.Amount)
		f.SetCellValue(sheet, "F"+row, running)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="credit-statement-%d.xlsx"`, userId))
	return f.Write(w)
}
