package export

import (
	"fmt"
	"io"
	"time"

	"github.com/aluiziolira/go-book-gems/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Market Data"

// WriteHistoryXLSX writes the joined history view as a single-sheet
// spreadsheet.
func WriteHistoryXLSX(w io.Writer, rows []models.PriceRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := []any{"title", "rating", "price", "scraped_at"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i, err)
		}
		values := []any{row.Title, row.Rating, row.Price, row.ScrapedAt.Format(time.RFC3339)}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
