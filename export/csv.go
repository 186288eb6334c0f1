// Package export renders history rows and gem rankings for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aluiziolira/go-book-gems/models"
	"github.com/aluiziolira/go-book-gems/trend"
)

var historyHeader = []string{"title", "rating", "price", "scraped_at"}

// WriteHistoryCSV writes the joined history view as CSV with a header row.
func WriteHistoryCSV(w io.Writer, rows []models.PriceRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Title,
			row.Rating,
			strconv.FormatFloat(row.Price, 'f', 2, 64),
			row.ScrapedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteGemsCSV writes ranked falling-price candidates as CSV.
func WriteGemsCSV(w io.Writer, gems []trend.Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"title", "rating", "current_price", "trend_score"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, gem := range gems {
		record := []string{
			gem.Title,
			gem.Rating,
			strconv.FormatFloat(gem.CurrentPrice, 'f', 2, 64),
			strconv.FormatFloat(gem.Score, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// HistoryToFile writes the history view to path, as xlsx when the path
// has an .xlsx extension and as CSV otherwise. Parent directories are
// created as needed.
func HistoryToFile(path string, rows []models.PriceRow) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if filepath.Ext(path) == ".xlsx" {
		return WriteHistoryXLSX(f, rows)
	}
	return WriteHistoryCSV(f, rows)
}
