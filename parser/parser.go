// Package parser normalizes and validates scraped catalog fields.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-book-gems/models"
)

// ParsePrice converts the catalog price text ("£51.77") to a numeric value.
// The pound sign sometimes arrives double-encoded as "Â£".
func ParsePrice(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "Â", "")
	cleaned = strings.ReplaceAll(cleaned, "£", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("empty price text")
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price %q", text)
	}
	return price, nil
}

// RatingToNumeric converts the textual star rating to a numeric scale.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "Zero":
		return 0
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}

// ValidateEntry ensures the crawler captured the fields the store requires.
// A failing entry is skipped and counted, never fatal to the run.
func ValidateEntry(e *models.CatalogEntry) error {
	if e == nil {
		return fmt.Errorf("entry is nil")
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("entry missing title")
	}
	if e.Price < 0 {
		return fmt.Errorf("negative price for %s", e.Title)
	}
	if strings.TrimSpace(e.RatingText) == "" {
		return fmt.Errorf("entry missing rating for %s", e.Title)
	}
	return nil
}
