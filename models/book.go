// Package models defines the shared data structures of the tracker.
package models

import "time"

// CatalogEntry is one product parsed from a catalog page, before it is
// resolved against the books table.
type CatalogEntry struct {
	Title         string
	Price         float64
	RatingText    string
	RatingNumeric int
	URL           string
}

// PriceRow is one observation from the joined read-side view: the book it
// belongs to plus the recorded price and capture time. Rows for a book are
// ordered by ScrapedAt ascending.
type PriceRow struct {
	BookID    int64     `db:"book_id" json:"book_id"`
	Title     string    `db:"title" json:"title"`
	Rating    string    `db:"rating" json:"rating"`
	Price     float64   `db:"price" json:"price"`
	ScrapedAt time.Time `db:"scraped_at" json:"scraped_at"`
}

// RunResult summarises one ingestion run.
type RunResult struct {
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	EntryCount   int
	Appended     int
	SkippedCount int
	RetryCount   int
	ErrorsByType map[string]int
	HaltedAt     string // URL of the page that could not be fetched, if any
}
