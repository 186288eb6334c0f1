// Package ingest commits scraped catalog pages to the price history store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-book-gems/models"
	"github.com/aluiziolira/go-book-gems/parser"
	"github.com/aluiziolira/go-book-gems/store"
)

// Ingestor validates, dedupes and persists pages, one transaction per
// page. It is single-use: a fresh Ingestor per run, matching the
// sequential ingestion model.
type Ingestor struct {
	store   *store.Store
	metrics *Metrics

	seen    map[string]struct{}
	skipped map[string]int

	pages    int
	appended int
}

// Stats is a snapshot of the run counters.
type Stats struct {
	Pages    int
	Appended int
	Skipped  map[string]int
}

// New builds an ingestor writing to st. metrics may be nil.
func New(st *store.Store, metrics *Metrics) *Ingestor {
	return &Ingestor{
		store:   st,
		metrics: metrics,
		seen:    make(map[string]struct{}),
		skipped: make(map[string]int),
	}
}

// CommitPage persists one catalog page inside a single transaction.
// Invalid entries and titles already ingested this run are skipped and
// counted; a store failure aborts the run since continuing would leave
// downstream history inconsistent.
func (ing *Ingestor) CommitPage(ctx context.Context, pageNumber int, entries []models.CatalogEntry) error {
	accepted := make([]models.CatalogEntry, 0, len(entries))
	for i := range entries {
		entry := entries[i]
		if err := parser.ValidateEntry(&entry); err != nil {
			ing.skip("invalid_entry")
			slog.Warn("dropping invalid entry", slog.Int("page", pageNumber), slog.Any("error", err))
			continue
		}
		if _, dup := ing.seen[entry.Title]; dup {
			// One observation per book per run.
			ing.skip("duplicate_title")
			continue
		}
		ing.seen[entry.Title] = struct{}{}
		accepted = append(accepted, entry)
	}

	start := time.Now()
	appended, err := ing.store.IngestPage(ctx, accepted, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("page %d: %w", pageNumber, err)
	}

	ing.pages++
	ing.appended += appended
	ing.metrics.PageCommitted(time.Since(start))
	ing.metrics.ObservationsAppended(appended)
	return nil
}

// Snapshot returns the counters accumulated so far.
func (ing *Ingestor) Snapshot() Stats {
	skipped := make(map[string]int, len(ing.skipped))
	for reason, n := range ing.skipped {
		skipped[reason] = n
	}
	return Stats{
		Pages:    ing.pages,
		Appended: ing.appended,
		Skipped:  skipped,
	}
}

func (ing *Ingestor) skip(reason string) {
	ing.skipped[reason]++
	ing.metrics.EntrySkipped(reason)
}
