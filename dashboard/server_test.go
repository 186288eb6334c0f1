package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-book-gems/models"
	"github.com/aluiziolira/go-book-gems/store"
	"github.com/aluiziolira/go-book-gems/trend"
)

func seededServer(t *testing.T, ttl time.Duration) (*Server, *store.Store) {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	day := 24 * time.Hour
	base := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)
	pages := []struct {
		at      time.Time
		entries []models.CatalogEntry
	}{
		{at: base, entries: []models.CatalogEntry{
			{Title: "Falling", Price: 30.00, RatingText: "Five"},
			{Title: "Rising", Price: 10.00, RatingText: "Two"},
		}},
		{at: base.Add(day), entries: []models.CatalogEntry{
			{Title: "Falling", Price: 20.00, RatingText: "Five"},
			{Title: "Rising", Price: 12.00, RatingText: "Two"},
		}},
	}
	for _, p := range pages {
		if _, err := st.IngestPage(context.Background(), p.entries, p.at); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}

	return New(st, ttl, nil), st
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHistoryEndpoint(t *testing.T) {
	s, _ := seededServer(t, time.Minute)

	rec := doRequest(t, s, "/api/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var rows []models.PriceRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
}

func TestBookHistoryEndpoint(t *testing.T) {
	s, _ := seededServer(t, time.Minute)

	rec := doRequest(t, s, "/api/book?title=Falling")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rows []models.PriceRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for _, row := range rows {
		if row.Title != "Falling" {
			t.Fatalf("unexpected title %q", row.Title)
		}
	}

	if rec := doRequest(t, s, "/api/book"); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title status = %d, want 400", rec.Code)
	}
	rec = doRequest(t, s, "/api/book?title=Unknown")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("unknown title: status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestGemsEndpoint(t *testing.T) {
	s, _ := seededServer(t, time.Minute)

	rec := doRequest(t, s, "/api/gems")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var report trend.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Analyzed != 2 {
		t.Fatalf("analyzed = %d, want 2", report.Analyzed)
	}
	if len(report.Gems) != 1 || report.Gems[0].Title != "Falling" {
		t.Fatalf("gems = %+v", report.Gems)
	}
	if report.Gems[0].Score != -10.0 {
		t.Fatalf("gem score = %v, want -10.00", report.Gems[0].Score)
	}
}

func TestDropsEndpoint(t *testing.T) {
	s, _ := seededServer(t, time.Minute)

	rec := doRequest(t, s, "/api/drops")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var drops []trend.Candidate
	if err := json.Unmarshal(rec.Body.Bytes(), &drops); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(drops) != 1 || drops[0].Title != "Falling" || drops[0].Score != -10.0 {
		t.Fatalf("drops = %+v", drops)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := seededServer(t, time.Minute)

	rec := doRequest(t, s, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var status store.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Books != 2 || status.Observations != 4 {
		t.Fatalf("status = %+v", status)
	}
	if status.LastScrapedAt == nil {
		t.Fatalf("missing last scraped at")
	}
}

func TestExportCSVEndpoint(t *testing.T) {
	s, _ := seededServer(t, time.Minute)

	rec := doRequest(t, s, "/export/csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "book_market_data.csv") {
		t.Fatalf("content disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("csv lines = %d, want header + 4 rows", len(lines))
	}
}

func TestExportGemsCSVEndpoint(t *testing.T) {
	s, _ := seededServer(t, time.Minute)

	rec := doRequest(t, s, "/export/gems.csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header + 1 gem", len(lines))
	}
	if !strings.Contains(lines[1], "Falling") {
		t.Fatalf("gem row = %q", lines[1])
	}
}

func TestExportXLSXEndpoint(t *testing.T) {
	s, _ := seededServer(t, time.Minute)

	rec := doRequest(t, s, "/export/xlsx")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("empty workbook body")
	}
}

func TestHistoryCacheBoundsReads(t *testing.T) {
	s, st := seededServer(t, time.Minute)

	// Prime the cache.
	if rec := doRequest(t, s, "/api/history"); rec.Code != http.StatusOK {
		t.Fatalf("prime status = %d", rec.Code)
	}

	// New writes are invisible until the cache window lapses.
	if _, err := st.IngestPage(context.Background(), []models.CatalogEntry{
		{Title: "Late Arrival", Price: 5.00, RatingText: "One"},
	}, time.Now().UTC()); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	rec := doRequest(t, s, "/api/history")
	var rows []models.PriceRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want the cached 4", len(rows))
	}
}

func TestHistoryCacheExpiry(t *testing.T) {
	s, st := seededServer(t, 50*time.Millisecond)

	if rec := doRequest(t, s, "/api/history"); rec.Code != http.StatusOK {
		t.Fatalf("prime status = %d", rec.Code)
	}
	if _, err := st.IngestPage(context.Background(), []models.CatalogEntry{
		{Title: "Late Arrival", Price: 5.00, RatingText: "One"},
	}, time.Now().UTC()); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	rec := doRequest(t, s, "/api/history")
	var rows []models.PriceRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want 5 after cache expiry", len(rows))
	}
}

func TestHealthz(t *testing.T) {
	s, _ := seededServer(t, time.Minute)
	if rec := doRequest(t, s, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
