// Package scraper walks the paginated catalog and hands each page of
// parsed entries to a sink.
//
// The walk is sequential: one page is fetched, parsed and committed before
// the next link is followed. A page fetch that still fails after bounded
// backoff retries halts the run permanently; everything committed so far
// stays committed. Malformed entries are skipped and counted, never fatal.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-book-gems/config"
	"github.com/aluiziolira/go-book-gems/models"
	"github.com/aluiziolira/go-book-gems/parser"
	"github.com/gocolly/colly/v2"
)

// PageSink receives one fully parsed catalog page at a time. Commit errors
// abort the run.
type PageSink interface {
	CommitPage(ctx context.Context, pageNumber int, entries []models.CatalogEntry) error
}

// Scraper wraps a synchronous colly collector over the catalog.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics

	// current is the capture target of the in-flight Visit. The walk is
	// strictly sequential, so no locking is needed around it.
	current *pageCapture

	handlersOnce sync.Once
}

type pageCapture struct {
	url      string
	entries  []models.CatalogEntry
	skipped  int
	nextURL  string
	fetchErr *FetchError
}

// NewScraper builds a scraper configured from cfg. metrics may be nil.
func NewScraper(cfg *config.Config, metrics *Metrics) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if cfg.Delay > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob: "*",
			Delay:      cfg.Delay,
		}); err != nil {
			return nil, fmt.Errorf("configure rate limit: %w", err)
		}
	}

	return &Scraper{cfg: cfg, collector: collector, metrics: metrics}, nil
}

// WithTransport swaps the HTTP transport, used by tests.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

// Run walks the catalog from the configured base URL, committing each page
// through sink before advancing. The returned result is populated even
// when the run halts early on a fetch error.
func (s *Scraper) Run(ctx context.Context, sink PageSink) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.configureHandlers()

	result := &models.RunResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	defer func() { result.EndTime = time.Now() }()

	pageURL := s.cfg.BaseURL
	for page := 1; pageURL != "" && page <= s.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		capture, err := s.fetchPage(ctx, pageURL, result)
		if err != nil {
			result.HaltedAt = pageURL
			slog.Error("halting run",
				slog.String("url", pageURL),
				slog.Int("pages_committed", result.PageCount),
				slog.Any("error", err),
			)
			return result, err
		}

		result.EntryCount += len(capture.entries)
		result.SkippedCount += capture.skipped
		if sink != nil {
			if err := sink.CommitPage(ctx, page, capture.entries); err != nil {
				result.HaltedAt = pageURL
				return result, fmt.Errorf("commit page %d: %w", page, err)
			}
		}
		result.PageCount++

		slog.Debug("page committed",
			slog.Int("page", page),
			slog.Int("entries", len(capture.entries)),
			slog.Int("skipped", capture.skipped),
		)
		pageURL = capture.nextURL
	}

	return result, nil
}

// fetchPage visits one page, retrying with exponential backoff before
// giving up and returning the classified fetch error.
func (s *Scraper) fetchPage(ctx context.Context, pageURL string, result *models.RunResult) (*pageCapture, error) {
	for attempt := 0; ; attempt++ {
		capture := &pageCapture{url: pageURL}
		s.current = capture

		s.metrics.IncRequest()
		start := time.Now()
		visitErr := s.collector.Visit(pageURL)
		s.metrics.ObserveDuration(time.Since(start))

		fetchErr := capture.fetchErr
		if fetchErr == nil && visitErr != nil {
			fetchErr = classifyFetch(pageURL, visitErr, 0)
		}
		if fetchErr == nil {
			s.metrics.IncEntries(len(capture.entries))
			return capture, nil
		}

		result.ErrorsByType[fetchErr.Category]++
		s.metrics.IncError(fetchErr.Category)
		slog.Error("page fetch failed",
			slog.String("url", pageURL),
			slog.String("category", fetchErr.Category),
			slog.Int("attempt", attempt+1),
			slog.Any("error", fetchErr.Err),
		)

		if attempt >= s.cfg.MaxRetries {
			return nil, fetchErr
		}
		result.RetryCount++
		s.metrics.IncRetries()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.backoff(attempt + 1)):
		}
	}
}

func (s *Scraper) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := s.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := s.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (s *Scraper) configureHandlers() {
	s.handlersOnce.Do(func() {
		s.collector.OnHTML("article.product_pod", func(e *colly.HTMLElement) {
			entry, err := extractEntry(e)
			if err != nil {
				s.current.skipped++
				slog.Warn("skipping malformed entry",
					slog.String("url", s.current.url),
					slog.Any("error", err),
				)
				return
			}
			s.current.entries = append(s.current.entries, entry)
		})

		s.collector.OnHTML("li.next a", func(e *colly.HTMLElement) {
			s.current.nextURL = e.Request.AbsoluteURL(e.Attr("href"))
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			s.current.fetchErr = classifyFetch(s.current.url, err, statusCode)
		})
	})
}

func extractEntry(e *colly.HTMLElement) (models.CatalogEntry, error) {
	title := strings.TrimSpace(e.ChildAttr("h3 a", "title"))
	if title == "" {
		return models.CatalogEntry{}, fmt.Errorf("missing title")
	}

	price, err := parser.ParsePrice(e.ChildText("p.price_color"))
	if err != nil {
		return models.CatalogEntry{}, err
	}

	ratingText := ""
	if ratingClass := e.ChildAttr("p.star-rating", "class"); ratingClass != "" {
		parts := strings.Fields(ratingClass)
		if len(parts) > 1 {
			ratingText = parts[1]
		}
	}
	if ratingText == "" {
		return models.CatalogEntry{}, fmt.Errorf("missing rating for %s", title)
	}

	return models.CatalogEntry{
		Title:         title,
		Price:         price,
		RatingText:    ratingText,
		RatingNumeric: parser.RatingToNumeric(ratingText),
		URL:           e.Request.AbsoluteURL(e.ChildAttr("h3 a", "href")),
	}, nil
}
