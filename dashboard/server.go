// Package dashboard serves the read-side API: history rows, ranked gems
// and downloadable exports. It never writes to the store.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-book-gems/export"
	"github.com/aluiziolira/go-book-gems/models"
	"github.com/aluiziolira/go-book-gems/store"
	"github.com/aluiziolira/go-book-gems/trend"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const historyCacheKey = "history"

// Store is the read-side surface the dashboard needs.
type Store interface {
	History(ctx context.Context) ([]models.PriceRow, error)
	HistoryForBook(ctx context.Context, title string) ([]models.PriceRow, error)
	Status(ctx context.Context) (store.Status, error)
	Ping(ctx context.Context) error
}

// Server is the dashboard HTTP server. History reads go through a TTL
// cache so a refresh storm cannot hammer the database; reads may be stale
// up to the cache window.
type Server struct {
	store Store
	cache *expirable.LRU[string, []models.PriceRow]
	echo  *echo.Echo
}

// New builds the server. ttl bounds history staleness; reg, when non-nil,
// is exposed on /metrics.
func New(st Store, ttl time.Duration, reg *prometheus.Registry) *Server {
	s := &Server{
		store: st,
		cache: expirable.NewLRU[string, []models.PriceRow](4, nil, ttl),
		echo:  echo.New(),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/api/history", s.handleHistory)
	s.echo.GET("/api/book", s.handleBookHistory)
	s.echo.GET("/api/gems", s.handleGems)
	s.echo.GET("/api/drops", s.handleDrops)
	s.echo.GET("/api/status", s.handleStatus)
	s.echo.GET("/export/csv", s.handleExportCSV)
	s.echo.GET("/export/gems.csv", s.handleExportGemsCSV)
	s.echo.GET("/export/xlsx", s.handleExportXLSX)
	if reg != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	slog.Info("dashboard listening", slog.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) history(ctx context.Context) ([]models.PriceRow, error) {
	if rows, ok := s.cache.Get(historyCacheKey); ok {
		return rows, nil
	}
	rows, err := s.store.History(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Add(historyCacheKey, rows)
	return rows, nil
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unreachable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHistory(c echo.Context) error {
	rows, err := s.history(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	if rows == nil {
		rows = []models.PriceRow{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) handleBookHistory(c echo.Context) error {
	title := c.QueryParam("title")
	if title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title query parameter is required"})
	}
	rows, err := s.store.HistoryForBook(c.Request().Context(), title)
	if err != nil {
		return storeError(c, err)
	}
	if rows == nil {
		rows = []models.PriceRow{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) handleGems(c echo.Context) error {
	rows, err := s.history(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	report := trend.Analyze(rows)
	if report.Gems == nil {
		report.Gems = []trend.Candidate{}
	}
	if report.Candidates == nil {
		report.Candidates = []trend.Candidate{}
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleDrops(c echo.Context) error {
	rows, err := s.history(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	drops := trend.Drops(rows)
	if drops == nil {
		drops = []trend.Candidate{}
	}
	return c.JSON(http.StatusOK, drops)
}

func (s *Server) handleStatus(c echo.Context) error {
	status, err := s.store.Status(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleExportCSV(c echo.Context) error {
	rows, err := s.history(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="book_market_data.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return export.WriteHistoryCSV(c.Response(), rows)
}

func (s *Server) handleExportGemsCSV(c echo.Context) error {
	rows, err := s.history(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="falling_prices.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return export.WriteGemsCSV(c.Response(), trend.Analyze(rows).Gems)
}

func (s *Server) handleExportXLSX(c echo.Context) error {
	rows, err := s.history(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="book_market_data.xlsx"`)
	c.Response().WriteHeader(http.StatusOK)
	return export.WriteHistoryXLSX(c.Response(), rows)
}

func storeError(c echo.Context, err error) error {
	slog.Error("store read failed", slog.Any("error", err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
}
