package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-book-gems/config"
	"github.com/aluiziolira/go-book-gems/export"
	"github.com/aluiziolira/go-book-gems/ingest"
	"github.com/aluiziolira/go-book-gems/models"
	"github.com/aluiziolira/go-book-gems/scraper"
	"github.com/aluiziolira/go-book-gems/store"
	"github.com/aluiziolira/go-book-gems/trend"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Credentials live in the environment; a local .env is a convenience.
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	pagesDefault := defaultCfg.MaxPages
	if value, ok, err := config.EnvInt("TRACKER_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid TRACKER_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("TRACKER_BASE_URL"); ok {
		baseURLDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("TRACKER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	maxPages := flag.Int("pages", pagesDefault, "Maximum catalog pages to walk")
	baseURL := flag.String("base-url", baseURLDefault, "First catalog page URL")
	delayMs := flag.Int("delay", 0, "Delay between page requests (milliseconds)")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Fetch retry attempts per page")
	retryBackoffMs := flag.Int("retry-backoff", 200, "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", 2000, "Maximum retry backoff (milliseconds)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	exportPath := flag.String("export", "", "Write the history view to this file after analysis (.csv or .xlsx)")
	topN := flag.Int("top", 10, "Gems to print in the report")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.BaseURL = *baseURL
	cfg.MaxPages = *maxPages
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	dbCfg, err := config.DatabaseFromEnv()
	if err != nil {
		slog.Error("database configuration", slog.Any("error", err))
		os.Exit(1)
	}
	cfg.Database = dbCfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("closing store", slog.Any("error", err))
		}
	}()

	registry := prometheus.NewRegistry()
	scrapeMetrics := scraper.NewMetrics(registry)
	ingestMetrics := ingest.NewMetrics(registry)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting ingestion",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.String("driver", cfg.Database.Driver),
	)

	s, err := scraper.NewScraper(cfg, scrapeMetrics)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	ingestor := ingest.New(st, ingestMetrics)
	result, runErr := s.Run(ctx, ingestor)
	stats := ingestor.Snapshot()
	result.Appended = stats.Appended
	if runErr != nil {
		// The run halts on an unrecovered fetch or store error; pages
		// committed before the halt stay durable and still get analyzed.
		slog.Error("ingestion halted early", slog.Any("error", runErr))
	}

	report, analyzeErr := analyze(ctx, st)
	if analyzeErr != nil {
		slog.Error("analysis failed", slog.Any("error", analyzeErr))
		os.Exit(1)
	}
	printReport(result, stats, report, *topN)

	if *exportPath != "" {
		rows, err := st.History(ctx)
		if err != nil {
			slog.Error("loading history for export", slog.Any("error", err))
			os.Exit(1)
		}
		if err := export.HistoryToFile(*exportPath, rows); err != nil {
			slog.Error("writing export", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("history exported", slog.String("path", *exportPath), slog.Int("rows", len(rows)))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func analyze(ctx context.Context, st *store.Store) (trend.Report, error) {
	rows, err := st.History(ctx)
	if err != nil {
		return trend.Report{}, err
	}
	return trend.Analyze(rows), nil
}

func printReport(result *models.RunResult, stats ingest.Stats, report trend.Report, topN int) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Ingestion complete")
	fmt.Printf("  Pages committed:   %d\n", stats.Pages)
	fmt.Printf("  Entries seen:      %d\n", result.EntryCount)
	fmt.Printf("  Observations:      %d\n", stats.Appended)
	fmt.Printf("  Retries:           %d\n", result.RetryCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Fetch errors:      %v\n", result.ErrorsByType)
	}
	if len(stats.Skipped) > 0 {
		fmt.Printf("  Skipped entries:   %v\n", stats.Skipped)
	}
	if result.HaltedAt != "" {
		fmt.Printf("  Halted at:         %s\n", result.HaltedAt)
	}
	fmt.Printf("  Duration:          %v\n", result.EndTime.Sub(result.StartTime))

	fmt.Println(separator)
	fmt.Println("Price trend analysis")
	fmt.Printf("  Books analyzed:    %d\n", report.Analyzed)
	fmt.Printf("  Too little history:%d\n", report.Insufficient)
	fmt.Printf("  Falling prices:    %d\n", len(report.Gems))

	if report.Analyzed == 0 && report.Insufficient > 0 {
		fmt.Println("  Not enough historical data yet to calculate trends.")
	}
	gems := report.Gems
	if len(gems) > topN {
		gems = gems[:topN]
	}
	for i, gem := range gems {
		fmt.Printf("  %2d. %-45s rating=%-5s price=%7.2f trend=%+.2f/day\n",
			i+1, truncate(gem.Title, 45), gem.Rating, gem.CurrentPrice, gem.Score)
	}
	fmt.Println(separator)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
