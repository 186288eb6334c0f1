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
	"github.com/aluiziolira/go-book-gems/dashboard"
	"github.com/aluiziolira/go-book-gems/store"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	listenDefault := defaultCfg.ListenAddr
	if value, ok := config.EnvString("DASHBOARD_ADDR"); ok {
		listenDefault = value
	}
	ttlDefault := defaultCfg.CacheTTL
	if value, ok, err := config.EnvDuration("DASHBOARD_CACHE_TTL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid DASHBOARD_CACHE_TTL: %v\n", err)
		os.Exit(1)
	} else if ok {
		ttlDefault = value
	}

	listenAddr := flag.String("addr", listenDefault, "Dashboard listen address")
	cacheTTL := flag.Duration("cache-ttl", ttlDefault, "History cache window")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	level := &slog.LevelVar{}
	if *verbose {
		level.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	dbCfg, err := config.DatabaseFromEnv()
	if err != nil {
		slog.Error("database configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, dbCfg)
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("closing store", slog.Any("error", err))
		}
	}()

	server := dashboard.New(st, *cacheTTL, prometheus.NewRegistry())

	go func() {
		if err := server.Start(*listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("dashboard server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("dashboard shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
}
