package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"fhunt_bot/internal/bot"
	"fhunt_bot/internal/config"
	"fhunt_bot/internal/marketplace"
	"fhunt_bot/internal/metrics"
	"fhunt_bot/internal/scheduler"
	"fhunt_bot/internal/state"
	"fhunt_bot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	seed, err := config.LoadFilters(cfg.FiltersFile)
	if err != nil {
		log.Error("load filters", "path", cfg.FiltersFile, "error", err)
		os.Exit(1)
	}
	st := state.New(seed)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	m.SetPaused(seed.Paused)

	if cfg.DatabasePath != ":memory:" {
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				log.Error("create data directory", "path", dir, "error", err)
				os.Exit(1)
			}
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	market := marketplace.New(cfg.MarketplaceURL, cfg.MarketplaceToken, &http.Client{Timeout: 15 * time.Second})

	b, err := bot.New(cfg, store, st, market, m, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(market, b, store, st, m, log, cfg.ChatID, cfg.SkillIDs)
	sched.SetTickInterval(cfg.CheckInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot", "interval", cfg.CheckInterval, "skills", cfg.SkillIDs, "keywords", len(seed.Keywords))

	b.Announce(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(ctx) })
	g.Go(func() error { return sched.RunAll(ctx) })
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, reg, log)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		log.Error("bot stopped with error", "error", err)
		return
	}
	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
