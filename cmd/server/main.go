// Command server exposes the traffic simulator as a long-lived HTTP
// service: runs are started, inspected, and cancelled over a JSON API,
// with Prometheus metrics on /metrics.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mgiordano/gridlock/internal/api"
	"github.com/mgiordano/gridlock/internal/config"
	"github.com/mgiordano/gridlock/internal/roadnet"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/sim.yaml", "Path to simulation YAML config")
	graphPath := flag.String("graph", "data/network.json", "Path to street network JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if err := config.Validate(loader.Config()); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Load street network ───────────────────────────────────────────────────
	network, err := roadnet.ReadFile(*graphPath)
	if err != nil {
		slog.Error("failed to load street network", "err", err)
		os.Exit(1)
	}
	// Discretise once up front so integrity errors surface at startup.
	grid, err := roadnet.NewCellGrid(network, loader.Config().Sim.CellLengthM)
	if err != nil {
		slog.Error("street network rejected", "err", err)
		os.Exit(1)
	}
	slog.Info("street network loaded",
		"nodes", grid.NumNodes(), "edges", grid.NumEdges(), "cells", grid.TotalCells())

	// ── Run manager ───────────────────────────────────────────────────────────
	runs := api.NewManager(network, loader)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(cfg *config.Config) {
		if err := config.Validate(cfg); err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		slog.Info("config reloaded; applies to new runs")
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(runs, loader)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	slog.Info("goodbye")
}
