// Command sessionrunner runs a single Polymarket market-making session: it
// resolves one market slug, warms up and calibrates a Kalman fair-price
// filter against that market's order book, then quotes an Avellaneda-
// Stoikov spread around the filtered price until the configured session
// horizon elapses.
//
// Architecture:
//
//	main.go                  — entry point: loads config, starts the session runner, waits for SIGINT/SIGTERM
//	internal/session/runner.go — orchestrator: warm-up -> calibration -> trading, one market at a time
//	internal/market/feed.go  — resolves the market, streams its order book, exposes wmp/vol_diff/kappa
//	internal/kalman         — offline MLE calibration (Calibrator) and the online filter (Estimator)
//	internal/strategy       — Avellaneda-Stoikov quoting and the single-token inventory ledger
//	internal/exchange       — REST/WebSocket client, L1/L2 auth, and the WalletBroker (real or simulated)
//	internal/risk           — rapid price movement kill switch
//	internal/telemetry      — in-memory tape, SQLite persistence, CSV result row, Prometheus metrics
//	internal/store          — JSON position persistence (survives restarts)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"polymarket-mm/internal/api"
	"polymarket-mm/internal/config"
	"polymarket-mm/internal/session"
)

func main() {
	cfgPath := "configs/session.yaml"
	if p := os.Getenv("POLY_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	runner, err := session.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(cfg.Dashboard, runner, *cfg, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE: no real orders will be placed")
	}
	logger.Info("session starting",
		"market_slug", cfg.Session.MarketSlug,
		"total_duration", cfg.Session.TotalDuration,
		"modo_real", cfg.Session.ModoReal,
		"dry_run", cfg.DryRun,
	)

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	runErr := runner.Run(ctx)

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}

	if runErr != nil && ctx.Err() == nil {
		logger.Error("session ended with error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("session ended")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
