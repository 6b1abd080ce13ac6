// ABOUTME: Entry point for heartbeatd, the agent heartbeat monitor.
// ABOUTME: Wires config, collaborators, the poll scheduler, and the Matrix command bridge.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/defi-space/ds-agent-heartbeat/internal/bridge"
	"github.com/defi-space/ds-agent-heartbeat/internal/commands"
	"github.com/defi-space/ds-agent-heartbeat/internal/config"
	"github.com/defi-space/ds-agent-heartbeat/internal/indexer"
	"github.com/defi-space/ds-agent-heartbeat/internal/liveness"
	"github.com/defi-space/ds-agent-heartbeat/internal/monitor"
	"github.com/defi-space/ds-agent-heartbeat/internal/notify"
	"github.com/defi-space/ds-agent-heartbeat/internal/registry"
)

const banner = `
  _                     _   _                _
 | |__   ___  __ _ _ __| |_| |__   ___  __ _| |_
 | '_ \ / _ \/ _' | '__| __| '_ \ / _ \/ _' | __|
 | | | |  __/ (_| | |  | |_| |_) |  __/ (_| | |_
 |_| |_|\___|\__,_|_|   \__|_.__/ \___|\__,_|\__|
`

// getConfigPath returns the path to the monitor config file.
// Priority: HEARTBEAT_CONFIG env var > XDG_CONFIG_HOME/ds-agent-heartbeat/config.yaml > working directory.
func getConfigPath() string {
	if envPath := os.Getenv("HEARTBEAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ds-agent-heartbeat", "config.yaml")
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	once := flag.Bool("once", false, "run a single poll cycle and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, once bool) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// .env bootstrap before config load so ${VAR} expansion sees it.
	_ = godotenv.Load()

	if configPath == "" {
		configPath = getConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Indexer: %s\n", cfg.Indexer.Endpoint)
	if cfg.Matrix.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Matrix:  %s\n", cfg.Matrix.Homeserver)
	}
	if cfg.Alerts.WebhookURL == "" {
		yellow := color.New(color.FgYellow)
		yellow.Print("    ▶ ")
		fmt.Println("Alerts:  no webhook configured, alerts will only be logged")
	}
	fmt.Println()

	// Graceful shutdown context - everything below respects it.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	idx := indexer.NewClient(cfg.Indexer.Endpoint, logger.With("component", "indexer"))
	store := liveness.NewHTTPStore(cfg.Liveness.BaseURL, cfg.Liveness.AuthToken)
	fetcher := liveness.NewFetcher(store, logger.With("component", "liveness"))
	notifier := notify.New(cfg.Alerts.WebhookURL, cfg.Alerts.Cooldown, logger.With("component", "notify"))
	reg := registry.New(idx, logger.With("component", "registry"))

	mon := monitor.New(monitor.Config{
		Registry: reg,
		Metadata: idx,
		Liveness: fetcher,
		Notifier: notifier,
		Logger:   logger.With("component", "monitor"),
		Interval: cfg.Monitor.PollInterval,
		Mention:  cfg.Alerts.Mention,
	})

	if once {
		if err := mon.RunCycle(ctx); err != nil {
			logger.Error("poll cycle failed", "error", err)
		}
		return nil
	}

	if !cfg.Matrix.Enabled {
		logger.Info("matrix bridge disabled, running without command surface")
		mon.Run(ctx)
		return nil
	}

	handler := commands.NewHandler(reg, logger.With("component", "commands"))
	br, err := bridge.New(cfg.Matrix, handler, logger.With("component", "bridge"))
	if err != nil {
		return fmt.Errorf("creating command bridge: %w", err)
	}

	if err := br.Connect(ctx); err != nil {
		return err
	}

	bridgeErr := make(chan error, 1)
	go func() {
		bridgeErr <- br.Run(ctx)
	}()

	go mon.Run(ctx)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-bridgeErr:
		return err
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var logLevel slog.Level
	switch cfg.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
