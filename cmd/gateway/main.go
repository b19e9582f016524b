package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ngoclaw/upstreamgw/internal/infrastructure/config"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/logger"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/logstore"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/tokenstore"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/upstream"
	httpserver "github.com/ngoclaw/upstreamgw/internal/interfaces/http"
	"github.com/ngoclaw/upstreamgw/internal/interfaces/http/handlers"
)

const (
	appName    = "upstreamgw"
	appVersion = "0.1.0"
)

const (
	tokensFileName = "tokens.bin"
	logsFileName   = "logs.bin"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("%s v%s\n", appName, appVersion)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	log, err := logger.NewLogger(logger.Config{Level: "info", Format: "json", OutputPath: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	if raw := os.Getenv("CURSOR_CLIENT_VERSION"); raw != "" && raw != cfg.CursorClientVersion {
		log.Warn("invalid CURSOR_CLIENT_VERSION, keeping default",
			zap.String("value", raw), zap.String("default", cfg.CursorClientVersion))
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Error("cannot create data dir", zap.Error(err))
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
		log.Error("cannot create logs dir", zap.Error(err))
		os.Exit(1)
	}

	tokensPath := filepath.Join(cfg.DataDir, tokensFileName)
	logsPath := filepath.Join(cfg.LogsDir, logsFileName)

	store := tokenstore.New()
	if err := store.Load(tokensPath); err != nil {
		log.Warn("failed to load token snapshot, starting empty", zap.Error(err))
	}

	logs := logstore.New(log, toLogsLimit(cfg.RequestLogsLimit))
	if err := logs.Load(logsPath); err != nil {
		log.Warn("failed to load log snapshot, starting empty", zap.Error(err))
	}

	health := tokenstore.NewHealthTracker(3, 30*time.Second)

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	session := upstream.New(httpClient, upstream.DefaultChatURL, cfg.CursorClientVersion, log, logs, health)

	openaiHandler := handlers.NewOpenAIHandler(session, httpClient, log, cfg.ContextFillMode, cfg.BypassModelValidation)
	anthropicHandler := handlers.NewAnthropicHandler(session, httpClient, log, cfg.ContextFillMode, cfg.BypassModelValidation)

	mode := "debug"
	if !cfg.Debug {
		mode = "release"
	}
	srv := httpserver.NewServer(httpserver.Config{
		Host:             cfg.Host,
		Port:             cfg.Port,
		Mode:             mode,
		AllowedProviders: cfg.AllowedProviders,
		RequireChecksum:  true,
	}, store, openaiHandler, anthropicHandler, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}

	if err := store.Save(tokensPath); err != nil {
		log.Error("failed to save token snapshot", zap.Error(err))
	}
	if err := logs.Save(logsPath); err != nil {
		log.Error("failed to save log snapshot", zap.Error(err))
	}
	logs.Close()

	log.Info("gateway stopped cleanly")
}

// toLogsLimit converts the plain-int config DTO into the ring's retention
// policy; the clamp to the unbounded threshold already happened in config.
func toLogsLimit(n int) logstore.LogsLimit {
	switch {
	case n == 0:
		return logstore.Disabled()
	case n >= 1_000_000:
		return logstore.Unbounded()
	default:
		return logstore.Limited(n)
	}
}

func printUsage() {
	fmt.Printf(`%s v%s

Usage:
  gateway           Start the gateway server (default)
  gateway version   Show version
  gateway help      Show this help

Environment:
  HOST, PORT, DATA_DIR, LOGS_DIR, CONFIG_FILE,
  REQUEST_LOGS_LIMIT, ALLOWED_PROVIDERS, CURSOR_CLIENT_VERSION,
  CONTEXT_FILL_MODE, BYPASS_MODEL_VALIDATION, DEBUG, DEBUG_LOG_FILE
`, appName, appVersion)
}
