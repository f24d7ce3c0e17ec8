package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/samber/do/v2"

	configloader "github.com/foxseedlab/kikitorin/external/config"
	serverimpl "github.com/foxseedlab/kikitorin/external/server"
	transcribeimpl "github.com/foxseedlab/kikitorin/external/transcribe"
	"github.com/foxseedlab/kikitorin/internal/config"
	"github.com/foxseedlab/kikitorin/internal/pipeline"
	"github.com/foxseedlab/kikitorin/internal/registry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("startup: no .env file found; using process environment")
	}

	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "engine", cfg.Engine)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching gateway")
	runServer(injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	transcribeimpl.RegisterDI(injector)
	pipeline.RegisterDI(injector)
	registry.RegisterDI(injector)
	serverimpl.RegisterDI(injector)

	return injector
}

func runServer(injector do.Injector) {
	srv, err := do.Invoke[*serverimpl.Server](injector)
	if err != nil {
		slog.Error("failed to resolve server", "error", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		if err := srv.Listen(); err != nil {
			slog.Error("server listen failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	case <-done:
	}
}
