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
	"path"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/ekisa-team/modelserve/internal/config"
	"github.com/ekisa-team/modelserve/internal/deploy"
	"github.com/ekisa-team/modelserve/internal/dispatch"
	"github.com/ekisa-team/modelserve/internal/env"
	"github.com/ekisa-team/modelserve/internal/example"
	"github.com/ekisa-team/modelserve/internal/logger"
	"github.com/ekisa-team/modelserve/internal/model"
	httpserver "github.com/ekisa-team/modelserve/internal/server/http"
)

func main() {
	var (
		flagHTTPPort   = flag.Int("http-port", config.DefaultHTTPPort(), "HTTP port to listen on")
		flagConfigPath = flag.String("config", path.Join(config.DefaultConfigPath(), "config.yaml"), "Path to config file")
		flagSchemaPath = flag.String("schema", path.Join(config.DefaultConfigPath(), "modelserve.v1.schema.json"), "Path to schema file")
	)
	flag.Parse()

	environment := env.FromEnv()

	slog.SetDefault(
		logger.New(environment,
			logger.WithLogToFile(true),
			logger.WithLogFile("logs/modelserve.log"),
		),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factories := model.NewFactories()
	example.RegisterFactories(factories)

	manager := model.NewManager(factories)

	watcher, err := config.NewWatcher(*flagConfigPath, *flagSchemaPath, func(cfg *config.Config, err error) {
		if err != nil {
			slog.Error("Failed to reload config", "error", err)
			return
		}

		if err := manager.LoadFromConfig(context.Background(), cfg); err != nil {
			slog.Error("Some models failed to load from config", "error", err)
		}
	})
	if err != nil {
		slog.Error("Failed to create config watcher", "error", err)
		os.Exit(1)
	}
	defer watcher.Close()

	cfg := watcher.Snapshot()
	if err := manager.LoadFromConfig(ctx, cfg); err != nil {
		// Best-effort: entries that loaded stay registered.
		slog.Error("Some models failed to load from config", "error", err)
	}

	slog.Info("Config loaded successfully", "config", *flagConfigPath, "schema", *flagSchemaPath)

	dispatcher := dispatch.New(manager.Registry(),
		dispatch.WithTimeout(cfg.Settings.Timeout.Or(dispatch.DefaultTimeout)),
		dispatch.WithDefaultModel(cfg.Settings.DefaultModel),
	)

	generator := deploy.NewGenerator(deploy.GeneratorSettings{
		BaseURL:      cfg.Deployment.BaseURL,
		ProdReplicas: cfg.Deployment.ProdReplicas,
	})

	controller := deploy.NewController(generator, deploy.AutoscalerConfig{
		TickInterval:     cfg.Deployment.TickInterval.Std(),
		HysteresisBand:   cfg.Deployment.HysteresisBand,
		StepFraction:     cfg.Deployment.StepFraction,
		InactivityWindow: cfg.Deployment.InactivityWindow.Std(),
	}, func(ctx context.Context, d deploy.Decision) error {
		// The execution substrate applies the replica change; here we only
		// hand the decision over.
		slog.Info("Handing scaling decision to substrate",
			"current", d.Current, "target", d.Target, "reason", d.Reason)
		return nil
	})
	defer controller.Shutdown()

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("modelserve", "1.0.0"))

	httpserver.NewInvokeHandler(api, dispatcher)
	httpserver.NewModelsHandler(api, dispatcher)
	httpserver.NewDeploymentsHandler(api, controller)

	addr := fmt.Sprintf(":%d", *flagHTTPPort)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		slog.Info("HTTP server listening", "addr", addr, "env", environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
}
