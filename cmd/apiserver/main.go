// API server entry point: serves POST /v1/optimize, the portfolio read
// endpoints, health probes, and /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/folira/folira/internal/bootstrap"
	"github.com/folira/folira/internal/config"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	httpapi "github.com/folira/folira/internal/interfaces/http"
	"github.com/folira/folira/internal/interfaces/http/handlers"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (env-only when empty)")
	migrate := flag.Bool("migrate", true, "apply pending schema migrations on startup")
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, migrate bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if migrate {
		if err := app.MigrateUp(); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Mode:             cfg.Server.Mode,
		OptimizeHandler:  handlers.NewOptimizeHandler(app.Engine, app.Logger),
		PortfolioHandler: handlers.NewPortfolioHandler(app.Portfolios, app.Logger),
		HealthHandler:    handlers.NewHealthHandler(app.HealthCheckers()...),
		MetricsHandler:   app.Metrics.Handler(),
		Logger:           app.Logger,
	})
	server := httpapi.NewServer(cfg.Server, router, app.Logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		app.Logger.Info("shutting down", logging.String("signal", sig.String()))
	}

	return server.Stop(context.Background())
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
