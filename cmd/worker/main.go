// Worker entry point: runs the scheduled-rebalance and drawdown-scan loop,
// plus a small health/metrics endpoint for probes.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/folira/folira/internal/bootstrap"
	"github.com/folira/folira/internal/config"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
)

const healthAddr = ":8081"

func main() {
	configPath := flag.String("config", "", "path to YAML config (env-only when empty)")
	migrate := flag.Bool("migrate", false, "apply pending schema migrations on startup")
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
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

	health := healthServer(app)
	go func() {
		if err := health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("health endpoint failed", logging.Err(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-stop
		app.Logger.Info("shutting down", logging.String("signal", sig.String()))
		cancel()
	}()

	app.Logger.Info("worker started",
		logging.Duration("scan_interval", cfg.Scheduler.ScanInterval),
		logging.Int("concurrency", cfg.Scheduler.Concurrency))

	err = app.Scheduler.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = health.Shutdown(shutdownCtx)

	return err
}

func healthServer(app *bootstrap.App) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", app.Metrics.Handler())
	return &http.Server{Addr: healthAddr, Handler: mux}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
