// Command worker runs the scheduled dispatch loop and optional feed polling,
// and serves health, status and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/brief/internal/app"
	"github.com/ignite/brief/internal/config"
	"github.com/ignite/brief/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", envOr("BRIEF_CONFIG", "config/brief.yaml"), "config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("start worker", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	w := newWorker(a)
	loops := w.start(ctx, cfg.Worker.Interval(), cfg.Ingest.Feeds, cfg.Ingest.Interval())

	srv := &http.Server{
		Addr:              cfg.Worker.Addr,
		Handler:           w.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker listening", "addr", cfg.Worker.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("worker http shutdown", "error", err)
	}
	// The app is closed only after the current pass has written its run.
	loops.Wait()
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
