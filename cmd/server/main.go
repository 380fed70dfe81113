package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-api/internal/auth"
	"expense-api/internal/config"
	"expense-api/internal/handlers"
	"expense-api/internal/logger"
	"expense-api/internal/middleware"
	"expense-api/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	db, err := storage.NewDB(cfg.DB.Driver, cfg.DB.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	verifier, err := auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		db.StatsCollector(cfg.ServiceName),
	)

	h := handlers.NewHandlers(db, verifier, handlers.ServiceInfo{
		Name:      cfg.ServiceName,
		Version:   cfg.Version,
		APIPrefix: cfg.APIPrefix,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      newHandler(h, log, cfg.CORSOrigins, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("driver", cfg.DB.Driver).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exited")
	return nil
}

// newHandler wires the router and the middleware chain. Metrics sit directly
// on the mux so they can label by route pattern.
func newHandler(h *handlers.Handlers, log zerolog.Logger, origins []string, reg *prometheus.Registry) http.Handler {
	metrics := middleware.NewMetrics(reg)
	mux := setupRouter(h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return middleware.Recovery(log)(
		middleware.RequestID(log)(
			middleware.Logger(
				middleware.CORS(origins)(
					metrics.Middleware(mux),
				),
			),
		),
	)
}

func setupRouter(h *handlers.Handlers, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", metricsHandler)
	return mux
}
