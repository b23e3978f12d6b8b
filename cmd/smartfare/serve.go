package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pkordes/smartfare/internal/config"
	"github.com/pkordes/smartfare/internal/handler"
	"github.com/pkordes/smartfare/internal/middleware"
	"github.com/pkordes/smartfare/internal/service"
	"github.com/pkordes/smartfare/internal/tapguard"
)

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the SmartFare HTTP API.

Configuration is read from the environment (PORT, STORE, DATABASE_URL,
SEED_FILE, EVENT_SINK, REDIS_ADDR, KAFKA_BROKERS, TAP_DEBOUNCE, ...).

Examples:
  smartfare serve --migrate
  STORE=memory SEED_FILE=network.yaml smartfare serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			slog.SetDefault(logger)
			return runServe(cmd.Context(), cfg, logger, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving (postgres store only)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger, migrate bool) error {
	// --- Store ------------------------------------------------------------
	st, err := openStore(ctx, cfg, logger, migrate)
	if err != nil {
		return err
	}
	defer st.close()

	// --- Redis ------------------------------------------------------------
	// One client serves both the tap guard and the redis event sink.
	var rdb redisClient
	if cfg.RedisAddr != "" && (cfg.TapDebounce > 0 || cfg.EventSink == config.SinkRedis) {
		rdb = tapguard.NewClient(cfg.RedisAddr)
		defer rdb.Close()
	}

	// --- Events -----------------------------------------------------------
	pub, closeEvents, err := openEvents(ctx, cfg, rdb, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	deps := service.JourneyDeps{
		Vehicles:  st.vehicles,
		Accounts:  st.accounts,
		Journeys:  st.journeys,
		Tx:        st.tx,
		Events:    pub,
		TxTimeout: cfg.TxTimeout,
		Logger:    logger,
	}
	if cfg.TapDebounce > 0 {
		deps.Guard = tapguard.New(rdb, cfg.TapDebounce)
		logger.Info("tap guard enabled", "window", cfg.TapDebounce.String())
	}

	server := handler.NewServer(
		service.NewJourneyService(deps),
		service.NewAccountService(st.accounts, st.journeys),
		service.NewExportService(st.journeys, st.accounts),
		logger,
	)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → body cap.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", server.Routes())

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "store", cfg.Store, "event_sink", cfg.EventSink)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// In-flight taps get up to 15 seconds to settle.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
