package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"focusbubble/backend/internal/alarm"
	"focusbubble/backend/internal/clock"
	"focusbubble/backend/internal/config"
	"focusbubble/backend/internal/handler"
	"focusbubble/backend/internal/hub"
	"focusbubble/backend/internal/notify"
	"focusbubble/backend/internal/repository"
	"focusbubble/backend/internal/router"
	"focusbubble/backend/internal/service"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the background service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting FocusBubble")

	loc, err := cfg.Clock.Location()
	if err != nil {
		return err
	}
	clk := clock.Real{Location: loc}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Int("cache_size", cfg.Storage.CacheSize).
		Msg("Storage initialized")

	repo := repository.New(store)
	registry := hub.NewRegistry()
	eventLog := service.NewEventLog(cfg.EventLog.Size, clk)
	scheduler := alarm.NewScheduler(logger)
	defer scheduler.Close()

	settingsService := service.NewSettingsService(repo, logger)
	historyService := service.NewHistoryService(repo, clk, service.HistoryOptions{
		MaxSessions:  cfg.History.MaxSessions,
		DefaultLimit: cfg.History.DefaultLimit,
	}, logger)
	timerService := service.NewTimerService(service.TimerDeps{
		Repo:               repo,
		History:            historyService,
		Settings:           settingsService,
		Alarms:             scheduler,
		Publisher:          eventLog.Logged(service.NewBroadcaster(registry, logger)),
		Notifier:           notify.NewHubNotifier(registry, logger),
		Clock:              clk,
		Logger:             logger,
		TickInterval:       cfg.Timer.TickInterval,
		MaxPersistFailures: cfg.Persistence.MaxFailures,
	})

	if apiErr := timerService.Restore(context.Background()); apiErr != nil {
		// The engine retries the load on its next operation.
		logger.Error().Str("code", apiErr.Code).Msg(apiErr.Message)
	}

	authService := service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.PairingKeyHash, cfg.Auth.TokenTTL, logger)
	if !authService.Enabled() {
		logger.Warn().Msg("Component authentication disabled")
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(
		authService,
		handler.NewAuthHandler(authService),
		handler.NewMessageHandler(timerService, historyService, settingsService, eventLog, logger),
		handler.NewEventsHandler(registry, 0, logger),
		cfg.CORS.Origins,
		logger.With().Str("component", "http").Logger(),
	)

	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelStreams)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Error stopping HTTP server")
	}

	logger.Info().Msg("FocusBubble stopped")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
