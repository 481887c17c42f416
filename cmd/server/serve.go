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
	"github.com/spf13/cobra"

	"github.com/Rileydk/Pomodoro/internal/config"
	"github.com/Rileydk/Pomodoro/internal/handler"
	"github.com/Rileydk/Pomodoro/internal/router"
	"github.com/Rileydk/Pomodoro/internal/service"
	"github.com/Rileydk/Pomodoro/internal/systemd"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session engine and HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting Pomodoro")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := openApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer application.Close()

	engine, err := application.startEngine(ctx)
	if err != nil {
		return err
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	sessionService := service.NewSessionService(engine, application.reports)
	settingsService := service.NewSettingsService(application.prefs, engine)
	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(application.auth),
		Session:  handler.NewSessionHandler(sessionService, application.broadcaster),
		Settings: handler.NewSettingsHandler(settingsService),
		Reports:  handler.NewReportHandler(application.reports),
	}
	httpHandler := router.New(application.auth, handlers, cfg.Server.CORSOrigins, logger)

	listener, err := systemd.Listener()
	if err != nil {
		return err
	}
	if listener != nil {
		logger.Info().Msg("Running with systemd socket activation")
	} else {
		listener, err = net.Listen("tcp", cfg.Server.Addr())
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
		}
	}

	server := &http.Server{
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when ctx is cancelled, so Shutdown is not held
		// open by idle subscribers.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info().Str("addr", listener.Addr().String()).Msg("HTTP API started")
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}

	engine.Terminate(context.Background())

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		config.ParseDuration(cfg.Server.ShutdownTimeout, 10*time.Second),
	)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping HTTP server")
	}

	logger.Info().Msg("Pomodoro stopped")
	return nil
}
