package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/liliang-cn/askchat/internal/api"
	"github.com/liliang-cn/askchat/internal/auth"
	"github.com/liliang-cn/askchat/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local chat gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().String("host", "", "Listen host")
	cmd.Flags().Int("port", 0, "Listen port")
	_ = opts.v.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = opts.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions) error {
	a, err := newApp(opts, zapcore.DebugLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	broker := auth.NewBroker(a.authenticator, logger)

	// Initialize services
	chatService := a.chatService(broker)
	sessionService := service.NewSessionService(a.sessionRepo, chatService)
	settingsService := service.NewSettingsService(a.cfg)

	// Setup router
	router := api.SetupRouter(api.Services{
		Chat:     chatService,
		Sessions: sessionService,
		Settings: settingsService,
		Broker:   broker,
		Users:    a.client,
	}, api.RouterConfig{
		APIKey:       a.cfg.Server.APIKey,
		AllowOrigins: a.cfg.Server.AllowOrigins,
		Logger:       logger,
		Metrics:      promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
	})

	// Create HTTP server. No write timeout: replies are long-lived streams.
	srv := &http.Server{
		Addr:              a.cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting AskChat gateway",
			zap.String("address", a.cfg.Address()),
			zap.String("upstream", a.cfg.Upstream.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Failed to start server", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}
