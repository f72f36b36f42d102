// Package main is the entry point for the widget host server.
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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/assistant-widget/internal/chatapi"
	"github.com/capitalize-ai/assistant-widget/internal/config"
	"github.com/capitalize-ai/assistant-widget/internal/handler"
	"github.com/capitalize-ai/assistant-widget/internal/middleware"
	natsclient "github.com/capitalize-ai/assistant-widget/internal/nats"
	"github.com/capitalize-ai/assistant-widget/internal/service"
	"github.com/capitalize-ai/assistant-widget/internal/widget"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
	"github.com/capitalize-ai/assistant-widget/pkg/tracing"
)

const sessionTokenTTL = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "widget server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.NewWithOutput(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting widget server", zap.String("chat_api_url", cfg.ChatAPIURL))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "assistant-widget", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Connect to NATS when configured
	var (
		publisher widget.EventPublisher
		events    handler.ConnectionChecker
	)
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer natsClient.Close()

		publisher = natsClient.Publisher()
		events = natsClient
	} else {
		log.Info("NATS_URL not set, widget events disabled")
	}

	// Initialize chat API client
	chatClient, err := chatapi.NewHTTPClient(cfg.ChatAPIURL, chatapi.WithTimeout(cfg.ChatAPITimeout))
	if err != nil {
		return fmt.Errorf("create chat API client: %w", err)
	}

	// Initialize services
	sessions := service.NewSessionService(func(sessionID string) *widget.Controller {
		return widget.New(chatClient, widget.Options{
			SessionID: sessionID,
			Greeting:  cfg.Greeting,
			Publisher: publisher,
			Logger:    log,
		})
	}, service.SessionOptions{
		IdleTimeout:   cfg.SessionIdleTimeout,
		SweepInterval: cfg.SessionSweepInterval,
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: handler.NewRouter(handler.RouterConfig{
			Sessions:       sessions,
			SessionIssuer:  middleware.NewSessionIssuer(cfg.SessionSecret, sessionTokenTTL),
			Events:         events,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Logger:         log,
		}),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sessions.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("server stopped")
	return nil
}
