package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/issue-notify-service/internal/api/http"
	"github.com/spec-kit/issue-notify-service/internal/api/http/handlers"
	"github.com/spec-kit/issue-notify-service/internal/auth"
	"github.com/spec-kit/issue-notify-service/internal/config"
	"github.com/spec-kit/issue-notify-service/internal/events"
	"github.com/spec-kit/issue-notify-service/internal/observability"
	"github.com/spec-kit/issue-notify-service/internal/presence"
	"github.com/spec-kit/issue-notify-service/internal/realtime"
	"github.com/spec-kit/issue-notify-service/internal/service"
	"github.com/spec-kit/issue-notify-service/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	tracker := presence.NewTracker(cfg.Redis, cfg.Realtime.PresenceTTL(), logger)
	defer tracker.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	registry := realtime.NewRegistry()
	router := realtime.NewRouter(registry, logger, metrics)
	gate := realtime.NewGate(tokens, registry, tracker, logger, metrics,
		cfg.Realtime.SendBufferSize, cfg.Realtime.WriteTimeout())

	signer := webhook.NewSigner(cfg.Webhook.Secret, cfg.Webhook.FreshnessWindow())
	sender := webhook.NewSender(cfg.Webhook.URL, signer, cfg.Webhook.Timeout(), logger, metrics)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, router, sender, logger)
	notifications.RegisterHandlers()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, tracker),
		Stats:    handlers.NewStatsHandler(registry, tracker, metrics),
		Webhook:  handlers.NewWebhookHandler(signer, logger),
		Realtime: handlers.NewRealtimeHandler(gate),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
