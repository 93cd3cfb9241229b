package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-gateway/internal/api/http"
	"github.com/spec-kit/task-gateway/internal/api/http/handlers"
	"github.com/spec-kit/task-gateway/internal/auth"
	"github.com/spec-kit/task-gateway/internal/config"
	"github.com/spec-kit/task-gateway/internal/events"
	"github.com/spec-kit/task-gateway/internal/gateway"
	"github.com/spec-kit/task-gateway/internal/observability"
	"github.com/spec-kit/task-gateway/internal/persistence"
	"github.com/spec-kit/task-gateway/internal/repository"
	"github.com/spec-kit/task-gateway/internal/service"
	"github.com/spec-kit/task-gateway/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	usedTokens := repository.NewTokenStore(redis)

	tokens, err := auth.NewTokenManager(cfg.Auth, auth.WithTokenLogger(logger))
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(tokens, userRepo, cfg.Auth.IdentityCheckTimeout(), logger)

	bus := events.NewBus(cfg.Gateway.EventQueueSize, logger, metrics)
	registry := gateway.NewRegistry(logger, metrics)
	bridge := gateway.NewBridge(registry,
		gateway.WithLegacyAudience(cfg.Gateway.LegacyAudience),
		gateway.WithBridgeLogger(logger),
		gateway.WithBridgeMetrics(metrics),
	)
	bridge.Subscribe(bus)
	dispatchWorker := worker.StartDispatchWorker(ctx, bus, logger)

	gatewayHandler := gateway.NewHandler(authenticator, registry, gateway.HandlerConfig{
		Client: gateway.ClientConfig{
			SendBuffer:   cfg.Gateway.SendBuffer,
			WriteTimeout: cfg.Gateway.WriteTimeout(),
			PingInterval: cfg.Gateway.PingInterval(),
		},
		Limiter:     gateway.NewHandshakeLimiter(cfg.Gateway.HandshakeRate, cfg.Gateway.HandshakeBurst),
		Logger:      logger,
		Metrics:     metrics,
		BaseContext: ctx,
	})

	mailer := service.NewLogMailer(cfg.Notification, logger)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Users:      userRepo,
		Tokens:     tokens,
		UsedTokens: usedTokens,
		Mailer:     mailer,
		Dispatcher: bus,
		Logger:     logger,
	})
	userService := service.NewUserService(*cfg, userRepo, tokens, mailer, bus, logger)
	taskService := service.NewTaskService(taskRepo, bus, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Gateway:        gatewayHandler,
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(authenticator),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// cancelling ctx also ends open live connections' identity checks
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := dispatchWorker.Stop(stopCtx); err != nil {
		logger.Warn("dispatch worker did not drain", zap.Int("pending", bus.Pending()), zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
