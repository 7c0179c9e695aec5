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

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/adapters/cache"
	"github.com/zatekoja/serviceportal/internal/adapters/database"
	"github.com/zatekoja/serviceportal/internal/adapters/events"
	"github.com/zatekoja/serviceportal/internal/api/handlers"
	"github.com/zatekoja/serviceportal/internal/api/middleware"
	"github.com/zatekoja/serviceportal/internal/api/routes"
	"github.com/zatekoja/serviceportal/internal/api/session"
	"github.com/zatekoja/serviceportal/internal/api/views"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/redis"
	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
	"github.com/zatekoja/serviceportal/internal/infrastructure/notifications"
	"github.com/zatekoja/serviceportal/internal/infrastructure/observability"
	"github.com/zatekoja/serviceportal/pkg/config"
	"github.com/zatekoja/serviceportal/pkg/secrets"
)

func main() {
	// Secrets from Vault land in the environment before configuration is read
	if _, err := secrets.NewLoader(secrets.VaultConfigFromEnv()).Apply(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load Vault secrets: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.App.Name, cfg.App.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Database and schema
	dbClient, err := sqldb.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database client")
	}
	defer dbClient.Close()

	baseServiceAdapter := database.NewServiceAdapter(dbClient)
	bootstrap := services.NewBootstrapService(migrations.New(dbClient), baseServiceAdapter)
	if err := bootstrap.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap database")
	}

	// Cache, sessions and events share Redis when it is enabled; otherwise they
	// live in process memory.
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	healthHandler := handlers.NewHealthHandler(dbClient)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis client")
		}
		defer redisClient.Close()

		cacheProvider = cache.NewRedisAdapter(redisClient, cfg.App.Name+":")
		eventBus = events.NewRedisEventBus(redisClient)
		healthHandler.WithRedis(redisClient)
		log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Using Redis for cache, sessions and events")
	} else {
		cacheProvider = cache.NewMemoryAdapter()
		eventBus = events.NewMemoryEventBus()
		log.Warn().Msg("Redis disabled; sessions and events are process-local")
	}

	serviceAdapter := database.NewCachedServiceAdapter(baseServiceAdapter, cacheProvider)
	requestAdapter := database.NewServiceRequestAdapter(dbClient)
	userAdapter := database.NewUserAdapter(dbClient)
	responseAdapter := database.NewClientResponseAdapter(dbClient)

	// Refresh the catalog ahead of the list TTL so page loads rarely miss
	services.NewCacheWarmingService(serviceAdapter).StartPeriodicWarming(ctx, 4*time.Minute)

	// Initialize services
	catalogService := services.NewCatalogService(serviceAdapter)
	authService := services.NewAuthService(userAdapter)
	requestService := services.NewRequestService(catalogService, requestAdapter, eventBus, metrics)
	clientService := services.NewClientService(serviceAdapter, requestAdapter, responseAdapter, eventBus, metrics)

	if cfg.Telegram.Enabled {
		sender, err := notifications.NewTelegramSender(cfg.Telegram)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram notifier")
		}
		notifier := services.NewNotificationService(serviceAdapter, requestAdapter, eventBus, sender)
		if err := notifier.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start request notifications")
		}
		log.Info().Str("bot", sender.BotName()).Msg("Telegram notifications enabled")
	}

	// Initialize handlers
	renderer, err := views.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}
	sessions, err := session.NewManager(cacheProvider, cfg.Session)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sessions")
	}
	responder := handlers.NewResponder(renderer, sessions)

	router := routes.NewRouter(
		responder,
		sessions,
		handlers.NewCatalogHandler(responder, catalogService),
		handlers.NewRequestHandler(responder, requestService),
		handlers.NewAuthHandler(responder, authService, catalogService),
		handlers.NewClientHandler(responder, clientService),
		handlers.NewStreamHandler(clientService, eventBus, cfg.Server.SSEHeartbeat),
		healthHandler,
		metrics,
		middleware.ParseAllowedOrigins(cfg.Server.AllowedOrigins),
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the request stream stays open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	// Close the event bus first so open streams end and Shutdown can finish.
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
