package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/identity-api/internal/config"
	"github.com/benvon/identity-api/internal/database"
	"github.com/benvon/identity-api/internal/handlers"
	"github.com/benvon/identity-api/internal/logger"
	"github.com/benvon/identity-api/internal/middleware"
	"github.com/benvon/identity-api/internal/models"
	"github.com/benvon/identity-api/internal/queue"
	"github.com/benvon/identity-api/internal/services/identity"
	"github.com/benvon/identity-api/internal/services/oidc"
	"github.com/benvon/identity-api/internal/services/token"
	"github.com/benvon/identity-api/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("google_issuer", cfg.GoogleIssuer),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "identity-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Redis is optional; without it rate limiting is disabled.
	var redisLimiter *middleware.RedisRateLimiter
	if cfg.RedisURL != "" {
		redisLimiter, err = middleware.NewRedisRateLimiter(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisLimiter.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	} else {
		zapLogger.Warn("redis_not_configured_rate_limiting_disabled")
	}

	// Connect to RabbitMQ, retrying to ride out broker startup delays.
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var broker *queue.AMQPBroker
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		broker, lastErr = queue.NewAMQPBroker(cfg.RabbitMQURL)
		if lastErr == nil {
			zapLogger.Info("connected_to_rabbitmq")
			break
		}

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	if lastErr != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	profileRepo := database.NewProfileRepository(db)

	// Initialize services
	jwksManager := oidc.NewJWKSManager(cfg.GoogleJWKSURL)
	extractor := oidc.NewExtractor(jwksManager, cfg.GoogleIssuer, zapLogger)
	reconciler := identity.NewReconciler(userRepo, profileRepo, models.ProviderGoogle, zapLogger)
	issuer := token.NewIssuer([]byte(cfg.SessionSigningSecret), cfg.SessionAccessTTL, cfg.SessionRefreshTTL, zapLogger)
	publisher := queue.NewPublisher(broker, cfg.PublishAttempts, cfg.PublishBackoff, cfg.PublishTimeout, zapLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(extractor, reconciler, issuer, publisher, zapLogger)
	userHandler := handlers.NewUserHandler(reconciler, zapLogger)
	healthHandler := handlers.NewHealthHandler(db)

	// Setup router
	r := mux.NewRouter()

	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware("identity-api"))
	}
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW := middleware.RateLimit(redisLimiter, cfg.RateLimitPerMinute)
	sessionAuthMW := middleware.SessionAuth(issuer, userRepo, zapLogger)

	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	authRouter.Use(rateLimitMW)
	authHandler.RegisterRoutes(authRouter)

	usersRouter := apiRouter.PathPrefix("/users").Subrouter()
	usersRouter.Use(sessionAuthMW)
	usersRouter.Use(rateLimitMW)
	userHandler.RegisterRoutes(usersRouter)

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_shutdown_failed", zap.Error(err))
	}

	zapLogger.Info("server_stopped")
}
