package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/aurelia/concierge-system/internal/api"
	"github.com/aurelia/concierge-system/internal/api/handler"
	"github.com/aurelia/concierge-system/internal/core/ports"
	"github.com/aurelia/concierge-system/internal/core/service"
	"github.com/aurelia/concierge-system/internal/infrastructure/billing"
	"github.com/aurelia/concierge-system/internal/infrastructure/config"
	"github.com/aurelia/concierge-system/internal/infrastructure/db/mongo"
	"github.com/aurelia/concierge-system/internal/infrastructure/db/postgres"
	"github.com/aurelia/concierge-system/internal/infrastructure/db/redis"
	"github.com/aurelia/concierge-system/internal/infrastructure/jobs"
	"github.com/aurelia/concierge-system/internal/infrastructure/mq"
	"github.com/aurelia/concierge-system/internal/infrastructure/queue"
	"github.com/aurelia/concierge-system/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg := config.Load(logger.New(logger.Options{Pretty: true}))
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "concierge-api",
		Env:     cfg.Env,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	if err := jobs.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("river migrate up failed")
	}

	mongoClient, mongoDB, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mongodb")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	authRepo := mongo.NewAuthRepository(mongoDB)
	notificationRepo := mongo.NewNotificationRepository(mongoDB)
	if err := mongo.EnsureIndexes(ctx, authRepo, notificationRepo); err != nil {
		log.Fatal().Err(err).Msg("failed to create mongo indexes")
	}
	creditRepo := postgres.NewCreditRepository(pool)
	requestRepo := postgres.NewRequestRepository(pool)

	checks := []handler.DependencyCheck{
		{Name: "postgres", Ping: pool.Ping},
		{Name: "mongodb", Ping: func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }},
		{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}

	// --- Events ---
	var publisher ports.EventPublisher = mq.NewLogPublisher(logger.Component("events"))
	if cfg.RabbitMQ.Enabled {
		p, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect rabbitmq")
		}
		defer p.Close()
		publisher = p
		checks = append(checks, handler.DependencyCheck{Name: "rabbitmq", Ping: func(context.Context) error {
			if !p.Healthy() {
				return errors.New("channel closed")
			}
			return nil
		}})
	}

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Worker.Dispatchers, publisher, logger.Component("dispatcher"))
	dispatcher.Start(dispatcherCtx)

	// --- Services ---
	billingClient := billing.NewCachedClient(
		billing.NewClient(billing.Options{
			BaseURL: cfg.Billing.BaseURL,
			APIKey:  cfg.Billing.APIKey,
			Timeout: cfg.Billing.Timeout,
			Logger:  logger.Component("billing"),
		}),
		redis.NewSubscriptionCache(rdb, cfg.Billing.CacheTTL),
		logger.Component("billing"),
	)

	notificationSvc := service.NewNotificationService(notificationRepo, logger.Component("notifications"))
	creditSvc := service.NewCreditService(creditRepo, logger.Component("credits"))
	requestSvc := service.NewRequestService(requestRepo, notificationSvc, dispatcher, logger.Component("requests"))
	bookingSvc := service.NewBookingService(
		requestRepo,
		creditSvc,
		billingClient,
		redis.NewBookingDedup(rdb, cfg.Booking.IdempotencyTTL),
		notificationSvc,
		dispatcher,
		service.BookingConfig{RefundOnCancel: cfg.Booking.RefundOnCancel},
		logger.Component("bookings"),
	)
	membershipSvc := service.NewMembershipService(billingClient, creditSvc, logger.Component("membership"))
	automationSvc := service.NewAutomationService(
		billingClient,
		creditSvc,
		creditRepo,
		requestRepo,
		notificationSvc,
		dispatcher,
		nil,
		logger.Component("automation"),
	)
	authSvc := service.NewAuthService(authRepo, cfg.JWTSecret, cfg.TokenTTL)
	if cfg.Admin.Email != "" {
		created, err := authSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed bootstrap admin")
		}
		if created {
			log.Info().Str("email", cfg.Admin.Email).Msg("bootstrap admin created")
		}
	}

	// --- Background jobs ---
	if cfg.Worker.JobsEnabled {
		riverClient, err := jobs.NewClient(pool, automationSvc, cfg.Worker.AllocationInterval, logger.Component("jobs"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create river client")
		}
		go func() {
			if err := riverClient.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("river client stopped")
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := riverClient.Stop(stopCtx); err != nil {
				log.Error().Err(err).Msg("river client stop failed")
			}
		}()
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Log:           logger.Component("http"),
		JWTSecret:     cfg.JWTSecret,
		Auth:          authSvc,
		Membership:    membershipSvc,
		Automation:    automationSvc,
		Credits:       creditSvc,
		Subscriptions: billingClient,
		Bookings:      bookingSvc,
		Requests:      requestSvc,
		Notifications: notificationSvc,
		Checks:        checks,
	})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
			AllowCredentials: true,
		}).Handler(e),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server")
	}

	stopDispatcher()
	dispatcher.Wait()
	log.Info().Msg("server stopped")
}
