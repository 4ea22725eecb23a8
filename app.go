package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/clients/platform"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/media"
	"social-publisher/infrastructure/metrics"
	"social-publisher/infrastructure/persistence"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/ratelimit"
	"social-publisher/infrastructure/realtime"
	"social-publisher/infrastructure/servicebus"
	"social-publisher/infrastructure/utils"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/server"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// application holds everything the serve and worker commands share.
type application struct {
	cfg       configuration.Config
	db        *sql.DB
	redis     *redis.Client
	mongo     *mongo.Client
	events    *pubsub.EventPublisher
	hub       *realtime.Hub
	oauth     usecase.IOAuthUsecase
	publish   usecase.IPublishUsecase
	scheduler usecase.ISchedulerUsecase
	closers   []func()
}

func buildApp(ctx context.Context, cfg configuration.Config) (*application, error) {
	log := logger.GetLogger()
	app := &application{cfg: cfg, hub: realtime.NewPublishHub()}

	db, err := persistence.NewPostgreSQLDB(ctx, cfg.Database.Psql)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, func() { _ = db.Close() })
	if err := persistence.EnsureSchema(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cipher, err := utils.NewTokenCipher(cfg.Security.TokenEncryptionKey)
	if err != nil {
		app.Close()
		return nil, err
	}
	if cipher == nil {
		log.Warn("Token encryption key not set; OAuth tokens are stored unencrypted")
	}

	states := app.stateStore(ctx)

	var audit repository.IPublishAudit
	if client, err := persistence.NewMongoDb(ctx, cfg.Database.Mongo); err != nil {
		log.WithField("error", err).Warn("MongoDB not available - continuing without the attempt audit log")
	} else if client != nil {
		app.mongo = client
		app.closers = append(app.closers, func() { _ = client.Disconnect(context.Background()) })
		auditRepo := persistence.NewPublishAuditRepository(client, cfg.Database.Mongo.Name)
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			log.WithField("error", err).Warn("Failed to ensure audit indexes")
		}
		audit = auditRepo
	}

	notifiers := []repository.IPublishNotifier{app.hub}
	if client, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID); err != nil {
		log.WithField("error", err).Warn("PubSub not available - continuing without result events")
	} else if client != nil {
		app.events = pubsub.NewEventPublisher(client, cfg.Pubsub.Topic)
		app.closers = append(app.closers, func() {
			app.events.Stop()
			_ = client.Close()
		})
		notifiers = append(notifiers, app.events)
	}
	if client, err := servicebus.NewServiceBus(cfg.ServiceBus.Namespace); err != nil {
		log.WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus events")
	} else if client != nil {
		app.closers = append(app.closers, func() { _ = client.Close(context.Background()) })
		notifiers = append(notifiers, servicebus.NewEventSender(client, cfg.ServiceBus.Queue))
	}

	posts := persistence.NewPostRepository(db)
	jobs := persistence.NewPublishJobRepository(db)
	results := persistence.NewPublishResultRepository(db)
	creds := persistence.NewCredentialRepository(db, cipher)

	platforms := platform.NewRegistry(platform.Options{
		HTTPClient: &http.Client{Timeout: cfg.Publish.CallTimeout},
	})
	oauthRegistry := configuration.NewOAuthRegistry(cfg)
	log.WithField("platforms", model.PlatformStrings(oauthRegistry.ListConfigured())).Info("OAuth platforms configured")

	app.oauth = usecase.NewOAuthUsecase(oauthRegistry, states, creds, platforms, cfg.Publish.OAuthHTTPTimeout)
	app.publish = usecase.NewPublishUsecase(
		posts, jobs, results, audit,
		app.oauth, platforms, media.NewPreparer(),
		ratelimit.New(cfg.Publish.GlobalConcurrency, cfg.Publish.PlatformRatePerSecond, cfg.Publish.PlatformBurst),
		usecase.PublishSettings{
			CallTimeout:       cfg.Publish.CallTimeout,
			PerJobConcurrency: cfg.Publish.PerJobConcurrency,
			LeaseDuration:     cfg.Scheduler.LeaseDuration,
			Retry: usecase.RetryPolicy{
				MaxAttempts: cfg.Scheduler.MaxAttempts,
				BackoffBase: cfg.Scheduler.BackoffBase,
				BackoffMax:  cfg.Scheduler.BackoffMax,
			},
		},
		notifiers...,
	)
	app.scheduler = usecase.NewSchedulerUsecase(posts, jobs, app.publish, usecase.SchedulerSettings{
		SweepInterval: cfg.Scheduler.SweepInterval,
		PollInterval:  cfg.Scheduler.PollInterval,
		Workers:       cfg.Scheduler.Workers,
		BatchSize:     cfg.Scheduler.BatchSize,
		LeaseDuration: cfg.Scheduler.LeaseDuration,
		MaxAttempts:   cfg.Scheduler.MaxAttempts,
	})
	return app, nil
}

// stateStore prefers Redis so several instances share OAuth state, and falls
// back to the in-process cache.
func (a *application) stateStore(ctx context.Context) repository.IStateStore {
	if a.cfg.RedisClient.Host != "" {
		client, err := cache.NewCache(ctx,
			net.JoinHostPort(a.cfg.RedisClient.Host, a.cfg.RedisClient.Port),
			a.cfg.RedisClient.Username,
			a.cfg.RedisClient.Password,
		)
		if err == nil {
			a.redis = client
			a.closers = append(a.closers, func() { _ = client.Close() })
			return cache.NewRedisStateStore(client, cache.StateKeyPrefix)
		}
		logger.GetLogger().WithField("error", err).Warn("Redis not available - OAuth state kept in memory")
	}
	return cache.NewMemoryStateStore(model.AuthorizationStateTTL)
}

func (a *application) router() *gin.Engine {
	var metricsHandler http.Handler
	if !a.cfg.Metrics.Disabled {
		h, err := metrics.Register(prometheus.DefaultRegisterer)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed to register metrics")
		} else {
			metricsHandler = h
		}
	}

	deps := map[string]httpHandler.Pinger{"postgres": a.db}
	if a.redis != nil {
		deps["redis"] = httpHandler.PingerFunc(func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
	}
	if a.mongo != nil {
		deps["mongo"] = httpHandler.PingerFunc(func(ctx context.Context) error { return a.mongo.Ping(ctx, readpref.Primary()) })
	}

	return server.InitiateRouter(
		httpHandler.NewOAuthHandler(a.oauth, a.cfg.App.FrontendURL),
		httpHandler.NewPostHandler(a.publish),
		httpHandler.NewPublishHandler(a.publish, a.scheduler, a.oauth),
		httpHandler.NewHealthHandler(deps),
		a.hub.Serve,
		server.Options{
			SecretKey:      a.cfg.App.SecretKey,
			AllowedOrigins: a.cfg.App.AllowedOrigins,
			Metrics:        metricsHandler,
			MetricsPath:    a.cfg.Metrics.Path,
		},
	)
}

// Close releases connections in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	logger.GetLogger().WithField("at", time.Now().UTC()).Info("Application resources released")
}
