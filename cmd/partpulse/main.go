// Command partpulse serves the PartPulse HTTP API.
//
// @title                       PartPulse API
// @version                     1.0
// @description                 Internal transfers, warranty claims and their PDF records for field technicians.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	_ "github.com/partpulse/partpulse/docs"
	"github.com/partpulse/partpulse/internal/api"
	"github.com/partpulse/partpulse/internal/api/handler"
	"github.com/partpulse/partpulse/internal/api/middleware"
	"github.com/partpulse/partpulse/internal/core/ports"
	"github.com/partpulse/partpulse/internal/core/service"
	"github.com/partpulse/partpulse/internal/infrastructure/config"
	"github.com/partpulse/partpulse/internal/infrastructure/db/mongo"
	"github.com/partpulse/partpulse/internal/infrastructure/db/postgres"
	redisdb "github.com/partpulse/partpulse/internal/infrastructure/db/redis"
	"github.com/partpulse/partpulse/internal/infrastructure/email"
	"github.com/partpulse/partpulse/internal/infrastructure/queue"
	"github.com/partpulse/partpulse/internal/infrastructure/storage"
	"github.com/partpulse/partpulse/internal/pdf"
	"github.com/partpulse/partpulse/pkg/logger"
)

const (
	tokenTTL        = 8 * time.Hour
	shutdownTimeout = 15 * time.Second
	workerCount     = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.New(logger.Options{})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty || cfg.IsDevelopment(),
		Service: "partpulse",
	})

	missing := cfg.MissingRequired()
	if len(missing) > 0 {
		log.Error().Strs("missing", missing).Msg("required configuration missing")
	}

	authRate, err := parseRate(cfg.RateLimit.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("RATE_LIMIT_AUTH")
	}
	apiRate, err := parseRate(cfg.RateLimit.API)
	if err != nil {
		log.Fatal().Err(err).Msg("RATE_LIMIT_API")
	}

	// --- PostgreSQL ---
	pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()
	if err := postgres.ApplyMigrations(pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	// --- Redis (optional) ---
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rcfg := redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB}
		rdb, err = redisdb.Connect(ctx, rcfg)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache and broker")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// --- MongoDB (optional system-log store) ---
	var mdb *mongodrv.Database
	var logRepo ports.SystemLogRepository = postgres.NewSystemLogRepository(pool)
	if strings.EqualFold(cfg.SystemLogStore, "mongo") {
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "partpulse"})
		if err != nil {
			log.Fatal().Err(err).Msg("connect to mongo")
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		repo := mongo.NewSystemLogRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("mongo system log indexes")
		}
		mdb = db
		logRepo = repo
	}

	audit := service.NewSystemLogger(logRepo, logger.Component(log, "system_log"))

	// --- Storage ---
	store, err := storage.New(ctx, storage.Config{
		Provider:  cfg.Storage.Provider,
		LocalPath: cfg.Storage.LocalPath,
		PublicURL: cfg.Storage.PublicURL,
		S3: storage.S3Config{
			Bucket:          cfg.Storage.S3Bucket,
			Region:          cfg.Storage.S3Region,
			Endpoint:        cfg.Storage.S3Endpoint,
			AccessKeyID:     cfg.Storage.S3AccessKeyID,
			SecretAccessKey: cfg.Storage.S3SecretAccessKey,
			UseSSL:          cfg.Storage.S3UseSSL,
			PublicURL:       cfg.Storage.S3PublicURL,
		},
	}, logger.Component(log, "storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}

	// --- Email ---
	sender := email.NewSender(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		User:     cfg.Email.User,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		StartTLS: cfg.Email.StartTLS,
		Disabled: cfg.IsTest() || strings.EqualFold(cfg.Email.Mode, email.ModeDisabled),
	}, logger.Component(log, "email"))
	var mailCheck handler.MailVerifier
	if sender.Enabled() {
		mailCheck = sender
	}
	delivery := service.NewEmailDelivery(sender, store, audit, logger.Component(log, "email_delivery"))

	var (
		emailQueue ports.EmailQueue
		worker     *queue.Worker
		dispatcher *queue.Dispatcher
	)
	if rdb != nil {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB}
		enq := queue.NewAsynqEnqueuer(redisOpt, logger.Component(log, "email_queue"))
		defer enq.Close()
		emailQueue = enq

		worker = queue.NewWorker(redisOpt, delivery, workerCount, logger.Component(log, "email_worker"))
		if err := worker.Start(); err != nil {
			log.Fatal().Err(err).Msg("start email worker")
		}
	} else {
		dispatcher = queue.NewDispatcher(delivery, queue.DispatcherOptions{}, logger.Component(log, "email_queue"))
		// Workers outlive the signal so Stop can drain buffered jobs.
		dispatcher.Start(context.WithoutCancel(ctx))
		emailQueue = dispatcher
	}

	// --- PDF ---
	registry, err := pdf.NewRegistry(cfg.PDFTemplateDir, logger.Component(log, "pdf"))
	if err != nil {
		log.Fatal().Err(err).Msg("load pdf templates")
	}
	go func() {
		if err := registry.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("pdf template watcher stopped")
		}
	}()
	generator := pdf.NewGenerator(registry, logger.Component(log, "pdf"))

	// --- Services ---
	var cache ports.Cache
	if rdb != nil {
		cache = redisdb.NewCache(rdb)
	}

	users := postgres.NewUserRepository(pool)
	invitations := postgres.NewInvitationRepository(pool)
	transfers := postgres.NewTransferRepository(pool)
	claims := postgres.NewClaimRepository(pool)

	notifier := service.NewNotifier(emailQueue, audit, service.NotifierConfig{AdminEmail: cfg.AdminEmail}, logger.Component(log, "notifier"))
	docs := service.NewDocumentService(transfers, claims, generator, store, audit, logger.Component(log, "documents"))

	svc := api.Services{
		Auth: service.NewAuthService(users, invitations, notifier, audit, service.AuthConfig{
			JWTSecret: cfg.AuthSecret,
			TokenTTL:  tokenTTL,
			AppURL:    cfg.AppURL,
		}, logger.Component(log, "auth")),
		Transfers: service.NewTransferService(transfers, docs, notifier, audit, cache, logger.Component(log, "transfers")),
		Claims:    service.NewClaimService(claims, docs, notifier, audit, cache, logger.Component(log, "claims")),
		Documents: docs,
		Admin:     service.NewAdminService(users, invitations, logRepo, audit, logger.Component(log, "admin")),
		Reports:   service.NewReportService(transfers, claims, cache, logger.Component(log, "reports")),
	}

	limiterStore, err := middleware.NewLimiterStore(rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("init rate limiter")
	}

	var storagePath string
	if strings.EqualFold(cfg.Storage.Provider, storage.ProviderLocal) || cfg.Storage.Provider == "" {
		storagePath = cfg.Storage.LocalPath
	}

	e := api.NewRouter(api.RouterConfig{
		JWTSecret:    cfg.AuthSecret,
		Env:          cfg.Env,
		MissingVars:  missing,
		LimiterStore: limiterStore,
		AuthRate:     authRate,
		APIRate:      apiRate,
		StoragePath:  storagePath,
		StorageURL:   cfg.Storage.PublicURL,
	}, svc, api.Dependencies{
		Postgres: pool,
		Redis:    rdb,
		Mongo:    mdb,
		Mail:     mailCheck,
	}, logger.Component(log, "http"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if worker != nil {
		worker.Shutdown()
	}
	if dispatcher != nil {
		dispatcher.Stop()
	}
	log.Info().Msg("server stopped")
}

func parseRate(s string) (limiter.Rate, error) {
	limit, period, err := config.ParseRate(s)
	if err != nil {
		return limiter.Rate{}, err
	}
	return limiter.Rate{Formatted: s, Limit: limit, Period: period}, nil
}
