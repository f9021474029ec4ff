package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sinzn/dbDrive/internal/config"
	apphttp "github.com/sinzn/dbDrive/internal/http"
	"github.com/sinzn/dbDrive/internal/metrics"
	"github.com/sinzn/dbDrive/internal/repository/sqlite"
	"github.com/sinzn/dbDrive/internal/service"
	"github.com/sinzn/dbDrive/internal/session"
	"github.com/sinzn/dbDrive/internal/storage"
	"github.com/sinzn/dbDrive/internal/sweeper"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(ctx, db, logger); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.New()
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	store, closeStore, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}
	defer closeStore()
	sessions := session.NewAuthority(store, cfg.Session.TTL)

	userService := service.NewUserService(sqlite.NewUserRepository(db), service.UserOptions{
		BcryptCost:         cfg.Auth.BcryptCost,
		MinPasswordLength:  cfg.Auth.MinPasswordLength,
		AllowRoleSelection: cfg.Auth.AllowRoleSelection,
	})
	fileService := service.NewFileService(sqlite.NewFileRepository(db), storageSvc, logger, rec)

	if cfg.Auth.AdminUsername != "" {
		admin, created, err := userService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
		if err != nil {
			logger.Fatalf("bootstrap admin: %v", err)
		}
		if created {
			logger.WithField("user_id", admin.ID).Infof("created admin account %s", admin.Username)
		}
	}

	purger, _ := store.(session.Purger)
	sweep := sweeper.New(sweeper.Config{
		Interval: cfg.Sweeper.Interval,
		Grace:    cfg.Sweeper.Grace,
		Logger:   logger,
	}, fileService, purger, rec)
	if err := sweep.Start(ctx); err != nil {
		logger.Fatalf("start sweeper: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.Server.MaxMultipartMemory << 20
	handler := apphttp.NewHandler(userService, fileService, sessions, apphttp.Options{
		Cookie: session.CookieOptions{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
		},
		MinPasswordLength:  cfg.Auth.MinPasswordLength,
		AllowRoleSelection: cfg.Auth.AllowRoleSelection,
		Logger:             logger,
		Metrics:            rec,
	})
	if err := handler.RegisterRoutes(router); err != nil {
		logger.Fatalf("register routes: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	sweep.Shutdown()

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.LogConfig) {
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Backend != "s3" {
		logger.Infof("storing uploads under %s", cfg.Storage.Local.Root)
		return storage.NewLocalService(cfg.Storage.Local.Root)
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.S3.Bucket, cfg.Storage.S3.Region)
	return storage.NewS3Service(client, cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix)
}

func buildSessionStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (session.Store, func(), error) {
	noop := func() {}

	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
		}
		logger.Infof("sessions stored in redis at %s", cfg.Redis.Addr)
		return session.NewRedisStore(client), func() { client.Close() }, nil
	case "jwt":
		store, err := session.NewJWTStore(cfg.Session.JWTSecret)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("sessions issued as signed tokens")
		return store, noop, nil
	default:
		logger.Info("sessions kept in memory")
		return session.NewMemoryStore(), noop, nil
	}
}
