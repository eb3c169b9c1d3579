package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/quillhq/quill/pkg/api"
	"github.com/quillhq/quill/pkg/auth"
	"github.com/quillhq/quill/pkg/config"
	"github.com/quillhq/quill/pkg/maintenance"
	"github.com/quillhq/quill/pkg/notes"
	"github.com/quillhq/quill/pkg/observability"
	"github.com/quillhq/quill/pkg/storage"
	"github.com/quillhq/quill/pkg/todos"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quill: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)
	logger.WithField("environment", cfg.Server.Environment).Info("starting quill")

	ctx := context.Background()

	tracerProvider, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	userStore, err := auth.NewPostgresUserStore(db)
	if err != nil {
		return err
	}
	noteStore, err := notes.NewPostgresStore(db)
	if err != nil {
		return err
	}
	todoStore, err := todos.NewPostgresStore(db)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	var noteBackend notes.Store = noteStore
	if cfg.Cache.Enabled {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		noteBackend = notes.NewCachedStore(noteStore, redisClient, metrics, cfg.Cache.TTL)
		logger.Info("note cache enabled")
	}

	blobs, err := newBlobStorage(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	authService := auth.NewService(userStore, hasher, tokens, logger)
	noteService := notes.NewService(noteBackend, blobs, logger)
	todoService := todos.NewService(todoStore)

	server := api.NewServer(api.Deps{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		AuthService: authService,
		Tokens:      tokens,
		NoteService: noteService,
		TodoService: todoService,
	})

	checker := observability.NewHealthChecker(db, redisClient)
	checker.RegisterCheck("blob_storage", blobs.HealthCheck)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      api.NewHealthRouter(checker, metrics),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer(apiServer)
	shutdown.RegisterServer(healthServer)
	if tracerProvider != nil {
		shutdown.RegisterShutdownFunc(tracerProvider.Shutdown)
	}
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}

	if cfg.Maintenance.SweeperEnabled {
		sweeper := maintenance.NewSweeper(blobs, noteStore, logger, cfg.Maintenance.SweeperGrace)
		if err := sweeper.Start(cfg.Maintenance.SweeperSchedule); err != nil {
			return fmt.Errorf("failed to start blob sweeper: %w", err)
		}
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			sweeper.Stop()
			return nil
		})
		logger.WithField("schedule", cfg.Maintenance.SweeperSchedule).Info("blob sweeper enabled")
	}

	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	return group.Wait()
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newBlobStorage(ctx context.Context, cfg config.BlobConfig) (storage.BlobStorage, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3BlobStorage(ctx, storage.Config{
			Backend:        cfg.Backend,
			S3Endpoint:     cfg.S3Endpoint,
			S3Region:       cfg.S3Region,
			S3Bucket:       cfg.S3Bucket,
			S3AccessKey:    cfg.S3AccessKey,
			S3SecretKey:    cfg.S3SecretKey,
			S3UsePathStyle: cfg.S3UsePathStyle,
		})
	case "filesystem":
		return storage.NewFilesystemBlobStorage(cfg.FilesystemRoot)
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.Backend)
	}
}
