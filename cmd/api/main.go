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

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/darzi-studio/api/internal/handlers"
	"github.com/darzi-studio/api/internal/notify"
	"github.com/darzi-studio/api/internal/platform/config"
	pfirestore "github.com/darzi-studio/api/internal/platform/firestore"
	"github.com/darzi-studio/api/internal/platform/idempotency"
	"github.com/darzi-studio/api/internal/platform/observability"
	platformstorage "github.com/darzi-studio/api/internal/platform/storage"
	"github.com/darzi-studio/api/internal/repositories"
	firestoreRepo "github.com/darzi-studio/api/internal/repositories/firestore"
	"github.com/darzi-studio/api/internal/services"
)

const (
	shutdownGrace         = 15 * time.Second
	submissionRateLimit   = 10
	submissionRateWindow  = time.Minute
	cleanupRunTimeout     = 5 * time.Second
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := services.BuildInfo{
		Version:     envOrDefault("SERVICE_VERSION", "dev"),
		CommitSHA:   os.Getenv("COMMIT_SHA"),
		Environment: envOrDefault("ENVIRONMENT", "local"),
		StartedAt:   startedAt,
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	blobs, err := platformstorage.NewGCSStore(storageClient)
	if err != nil {
		logger.Fatal("failed to initialise blob store", zap.Error(err))
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}()

	ordersTopic := pubsubClient.Topic(cfg.PubSub.OrdersTopic)
	defer ordersTopic.Stop()

	eventPublisher, err := notify.NewPubSubOrderPublisher(ordersTopic)
	if err != nil {
		logger.Fatal("failed to initialise order event publisher", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close error", zap.Error(err))
		}
	}()

	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	counterRepo, err := firestoreRepo.NewCounterRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise counter repository", zap.Error(err))
	}

	healthRepo, err := repositories.NewDependencyHealthRepository(healthChecks(
		firestoreClient, redisClient, storageClient, ordersTopic, cfg,
	))
	if err != nil {
		logger.Fatal("failed to initialise health repository", zap.Error(err))
	}

	var signedURLs services.SignedURLIssuer
	if cfg.Storage.SignerKeyFile != "" {
		signer, err := platformstorage.NewServiceAccountSignerFromFile(cfg.Storage.SignerKeyFile)
		if err != nil {
			logger.Fatal("failed to load signing key", zap.Error(err))
		}
		signingClient, err := platformstorage.NewClient(signer)
		if err != nil {
			logger.Fatal("failed to initialise url signer", zap.Error(err))
		}
		signedURLs = signingClient
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:            orderRepo,
		Counters:          counterRepo,
		Attachments:       blobs,
		AttachmentsBucket: cfg.Storage.AttachmentsBucket,
		Events:            eventPublisher,
		SignedURLs:        signedURLs,
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			observability.FromContext(ctx).Warn(event, zap.Any("fields", fields))
		},
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	invoiceService, err := services.NewInvoiceService(services.InvoiceServiceDeps{
		Orders: orderRepo,
		Blobs:  blobs,
		Bucket: cfg.Storage.InvoicesBucket,
	})
	if err != nil {
		logger.Fatal("failed to initialise invoice service", zap.Error(err))
	}

	systemService, err := services.NewSystemService(services.SystemServiceDeps{
		Health: healthRepo,
		Build:  buildInfo,
	})
	if err != nil {
		logger.Fatal("failed to initialise system service", zap.Error(err))
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMW := idempotency.Middleware(idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithMethods(http.MethodPost),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)
	stopCleanup := startIdempotencyCleanup(ctx, logger, idempotencyStore, cfg.Idempotency)
	defer stopCleanup()

	orderHandlers := handlers.NewOrderHandlers(orderService,
		handlers.WithSubmissionRateLimit(submissionRateLimit, submissionRateWindow, nil))
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceService)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(systemService),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithOrderMiddlewares(idempotencyMW),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithInvoiceRoutes(invoiceHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("version", buildInfo.Version),
			zap.String("environment", buildInfo.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal("server failed", zap.Error(err))
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func healthChecks(
	firestoreClient *firestore.Client,
	redisClient *redis.Client,
	storageClient *cloudstorage.Client,
	topic *pubsub.Topic,
	cfg config.Config,
) []repositories.DependencyCheck {
	return []repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				iter := firestoreClient.Collections(ctx)
				if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
					return err
				}
				return nil
			},
		},
		{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
		{
			Name: "storage",
			Check: func(ctx context.Context) error {
				_, err := storageClient.Bucket(cfg.Storage.AttachmentsBucket).Attrs(ctx)
				return err
			},
		},
		{
			Name: "pubsub",
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", topic.ID())
				}
				return nil
			},
		},
	}
}

// startIdempotencyCleanup purges expired idempotency records on a fixed
// interval until the returned stop function is called.
func startIdempotencyCleanup(ctx context.Context, logger *zap.Logger, store *idempotency.FirestoreStore, cfg config.IdempotencyConfig) func() {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		return func() {}
	}
	batch := cfg.CleanupBatchSize

	cleanupCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				runCtx, runCancel := context.WithTimeout(cleanupCtx, cleanupRunTimeout)
				removed, err := store.CleanupExpired(runCtx, time.Now(), batch)
				runCancel()
				if err != nil {
					logger.Warn("idempotency cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Debug("idempotency records purged", zap.Int("count", removed))
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
