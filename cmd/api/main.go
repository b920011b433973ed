package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/chocolog/api/internal/di"
	"github.com/chocolog/api/internal/handlers"
	"github.com/chocolog/api/internal/platform/auth"
	"github.com/chocolog/api/internal/platform/config"
	pfirestore "github.com/chocolog/api/internal/platform/firestore"
	"github.com/chocolog/api/internal/platform/jobs"
	"github.com/chocolog/api/internal/platform/observability"
	"github.com/chocolog/api/internal/repositories"
	firestoreRepo "github.com/chocolog/api/internal/repositories/firestore"
	"github.com/chocolog/api/internal/services"
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
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(startedAt)

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

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	var publisher services.EventPublisher
	var eventsTopic *pubsub.Topic
	if topicID := strings.TrimSpace(cfg.PubSub.EventsTopic); topicID != "" {
		projectID := strings.TrimSpace(cfg.PubSub.ProjectID)
		if projectID == "" {
			projectID = cfg.Firestore.ProjectID
		}
		pubsubClient, err := pubsub.NewClient(ctx, projectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()

		eventsTopic = pubsubClient.Topic(topicID)
		defer eventsTopic.Stop()

		publisher, err = jobs.NewPubSubEventPublisher(eventsTopic)
		if err != nil {
			logger.Fatal("failed to initialise event publisher", zap.Error(err))
		}
	} else {
		logger.Info("event publishing disabled, no topic configured")
	}

	healthRepo, err := newHealthRepository(firestoreClient, eventsTopic)
	if err != nil {
		logger.Fatal("failed to initialise health repository", zap.Error(err))
	}

	container, err := di.NewContainer(di.ContainerDeps{
		Config:    cfg,
		Registry:  registry,
		Logger:    logger,
		Publisher: publisher,
		Health:    healthRepo,
		Build:     buildInfo,
	})
	if err != nil {
		logger.Fatal("failed to assemble container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	tokenService, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		logger.Fatal("failed to initialise token service", zap.Error(err))
	}

	svc := container.Services
	router := handlers.NewRouter(handlers.RouterDeps{
		Health: handlers.NewHealthHandlers(
			handlers.WithHealthBuildInfo(buildInfo),
			handlers.WithHealthSystemService(svc.System),
		),
		Orders:    handlers.NewOrderHandlers(svc.Orders, svc.OrderItems, svc.Payments, svc.Events),
		Customers: handlers.NewCustomerHandlers(svc.Customers, svc.Orders, svc.Events),
		Stocks:    handlers.NewStockHandlers(svc.Inventory, svc.Events),
		Catalog:   handlers.NewCatalogHandlers(svc.Catalog, svc.Events),
		Employees: handlers.NewEmployeeHandlers(svc.Employees, svc.Events),
		AuditLogs: handlers.NewAuditLogHandlers(svc.Audit),

		Verifier: tokenService,
		Logger:   logger,

		RequestTimeout:  cfg.Server.WriteTimeout,
		RateLimit:       cfg.RateLimits.DefaultPerMinute,
		RateLimitWindow: time.Minute,
	})

	purgeCtx, purgeCancel := context.WithCancel(ctx)
	defer purgeCancel()
	purgeScheduler, err := jobs.NewPurgeScheduler(svc.Audit, cfg.Audit.PurgeHourUTC, logger.Named("audit-purge"))
	if err != nil {
		logger.Fatal("failed to initialise purge scheduler", zap.Error(err))
	}
	purgeScheduler.Start(purgeCtx)
	defer purgeScheduler.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("server failed", zap.Error(err))
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(os.Getenv("API_ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newHealthRepository(client *firestore.Client, topic *pubsub.Topic) (repositories.HealthRepository, error) {
	probes := make([]repositories.HealthProbe, 0, 2)
	if client != nil {
		c := client
		probes = append(probes, repositories.HealthProbe{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if topic != nil {
		t := topic
		probes = append(probes, repositories.HealthProbe{
			Name:    "pubsub",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := t.Exists(ctx)
				return err
			},
		})
	}
	return repositories.NewHealthRepository(probes)
}
