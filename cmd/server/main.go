package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	sharedauth "github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/auth"
	"github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/logging"
	"github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/pubsub"
	sharedserver "github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/server"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/config"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/content"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/httpapi"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/play"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/progress"
)

const serviceName = "chitas-progress"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	firestoreClient, err := newFirestoreClient(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("firestore init error: %w", err))
	}

	repo, flush := newRepository(cfg, firestoreClient, logger)

	loader, closeLoader, err := newContentLoader(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("content loader init error: %w", err))
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		panic(fmt.Errorf("publisher init error: %w", err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	progressService, err := progress.NewService(repo, progress.NewSystemClock(cfg.Timezone), progress.NewUUIDGenerator(), publisher, logger)
	if err != nil {
		panic(fmt.Errorf("progress service init error: %w", err))
	}

	playService, err := play.NewService(loader, progressService, logger, play.NewMetrics(registry), play.Config{
		FlipBackDelay: cfg.Games.FlipBackDelay,
	})
	if err != nil {
		panic(fmt.Errorf("play service init error: %w", err))
	}

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:     cfg.Auth.Mode,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := sharedserver.NewRouter(sharedserver.RouterConfig{
		Service:  serviceName,
		Version:  version,
		Registry: registry,
	}, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier))
			httpapi.RegisterRoutes(r, progressService, playService, logger)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("starting",
		slog.String("version", version),
		slog.String("datastore", string(cfg.DataStore)),
		slog.Bool("cloudSync", cfg.CloudSync),
		slog.String("contentSource", string(cfg.Content.Source)),
		slog.String("timezone", cfg.Timezone.String()))

	err = sharedserver.Run(ctx, srv, logger, func(context.Context) {
		flush()
		if err := publisher.Close(); err != nil {
			logger.Warn("publisher close failed", slog.Any("error", err))
		}
		closeLoader()
		if firestoreClient != nil {
			_ = firestoreClient.Close()
		}
	})
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newFirestoreClient(ctx context.Context, cfg config.Config) (*firestore.Client, error) {
	if !cfg.NeedsFirestore() {
		return nil, nil
	}
	if cfg.Firestore.EmulatorHost != "" {
		if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
			return nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
		}
	}

	var (
		client *firestore.Client
		err    error
	)
	if cfg.Firestore.Database != "" {
		client, err = firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, cfg.Firestore.Database)
	} else {
		client, err = firestore.NewClient(ctx, cfg.GCPProjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}

// newRepository picks the progress store. The returned func waits for pending cloud writes.
func newRepository(cfg config.Config, client *firestore.Client, logger *slog.Logger) (progress.Repository, func()) {
	switch {
	case cfg.DataStore == config.DataStoreFirestore:
		return progress.NewFirestoreRepository(client), func() {}
	case cfg.CloudSync:
		repo := progress.NewSyncRepository(progress.NewMemoryRepository(), progress.NewFirestoreRepository(client), logger)
		return repo, repo.Flush
	default:
		return progress.NewMemoryRepository(), func() {}
	}
}

func newContentLoader(ctx context.Context, cfg config.Config) (content.Loader, func(), error) {
	var (
		loader  content.Loader
		cleanup = func() {}
	)
	switch cfg.Content.Source {
	case config.ContentSourceGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		loader = content.NewGCSLoader(client, cfg.Content.Bucket, "content/")
		cleanup = func() { _ = client.Close() }
	default:
		loader = content.NewDirLoader(cfg.Content.Dir)
	}
	return content.NewCache(loader, cfg.Content.CacheTTL, nil), cleanup, nil
}

func newPublisher(cfg config.Config) (pubsub.Publisher, error) {
	if cfg.Events.NATSURL == "" {
		return pubsub.NewNoopPublisher(), nil
	}
	return pubsub.NewNATSPublisher(cfg.Events.NATSURL, serviceName)
}
