package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"story-server/internal/catalog"
	"story-server/internal/config"
	"story-server/internal/database"
	"story-server/internal/platform"
	"story-server/internal/reference"
	"story-server/internal/repository"
	"story-server/internal/service"

	"go.uber.org/zap"
)

// app holds the wired components shared by the commands.
type app struct {
	catalog   *catalog.Store
	documents *reference.Documents
	generator *service.GenerationService
	stories   *service.StoryService

	closers []func()
}

func retryPolicy(cfg *config.Config) platform.RetryPolicy {
	return platform.RetryPolicy{Attempts: cfg.ConnectMaxAttempts, Delay: cfg.ConnectRetryDelay}
}

func newCatalog(cfg *config.Config, logger *zap.Logger) *catalog.Store {
	return catalog.NewStore(cfg.ConfigsDir, cfg.PromptsDir, cfg.DefaultConfigName, cfg.DefaultPromptName, logger)
}

func newDocuments(cfg *config.Config, logger *zap.Logger) *reference.Documents {
	return reference.NewDocuments(cfg.ReferenceDBPath, cfg.EnumsPath, cfg.TaxonomiesPath, logger)
}

// newApp connects the configured story store and event publisher and
// builds the services on top of them.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		catalog:   newCatalog(cfg, logger),
		documents: newDocuments(cfg, logger),
	}

	repo, err := a.connectStoryRepository(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.connectNotifier(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.generator = service.NewGenerationService(a.catalog, nil, notifier, cfg.AITimeout, logger)
	a.stories = service.NewStoryService(repo, notifier, logger)
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) connectStoryRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.StoryRepository, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		client, err := platform.ConnectRedis(ctx, cfg, retryPolicy(cfg), logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return repository.NewRedisStoryRepository(client, cfg.RedisKeyPrefix, logger), nil

	case config.StoreBackendPostgres:
		pool, err := platform.ConnectPostgres(ctx, cfg, retryPolicy(cfg), logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := database.ApplyMigrations(pool, logger); err != nil {
			return nil, err
		}
		return repository.NewPgStoryRepository(pool, logger), nil

	default:
		if err := repository.EnsureStoryFile(cfg.SavedStoriesPath); err != nil {
			return nil, fmt.Errorf("failed to create story file %s: %w", cfg.SavedStoriesPath, err)
		}
		return repository.NewFileStoryRepository(cfg.SavedStoriesPath, logger), nil
	}
}

func (a *app) connectNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Notifier, error) {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set, story events are disabled")
		return service.NewNoopNotifier(), nil
	}

	conn, err := platform.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, retryPolicy(cfg), logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = conn.Close() })

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	a.closers = append(a.closers, func() { _ = ch.Close() })

	return service.NewRabbitMQNotifier(ch, cfg.StoryEventsQueue, logger)
}

// startupCheck verifies the on-disk layout the server depends on.
func startupCheck(cfg *config.Config, logger *zap.Logger) error {
	var errs []error
	if err := newCatalog(cfg, logger).Check(); err != nil {
		errs = append(errs, err)
	}
	if err := newDocuments(cfg, logger).Check(); err != nil {
		errs = append(errs, err)
	}
	if cfg.StoreBackend == config.StoreBackendFile {
		if _, err := os.Stat(cfg.SavedStoriesPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("story file %s: %w", cfg.SavedStoriesPath, err))
		}
	}
	return errors.Join(errs...)
}
