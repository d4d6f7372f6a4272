package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	proposalengine "fangov/contexts/governance/proposal-engine"
	"fangov/contexts/governance/proposal-engine/adapters/memory"
	metricsadapter "fangov/contexts/governance/proposal-engine/adapters/metrics"
	natsadapter "fangov/contexts/governance/proposal-engine/adapters/nats"
	postgresadapter "fangov/contexts/governance/proposal-engine/adapters/postgres"
	redisadapter "fangov/contexts/governance/proposal-engine/adapters/redis"
	textadapter "fangov/contexts/governance/proposal-engine/adapters/text"
	"fangov/contexts/governance/proposal-engine/application/workers"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	"fangov/contexts/governance/proposal-engine/ports"
	"fangov/internal/platform/config"
	"fangov/internal/platform/db"
	"fangov/internal/platform/httpserver"
	"fangov/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server  *httpserver.Server
	closers []func() error
	logger  *slog.Logger
}

type WorkerApp struct {
	outboxRelay  workers.OutboxRelay
	windowCloser workers.WindowCloser
	pollInterval time.Duration
	closers      []func() error
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context, cfg config.Config, logger *slog.Logger) (*APIApp, error) {
	logger = logger.With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metricsadapter.NewRecorder(registry)
	if err != nil {
		return nil, err
	}

	app := &APIApp{logger: logger}
	var module proposalengine.Module
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		logger.Warn("POSTGRES_DSN not set, serving from in-memory store",
			"event", "bootstrap_api_in_memory",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		module = buildMemoryModule(cfg, recorder, logger)
	} else {
		pg, err := db.Connect(ctx, cfg.PostgresDSN, db.DefaultPoolOptions())
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, pg.Close)

		var cache ports.SnapshotCache
		if strings.TrimSpace(cfg.RedisURL) != "" {
			client, err := newRedisClient(cfg.RedisURL)
			if err != nil {
				_ = app.Close()
				return nil, err
			}
			app.closers = append(app.closers, client.Close)
			cache = redisadapter.NewSnapshotCache(client, cfg.SnapshotCacheTTL)
		}

		module, _, err = buildPostgresModule(ctx, cfg, pg, cache, recorder, logger)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	app.server = httpserver.New(module, logger, httpserver.Options{
		Addr:           normalizeAddr(cfg.HTTPPort),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		JWTSecret:      []byte(cfg.JWTSecret),
		Gatherer:       registry,
	})
	return app, nil
}

func BuildWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) (*WorkerApp, error) {
	logger = logger.With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN, db.DefaultPoolOptions())
	if err != nil {
		return nil, err
	}
	app := &WorkerApp{
		pollInterval: cfg.WorkerPollInterval,
		closers:      []func() error{pg.Close},
		logger:       logger,
	}

	publisher, err := app.buildPublisher(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	module, repo, err := buildPostgresModule(ctx, cfg, pg, nil, nil, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	clock := postgresadapter.SystemClock{}
	app.outboxRelay = workers.OutboxRelay{
		Outbox:    repo,
		Publisher: publisher,
		Clock:     clock,
		BatchSize: cfg.OutboxBatchSize,
		Logger:    logger,
	}
	app.windowCloser = module.WindowCloser(repo, clock, cfg.OutboxBatchSize, logger)
	return app, nil
}

func buildPostgresModule(
	ctx context.Context,
	cfg config.Config,
	pg *db.Postgres,
	cache ports.SnapshotCache,
	metrics ports.Metrics,
	logger *slog.Logger,
) (proposalengine.Module, *postgresadapter.Repository, error) {
	repo := postgresadapter.NewRepository(pg.DB, logger)
	if err := repo.Migrate(ctx); err != nil {
		return proposalengine.Module{}, nil, fmt.Errorf("migrate proposal engine schema: %w", err)
	}
	module := proposalengine.NewModule(proposalengine.Dependencies{
		Store:                repo,
		Ledger:               repo,
		Quorum:               postgresadapter.NewQuorumPolicy(repo, cfg.DefaultQuorumBps),
		Cache:                cache,
		Sanitizer:            textadapter.NewStrictSanitizer(),
		Clock:                postgresadapter.SystemClock{},
		IDGen:                postgresadapter.UUIDGenerator{},
		Metrics:              metrics,
		Logger:               logger,
		EnforceVotingWindow:  cfg.EnforceVotingWindow,
		RejectZeroPowerVotes: cfg.RejectZeroPowerVotes,
	})
	return module, repo, nil
}

// buildMemoryModule applies the same config switches as the Postgres path,
// with the default quorum held by the store.
func buildMemoryModule(cfg config.Config, metrics ports.Metrics, logger *slog.Logger) proposalengine.Module {
	store := memory.NewStore()
	store.SetDefaultQuorum(entities.BpsToFraction(cfg.DefaultQuorumBps))
	return proposalengine.NewMemoryModule(store, proposalengine.Dependencies{
		Sanitizer:            textadapter.NewStrictSanitizer(),
		Metrics:              metrics,
		Logger:               logger,
		EnforceVotingWindow:  cfg.EnforceVotingWindow,
		RejectZeroPowerVotes: cfg.RejectZeroPowerVotes,
	})
}

func (w *WorkerApp) buildPublisher(ctx context.Context, cfg config.Config) (ports.EventPublisher, error) {
	switch cfg.EventBus {
	case config.EventBusRedis:
		client, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, client.Close)
		return redisadapter.NewStreamPublisher(client, cfg.EventSubjectPrefix, cfg.EventStreamMaxLen), nil
	case config.EventBusNATS:
		conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName+"-worker"))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		w.closers = append(w.closers, conn.Drain)
		js, err := jetstream.New(conn)
		if err != nil {
			return nil, fmt.Errorf("open jetstream: %w", err)
		}
		if _, err := natsadapter.EnsureStream(ctx, js, natsadapter.DefaultStreamName, cfg.EventSubjectPrefix); err != nil {
			return nil, fmt.Errorf("ensure jetstream stream: %w", err)
		}
		return natsadapter.NewJetStreamPublisher(js, cfg.EventSubjectPrefix), nil
	default:
		bus, err := newAuditedBus(ctx, w.logger)
		if err != nil {
			return nil, err
		}
		return bus, nil
	}
}

// newAuditedBus returns an in-process bus with the event auditor subscribed
// to every topic, so relayed rows have a consumer.
func newAuditedBus(ctx context.Context, logger *slog.Logger) (*messaging.Bus, error) {
	bus := messaging.NewBus(0, logger)
	auditor := workers.EventAuditor{Subscriber: bus, Logger: logger}
	if err := auditor.Start(ctx); err != nil {
		return nil, err
	}
	return bus, nil
}

func newRedisClient(rawURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(options), nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start(ctx)
}

func (a *APIApp) Close() error {
	return closeAll(a.closers)
}

// Run drives the outbox relay and the window closer on independent tickers
// until ctx is cancelled. A failed cycle is logged by the worker and retried
// on the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return poll(ctx, w.pollInterval, func(ctx context.Context) {
			_, _ = w.outboxRelay.RunOnce(ctx)
		})
	})
	group.Go(func() error {
		return poll(ctx, w.pollInterval, func(ctx context.Context) {
			_, _ = w.windowCloser.RunOnce(ctx)
		})
	})
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	return closeAll(w.closers)
}

func poll(ctx context.Context, interval time.Duration, cycle func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		cycle(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// closeAll releases resources in reverse acquisition order.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
