package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/crewdeck-app/crewdeck-backend/internal/fanout"
	"github.com/crewdeck-app/crewdeck-backend/pkg/config"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore/firestore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/idempotency"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/metrics"
	"github.com/crewdeck-app/crewdeck-backend/pkg/pubsub"
	"github.com/crewdeck-app/crewdeck-backend/pkg/push"
	"github.com/crewdeck-app/crewdeck-backend/pkg/redis"
	"github.com/crewdeck-app/crewdeck-backend/pkg/secrets"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "fanout-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "fanout-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := firestore.New(ctx, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap document store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(ctx, "error closing document store", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	secretSource := secrets.NewEnvSource("")
	apiKey, err := secretSource.Get(ctx, cfg.Push.APIKeySecretName)
	if err != nil {
		logg.Error(ctx, "failed to resolve push api key", err)
		os.Exit(1)
	}

	pushOpts := []push.Option{}
	if cfg.Push.BaseURL != "" {
		pushOpts = append(pushOpts, push.WithBaseURL(cfg.Push.BaseURL))
	}
	pushClient, err := push.NewClient(cfg.Push.AppID, apiKey, pushOpts...)
	if err != nil {
		logg.Error(ctx, "failed to create push client", err)
		os.Exit(1)
	}

	ledger, err := idempotency.NewManager(redisClient, cfg.Eventing.NotificationLedgerTTL)
	if err != nil {
		logg.Error(ctx, "failed to create notification ledger", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	fanoutMetrics := metrics.NewFanoutMetrics(registry)

	processor, err := fanout.NewProcessor(store, pushClient, fanoutMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create fanout processor", err)
		os.Exit(1)
	}

	consumer, err := fanout.NewConsumer(pubsubClient.ChannelEventsSubscription(), ledger, processor, fanoutMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create fanout consumer", err)
		os.Exit(1)
	}

	svc, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		Store:    store,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
		Registry: registry,
	})
	if err != nil {
		logg.Error(ctx, "failed to assemble worker", err)
		os.Exit(1)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env}), "starting fanout worker")
	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shut down gracefully")
}
