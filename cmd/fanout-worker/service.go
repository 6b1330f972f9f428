package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crewdeck-app/crewdeck-backend/internal/fanout"
	"github.com/crewdeck-app/crewdeck-backend/internal/ops"
	"github.com/crewdeck-app/crewdeck-backend/pkg/config"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore/firestore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/pubsub"
	"github.com/crewdeck-app/crewdeck-backend/pkg/redis"
)

type ServiceParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Store    *firestore.Client
	Redis    *redis.Client
	PubSub   *pubsub.Client
	Consumer *fanout.Consumer
	Registry *prometheus.Registry
}

type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	store    *firestore.Client
	redis    *redis.Client
	pubsub   *pubsub.Client
	consumer *fanout.Consumer
	registry *prometheus.Registry
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Store == nil {
		return nil, errors.New("document store client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("fanout consumer is required")
	}

	return &Service{
		cfg:      params.Config,
		logg:     params.Logger,
		store:    params.Store,
		redis:    params.Redis,
		pubsub:   params.PubSub,
		consumer: params.Consumer,
		registry: params.Registry,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "document store", s.store.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	checks := []ops.ReadyCheck{
		{Name: "document store", Check: s.store.Ping},
		{Name: "redis", Check: s.redis.Ping},
		{Name: "pubsub", Check: s.pubsub.Ping},
	}
	opsHandler := ops.NewRouter(s.cfg, s.logg, s.registry, checks)

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()
	go func() {
		errCh <- ops.Serve(ctx, s.cfg, s.logg, opsHandler)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "worker component stopped unexpectedly", err)
				return err
			}
			return err
		}
	}
}
