package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tournevent/sendcloud-bridge/internal/config"
	"github.com/tournevent/sendcloud-bridge/internal/fulfillment"
	"github.com/tournevent/sendcloud-bridge/internal/telemetry"
	"github.com/tournevent/sendcloud-bridge/internal/webhook"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper/manual"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper/sendcloud"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// app wires the components shared by every command.
type app struct {
	cfg        *config.Config
	logger     *otelzap.Logger
	registry   *shipper.Registry
	store      fulfillment.Store
	service    *fulfillment.Service
	reconciler *webhook.Reconciler

	closers []func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Initialize telemetry
	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	tracer, shutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		tracer = otel.Tracer(cfg.ServiceName)
	} else {
		a.closers = append(a.closers, shutdown)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	registry, err := initShipperRegistry(cfg, logger, tracer)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.registry = registry

	store, err := initStore(cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.store = store
	if rs, ok := store.(*fulfillment.RedisStore); ok {
		a.closers = append(a.closers, func(context.Context) error { return rs.Close() })
	}

	a.service = fulfillment.NewService(registry, store, logger, metrics)
	a.reconciler = webhook.New(webhook.Config{
		SecretKey:       cfg.SendcloudSecretKey,
		VerifySignature: cfg.SendcloudVerifySignature,
	}, a.service, logger, metrics)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Shutdown step failed", zap.Error(err))
		}
	}
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return otel.Tracer(cfg.ServiceName), func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
}

func initShipperRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) (*shipper.Registry, error) {
	registry := shipper.NewRegistry()

	if cfg.SendcloudEnabled {
		sc, err := sendcloud.New(sendcloud.Config{
			PublicKey: cfg.SendcloudPublicKey,
			SecretKey: cfg.SendcloudSecretKey,
			BaseURL:   cfg.SendcloudBaseURL,
			Timeout:   cfg.SendcloudTimeout,
			UseMock:   cfg.SendcloudUseMock,
		}, logger, tracer)
		if err != nil {
			return nil, fmt.Errorf("initializing sendcloud: %w", err)
		}
		registry.Register(sc)
	}

	if cfg.ManualEnabled {
		registry.Register(manual.New(manual.ProviderName))
	}

	return registry, nil
}

func initStore(cfg *config.Config) (fulfillment.Store, error) {
	if cfg.RedisURL == "" {
		return fulfillment.NewMemoryStore(), nil
	}
	return fulfillment.NewRedisStore(cfg.RedisURL, cfg.StatusTTL)
}
