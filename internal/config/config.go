package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port               int      `envconfig:"PORT" default:"80" validate:"min=1,max=65535"`
	LogLevel           string   `envconfig:"LOG_LEVEL" default:"info"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Sendcloud
	SendcloudPublicKey       string        `envconfig:"SENDCLOUD_PUBLIC_KEY" validate:"required_if=SendcloudEnabled true SendcloudUseMock false"`
	SendcloudSecretKey       string        `envconfig:"SENDCLOUD_SECRET_KEY" validate:"required_if=SendcloudEnabled true SendcloudUseMock false,required_if=SendcloudVerifySignature true"`
	SendcloudBaseURL         string        `envconfig:"SENDCLOUD_BASE_URL" default:"https://panel.sendcloud.sc/api/v2" validate:"url"`
	SendcloudEnabled         bool          `envconfig:"SENDCLOUD_ENABLED" default:"true"`
	SendcloudUseMock         bool          `envconfig:"SENDCLOUD_USE_MOCK" default:"false"`
	SendcloudTimeout         time.Duration `envconfig:"SENDCLOUD_TIMEOUT" default:"0s" validate:"min=0"`
	SendcloudVerifySignature bool          `envconfig:"SENDCLOUD_VERIFY_SIGNATURE" default:"false"`

	// Manual fulfillment
	ManualEnabled bool `envconfig:"MANUAL_ENABLED" default:"true"`

	// Fulfillment status store
	RedisURL  string        `envconfig:"REDIS_URL" validate:"omitempty,url"`
	StatusTTL time.Duration `envconfig:"STATUS_TTL" default:"0s" validate:"min=0"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.claude.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"sendcloud-bridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration. Missing Sendcloud credentials are a
// startup failure when the real Sendcloud client is enabled.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("sendcloud.enabled", c.SendcloudEnabled),
		attribute.Bool("sendcloud.mock", c.SendcloudUseMock),
		attribute.Bool("manual.enabled", c.ManualEnabled),
		attribute.Bool("redis.enabled", c.RedisURL != ""),
	}
}
