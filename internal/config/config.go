package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/review-service/pkg/config"
)

// Store drivers.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// EnvironmentTest is the only environment in which book verification may be
// switched off.
const EnvironmentTest = "test"

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int    `env:"PORT" envDefault:"3001"`
	HTTPHost string `env:"HOST" envDefault:"localhost"`

	// Storage
	StoreDriver         string        `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoAddress        string        `env:"MONGO_ADDRESS" envDefault:"mongodb://localhost:27017/reviewDb"`
	MongoDatabase       string        `env:"MONGO_DATABASE" envDefault:"reviewDb"`
	MongoConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"10s"`

	// Book catalog
	BookServiceURL           string        `env:"BOOK_SERVICE_URL" envDefault:"http://localhost:8081"`
	BookServiceTimeout       time.Duration `env:"BOOK_SERVICE_TIMEOUT" envDefault:"5s"`
	BookVerificationDisabled bool          `env:"BOOK_VERIFICATION_DISABLED" envDefault:"false"`

	// Kafka
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from the given variables only.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environ); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoAddress == "" {
			return fmt.Errorf("MONGO_ADDRESS is required")
		}
		if c.MongoConnectTimeout <= 0 {
			return fmt.Errorf("MONGO_CONNECT_TIMEOUT must be positive")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	}
	if u, err := url.Parse(c.BookServiceURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BOOK_SERVICE_URL must be an absolute URL, got %q", c.BookServiceURL)
	}
	if c.BookServiceTimeout <= 0 {
		return fmt.Errorf("BOOK_SERVICE_TIMEOUT must be positive")
	}
	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// SkipBookVerification reports whether the book existence check is bypassed.
// The flag is honored only in the test environment.
func (c *Config) SkipBookVerification() bool {
	return c.BookVerificationDisabled && c.Environment == EnvironmentTest
}

// SlowQueryThreshold returns the slow query logging threshold.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
