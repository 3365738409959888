package config

import (
	"fmt"

	pkgconfig "github.com/nushungry/review-service/pkg/config"
	"github.com/nushungry/review-service/pkg/database"
)

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"REVIEW_HTTP_PORT" envDefault:"8084"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"nushungry"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"nushungry_secret"`
	PostgresDB   string `env:"REVIEW_DB_NAME" envDefault:"review_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	TopicNamespace string   `env:"KAFKA_TOPIC_NAMESPACE" envDefault:"nushungry"`

	// Catalog sync worker
	CatalogHTTPPort      int    `env:"CATALOG_SYNC_HTTP_PORT" envDefault:"8085"`
	CatalogConsumerGroup string `env:"CATALOG_SYNC_CONSUMER_GROUP" envDefault:"catalog-sync"`
	CatalogSummaryTTLH   int    `env:"CATALOG_SUMMARY_TTL_HOURS" envDefault:"168"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Observability
	SlowQueryThresholdMs int     `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`
	TracingEnabled       bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint         string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate      float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
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

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.TopicNamespace == "" {
		return fmt.Errorf("KAFKA_TOPIC_NAMESPACE must not be empty")
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("invalid trace sample rate: %f", c.TraceSampleRate)
	}
	return nil
}

// RedisConfig returns the Redis connection settings for the catalog sync worker.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
