package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Carrier  CarrierConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	S3       S3Config
	Worker   WorkerConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"SERVER_PORT" default:"8080"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `envconfig:"DB_HOST" default:"localhost"`
	Port            int    `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"postgres"`
	Password        string `envconfig:"DB_PASSWORD"`
	Database        string `envconfig:"DB_NAME" default:"bookshop"`
	SSLMode         string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConnections  int    `envconfig:"DB_MAX_CONNECTIONS" default:"25"`
	MinConnections  int    `envconfig:"DB_MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime int    `envconfig:"DB_MAX_CONN_LIFETIME" default:"300"` // seconds
	AutoMigrate     bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// APIKey guards the admin back-office routes.
	APIKey string `envconfig:"API_KEY"`
	// CronSecret is the bearer token the scheduler presents to trigger reconciliation.
	CronSecret string `envconfig:"CRON_SECRET"`
}

// CarrierConfig holds Nova Poshta transport settings. Credentials and sender
// references live in the settings table so operators can change them without a redeploy.
type CarrierConfig struct {
	BaseURL             string        `envconfig:"NOVA_POSHTA_BASE_URL" default:"https://api.novaposhta.ua/v2.0/json/"`
	Timeout             time.Duration `envconfig:"NOVA_POSHTA_TIMEOUT" default:"15s"`
	CallDelay           time.Duration `envconfig:"NOVA_POSHTA_CALL_DELAY" default:"300ms"`
	ParcelWeightPerItem float64       `envconfig:"NOVA_POSHTA_WEIGHT_PER_ITEM" default:"0.5"`
}

// RedisConfig is optional; an empty URL disables the reconcile lock and settings cache.
type RedisConfig struct {
	URL         string        `envconfig:"REDIS_URL"`
	SettingsTTL time.Duration `envconfig:"REDIS_SETTINGS_TTL" default:"1m"`
	LockTTL     time.Duration `envconfig:"REDIS_LOCK_TTL" default:"30m"`
}

// KafkaConfig is optional; no brokers disables order event publishing.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_ORDER_TOPIC" default:"bookshop.orders"`
}

// S3Config holds AWS S3 configuration for promo code import files.
type S3Config struct {
	Enabled bool   `envconfig:"S3_ENABLED" default:"false"`
	Bucket  string `envconfig:"S3_BUCKET"`
	Region  string `envconfig:"S3_REGION" default:"eu-central-1"`
	Prefix  string `envconfig:"S3_PREFIX" default:"promo/"` // Path prefix within bucket
}

// WorkerConfig controls the background job runner.
type WorkerConfig struct {
	Interval time.Duration `envconfig:"WORKER_INTERVAL" default:"1h"`
	SweepAge time.Duration `envconfig:"WORKER_SWEEP_AGE" default:"10m"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	return load(true)
}

// LoadWithoutAuth loads configuration for binaries that serve no HTTP routes
// (worker, migrations, promo import), so API_KEY and CRON_SECRET may be unset.
func LoadWithoutAuth() (*Config, error) {
	return load(false)
}

func load(requireAuth bool) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(requireAuth); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(requireAuth bool) error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if requireAuth && c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if requireAuth && c.Auth.CronSecret == "" {
		return fmt.Errorf("cron secret is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Carrier.BaseURL == "" {
		return fmt.Errorf("carrier base URL is required")
	}

	if c.Carrier.Timeout <= 0 {
		return fmt.Errorf("carrier timeout must be positive")
	}

	if c.Carrier.ParcelWeightPerItem <= 0 {
		return fmt.Errorf("parcel weight per item must be positive")
	}

	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisEnabled reports whether a redis URL has been configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.URL) != ""
}

// KafkaEnabled reports whether order events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
