package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the jobmarket server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Notify    NotifyConfig
	Expiry    ExpiryConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

type RedisConfig struct {
	URL string
}

// CacheConfig controls read memoization. Timeout bounds every cache round-trip;
// when it expires the caller falls back to the database.
type CacheConfig struct {
	TTL     time.Duration
	Timeout time.Duration
}

type NotifyConfig struct {
	Driver       string
	Stream       string
	StreamMaxLen int64
	Workers      int
	QueueSize    int
	RatePerSec   float64
	Webhook      WebhookConfig
}

// WebhookConfig addresses the mailer's HTTP endpoint for the webhook driver.
type WebhookConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

type ExpiryConfig struct {
	Window        time.Duration
	SweepInterval time.Duration
	BatchSize     int
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

var validNotifyDrivers = map[string]bool{
	"redis":   true,
	"webhook": true,
	"log":     true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("JOBMARKET_PORT", 8080),
			Env:  envString("JOBMARKET_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			QueryTimeout:    envDuration("DATABASE_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Cache: CacheConfig{
			TTL:     envDuration("CACHE_TTL", time.Hour),
			Timeout: envDuration("CACHE_TIMEOUT", 250*time.Millisecond),
		},
		Notify: NotifyConfig{
			Driver:       envString("NOTIFY_DRIVER", "redis"),
			Stream:       envString("NOTIFY_STREAM", "notifications:application"),
			StreamMaxLen: int64(envInt("NOTIFY_STREAM_MAXLEN", 100000)),
			Workers:      envInt("NOTIFY_WORKERS", 4),
			QueueSize:    envInt("NOTIFY_QUEUE_SIZE", 1024),
			RatePerSec:   envFloat("NOTIFY_RATE_PER_SEC", 50),
			Webhook: WebhookConfig{
				URL:      os.Getenv("NOTIFY_WEBHOOK_URL"),
				Username: os.Getenv("NOTIFY_WEBHOOK_USERNAME"),
				Password: os.Getenv("NOTIFY_WEBHOOK_PASSWORD"),
				Timeout:  envDuration("NOTIFY_WEBHOOK_TIMEOUT", 10*time.Second),
			},
		},
		Expiry: ExpiryConfig{
			Window:        envDuration("EXPIRY_WINDOW", 30*24*time.Hour),
			SweepInterval: envDuration("EXPIRY_SWEEP_INTERVAL", 24*time.Hour),
			BatchSize:     envInt("EXPIRY_BATCH_SIZE", 500),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validNotifyDrivers[c.Notify.Driver] {
		return fmt.Errorf("NOTIFY_DRIVER must be one of redis, webhook, log; got %q", c.Notify.Driver)
	}
	if c.Notify.Driver == "webhook" && c.Notify.Webhook.URL == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL is required when NOTIFY_DRIVER=webhook")
	}
	if c.Notify.Workers <= 0 {
		return fmt.Errorf("NOTIFY_WORKERS must be positive, got %d", c.Notify.Workers)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}

	if c.Expiry.Window <= 0 {
		return fmt.Errorf("EXPIRY_WINDOW must be positive, got %s", c.Expiry.Window)
	}
	if c.Expiry.SweepInterval < 0 {
		return fmt.Errorf("EXPIRY_SWEEP_INTERVAL must not be negative, got %s", c.Expiry.SweepInterval)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
