package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	// Transport
	StreamKey        string        `yaml:"stream_key"`
	ConsumerGroup    string        `yaml:"consumer_group"` // prefix, each run appends its id
	PollInterval     time.Duration `yaml:"poll_interval"`
	BatchSize        int           `yaml:"batch_size"`
	PublishRateLimit int           `yaml:"publish_rate_limit"` // messages per second, 0 = unlimited

	// Retry policy shared by cache access and delivery
	RetryMaxAttempts int           `yaml:"retry_max_attempts"`
	RetryDelay       time.Duration `yaml:"retry_delay"`

	// Cache tiers, in megabytes. CacheDiskMB of 0 leaves the disk tier unbounded.
	CacheMemoryMB int    `yaml:"cache_memory_mb"`
	CacheRedisMB  int    `yaml:"cache_redis_mb"`
	CacheDiskMB   int    `yaml:"cache_disk_mb"`
	CacheKey      string `yaml:"cache_key"`

	// CompletionTimeout bounds the wait for the terminal message. Zero waits forever.
	CompletionTimeout time.Duration `yaml:"completion_timeout"`

	StatusAddr string `yaml:"status_addr"`
	LogLevel   string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		StreamKey:        "events",
		ConsumerGroup:    "eventinserter",
		PollInterval:     100 * time.Millisecond,
		BatchSize:        10,
		RetryMaxAttempts: 10,
		RetryDelay:       time.Second,
		CacheMemoryMB:    250,
		CacheRedisMB:     3 * 1024,
		CacheDiskMB:      100 * 1024,
		CacheKey:         "pending_timestamps",
		LogLevel:         "info",
	}
}

// Load reads configuration from an optional YAML file named by CONFIG_FILE
// and then from environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.StreamKey = getEnv("STREAM_KEY", cfg.StreamKey)
	cfg.ConsumerGroup = getEnv("CONSUMER_GROUP", cfg.ConsumerGroup)
	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", cfg.PollInterval)
	cfg.BatchSize = getEnvInt("BATCH_SIZE", cfg.BatchSize)
	cfg.PublishRateLimit = getEnvInt("PUBLISH_RATE_LIMIT", cfg.PublishRateLimit)
	cfg.RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.RetryDelay = getEnvDuration("RETRY_DELAY", cfg.RetryDelay)
	cfg.CacheMemoryMB = getEnvInt("CACHE_MEMORY_MB", cfg.CacheMemoryMB)
	cfg.CacheRedisMB = getEnvInt("CACHE_REDIS_MB", cfg.CacheRedisMB)
	cfg.CacheDiskMB = getEnvInt("CACHE_DISK_MB", cfg.CacheDiskMB)
	cfg.CacheKey = getEnv("CACHE_KEY", cfg.CacheKey)
	cfg.CompletionTimeout = getEnvDuration("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	cfg.StatusAddr = getEnv("STATUS_ADDR", cfg.StatusAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.StreamKey == "" {
		return fmt.Errorf("STREAM_KEY must not be empty")
	}
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 0, got %d", c.RetryMaxAttempts)
	}
	if c.CacheMemoryMB < 0 || c.CacheRedisMB < 0 || c.CacheDiskMB < 0 {
		return fmt.Errorf("cache tier sizes must be >= 0")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be > 0, got %d", c.BatchSize)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
