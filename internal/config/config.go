package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	HTTPPort     string
	AppMode      string
	FiberPrefork bool

	LogLevel  string
	LogFormat string

	StorageBackend string
	BadgerPath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisNamespace string

	MaxActivityRecords  int
	RecentActivityLimit int
	Location            *time.Location

	ArchiveEnabled     bool
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ArchiveBufferSize  int
	ArchiveBatchSize   int
	ArchiveFlushEvery  time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:     getEnv("HTTP_PORT", ":8080"),
		AppMode:      strings.ToLower(getEnv("APP_MODE", "dev")),
		FiberPrefork: parseBoolEnv("FIBER_PREFORK", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "memory")),
		BadgerPath:     getEnv("BADGER_PATH", "./data/activity"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        parseIntEnv("REDIS_DB", 0),
		RedisNamespace: os.Getenv("REDIS_NAMESPACE"),

		MaxActivityRecords:  parseIntEnv("MAX_ACTIVITY_RECORDS", 10000),
		RecentActivityLimit: parseIntEnv("RECENT_ACTIVITY_LIMIT", 50),

		ArchiveEnabled:     parseBoolEnv("ARCHIVE_ENABLED", false),
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "default"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: os.Getenv("CLICKHOUSE_PASSWORD"),
		ArchiveBufferSize:  parseIntEnv("ARCHIVE_BUFFER_SIZE", 10000),
		ArchiveBatchSize:   parseIntEnv("ARCHIVE_BATCH_SIZE", 500),
		ArchiveFlushEvery:  parseDurationEnv("ARCHIVE_FLUSH_EVERY", 2*time.Second),
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	switch cfg.StorageBackend {
	case "memory", "badger":
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when STORAGE_BACKEND=redis")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	// Prefork children each run their own storage.Open; only redis is shared.
	if cfg.FiberPrefork && cfg.StorageBackend != "redis" {
		return nil, fmt.Errorf("FIBER_PREFORK requires STORAGE_BACKEND=redis, got %q", cfg.StorageBackend)
	}

	if cfg.MaxActivityRecords <= 0 {
		return nil, fmt.Errorf("MAX_ACTIVITY_RECORDS must be positive")
	}
	if cfg.ArchiveEnabled && (cfg.ArchiveBatchSize <= 0 || cfg.ArchiveFlushEvery <= 0) {
		return nil, fmt.Errorf("ARCHIVE_BATCH_SIZE and ARCHIVE_FLUSH_EVERY must be positive")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseBoolEnv(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseIntEnv(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
