package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Storage drivers accepted by DATABASE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// Config holds all ingestion settings, populated from environment variables.
// Command-line flags may override individual fields before Validate is called.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string
	IngestDir      string

	BatchSize       int
	BatchRetryDepth int
	PreviewLength   int
	ProgressEvery   int

	// Station enrichment configuration.
	EnrichEnabled       bool
	EnrichTimeout       time.Duration
	EnrichRateLimit     time.Duration
	EnrichNegativeLimit int
	EnrichMaxAttempts   int
	EnrichNWSURL        string
	EnrichNWSPrefixes   []string
	EnrichAWCURL        string
	EnrichUserAgent     string

	SeedFile     string
	RejectReport string

	// Publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	MetricsAddr     string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseDriver: sharedcfg.EnvOrDefault("DATABASE_DRIVER", DriverPostgres),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		IngestDir:      os.Getenv("INGEST_DIR"),

		EnrichNWSURL:      sharedcfg.EnvOrDefault("ENRICH_NWS_URL", "https://api.weather.gov"),
		EnrichNWSPrefixes: splitList(sharedcfg.EnvOrDefault("ENRICH_NWS_PREFIXES", "K,P,TJ")),
		EnrichAWCURL:      sharedcfg.EnvOrDefault("ENRICH_AWC_URL", "https://aviationweather.gov"),
		EnrichUserAgent:   sharedcfg.EnvOrDefault("ENRICH_USER_AGENT", "emwin-ingest (ops@example.com)"),

		SeedFile:     os.Getenv("SEED_FILE"),
		RejectReport: os.Getenv("REJECT_REPORT"),

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "emwin-bulletins"),

		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(v)
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"BATCH_SIZE", 1000, &cfg.BatchSize},
		{"BATCH_RETRY_DEPTH", 1, &cfg.BatchRetryDepth},
		{"PREVIEW_LENGTH", 100, &cfg.PreviewLength},
		{"PROGRESS_EVERY", 10000, &cfg.ProgressEvery},
		{"ENRICH_NEGATIVE_LIMIT", 500, &cfg.EnrichNegativeLimit},
		{"ENRICH_MAX_ATTEMPTS", 3, &cfg.EnrichMaxAttempts},
	}
	for _, f := range ints {
		if *f.dst, err = parseInt(f.key, f.def); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"ENRICH_TIMEOUT", "5s", &cfg.EnrichTimeout},
		{"ENRICH_RATE_LIMIT", "1s", &cfg.EnrichRateLimit},
	}
	for _, f := range durations {
		if *f.dst, err = parseDuration(f.key, f.def); err != nil {
			return nil, err
		}
	}

	if cfg.EnrichEnabled, err = parseBool("ENRICH_ENABLED", true); err != nil {
		return nil, err
	}

	if err := cfg.validateSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the complete configuration, including requirements that
// flags may still satisfy after Load, such as DATABASE_URL.
func (c *Config) Validate() error {
	if err := c.validateSettings(); err != nil {
		return err
	}
	if c.DatabaseDriver != DriverMemory && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for driver %q", c.DatabaseDriver)
	}
	return nil
}

func (c *Config) validateSettings() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q: want postgres, mysql or memory", c.DatabaseDriver)
	}

	if c.BatchSize <= 0 {
		return errors.New("BATCH_SIZE must be positive")
	}
	if c.BatchRetryDepth < 0 {
		return errors.New("BATCH_RETRY_DEPTH must not be negative")
	}
	if c.PreviewLength < 0 {
		return errors.New("PREVIEW_LENGTH must not be negative")
	}
	if c.ProgressEvery <= 0 {
		return errors.New("PROGRESS_EVERY must be positive")
	}
	if c.EnrichTimeout <= 0 {
		return errors.New("ENRICH_TIMEOUT must be positive")
	}
	if c.EnrichRateLimit < 0 {
		return errors.New("ENRICH_RATE_LIMIT must not be negative")
	}
	if c.EnrichNegativeLimit <= 0 {
		return errors.New("ENRICH_NEGATIVE_LIMIT must be positive")
	}
	if c.EnrichMaxAttempts <= 0 {
		return errors.New("ENRICH_MAX_ATTEMPTS must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
