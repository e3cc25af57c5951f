package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const maxBatchSize = 1000

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	MongoURI        string
	MongoDatabase   string
	MongoTimeout    time.Duration
	ReportListLimit int

	RefreshInterval  time.Duration
	ViewProfilesFile string

	// Kafka is optional. With no brokers the ingest pipeline and snapshot
	// publishing are disabled.
	KafkaBrokers       []string
	KafkaReportsTopic  string
	KafkaClustersTopic string
	KafkaGroupID       string

	BatchSize          int
	BatchFlushInterval time.Duration

	RedisAddr        string
	RedisSnapshotKey string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	AuthJWTSecret string
}

// KafkaEnabled reports whether any brokers are configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mongoTimeout, err := parsePositiveDuration("MONGODB_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parsePositiveDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseIntInRange("BATCH_SIZE", 50, 1, maxBatchSize)
	if err != nil {
		return nil, err
	}
	listLimit, err := parseIntInRange("REPORT_LIST_LIMIT", 100, 1, 10000)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":5000"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MongoURI:        envOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   envOrDefault("MONGODB_DATABASE", "durjog"),
		MongoTimeout:    mongoTimeout,
		ReportListLimit: listLimit,

		RefreshInterval:  refreshInterval,
		ViewProfilesFile: os.Getenv("VIEW_PROFILES_FILE"),

		KafkaBrokers:       parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaReportsTopic:  envOrDefault("KAFKA_REPORTS_TOPIC", "emergency-reports"),
		KafkaClustersTopic: envOrDefault("KAFKA_CLUSTERS_TOPIC", "report-clusters"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "durjog-ingest"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisSnapshotKey: envOrDefault("REDIS_SNAPSHOT_KEY", "durjog:clusters:latest"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		AuthJWTSecret: os.Getenv("AUTH_JWT_SECRET"),
	}

	if !strings.HasPrefix(cfg.MongoURI, "mongodb://") && !strings.HasPrefix(cfg.MongoURI, "mongodb+srv://") {
		return nil, errors.New("MONGODB_URI must start with mongodb:// or mongodb+srv://")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseBrokers splits a comma-separated broker list, dropping blanks.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseIntInRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
