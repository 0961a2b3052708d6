package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// QueueResolverConfig holds the settings for resolving a function or topic
// name to a concrete queue name (§4.2).
type QueueResolverConfig struct {
	Kind             string        `json:"kind"` // "http" (default) or "dao"
	FunctionEndpoint string        `json:"function_endpoint"`
	TopicEndpoint    string        `json:"topic_endpoint"`
	HTTPTimeout      time.Duration `json:"http_timeout"`
	MaxAttempts      int           `json:"max_attempts"`
	InitialBackoff   time.Duration `json:"initial_backoff"`
}

// CacheConfig selects the QueueResolver's cache backend. An empty RedisAddr
// means the resolver falls back to an in-memory cache.
type CacheConfig struct {
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	KeyPrefix     string `json:"key_prefix"`
}

// StoreConfig holds the scan-store backend settings. The scan store is the
// out-of-scope persistence boundary described in §7 — it supplies
// ProcessedScan and scan-failure lookups by serviceId+gitCommitHash.
type StoreConfig struct {
	Kind string `json:"kind"` // "dir" (default, JSON directory) or "postgres"
	DSN  string `json:"dsn"`
	Dir  string `json:"dir"`
}

// TracingConfig holds OpenTelemetry tracing settings
type TracingConfig struct {
	Enabled     bool    `json:"enabled"`      // Default: false
	Exporter    string  `json:"exporter"`     // otlp-http, stdout
	Endpoint    string  `json:"endpoint"`     // localhost:4318
	ServiceName string  `json:"service_name"` // snapshotbuilder
	SampleRate  float64 `json:"sample_rate"`  // 1.0
}

// MetricsConfig holds Prometheus metrics settings
type MetricsConfig struct {
	Enabled          bool      `json:"enabled"`           // Default: true
	Namespace        string    `json:"namespace"`         // snapshotbuilder
	HistogramBuckets []float64 `json:"histogram_buckets"` // Latency buckets in ms
}

// LoggingConfig holds structured logging settings
type LoggingConfig struct {
	Level          string `json:"level"`            // debug, info, warn, error
	Format         string `json:"format"`           // text, json
	IncludeTraceID bool   `json:"include_trace_id"` // Correlate with traces
}

// ObservabilityConfig holds all observability-related settings
type ObservabilityConfig struct {
	Tracing TracingConfig `json:"tracing"`
	Metrics MetricsConfig `json:"metrics"`
	Logging LoggingConfig `json:"logging"`
}

// Config is the central configuration struct for one build invocation.
type Config struct {
	QueueResolver QueueResolverConfig `json:"queue_resolver"`
	Cache         CacheConfig         `json:"cache"`
	Store         StoreConfig         `json:"store"`
	Observability ObservabilityConfig `json:"observability"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		QueueResolver: QueueResolverConfig{
			Kind:           "http",
			HTTPTimeout:    2 * time.Second,
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
		},
		Cache: CacheConfig{
			KeyPrefix: "snapshotbuilder:cache:",
		},
		Store: StoreConfig{
			Kind: "dir",
			Dir:  "./scans",
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:     false,
				Exporter:    "otlp-http",
				Endpoint:    "localhost:4318",
				ServiceName: "snapshotbuilder",
				SampleRate:  1.0,
			},
			Metrics: MetricsConfig{
				Enabled:          true,
				Namespace:        "snapshotbuilder",
				HistogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			Logging: LoggingConfig{
				Level:          "info",
				Format:         "text",
				IncludeTraceID: true,
			},
		},
	}
}

// LoadFromFile loads configuration from a JSON file, using DefaultConfig
// as the base that the file's fields override.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SNAPBUILD_QUEUE_RESOLVER_KIND"); v != "" {
		cfg.QueueResolver.Kind = v
	}
	if v := os.Getenv("SNAPBUILD_FUNCTION_ENDPOINT"); v != "" {
		cfg.QueueResolver.FunctionEndpoint = v
	}
	if v := os.Getenv("SNAPBUILD_TOPIC_ENDPOINT"); v != "" {
		cfg.QueueResolver.TopicEndpoint = v
	}
	if v := os.Getenv("SNAPBUILD_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.QueueResolver.HTTPTimeout = d
		}
	}
	if v := os.Getenv("SNAPBUILD_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueResolver.MaxAttempts = n
		}
	}
	if v := os.Getenv("SNAPBUILD_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.QueueResolver.InitialBackoff = d
		}
	}

	// Cache overrides
	if v := os.Getenv("SNAPBUILD_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("SNAPBUILD_REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("SNAPBUILD_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.RedisDB = n
		}
	}
	if v := os.Getenv("SNAPBUILD_CACHE_KEY_PREFIX"); v != "" {
		cfg.Cache.KeyPrefix = v
	}

	// Store overrides
	if v := os.Getenv("SNAPBUILD_STORE_KIND"); v != "" {
		cfg.Store.Kind = v
	}
	if v := os.Getenv("SNAPBUILD_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("SNAPBUILD_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}

	// Observability overrides
	if v := os.Getenv("SNAPBUILD_TRACING_ENABLED"); v != "" {
		cfg.Observability.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("SNAPBUILD_TRACING_ENDPOINT"); v != "" {
		cfg.Observability.Tracing.Endpoint = v
	}
	if v := os.Getenv("SNAPBUILD_TRACING_EXPORTER"); v != "" {
		cfg.Observability.Tracing.Exporter = v
	}
	if v := os.Getenv("SNAPBUILD_TRACING_SERVICE_NAME"); v != "" {
		cfg.Observability.Tracing.ServiceName = v
	}
	if v := os.Getenv("SNAPBUILD_TRACING_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Observability.Tracing.SampleRate = f
		}
	}
	if v := os.Getenv("SNAPBUILD_METRICS_ENABLED"); v != "" {
		cfg.Observability.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SNAPBUILD_METRICS_NAMESPACE"); v != "" {
		cfg.Observability.Metrics.Namespace = v
	}
	if v := os.Getenv("SNAPBUILD_LOG_LEVEL"); v != "" {
		cfg.Observability.Logging.Level = v
	}
	if v := os.Getenv("SNAPBUILD_LOG_FORMAT"); v != "" {
		cfg.Observability.Logging.Format = v
	}
	if v := os.Getenv("SNAPBUILD_LOG_INCLUDE_TRACE_ID"); v != "" {
		cfg.Observability.Logging.IncludeTraceID = parseBool(v)
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}
