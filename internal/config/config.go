package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host      string `mapstructure:"host"`       // Bind address for server (e.g., 0.0.0.0 for all interfaces)
	HTTPPort  int    `mapstructure:"http_port"`  // HTTP server port
	BodyLimit int    `mapstructure:"body_limit"` // Maximum request body size in bytes

	RateLimit float64 `mapstructure:"rate_limit"` // Requests per second per client IP on /v1 (0 = unlimited)
	RateBurst int     `mapstructure:"rate_burst"` // Burst size of the per-IP limiter
}

// AnalysisConfig holds the service-wide analysis defaults and request limits.
// Request params are layered over these values.
type AnalysisConfig struct {
	IQRK        float64 `mapstructure:"iqr_k"`
	ZThresh     float64 `mapstructure:"z_thresh"`
	MAWindow    int     `mapstructure:"ma_window"`
	MAPct       float64 `mapstructure:"ma_pct"`
	GrubbsAlpha float64 `mapstructure:"grubbs_alpha"`
	TrendDegree int     `mapstructure:"trend_degree"`

	MaxSeries int `mapstructure:"max_series"` // Max named series per request
	MaxPoints int `mapstructure:"max_points"` // Max positions per series
	Workers   int `mapstructure:"workers"`    // Concurrent series pipelines per request (0 = GOMAXPROCS)
}

// CacheConfig represents result cache configuration
type CacheConfig struct {
	Type        string        `mapstructure:"type"`        // memory (default), redis, sqlite, none
	URL         string        `mapstructure:"url"`         // Redis URL (e.g., redis://localhost:6379/0)
	Path        string        `mapstructure:"path"`        // SQLite database file
	TTL         time.Duration `mapstructure:"ttl"`         // Entry lifetime
	MaxItems    int           `mapstructure:"max_items"`   // Memory cache capacity
	Compression string        `mapstructure:"compression"` // Payload codec for redis and sqlite: snappy (default), lz4, none
	Prefix      string        `mapstructure:"prefix"`      // Redis key prefix
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Enabled  bool   `mapstructure:"enabled"`  // Run the queue worker alongside the HTTP API
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	RequestSubject string `mapstructure:"request_subject"` // Subject the worker consumes jobs from
	ResultSubject  string `mapstructure:"result_subject"`  // Subject job results are published to
	EventSubject   string `mapstructure:"event_subject"`   // Subject analysis completion events are published to (empty = off)

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "trendscope")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "trendscope-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// MetricsConfig represents Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, RFC3339Nano, Kitchen, DateTime

	// Rotation of file output
	MaxSizeMB  int  `mapstructure:"max_size_mb"`  // Size that triggers rotation (default: 100)
	MaxBackups int  `mapstructure:"max_backups"`  // Rotated files to keep (0 = all)
	MaxAgeDays int  `mapstructure:"max_age_days"` // Days to keep rotated files (0 = forever)
	Compress   bool `mapstructure:"compress"`     // Gzip rotated files
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}

	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1 when rate_limit is set")
	}

	return nil
}

// Validate validates analysis defaults and limits
func (c *AnalysisConfig) Validate() error {
	if c.IQRK <= 0 {
		return fmt.Errorf("analysis.iqr_k must be positive")
	}

	if c.ZThresh <= 0 {
		return fmt.Errorf("analysis.z_thresh must be positive")
	}

	if c.MAWindow < 1 {
		return fmt.Errorf("analysis.ma_window must be at least 1")
	}

	if c.MAPct <= 0 {
		return fmt.Errorf("analysis.ma_pct must be positive")
	}

	if c.GrubbsAlpha <= 0 || c.GrubbsAlpha >= 1 {
		return fmt.Errorf("analysis.grubbs_alpha must be in (0, 1)")
	}

	if c.TrendDegree < 0 || c.TrendDegree > 10 {
		return fmt.Errorf("analysis.trend_degree must be between 0 and 10")
	}

	if c.MaxSeries < 1 {
		return fmt.Errorf("analysis.max_series must be at least 1")
	}

	if c.MaxPoints < 1 {
		return fmt.Errorf("analysis.max_points must be at least 1")
	}

	if c.Workers < 0 {
		return fmt.Errorf("analysis.workers cannot be negative")
	}

	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "", "memory", "none":
	case "redis":
		if c.URL == "" {
			return fmt.Errorf("cache.url is required for redis cache")
		}
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("cache.path is required for sqlite cache")
		}
	default:
		return fmt.Errorf("cache.type must be one of: memory, redis, sqlite, none")
	}

	switch c.Compression {
	case "", "snappy", "lz4", "none":
	default:
		return fmt.Errorf("cache.compression must be one of: snappy, lz4, none")
	}

	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}

	return nil
}

// Validate validates queue configuration. Only an enabled queue is checked.
func (c *QueueConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Type {
	case "", "nats", "redis", "kafka", "memory":
	default:
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, memory")
	}

	if c.RequestSubject == "" || c.ResultSubject == "" {
		return fmt.Errorf("queue.request_subject and queue.result_subject are required")
	}

	if c.RequestSubject == c.ResultSubject {
		return fmt.Errorf("queue.request_subject and queue.result_subject cannot be the same")
	}

	if c.EventSubject == c.RequestSubject {
		return fmt.Errorf("queue.event_subject cannot be the request subject")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation limits cannot be negative")
	}

	return nil
}
