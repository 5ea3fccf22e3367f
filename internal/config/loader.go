package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")               // Current directory
		v.AddConfigPath("./configs")       // Project configs directory
		v.AddConfigPath("./config")        // Alternative config directory
		v.AddConfigPath("/etc/trendscope") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides, e.g. TRENDSCOPE_SERVER_HTTP_PORT
	v.SetEnvPrefix("TRENDSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)

	// Analysis defaults
	v.SetDefault("analysis.iqr_k", d.Analysis.IQRK)
	v.SetDefault("analysis.z_thresh", d.Analysis.ZThresh)
	v.SetDefault("analysis.ma_window", d.Analysis.MAWindow)
	v.SetDefault("analysis.ma_pct", d.Analysis.MAPct)
	v.SetDefault("analysis.grubbs_alpha", d.Analysis.GrubbsAlpha)
	v.SetDefault("analysis.trend_degree", d.Analysis.TrendDegree)
	v.SetDefault("analysis.max_series", d.Analysis.MaxSeries)
	v.SetDefault("analysis.max_points", d.Analysis.MaxPoints)
	v.SetDefault("analysis.workers", d.Analysis.Workers)

	// Cache defaults
	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.max_items", d.Cache.MaxItems)
	v.SetDefault("cache.compression", d.Cache.Compression)
	v.SetDefault("cache.prefix", d.Cache.Prefix)

	// Queue defaults
	v.SetDefault("queue.enabled", d.Queue.Enabled)
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.request_subject", d.Queue.RequestSubject)
	v.SetDefault("queue.result_subject", d.Queue.ResultSubject)
	v.SetDefault("queue.event_subject", d.Queue.EventSubject)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.kafka_group_id", d.Queue.KafkaGroupID)

	// Metrics defaults
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			HTTPPort:  5555,
			BodyLimit: 8 * 1024 * 1024,
			RateBurst: 20,
		},
		Analysis: AnalysisConfig{
			IQRK:        1.5,
			ZThresh:     3.0,
			MAWindow:    7,
			MAPct:       0.3,
			GrubbsAlpha: 0.05,
			TrendDegree: 1,
			MaxSeries:   256,
			MaxPoints:   100000,
		},
		Cache: CacheConfig{
			Type:        "memory",
			TTL:         10 * time.Minute,
			MaxItems:    1024,
			Compression: "snappy",
			Prefix:      "trendscope:result:",
		},
		Queue: QueueConfig{
			Type:           "nats",
			URL:            "nats://localhost:4222",
			RequestSubject: "trendscope.analysis.requests",
			ResultSubject:  "trendscope.analysis.results",
			EventSubject:   "trendscope.analysis.events",
			RedisStream:    "trendscope",
			RedisGroup:     "trendscope-group",
			KafkaGroupID:   "trendscope-analyzer",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
	}
}
