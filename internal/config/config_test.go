package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name:    "negative body limit",
			mutate:  func(c *Config) { c.Server.BodyLimit = -1 },
			wantErr: true,
		},
		{
			name:    "rate limit without burst",
			mutate:  func(c *Config) { c.Server.RateLimit = 10; c.Server.RateBurst = 0 },
			wantErr: true,
		},
		{
			name:    "zero iqr multiplier",
			mutate:  func(c *Config) { c.Analysis.IQRK = 0 },
			wantErr: true,
		},
		{
			name:    "grubbs alpha out of range",
			mutate:  func(c *Config) { c.Analysis.GrubbsAlpha = 1 },
			wantErr: true,
		},
		{
			name:    "trend degree too high",
			mutate:  func(c *Config) { c.Analysis.TrendDegree = 11 },
			wantErr: true,
		},
		{
			name:    "zero moving average window",
			mutate:  func(c *Config) { c.Analysis.MAWindow = 0 },
			wantErr: true,
		},
		{
			name:    "no series allowed",
			mutate:  func(c *Config) { c.Analysis.MaxSeries = 0 },
			wantErr: true,
		},
		{
			name:    "unknown cache type",
			mutate:  func(c *Config) { c.Cache.Type = "memcached" },
			wantErr: true,
		},
		{
			name:    "redis cache without url",
			mutate:  func(c *Config) { c.Cache.Type = "redis"; c.Cache.URL = "" },
			wantErr: true,
		},
		{
			name:    "sqlite cache without path",
			mutate:  func(c *Config) { c.Cache.Type = "sqlite" },
			wantErr: true,
		},
		{
			name:    "sqlite cache with path",
			mutate:  func(c *Config) { c.Cache.Type = "sqlite"; c.Cache.Path = "/tmp/cache.db" },
			wantErr: false,
		},
		{
			name:    "unknown cache compression",
			mutate:  func(c *Config) { c.Cache.Compression = "zstd" },
			wantErr: true,
		},
		{
			name:    "negative log rotation size",
			mutate:  func(c *Config) { c.Logging.MaxSizeMB = -1 },
			wantErr: true,
		},
		{
			name:    "disabled queue is not checked",
			mutate:  func(c *Config) { c.Queue.Type = "rabbitmq" },
			wantErr: false,
		},
		{
			name: "enabled queue with unknown type",
			mutate: func(c *Config) {
				c.Queue.Enabled = true
				c.Queue.Type = "rabbitmq"
			},
			wantErr: true,
		},
		{
			name: "enabled queue with shared subjects",
			mutate: func(c *Config) {
				c.Queue.Enabled = true
				c.Queue.ResultSubject = c.Queue.RequestSubject
			},
			wantErr: true,
		},
		{
			name: "invalid logging level",
			mutate: func(c *Config) {
				c.Logging = LoggingConfig{Level: "invalid", Format: "json"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 5555 {
		t.Errorf("expected HTTPPort 5555, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Analysis.IQRK != 1.5 || cfg.Analysis.ZThresh != 3.0 || cfg.Analysis.MAWindow != 7 {
		t.Errorf("unexpected analysis defaults: %+v", cfg.Analysis)
	}

	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("expected cache TTL 10m, got %v", cfg.Cache.TTL)
	}

	if cfg.Queue.RequestSubject != "trendscope.analysis.requests" {
		t.Errorf("unexpected request subject %s", cfg.Queue.RequestSubject)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsProduction() {
		t.Error("default config should be production mode")
	}

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"

	if !cfg.IsDevelopment() {
		t.Error("config with debug/console should be development mode")
	}

	if addr := cfg.GetServerAddress(); addr != "0.0.0.0:5555" {
		t.Errorf("expected '0.0.0.0:5555', got %s", addr)
	}

	params := cfg.Analysis.ParamDefaults()
	if params["ma_window"] != 7 || params["grubbs_alpha"] != 0.05 {
		t.Errorf("unexpected param defaults: %v", params)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 6000
analysis:
  z_thresh: 2.5
  trend_degree: 2
cache:
  type: none
  ttl: 30s
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("TRENDSCOPE_ANALYSIS_MA_WINDOW", "14")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPPort != 6000 {
		t.Errorf("expected http_port 6000, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Analysis.ZThresh != 2.5 || cfg.Analysis.TrendDegree != 2 {
		t.Errorf("file values not applied: %+v", cfg.Analysis)
	}
	if cfg.Analysis.MAWindow != 14 {
		t.Errorf("expected env override ma_window 14, got %d", cfg.Analysis.MAWindow)
	}
	if cfg.Analysis.IQRK != 1.5 {
		t.Errorf("expected default iqr_k 1.5, got %v", cfg.Analysis.IQRK)
	}
	if cfg.Cache.Type != "none" || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode from file")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("analysis:\n  grubbs_alpha: 2\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for grubbs_alpha 2")
	}

	cfg := LoadOrDefault(path)
	if cfg.Analysis.GrubbsAlpha != 0.05 {
		t.Errorf("LoadOrDefault should fall back to defaults, got %v", cfg.Analysis.GrubbsAlpha)
	}
}
