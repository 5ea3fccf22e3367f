package config

import (
	"fmt"
)

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Logging.Level == "info" && c.Logging.Format == "json"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// ParamDefaults returns the analysis defaults as the flat params mapping accepted by
// analysis requests
func (c *AnalysisConfig) ParamDefaults() map[string]interface{} {
	return map[string]interface{}{
		"iqr_k":        c.IQRK,
		"z_thresh":     c.ZThresh,
		"ma_window":    c.MAWindow,
		"ma_pct":       c.MAPct,
		"grubbs_alpha": c.GrubbsAlpha,
		"trend_degree": c.TrendDegree,
	}
}
