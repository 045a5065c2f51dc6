// Package config loads and validates newsimg configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DefaultUserAgent identifies the tool to origin servers.
const DefaultUserAgent = "Mozilla/5.0 (compatible; OpenPressImageBot/1.0; +https://openpress.example/bot)"

// Config captures all tool configuration knobs loaded via Viper.
type Config struct {
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Download DownloadConfig `mapstructure:"download"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// FetchConfig governs the page fetch stage.
type FetchConfig struct {
	Input     string  `mapstructure:"input"`
	Output    string  `mapstructure:"output"`
	Limit     int     `mapstructure:"limit"`
	Workers   int     `mapstructure:"workers"`
	ErrorLog  string  `mapstructure:"error_log"`
	RateRPS   float64 `mapstructure:"rate_rps"`
	Insecure  bool    `mapstructure:"insecure"`
	CacheSize int     `mapstructure:"cache_size"`
}

// DownloadConfig governs the image download stage.
type DownloadConfig struct {
	Input          string  `mapstructure:"input"`
	Output         string  `mapstructure:"output"`
	Dir            string  `mapstructure:"dir"`
	Column         string  `mapstructure:"column"`
	IDColumn       string  `mapstructure:"id_column"`
	Limit          int     `mapstructure:"limit"`
	Workers        int     `mapstructure:"workers"`
	ErrorLog       string  `mapstructure:"error_log"`
	RateRPS        float64 `mapstructure:"rate_rps"`
	Insecure       bool    `mapstructure:"insecure"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	CacheSize      int     `mapstructure:"cache_size"`
}

// HTTPConfig configures the page fetch client and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	BackoffBaseMs  int    `mapstructure:"backoff_base_ms"`
	BackoffMaxMs   int    `mapstructure:"backoff_max_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the optional Prometheus listener. An empty
// Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load unmarshals and validates a Config from the given Viper instance.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers a default for every knob on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("fetch.limit", 10)
	v.SetDefault("fetch.workers", 8)
	v.SetDefault("fetch.error_log", "fetch_errors.log")
	v.SetDefault("fetch.rate_rps", 5.0)
	v.SetDefault("fetch.cache_size", 1024)
	v.SetDefault("download.dir", "downloaded_images")
	v.SetDefault("download.column", "ImageURL")
	v.SetDefault("download.id_column", "ID")
	v.SetDefault("download.limit", 0)
	v.SetDefault("download.workers", 8)
	v.SetDefault("download.error_log", "fetch_errors.log")
	v.SetDefault("download.rate_rps", 5.0)
	v.SetDefault("download.timeout_seconds", 20)
	v.SetDefault("download.cache_size", 1024)
	v.SetDefault("http.timeout_seconds", 12)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_base_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 16000)
	v.SetDefault("logging.development", false)
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits. Input and
// output paths are checked by the commands that need them.
func (c Config) Validate() error {
	if c.Fetch.Limit < 0 {
		return fmt.Errorf("fetch.limit must be >= 0")
	}
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be > 0")
	}
	if c.Download.Limit < 0 {
		return fmt.Errorf("download.limit must be >= 0")
	}
	if c.Download.Workers <= 0 {
		return fmt.Errorf("download.workers must be > 0")
	}
	if c.Download.TimeoutSeconds <= 0 {
		return fmt.Errorf("download.timeout_seconds must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.BackoffBaseMs <= 0 {
		return fmt.Errorf("http.backoff_base_ms must be > 0")
	}
	if c.HTTP.BackoffMaxMs < c.HTTP.BackoffBaseMs {
		return fmt.Errorf("http.backoff_max_ms must be >= http.backoff_base_ms")
	}
	return nil
}

// Timeout converts the page fetch timeout config into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffBase returns the first retry delay.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.HTTP.BackoffBaseMs) * time.Millisecond
}

// BackoffMax returns the retry delay ceiling.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// DownloadTimeout converts the image download timeout config into a
// duration.
func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Download.TimeoutSeconds) * time.Second
}
