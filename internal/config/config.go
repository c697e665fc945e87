// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all harvester configuration knobs loaded via Viper.
type Config struct {
	Output   OutputConfig   `mapstructure:"output"`
	Links    LinksConfig    `mapstructure:"links"`
	Articles ArticlesConfig `mapstructure:"articles"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logs     LogsConfig     `mapstructure:"logs"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

// OutputConfig sets the roots the extraction stages write under.
type OutputConfig struct {
	LinksRoot string `mapstructure:"links_root"`
	NewsRoot  string `mapstructure:"news_root"`
}

// LinksConfig governs the link extraction stage.
type LinksConfig struct {
	Workers           int `mapstructure:"workers"`
	TimeoutSeconds    int `mapstructure:"timeout_seconds"`
	RetryAttempts     int `mapstructure:"retry_attempts"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
}

// ArticlesConfig governs the article extraction stage.
type ArticlesConfig struct {
	Workers             int      `mapstructure:"workers"`
	TimeoutSeconds      int      `mapstructure:"timeout_seconds"`
	RetryAttempts       int      `mapstructure:"retry_attempts"`
	RetryDelaySeconds   int      `mapstructure:"retry_delay_seconds"`
	DelayMs             int      `mapstructure:"delay_ms"`
	Selectors           []string `mapstructure:"selectors"`
	ReadabilityFallback bool     `mapstructure:"readability_fallback"`
}

// MetricsConfig toggles the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogsConfig controls the run log files and console verbosity.
type LogsConfig struct {
	Dir        string `mapstructure:"dir"`
	Quiet      bool   `mapstructure:"quiet"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	UserAgent string `mapstructure:"user_agent"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UOLHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.links_root", "out/uol_links")
	v.SetDefault("output.news_root", "out/uol_news")
	v.SetDefault("links.workers", 5)
	v.SetDefault("links.timeout_seconds", 25)
	v.SetDefault("links.retry_attempts", 3)
	v.SetDefault("links.retry_delay_seconds", 5)
	v.SetDefault("articles.workers", 5)
	v.SetDefault("articles.timeout_seconds", 15)
	v.SetDefault("articles.retry_attempts", 3)
	v.SetDefault("articles.retry_delay_seconds", 2)
	v.SetDefault("articles.delay_ms", 500)
	v.SetDefault("articles.selectors", []string{"div.text", "div#texto"})
	v.SetDefault("articles.readability_fallback", false)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":8080")
	v.SetDefault("logs.dir", "logs")
	v.SetDefault("logs.quiet", false)
	v.SetDefault("logs.max_size_mb", 50)
	v.SetDefault("logs.max_backups", 3)
	v.SetDefault("http.user_agent", "uol-harvest/0.1")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Output.LinksRoot == "" {
		return fmt.Errorf("output.links_root must be set")
	}
	if c.Output.NewsRoot == "" {
		return fmt.Errorf("output.news_root must be set")
	}
	if c.Links.Workers <= 0 {
		return fmt.Errorf("links.workers must be > 0")
	}
	if c.Links.TimeoutSeconds <= 0 {
		return fmt.Errorf("links.timeout_seconds must be > 0")
	}
	if c.Links.RetryAttempts <= 0 {
		return fmt.Errorf("links.retry_attempts must be > 0")
	}
	if c.Articles.Workers <= 0 {
		return fmt.Errorf("articles.workers must be > 0")
	}
	if c.Articles.TimeoutSeconds <= 0 {
		return fmt.Errorf("articles.timeout_seconds must be > 0")
	}
	if c.Articles.RetryAttempts <= 0 {
		return fmt.Errorf("articles.retry_attempts must be > 0")
	}
	if len(c.Articles.Selectors) == 0 {
		return fmt.Errorf("articles.selectors must not be empty")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	if c.Logs.Dir == "" {
		return fmt.Errorf("logs.dir must be set")
	}
	return nil
}

// LinksTimeout returns the link stage fetch timeout.
func (c Config) LinksTimeout() time.Duration {
	return time.Duration(c.Links.TimeoutSeconds) * time.Second
}

// LinksRetryDelay returns the link stage delay between retry attempts.
func (c Config) LinksRetryDelay() time.Duration {
	return time.Duration(c.Links.RetryDelaySeconds) * time.Second
}

// ArticlesTimeout returns the article stage fetch timeout.
func (c Config) ArticlesTimeout() time.Duration {
	return time.Duration(c.Articles.TimeoutSeconds) * time.Second
}

// ArticlesRetryDelay returns the article stage delay between retry attempts.
func (c Config) ArticlesRetryDelay() time.Duration {
	return time.Duration(c.Articles.RetryDelaySeconds) * time.Second
}

// ArticlesDelay returns the per-worker courtesy pause between articles.
func (c Config) ArticlesDelay() time.Duration {
	return time.Duration(c.Articles.DelayMs) * time.Millisecond
}
