// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FetcherConfig governs the single-document download pipeline.
type FetcherConfig struct {
	TimeoutSeconds          int    `mapstructure:"timeout_seconds"`
	MaxAttempts             int    `mapstructure:"max_attempts"`
	BaseRetryDelayMs        int    `mapstructure:"base_retry_delay_ms"`
	RateLimitBackoffSeconds int    `mapstructure:"rate_limit_backoff_seconds"`
	MinRequestDelayMs       int    `mapstructure:"min_request_delay_ms"`
	MaxRequestDelayMs       int    `mapstructure:"max_request_delay_ms"`
	ProxyBaseURL            string `mapstructure:"proxy_base_url"`
	SourceOrigin            string `mapstructure:"source_origin"`
	DryRun                  bool   `mapstructure:"dry_run"`
}

// Timeout returns the per-request timeout as a duration.
func (c FetcherConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BaseRetryDelay returns the standard backoff base as a duration.
func (c FetcherConfig) BaseRetryDelay() time.Duration {
	return time.Duration(c.BaseRetryDelayMs) * time.Millisecond
}

// RateLimitBackoff returns the throttle backoff base as a duration.
func (c FetcherConfig) RateLimitBackoff() time.Duration {
	return time.Duration(c.RateLimitBackoffSeconds) * time.Second
}

// MinRequestDelay returns the lower bound of the anti-detection delay.
func (c FetcherConfig) MinRequestDelay() time.Duration {
	return time.Duration(c.MinRequestDelayMs) * time.Millisecond
}

// MaxRequestDelay returns the upper bound of the anti-detection delay.
func (c FetcherConfig) MaxRequestDelay() time.Duration {
	return time.Duration(c.MaxRequestDelayMs) * time.Millisecond
}

// BatchConfig governs coordinator behavior.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// StorageConfig selects and parameterizes the blob store.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalRoot string `mapstructure:"local_root"`
	OutputDir string `mapstructure:"output_dir"`
}

// DBConfig selects and parameterizes the filing store.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for completion-event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig selects the zap mode and minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
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
	v.SetDefault("fetcher.timeout_seconds", 30)
	v.SetDefault("fetcher.max_attempts", 3)
	v.SetDefault("fetcher.base_retry_delay_ms", 2000)
	v.SetDefault("fetcher.rate_limit_backoff_seconds", 30)
	v.SetDefault("fetcher.min_request_delay_ms", 500)
	v.SetDefault("fetcher.max_request_delay_ms", 2500)
	v.SetDefault("fetcher.dry_run", false)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.table", "filings")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate fails fast on configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be positive")
	}
	if c.Fetcher.MaxAttempts <= 0 {
		return fmt.Errorf("fetcher.max_attempts must be positive")
	}
	if c.Fetcher.MinRequestDelayMs < 0 {
		return fmt.Errorf("fetcher.min_request_delay_ms must not be negative")
	}
	if c.Fetcher.MaxRequestDelayMs < c.Fetcher.MinRequestDelayMs {
		return fmt.Errorf("fetcher.max_request_delay_ms must be >= fetcher.min_request_delay_ms")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs provider")
		}
	case "local":
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("storage.local_root is required for the local provider")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the postgres provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db provider: %s", c.DB.Provider)
	}
	return nil
}
