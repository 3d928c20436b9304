// Package config loads and validates transit-ingest configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted by the storage, publisher and warehouse settings.
const (
	BackendGCS      = "gcs"
	BackendLocal    = "local"
	BackendMemory   = "memory"
	BackendPubSub   = "pubsub"
	BackendBigQuery = "bigquery"
	BackendPostgres = "postgres"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Fetch     FetchConfig     `mapstructure:"fetch"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Flatten   FlattenConfig   `mapstructure:"flatten"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// FetchConfig governs the route fetch cycle.
type FetchConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	RouteIDs       []string `mapstructure:"route_ids"`
	MaxAttempts    int      `mapstructure:"max_attempts"`
	DelaySeconds   int      `mapstructure:"delay_seconds"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	UserAgent      string   `mapstructure:"user_agent"`
	MaxBodyBytes   int      `mapstructure:"max_body_bytes"`
	ScratchDir     string   `mapstructure:"scratch_dir"`
}

// PubSubConfig holds the project and the topic the fetcher publishes to.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// StorageConfig sets the archive backend for route snapshots.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
	LocalDir  string `mapstructure:"local_dir"`
}

// WarehouseConfig selects the sink for flattened rows.
type WarehouseConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	DSN       string `mapstructure:"dsn"`
	MaxConns  int32  `mapstructure:"max_conns"`
	// CreateTable creates the output table from the static schema when missing.
	CreateTable bool `mapstructure:"create_table"`
}

// FlattenConfig controls the flatten job input and output.
type FlattenConfig struct {
	InputPath         string `mapstructure:"input_path"`
	InputSubscription string `mapstructure:"input_subscription"`
	OutputTable       string `mapstructure:"output_table"`
	BatchSize         int    `mapstructure:"batch_size"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRANSIT")
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
	v.SetDefault("fetch.base_url", "https://www.red.cl/restservice_v2/rest/conocerecorrido")
	v.SetDefault("fetch.route_ids", []string{"205", "210", "226", "101", "508"})
	v.SetDefault("fetch.max_attempts", 5)
	v.SetDefault("fetch.delay_seconds", 10)
	v.SetDefault("fetch.timeout_seconds", 120)
	v.SetDefault("fetch.user_agent", "transit-ingest/1.0")
	v.SetDefault("fetch.max_body_bytes", 32*1024*1024)
	v.SetDefault("fetch.scratch_dir", "")
	v.SetDefault("pubsub.provider", BackendPubSub)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_id", "datos-transporte-publico-real-time")
	v.SetDefault("storage.provider", BackendGCS)
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.local_dir", "data/archive")
	v.SetDefault("warehouse.provider", BackendBigQuery)
	v.SetDefault("warehouse.project_id", "")
	v.SetDefault("warehouse.dsn", "")
	v.SetDefault("warehouse.max_conns", 4)
	v.SetDefault("warehouse.create_table", true)
	v.SetDefault("flatten.input_path", "")
	v.SetDefault("flatten.input_subscription", "")
	v.SetDefault("flatten.output_table", "")
	v.SetDefault("flatten.batch_size", 500)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
}

// Validate enforces required values and reasonable limits. Backend-specific
// identifiers (bucket, topic, table) are checked when the backend is built.
func (c Config) Validate() error {
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.DelaySeconds < 0 {
		return fmt.Errorf("fetch.delay_seconds must be >= 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Flatten.BatchSize <= 0 {
		return fmt.Errorf("flatten.batch_size must be > 0")
	}
	if err := oneOf("pubsub.provider", c.PubSub.Provider, BackendPubSub, BackendMemory); err != nil {
		return err
	}
	if err := oneOf("storage.provider", c.Storage.Provider, BackendGCS, BackendLocal, BackendMemory); err != nil {
		return err
	}
	if err := oneOf("warehouse.provider", c.Warehouse.Provider, BackendBigQuery, BackendPostgres, BackendMemory); err != nil {
		return err
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535")
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

// FetchDelay returns the fixed wait between fetch attempts.
func (c Config) FetchDelay() time.Duration {
	return time.Duration(c.Fetch.DelaySeconds) * time.Second
}

// FetchTimeout returns the per-attempt HTTP timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
