package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName          string        `mapstructure:"app_name"`
	Env              string        `mapstructure:"app_env"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFile          string        `mapstructure:"log_file"`
	LogMaxSizeMB     int           `mapstructure:"log_max_size_mb"`
	LogMaxBackups    int           `mapstructure:"log_max_backups"`
	JobsFile         string        `mapstructure:"jobs_file"`
	PublishersFile   string        `mapstructure:"publishers_file"`
	StatusAddr       string        `mapstructure:"status_addr"`
	SnapshotSeconds  int64         `mapstructure:"snapshot_interval"`
	SnapshotInterval time.Duration `mapstructure:"-"`

	V2BaseURL          string        `mapstructure:"v2_base_url"`
	RestBaseURL        string        `mapstructure:"rest_base_url"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenSeconds int64         `mapstructure:"breaker_open_seconds"`
	BreakerOpenTimeout time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// BreakerEnabled reports whether the graph transports are wrapped in a circuit breaker.
func (c *Config) BreakerEnabled() bool {
	return c != nil && c.BreakerMaxFailures > 0
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "samvad-graph-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("jobs_file", "./configs/jobs.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("status_addr", "")
	v.SetDefault("snapshot_interval", 300) // seconds
	v.SetDefault("v2_base_url", "http://localhost:8980/opennms/api/v2")
	v.SetDefault("rest_base_url", "http://localhost:8980/opennms/rest")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("breaker_max_failures", 5)
	v.SetDefault("breaker_open_seconds", 30)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/snapshots.db")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.V2BaseURL = strings.TrimSpace(cfg.V2BaseURL)
	cfg.RestBaseURL = strings.TrimSpace(cfg.RestBaseURL)
	if cfg.V2BaseURL == "" {
		return nil, fmt.Errorf("v2_base_url is required")
	}
	if cfg.RestBaseURL == "" {
		return nil, fmt.Errorf("rest_base_url is required")
	}

	if cfg.SnapshotSeconds <= 0 {
		return nil, fmt.Errorf("invalid snapshot_interval (must be positive seconds)")
	}
	cfg.SnapshotInterval = time.Duration(cfg.SnapshotSeconds) * time.Second

	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.BreakerOpenSeconds <= 0 {
		return nil, fmt.Errorf("invalid breaker_open_seconds (must be positive seconds)")
	}
	cfg.BreakerOpenTimeout = time.Duration(cfg.BreakerOpenSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}
