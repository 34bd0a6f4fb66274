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
	AppName             string        `mapstructure:"app_name"`
	Env                 string        `mapstructure:"app_env"`
	LogLevel            string        `mapstructure:"log_level"`
	ResourcesFile       string        `mapstructure:"resources_file"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	SyncIntervalSeconds int64         `mapstructure:"sync_interval"`
	SyncInterval        time.Duration `mapstructure:"-"`
	RequestTimeoutSecs  int64         `mapstructure:"request_timeout"`
	RequestTimeout      time.Duration `mapstructure:"-"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "remote-model")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("resources_file", "./configs/resources.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("sync_interval", 300) // seconds
	v.SetDefault("request_timeout", 0) // seconds, 0 = no timeout
	v.SetDefault("storage_type", "memory")
	v.SetDefault("bbolt_path", "./data/state.db")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.SyncIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid sync_interval (must be positive seconds)")
	}
	cfg.SyncInterval = time.Duration(cfg.SyncIntervalSeconds) * time.Second

	if cfg.RequestTimeoutSecs < 0 {
		return nil, fmt.Errorf("invalid request_timeout (must not be negative)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSecs) * time.Second

	cfg.StorageType = strings.ToLower(strings.TrimSpace(cfg.StorageType))
	if strings.TrimSpace(cfg.ResourcesFile) == "" {
		return nil, fmt.Errorf("resources_file is required")
	}

	return &cfg, nil
}
