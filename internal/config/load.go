package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "WORKQ"

// Load reads configuration from environment variables (prefixed WORKQ_,
// e.g. WORKQ_DATABASE_URL for database.url) and, if present, a
// workq.yaml/json/toml config file on the current path, applies defaults,
// and validates the result. Environment variables take precedence over
// config file values.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("workq")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Ensure keys with no explicit default still bind to their env vars.
	for _, key := range []string{
		"database.url",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("scheduler.default_retry_limit", 17)
	v.SetDefault("scheduler.base_retry_delay", 1*time.Second)
	v.SetDefault("scheduler.max_retry_delay", 0)
	v.SetDefault("scheduler.poll_idle_timeout", 1*time.Hour)
	v.SetDefault("scheduler.worker_wake_buffer", 1)

	v.SetDefault("retention.task_retention_days", 30)
	v.SetDefault("retention.event_retention_days", 30)
	v.SetDefault("retention.cleanup_interval", 1*time.Hour)
}

func validateConfig(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
