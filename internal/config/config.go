package config

import "time"

// Config holds all application configuration, organized into logical
// groups for maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Retention RetentionConfig `mapstructure:"retention" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"                validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"     validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"     validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"  validate:"gte=0"`
}

// SchedulerConfig contains retry/backoff and worker tuning settings.
type SchedulerConfig struct {
	DefaultRetryLimit int32         `mapstructure:"default_retry_limit" validate:"gte=0"`
	BaseRetryDelay    time.Duration `mapstructure:"base_retry_delay"    validate:"gt=0"`
	MaxRetryDelay     time.Duration `mapstructure:"max_retry_delay"     validate:"gte=0"`
	PollIdleTimeout   time.Duration `mapstructure:"poll_idle_timeout"   validate:"gt=0"`
	WorkerWakeBuffer  int           `mapstructure:"worker_wake_buffer"  validate:"gte=1"`
}

// RetentionConfig contains cleanup scheduling settings.
type RetentionConfig struct {
	TaskRetentionDays  int           `mapstructure:"task_retention_days"  validate:"gte=0"`
	EventRetentionDays int           `mapstructure:"event_retention_days" validate:"gte=0"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"     validate:"gt=0"`
}
