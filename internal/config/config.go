package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Session SessionConfig `mapstructure:"session"`
	Storage StorageConfig `mapstructure:"storage"`
	Reports ReportsConfig `mapstructure:"reports"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	BindAddress     string   `mapstructure:"bind_address"`
	Port            int      `mapstructure:"port"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout"`
}

// AuthConfig controls device tokens. An empty pairing code disables pairing
// over HTTP; tokens can still be minted with the token command.
type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	TokenTTL    string `mapstructure:"token_ttl"`
	PairingCode string `mapstructure:"pairing_code"`
}

type SessionConfig struct {
	AppName string `mapstructure:"app_name"`
}

// StorageConfig selects a backend for records (sqlite, redis, memory) and
// for preferences (sqlite, bolt, redis, memory).
type StorageConfig struct {
	Records       string      `mapstructure:"records"`
	Preferences   string      `mapstructure:"preferences"`
	SQLitePath    string      `mapstructure:"sqlite_path"`
	MigrationsDir string      `mapstructure:"migrations_dir"`
	BoltPath      string      `mapstructure:"bolt_path"`
	Redis         RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// ReportsConfig defines how completed intervals are bucketed and persisted
type ReportsConfig struct {
	Timezone             string `mapstructure:"timezone"`
	RetryMaxTries        int    `mapstructure:"retry_max_tries"`
	RetryInitialInterval string `mapstructure:"retry_initial_interval"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables. A missing
// file is not an error; defaults and POMODORO_* variables still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("POMODORO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("auth.jwt_secret", "change-this-secret")
	v.SetDefault("auth.token_ttl", "720h")
	v.SetDefault("auth.pairing_code", "")

	v.SetDefault("session.app_name", "Pomodoro")

	v.SetDefault("storage.records", "sqlite")
	v.SetDefault("storage.preferences", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/pomodoro.db")
	v.SetDefault("storage.migrations_dir", "./migrations")
	v.SetDefault("storage.bolt_path", "./data/preferences.db")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", "pomodoro")

	v.SetDefault("reports.timezone", "Local")
	v.SetDefault("reports.retry_max_tries", 3)
	v.SetDefault("reports.retry_initial_interval", "100ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if _, err := time.ParseDuration(cfg.Auth.TokenTTL); err != nil {
		return fmt.Errorf("auth.token_ttl: %w", err)
	}

	switch cfg.Storage.Records {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unsupported storage.records backend %q", cfg.Storage.Records)
	}
	switch cfg.Storage.Preferences {
	case "sqlite", "bolt", "redis", "memory":
	default:
		return fmt.Errorf("unsupported storage.preferences backend %q", cfg.Storage.Preferences)
	}

	if _, err := cfg.Reports.Location(); err != nil {
		return err
	}
	if cfg.Reports.RetryMaxTries < 1 {
		return fmt.Errorf("reports.retry_max_tries must be at least 1")
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported logging.format %q", cfg.Logging.Format)
	}

	return nil
}

// Location resolves the timezone used to bucket records into calendar periods.
func (c ReportsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reports.timezone: %w", err)
	}
	return loc, nil
}

// Addr returns the HTTP listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// ParseDuration parses a duration string with a fallback
func ParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
