package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete background service configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Timer       TimerConfig       `mapstructure:"timer"`
	History     HistoryConfig     `mapstructure:"history"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Auth        AuthConfig        `mapstructure:"auth"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Clock       ClockConfig       `mapstructure:"clock"`
	EventLog    EventLogConfig    `mapstructure:"event_log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Type      string      `mapstructure:"type"` // sqlite, bolt, redis or memory
	Path      string      `mapstructure:"path"`
	CacheSize int         `mapstructure:"cache_size"`
	Redis     RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	PoolSize     int    `mapstructure:"pool_size"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TimerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type HistoryConfig struct {
	MaxSessions  int `mapstructure:"max_sessions"`
	DefaultLimit int `mapstructure:"default_limit"`
}

type PersistenceConfig struct {
	MaxFailures int `mapstructure:"max_failures"`
}

// AuthConfig configures component pairing. An empty JWTSecret disables
// component authentication.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	PairingKeyHash string        `mapstructure:"pairing_key_hash"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

// Enabled reports whether component tokens are required.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// EventLogConfig bounds the in-memory recent-events log served by
// GET_EVENT_LOG.
type EventLogConfig struct {
	Size int `mapstructure:"size"`
}

type ClockConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Location resolves the configured timezone, defaulting to local time.
func (c ClockConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from an optional file and FOCUSBUBBLE_* environment
// variables. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("focusbubble")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/focusbubble")
	}
	v.SetEnvPrefix("FOCUSBUBBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)

	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.path", "./data/focusbubble.db")
	v.SetDefault("storage.cache_size", 64)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key_prefix", "focusbubble:")
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("timer.tick_interval", time.Second)

	v.SetDefault("history.max_sessions", 100)
	v.SetDefault("history.default_limit", 50)

	v.SetDefault("persistence.max_failures", 3)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.pairing_key_hash", "")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)

	v.SetDefault("cors.origins", []string{"chrome-extension://*", "moz-extension://*", "http://localhost:5173"})

	v.SetDefault("clock.timezone", "local")

	v.SetDefault("event_log.size", 100)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	switch cfg.Storage.Type {
	case "sqlite", "bolt", "redis", "memory":
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	if (cfg.Storage.Type == "sqlite" || cfg.Storage.Type == "bolt") && cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for %s storage", cfg.Storage.Type)
	}

	if cfg.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer.tick_interval must be positive")
	}
	if cfg.History.MaxSessions <= 0 {
		return fmt.Errorf("history.max_sessions must be positive")
	}
	if cfg.History.DefaultLimit <= 0 {
		cfg.History.DefaultLimit = 50
	}
	if cfg.Persistence.MaxFailures <= 0 {
		return fmt.Errorf("persistence.max_failures must be positive")
	}
	if cfg.EventLog.Size <= 0 {
		return fmt.Errorf("event_log.size must be positive")
	}
	if cfg.Auth.Enabled() && cfg.Auth.PairingKeyHash == "" {
		return fmt.Errorf("auth.pairing_key_hash is required when auth.jwt_secret is set")
	}
	if _, err := cfg.Clock.Location(); err != nil {
		return err
	}

	return nil
}
