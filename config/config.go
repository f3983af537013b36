package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Lookup  LookupConfig
	Cache   CacheConfig
	Scanner ScannerConfig
	History HistoryConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LookupConfig holds product lookup backend configuration
type LookupConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	MinLatency     time.Duration `mapstructure:"min_latency"`
}

// CacheConfig holds product cache configuration
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// ScannerConfig holds scanner configuration
type ScannerConfig struct {
	Backend  string        `mapstructure:"backend"` // "auto", "inprocess" or "native"
	Throttle time.Duration `mapstructure:"throttle"`
}

// HistoryConfig holds scan history configuration
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/nutriscan/")

	// Environment variable settings (NUTRISCAN_LOOKUP_BASE_URL -> lookup.base_url)
	v.SetEnvPrefix("NUTRISCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Lookup defaults; base_url has no usable default but must be a known
	// key so the env var is picked up during unmarshal
	v.SetDefault("lookup.base_url", "")
	v.SetDefault("lookup.timeout", "10s")
	v.SetDefault("lookup.requests_per_sec", 5.0)
	v.SetDefault("lookup.min_latency", "300ms")

	// Cache defaults
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("cache.max_entries", 50)

	// Scanner defaults
	v.SetDefault("scanner.backend", "auto")
	v.SetDefault("scanner.throttle", "1500ms")

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "nutriscan.db")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Lookup.BaseURL == "" {
		return fmt.Errorf("lookup base URL is required (set NUTRISCAN_LOOKUP_BASE_URL)")
	}

	switch config.Scanner.Backend {
	case "auto", "inprocess", "native":
	default:
		return fmt.Errorf("scanner backend must be 'auto', 'inprocess' or 'native', got: %s", config.Scanner.Backend)
	}

	if config.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive, got: %d", config.Cache.MaxEntries)
	}

	if config.History.Enabled && config.History.Path == "" {
		return fmt.Errorf("history path is required when history is enabled")
	}

	return nil
}
