// Package config provides configuration management for EmberDB.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the EmberDB server configuration.
type Config struct {
	// Server settings
	Addr string `mapstructure:"addr"`

	// Logging
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days"`

	// Performance
	MaxClients  int           `mapstructure:"max_clients"`
	Timeout     time.Duration `mapstructure:"timeout"`
	HotKeyLimit int           `mapstructure:"hot_key_limit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:          ":6379",
		LogLevel:      "info",
		LogFile:       "", // stdout
		LogMaxSizeMB:  100,
		LogMaxBackups: 3,
		LogMaxAgeDays: 28,
		MaxClients:    10000,
		Timeout:       0, // No timeout
		HotKeyLimit:   1024,
	}
}

// Load reads configuration from a YAML file, layered over defaults.
// Environment variables prefixed with EMBERDB_ override both, so
// EMBERDB_MAX_CLIENTS=100 beats any file value. An empty path skips
// the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("EMBERDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("log_max_size_mb", cfg.LogMaxSizeMB)
	v.SetDefault("log_max_backups", cfg.LogMaxBackups)
	v.SetDefault("log_max_age_days", cfg.LogMaxAgeDays)
	v.SetDefault("max_clients", cfg.MaxClients)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("hot_key_limit", cfg.HotKeyLimit)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
