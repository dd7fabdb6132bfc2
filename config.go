package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the cache server.
type Config struct {
	// Server settings
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Store settings
	Shards int `mapstructure:"shards"`

	// Sweeper settings
	CleanupGap     time.Duration `mapstructure:"cleanup_gap"`
	SampleFraction float64       `mapstructure:"sample_fraction"`
	RepeatRatio    float64       `mapstructure:"repeat_ratio"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Metrics
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           11211,
		Shards:         32,
		CleanupGap:     10 * time.Second,
		SampleFraction: 0.10,
		RepeatRatio:    0.25,
		LogLevel:       "info",
		LogFormat:      "text",
		MetricsAddr:    "127.0.0.1:9121",
	}
}

// LoadConfig loads configuration from flags, environment variables and an optional config file.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("gofastcache")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/gofastcache/")
	viper.AddConfigPath("$HOME/.gofastcache")

	viper.SetEnvPrefix("GOFASTCACHE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("host", config.Host)
	viper.SetDefault("port", config.Port)
	viper.SetDefault("shards", config.Shards)
	viper.SetDefault("cleanup_gap", config.CleanupGap)
	viper.SetDefault("sample_fraction", config.SampleFraction)
	viper.SetDefault("repeat_ratio", config.RepeatRatio)
	viper.SetDefault("log_level", config.LogLevel)
	viper.SetDefault("log_format", config.LogFormat)
	viper.SetDefault("metrics_addr", config.MetricsAddr)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	if c.Shards < 1 {
		return fmt.Errorf("shards must be at least 1")
	}

	if c.SampleFraction <= 0 || c.SampleFraction > 1 {
		return fmt.Errorf("sample_fraction must be in (0, 1]")
	}

	if c.RepeatRatio <= 0 || c.RepeatRatio > 1 {
		return fmt.Errorf("repeat_ratio must be in (0, 1]")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"text", "json"}
	validFormat := false
	for _, format := range validLogFormats {
		if c.LogFormat == format {
			validFormat = true
			break
		}
	}
	if !validFormat {
		return fmt.Errorf("invalid log_format: %s (must be one of: %s)",
			c.LogFormat, strings.Join(validLogFormats, ", "))
	}

	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("gofastcache Config: %s:%d, shards=%d, cleanup_gap=%v, sample_fraction=%.2f",
		c.Host, c.Port, c.Shards, c.CleanupGap, c.SampleFraction)
}
