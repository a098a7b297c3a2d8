// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Addr string `mapstructure:"addr" yaml:"addr"`
	} `mapstructure:"server" yaml:"server"`

	Storage struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"storage" yaml:"storage"`

	Pipeline struct {
		Concurrency           int `mapstructure:"concurrency" yaml:"concurrency"`
		ExtractTimeoutSeconds int `mapstructure:"extract_timeout_seconds" yaml:"extract_timeout_seconds"`
		StorageRetries        int `mapstructure:"storage_retries" yaml:"storage_retries"`
		StorageRetryBackoffMS int `mapstructure:"storage_retry_backoff_ms" yaml:"storage_retry_backoff_ms"`
	} `mapstructure:"pipeline" yaml:"pipeline"`

	Dedup struct {
		WindowMinutes   int     `mapstructure:"window_minutes" yaml:"window_minutes"`
		AmountThreshold float64 `mapstructure:"amount_threshold" yaml:"amount_threshold"`
	} `mapstructure:"dedup" yaml:"dedup"`

	Extractor struct {
		Model          string            `mapstructure:"model" yaml:"model"`
		APIKey         string            `mapstructure:"api_key" yaml:"-"` // Never serialize API keys
		BotAPIKeys     map[string]string `mapstructure:"bot_api_keys" yaml:"-"`
		TimeoutSeconds int               `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	} `mapstructure:"extractor" yaml:"extractor"`

	Directory struct {
		OperatorsFile string `mapstructure:"operators_file" yaml:"operators_file"`
	} `mapstructure:"directory" yaml:"directory"`

	Hub struct {
		SubscriberBuffer int `mapstructure:"subscriber_buffer" yaml:"subscriber_buffer"`
	} `mapstructure:"hub" yaml:"hub"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.parcer")
	v.AddConfigPath(".parcer")
	v.AddConfigPath(".")

	// 3. Environment variables
	v.SetEnvPrefix("PARCER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Log the error but don't fail - continue with defaults and env vars
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// 5. The extractor key always comes from the environment, unprefixed
	if err := v.BindEnv("extractor.api_key", "GEMINI_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind GEMINI_API_KEY environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("storage.path", "parcer.db")

	v.SetDefault("pipeline.concurrency", 8)
	v.SetDefault("pipeline.extract_timeout_seconds", 30)
	v.SetDefault("pipeline.storage_retries", 3)
	v.SetDefault("pipeline.storage_retry_backoff_ms", 200)

	v.SetDefault("dedup.window_minutes", 2)
	v.SetDefault("dedup.amount_threshold", 0.01)

	v.SetDefault("extractor.model", "gemini-1.5-flash")
	v.SetDefault("extractor.timeout_seconds", 30)

	v.SetDefault("directory.operators_file", "operators.yaml")

	v.SetDefault("hub.subscriber_buffer", 64)
}

// validateConfig validates the loaded configuration values
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be at least 1, got %d", config.Pipeline.Concurrency)
	}
	if config.Pipeline.ExtractTimeoutSeconds < 1 {
		return fmt.Errorf("pipeline.extract_timeout_seconds must be at least 1, got %d", config.Pipeline.ExtractTimeoutSeconds)
	}
	if config.Dedup.WindowMinutes < 1 {
		return fmt.Errorf("dedup.window_minutes must be at least 1, got %d", config.Dedup.WindowMinutes)
	}
	if config.Dedup.AmountThreshold <= 0 {
		return fmt.Errorf("dedup.amount_threshold must be positive, got %f", config.Dedup.AmountThreshold)
	}
	if config.Hub.SubscriberBuffer < 1 {
		return fmt.Errorf("hub.subscriber_buffer must be at least 1, got %d", config.Hub.SubscriberBuffer)
	}

	return nil
}
