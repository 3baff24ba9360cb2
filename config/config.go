package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the service configuration, read from a .env file and the
// process environment (environment wins).
type Config struct {
	Port string `mapstructure:"PORT"`

	// Engine
	WebhookSecret      string `mapstructure:"WEBHOOK_SECRET"`
	ValidateSignatures bool   `mapstructure:"VALIDATE_SIGNATURES"`
	MaxQueueSize       int    `mapstructure:"MAX_QUEUE_SIZE"`
	IgnorePingEvents   bool   `mapstructure:"IGNORE_PING_EVENTS"`
	Workers            int    `mapstructure:"WORKERS"`

	// Forwarding targets file; empty disables forwarding
	TargetsFile string `mapstructure:"TARGETS_FILE"`

	// Event archive
	RecentEventsLimit int    `mapstructure:"RECENT_EVENTS_LIMIT"`
	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int    `mapstructure:"REDIS_DB"`
	EventTTLHours     int    `mapstructure:"EVENT_TTL_HOURS"`
}

func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("WEBHOOK_SECRET", "")
	viper.SetDefault("VALIDATE_SIGNATURES", true)
	viper.SetDefault("MAX_QUEUE_SIZE", 100)
	viper.SetDefault("IGNORE_PING_EVENTS", false)
	viper.SetDefault("WORKERS", 1)
	viper.SetDefault("TARGETS_FILE", "")
	viper.SetDefault("RECENT_EVENTS_LIMIT", 100)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("EVENT_TTL_HOURS", 24)

	// The .env file is optional; env vars and defaults cover everything
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}
