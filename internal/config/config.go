/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the renewal-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                  string `mapstructure:"SERVER_PORT"`
	DatabaseURL                 string `mapstructure:"DATABASE_URL"`
	RedisURL                    string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix        string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                 string `mapstructure:"RABBITMQ_URL"`
	JWTSecret                   string `mapstructure:"JWT_SECRET"`
	InternalAPIKey              string `mapstructure:"INTERNAL_API_KEY"`
	BatchSize                   int    `mapstructure:"RENEWAL_BATCH_SIZE"`
	ConcurrentBatches           int    `mapstructure:"RENEWAL_CONCURRENT_BATCHES"`
	MaxRetries                  int    `mapstructure:"RENEWAL_MAX_RETRIES"`
	BufferDays                  int    `mapstructure:"DELIVERY_BUFFER_DAYS"`
	RenewalJobSchedule          string `mapstructure:"RENEWAL_JOB_SCHEDULE"`
	RenewalTimezone             string `mapstructure:"RENEWAL_TIMEZONE"`
	LifecycleRateLimitPerMinute int    `mapstructure:"LIFECYCLE_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RENEWAL_BATCH_SIZE", 100)
	viper.SetDefault("RENEWAL_CONCURRENT_BATCHES", 5)
	viper.SetDefault("RENEWAL_MAX_RETRIES", 3)
	viper.SetDefault("DELIVERY_BUFFER_DAYS", 2)
	viper.SetDefault("RENEWAL_JOB_SCHEDULE", "0 1 * * *") // At 01:00 every day.
	viper.SetDefault("RENEWAL_TIMEZONE", "UTC")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "shoply:rate_limit")
	viper.SetDefault("LIFECYCLE_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "RENEWAL_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("RENEWAL_BATCH_SIZE")
	_ = viper.BindEnv("RENEWAL_CONCURRENT_BATCHES")
	_ = viper.BindEnv("RENEWAL_MAX_RETRIES")
	_ = viper.BindEnv("DELIVERY_BUFFER_DAYS")
	_ = viper.BindEnv("RENEWAL_JOB_SCHEDULE")
	_ = viper.BindEnv("RENEWAL_TIMEZONE")
	_ = viper.BindEnv("LIFECYCLE_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "shoply:rate_limit"
	}

	if config.DatabaseURL == "" {
		return config, fmt.Errorf("DATABASE_URL must be set")
	}
	if strings.TrimSpace(config.JWTSecret) == "" {
		return config, fmt.Errorf("JWT_SECRET must be set")
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		return config, fmt.Errorf("INTERNAL_API_KEY must be set")
	}
	if config.BatchSize <= 0 {
		return config, fmt.Errorf("RENEWAL_BATCH_SIZE must be positive, got %d", config.BatchSize)
	}
	if config.ConcurrentBatches <= 0 {
		return config, fmt.Errorf("RENEWAL_CONCURRENT_BATCHES must be positive, got %d", config.ConcurrentBatches)
	}
	if config.MaxRetries < 0 {
		return config, fmt.Errorf("RENEWAL_MAX_RETRIES must not be negative, got %d", config.MaxRetries)
	}
	if config.BufferDays < 0 {
		return config, fmt.Errorf("DELIVERY_BUFFER_DAYS must not be negative, got %d", config.BufferDays)
	}
	if config.LifecycleRateLimitPerMinute <= 0 {
		config.LifecycleRateLimitPerMinute = 30
	}

	return config, nil
}
