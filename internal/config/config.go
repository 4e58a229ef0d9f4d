package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// minTokenSecretLength is the shortest HMAC secret accepted for payment tokens.
const minTokenSecretLength = 32

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Payment  PaymentConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	Timezone string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	PoolMin     int
	PoolMax     int
	AutoMigrate bool
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// PaymentConfig holds the simulated wallet and webhook settings.
type PaymentConfig struct {
	TokenSecret       string
	TokenTTL          time.Duration
	EchoOTP           bool
	WebhookTimeout    time.Duration
	WebhookMaxRetries int
	WebhookSecret     string
}

// Location resolves the configured billing timezone.
func (s ServerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present; real
// environment variables always win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("TIMEZONE", "Asia/Manila")
	v.SetDefault("DB_HOST", "host.docker.internal")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "revenue")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("PAYMENT_TOKEN_TTL", "10m")
	v.SetDefault("PAYMENT_ECHO_OTP", true)
	v.SetDefault("WEBHOOK_TIMEOUT", "5s")
	v.SetDefault("WEBHOOK_MAX_RETRIES", 3)

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			Timezone: v.GetString("TIMEZONE"),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			Name:        v.GetString("DB_NAME"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			PoolMin:     v.GetInt("DB_POOL_MIN"),
			PoolMax:     v.GetInt("DB_POOL_MAX"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Payment: PaymentConfig{
			TokenSecret:       v.GetString("PAYMENT_TOKEN_SECRET"),
			TokenTTL:          v.GetDuration("PAYMENT_TOKEN_TTL"),
			EchoOTP:           v.GetBool("PAYMENT_ECHO_OTP"),
			WebhookTimeout:    v.GetDuration("WEBHOOK_TIMEOUT"),
			WebhookMaxRetries: v.GetInt("WEBHOOK_MAX_RETRIES"),
			WebhookSecret:     v.GetString("WEBHOOK_SECRET"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := c.Server.Location(); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	if len(c.Payment.TokenSecret) < minTokenSecretLength {
		return fmt.Errorf("PAYMENT_TOKEN_SECRET must be at least %d characters", minTokenSecretLength)
	}
	if c.Payment.TokenTTL <= 0 {
		return fmt.Errorf("PAYMENT_TOKEN_TTL must be positive")
	}
	if c.Payment.WebhookTimeout <= 0 || c.Payment.WebhookTimeout > time.Minute {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be between 0 and 1m")
	}
	if c.Payment.WebhookMaxRetries < 0 {
		return fmt.Errorf("WEBHOOK_MAX_RETRIES must be non-negative")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
