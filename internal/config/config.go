// Package config loads the graphbill configuration from graphbill.yml,
// environment variables, or defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the graphbill configuration
type Config struct {
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Provider ProviderConfig `mapstructure:"provider"`
	Server   ServerConfig   `mapstructure:"server"`
	Webhooks WebhookConfig  `mapstructure:"webhooks"`
}

// Neo4jConfig represents graph database configuration
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// RedisConfig represents the retry-state store configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProviderConfig represents payment provider credentials
type ProviderConfig struct {
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

// WebhookConfig represents webhook delivery tuning
type WebhookConfig struct {
	MaxAttempts       int64         `mapstructure:"max_attempts"`
	AttemptTTL        time.Duration `mapstructure:"attempt_ttl"`
	RedeliverInterval time.Duration `mapstructure:"redeliver_interval"`
}

// Addr returns the host:port the server binds.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load loads the configuration from graphbill.yml or graphbill.yaml
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.rate_window", time.Minute)
	v.SetDefault("webhooks.max_attempts", 5)
	v.SetDefault("webhooks.attempt_ttl", 24*time.Hour)
	v.SetDefault("webhooks.redeliver_interval", 30*time.Second)

	// Set config name and paths
	v.SetConfigName("graphbill")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable support
	v.SetEnvPrefix("GRAPHBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}
	if cfg.Webhooks.MaxAttempts < 1 {
		return fmt.Errorf("webhooks.max_attempts must be at least 1, got: %d", cfg.Webhooks.MaxAttempts)
	}
	return nil
}
