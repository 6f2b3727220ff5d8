package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// loaded from environment variables, no magic defaults for required fields.
type Config struct {
	Database  DatabaseConfig
	Buffer    BufferConfig
	Batch     BatchConfig
	Broadcast BroadcastConfig
	RPS       RPSConfig
}

// DatabaseConfig contains relational store connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Schema   string
}

// BufferConfig contains Metrics Store (Redis) connection parameters.
type BufferConfig struct {
	Host string
	Port string
}

// BatchConfig contains Batch Coordinator dual-trigger thresholds.
type BatchConfig struct {
	// Size is the volume trigger: flush as soon as the staging area holds
	// this many messages.
	Size int
	// Timeout is the time trigger: flush once the oldest staged message
	// has been waiting this long, even if Size has not been reached.
	Timeout time.Duration
}

// BroadcastConfig contains Telemetry Broadcaster tick parameters.
type BroadcastConfig struct {
	Interval time.Duration
}

// RPSConfig contains the RPS estimator's sliding window width.
type RPSConfig struct {
	Window time.Duration
}

// ConnectionString returns the postgres connection string.
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
		c.Schema,
	)
}

// Addr returns the buffer's host:port address.
func (c BufferConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Load reads configuration from environment variables.
// loads .env file if present, but doesn't fail if it's missing.
func Load() (*Config, error) {
	// try to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	bufferConfig := loadBufferConfig()

	batchConfig, err := loadBatchConfig()
	if err != nil {
		return nil, fmt.Errorf("batch config: %w", err)
	}

	broadcastConfig, err := loadBroadcastConfig()
	if err != nil {
		return nil, fmt.Errorf("broadcast config: %w", err)
	}

	rpsConfig, err := loadRPSConfig()
	if err != nil {
		return nil, fmt.Errorf("rps config: %w", err)
	}

	return &Config{
		Database:  dbConfig,
		Buffer:    bufferConfig,
		Batch:     batchConfig,
		Broadcast: broadcastConfig,
		RPS:       rpsConfig,
	}, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	config := DatabaseConfig{
		Host:     getEnvOrDefault("STORE_HOST", "localhost"),
		Port:     getEnvOrDefault("STORE_PORT", "5432"),
		User:     os.Getenv("STORE_USER"),
		Password: os.Getenv("STORE_PASSWORD"),
		Name:     os.Getenv("STORE_DB"),
		SSLMode:  getEnvOrDefault("STORE_SSL_MODE", "disable"),
		Schema:   getEnvOrDefault("STORE_SCHEMA", "public"),
	}

	// required fields must be set
	if config.User == "" {
		return config, errors.New("STORE_USER is required")
	}
	if config.Password == "" {
		return config, errors.New("STORE_PASSWORD is required")
	}
	if config.Name == "" {
		return config, errors.New("STORE_DB is required")
	}

	return config, nil
}

func loadBufferConfig() BufferConfig {
	return BufferConfig{
		Host: getEnvOrDefault("BUFFER_HOST", "localhost"),
		Port: getEnvOrDefault("BUFFER_PORT", "6379"),
	}
}

func loadBatchConfig() (BatchConfig, error) {
	size, err := getEnvIntOrDefault("BATCH_SIZE", 50)
	if err != nil {
		return BatchConfig{}, err
	}
	if size <= 0 {
		return BatchConfig{}, errors.New("BATCH_SIZE must be positive")
	}

	timeoutSeconds, err := getEnvIntOrDefault("BATCH_TIMEOUT", 30)
	if err != nil {
		return BatchConfig{}, err
	}
	if timeoutSeconds <= 0 {
		return BatchConfig{}, errors.New("BATCH_TIMEOUT must be positive")
	}

	return BatchConfig{
		Size:    size,
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

func loadBroadcastConfig() (BroadcastConfig, error) {
	ms, err := getEnvIntOrDefault("BROADCAST_INTERVAL_MS", 500)
	if err != nil {
		return BroadcastConfig{}, err
	}
	if ms <= 0 {
		return BroadcastConfig{}, errors.New("BROADCAST_INTERVAL_MS must be positive")
	}
	return BroadcastConfig{Interval: time.Duration(ms) * time.Millisecond}, nil
}

func loadRPSConfig() (RPSConfig, error) {
	seconds, err := getEnvIntOrDefault("RPS_WINDOW_SECONDS", 10)
	if err != nil {
		return RPSConfig{}, err
	}
	if seconds <= 0 {
		return RPSConfig{}, errors.New("RPS_WINDOW_SECONDS must be positive")
	}
	return RPSConfig{Window: time.Duration(seconds) * time.Second}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}
