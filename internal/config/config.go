package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int
	Host          string
	MetricsPort   int
	PublicBaseURL string // externally reachable base URL used in return/notify URLs
}

// DatabaseConfig holds PostgreSQL configuration. When Host is empty the
// service falls back to the in-memory payment store.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// GatewayConfig holds Saferpay gateway configuration
type GatewayConfig struct {
	CustomerID string // Saferpay customer id
	TerminalID string // Saferpay terminal id
	Username   string // JSON API username
	Password   string // JSON API password
	Sandbox    bool   // true selects the test endpoint
	Timeout    int    // Request timeout in seconds (default: 30)
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnvAsInt("SERVER_PORT", 8080),
			Host:          getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:   getEnvAsInt("METRICS_PORT", 9090),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "saferpay_service"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			CustomerID: getEnv("SAFERPAY_CUSTOMER_ID", ""),
			TerminalID: getEnv("SAFERPAY_TERMINAL_ID", ""),
			Username:   getEnv("SAFERPAY_API_USERNAME", ""),
			Password:   getEnv("SAFERPAY_API_PASSWORD", ""),
			Sandbox:    getEnvAsBool("SAFERPAY_SANDBOX", true),
			Timeout:    getEnvAsInt("SAFERPAY_TIMEOUT", 30),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if cfg.Gateway.CustomerID == "" {
		return nil, fmt.Errorf("SAFERPAY_CUSTOMER_ID is required")
	}
	if cfg.Gateway.TerminalID == "" {
		return nil, fmt.Errorf("SAFERPAY_TERMINAL_ID is required")
	}
	if cfg.Gateway.Username == "" {
		return nil, fmt.Errorf("SAFERPAY_API_USERNAME is required")
	}
	if cfg.Gateway.Password == "" {
		return nil, fmt.Errorf("SAFERPAY_API_PASSWORD is required")
	}
	if cfg.Database.Host != "" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when DB_HOST is set")
	}

	return cfg, nil
}

// ConnectionString returns the PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
