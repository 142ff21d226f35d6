package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("SAFERPAY_CUSTOMER_ID", "245294")
	t.Setenv("SAFERPAY_TERMINAL_ID", "17757531")
	t.Setenv("SAFERPAY_API_USERNAME", "API_245294_12345678")
	t.Setenv("SAFERPAY_API_PASSWORD", "secret")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadFromEnv()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicBaseURL)
	assert.Empty(t, cfg.Database.Host)
	assert.True(t, cfg.Gateway.Sandbox)
	assert.Equal(t, 30, cfg.Gateway.Timeout)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SAFERPAY_SANDBOX", "false")
	t.Setenv("SAFERPAY_TIMEOUT", "10")
	t.Setenv("PUBLIC_BASE_URL", "https://pay.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Gateway.Sandbox)
	assert.Equal(t, 10, cfg.Gateway.Timeout)
	assert.Equal(t, "https://pay.example", cfg.Server.PublicBaseURL)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadFromEnv_MissingCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SAFERPAY_API_PASSWORD", "")

	_, err := LoadFromEnv()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFERPAY_API_PASSWORD")
}

func TestLoadFromEnv_DatabasePasswordRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PASSWORD", "")

	_, err := LoadFromEnv()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "saferpay_service",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=saferpay_service sslmode=disable",
		cfg.ConnectionString())
}
