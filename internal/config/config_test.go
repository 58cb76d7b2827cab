package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/basalt/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("should load config with defaults", func(t *testing.T) {
		// Clear environment
		os.Clearenv()

		cfg := config.Load()

		require.NotNil(t, cfg)

		// Verify defaults
		require.Equal(t, 8080, cfg.Server.Port)
		require.Equal(t, 30, cfg.Server.ReadTimeout)
		require.Equal(t, 300, cfg.Server.WriteTimeout)
		require.Equal(t, "bedrock", cfg.Transport.Mode)
		require.Equal(t, "us-east-1", cfg.Bedrock.Region)
		require.Equal(t, 3, cfg.Bedrock.MaxRetries)
		require.False(t, cfg.Cache.Enabled)
		require.Equal(t, "localhost:6379", cfg.Cache.Addr)
	})

	t.Run("should load config from environment variables", func(t *testing.T) {
		// Set environment variables using t.Setenv for automatic cleanup
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("SERVER_READ_TIMEOUT", "60")
		t.Setenv("TRANSPORT_MODE", "echo")
		t.Setenv("AWS_REGION", "eu-west-1")
		t.Setenv("AWS_PROFILE", "sandbox")
		t.Setenv("BEDROCK_ENDPOINT", "http://localhost:4566")
		t.Setenv("CACHE_ENABLED", "true")
		t.Setenv("CACHE_REDIS_ADDR", "redis:6379")

		cfg := config.Load()

		require.NotNil(t, cfg)

		// Verify loaded values
		require.Equal(t, 9000, cfg.Server.Port)
		require.Equal(t, 60, cfg.Server.ReadTimeout)
		require.Equal(t, "echo", cfg.Transport.Mode)
		require.Equal(t, "eu-west-1", cfg.Bedrock.Region)
		require.Equal(t, "sandbox", cfg.Bedrock.Profile)
		require.Equal(t, "http://localhost:4566", cfg.Bedrock.Endpoint)
		require.True(t, cfg.Cache.Enabled)
		require.Equal(t, "redis:6379", cfg.Cache.Addr)
	})
}
