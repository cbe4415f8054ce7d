package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "9000", cfg.Server.DebugPort)
	assert.Equal(t, "9001", cfg.Server.GRPCPort)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Kernel config
	assert.Equal(t, 32768, cfg.Kernel.MaxHandleTableSize)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "9000", cfg.Server.DebugPort)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	// Setup environment variables
	envVars := map[string]string{
		"DEBUG_PORT":            "9100",
		"GRPC_PORT":             "9101",
		"HOST":                  "127.0.0.1",
		"MAX_HANDLE_TABLE_SIZE": "1024",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"RATE_LIMIT_RPS":        "250",
		"RATE_LIMIT_BURST":      "400",
		"RATE_LIMIT_ENABLED":    "false",
	}

	// Set environment variables
	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	// Verify server config
	assert.Equal(t, "9100", cfg.Server.DebugPort)
	assert.Equal(t, "9101", cfg.Server.GRPCPort)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Verify kernel config
	assert.Equal(t, 1024, cfg.Kernel.MaxHandleTableSize)

	// Verify logging config
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	// Verify rate limit config
	assert.Equal(t, 250, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 400, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	// Only set some environment variables
	err := os.Setenv("DEBUG_PORT", "3000")
	require.NoError(t, err)
	defer os.Unsetenv("DEBUG_PORT")

	err = os.Setenv("LOG_LEVEL", "warn")
	require.NoError(t, err)
	defer os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, "3000", cfg.Server.DebugPort)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Verify default values still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "9001", cfg.Server.GRPCPort)
	assert.Equal(t, 32768, cfg.Kernel.MaxHandleTableSize)
}

func TestServerConfig(t *testing.T) {
	tests := []struct {
		name     string
		port     string
		host     string
		wantPort string
		wantHost string
	}{
		{
			name:     "default values",
			port:     "",
			host:     "",
			wantPort: "9000",
			wantHost: "0.0.0.0",
		},
		{
			name:     "custom port",
			port:     "9100",
			host:     "",
			wantPort: "9100",
			wantHost: "0.0.0.0",
		},
		{
			name:     "custom host",
			port:     "",
			host:     "localhost",
			wantPort: "9000",
			wantHost: "localhost",
		},
		{
			name:     "custom port and host",
			port:     "3000",
			host:     "127.0.0.1",
			wantPort: "3000",
			wantHost: "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clean environment
			os.Unsetenv("DEBUG_PORT")
			os.Unsetenv("HOST")

			// Set test values
			if tt.port != "" {
				err := os.Setenv("DEBUG_PORT", tt.port)
				require.NoError(t, err)
				defer os.Unsetenv("DEBUG_PORT")
			}
			if tt.host != "" {
				err := os.Setenv("HOST", tt.host)
				require.NoError(t, err)
				defer os.Unsetenv("HOST")
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantPort, cfg.Server.DebugPort)
			assert.Equal(t, tt.wantHost, cfg.Server.Host)
		})
	}
}

func TestKernelConfig(t *testing.T) {
	tests := []struct {
		name         string
		grpcPort     string
		maxSize      string
		wantGRPCPort string
		wantMaxSize  int
	}{
		{
			name:         "default values",
			grpcPort:     "",
			maxSize:      "",
			wantGRPCPort: "9001",
			wantMaxSize:  32768,
		},
		{
			name:         "custom grpc port",
			grpcPort:     "50051",
			maxSize:      "",
			wantGRPCPort: "50051",
			wantMaxSize:  32768,
		},
		{
			name:         "custom handle table size",
			grpcPort:     "",
			maxSize:      "1024",
			wantGRPCPort: "9001",
			wantMaxSize:  1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clean environment
			os.Unsetenv("GRPC_PORT")
			os.Unsetenv("MAX_HANDLE_TABLE_SIZE")

			// Set test values
			if tt.grpcPort != "" {
				err := os.Setenv("GRPC_PORT", tt.grpcPort)
				require.NoError(t, err)
				defer os.Unsetenv("GRPC_PORT")
			}
			if tt.maxSize != "" {
				err := os.Setenv("MAX_HANDLE_TABLE_SIZE", tt.maxSize)
				require.NoError(t, err)
				defer os.Unsetenv("MAX_HANDLE_TABLE_SIZE")
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantGRPCPort, cfg.Server.GRPCPort)
			assert.Equal(t, tt.wantMaxSize, cfg.Kernel.MaxHandleTableSize)
		})
	}
}

func TestLoggingConfig(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		dev       string
		wantLevel string
		wantDev   bool
	}{
		{
			name:      "default values",
			level:     "",
			dev:       "",
			wantLevel: "info",
			wantDev:   false,
		},
		{
			name:      "debug level",
			level:     "debug",
			dev:       "",
			wantLevel: "debug",
			wantDev:   false,
		},
		{
			name:      "development mode",
			level:     "",
			dev:       "true",
			wantLevel: "info",
			wantDev:   true,
		},
		{
			name:      "error level production",
			level:     "error",
			dev:       "false",
			wantLevel: "error",
			wantDev:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clean environment
			os.Unsetenv("LOG_LEVEL")
			os.Unsetenv("LOG_DEV")

			// Set test values
			if tt.level != "" {
				err := os.Setenv("LOG_LEVEL", tt.level)
				require.NoError(t, err)
				defer os.Unsetenv("LOG_LEVEL")
			}
			if tt.dev != "" {
				err := os.Setenv("LOG_DEV", tt.dev)
				require.NoError(t, err)
				defer os.Unsetenv("LOG_DEV")
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantLevel, cfg.Logging.Level)
			assert.Equal(t, tt.wantDev, cfg.Logging.Development)
		})
	}
}

func TestRateLimitConfig(t *testing.T) {
	tests := []struct {
		name        string
		rps         string
		burst       string
		enabled     string
		wantRPS     int
		wantBurst   int
		wantEnabled bool
	}{
		{
			name:        "default values",
			rps:         "",
			burst:       "",
			enabled:     "",
			wantRPS:     500,
			wantBurst:   1000,
			wantEnabled: true,
		},
		{
			name:        "high limits",
			rps:         "1000",
			burst:       "2000",
			enabled:     "",
			wantRPS:     1000,
			wantBurst:   2000,
			wantEnabled: true,
		},
		{
			name:        "disabled",
			rps:         "",
			burst:       "",
			enabled:     "false",
			wantRPS:     500,
			wantBurst:   1000,
			wantEnabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clean environment
			os.Unsetenv("RATE_LIMIT_RPS")
			os.Unsetenv("RATE_LIMIT_BURST")
			os.Unsetenv("RATE_LIMIT_ENABLED")

			// Set test values
			if tt.rps != "" {
				err := os.Setenv("RATE_LIMIT_RPS", tt.rps)
				require.NoError(t, err)
				defer os.Unsetenv("RATE_LIMIT_RPS")
			}
			if tt.burst != "" {
				err := os.Setenv("RATE_LIMIT_BURST", tt.burst)
				require.NoError(t, err)
				defer os.Unsetenv("RATE_LIMIT_BURST")
			}
			if tt.enabled != "" {
				err := os.Setenv("RATE_LIMIT_ENABLED", tt.enabled)
				require.NoError(t, err)
				defer os.Unsetenv("RATE_LIMIT_ENABLED")
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantRPS, cfg.RateLimit.RequestsPerSecond)
			assert.Equal(t, tt.wantBurst, cfg.RateLimit.Burst)
			assert.Equal(t, tt.wantEnabled, cfg.RateLimit.Enabled)
		})
	}
}
