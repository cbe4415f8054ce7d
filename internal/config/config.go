// Package config loads kerneld's process configuration from the
// environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all of kerneld's configuration.
type Config struct {
	Server    ServerConfig
	Kernel    KernelConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig configures the debug HTTP and gRPC listeners.
type ServerConfig struct {
	DebugPort string `envconfig:"DEBUG_PORT" default:"9000"`
	GRPCPort  string `envconfig:"GRPC_PORT" default:"9001"`
	Host      string `envconfig:"HOST" default:"0.0.0.0"`
}

// KernelConfig bounds the resources a single Core instance may hold.
type KernelConfig struct {
	MaxHandleTableSize int `envconfig:"MAX_HANDLE_TABLE_SIZE" default:"32768"`
}

// LogConfig configures klog.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig bounds Create* call throughput with one token-bucket
// limiter that kerneld applies to every Create* operation of its Core.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"500"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"1000"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault reads configuration from the environment, falling back to
// Default on any error.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns hardcoded configuration matching each field's env default.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{DebugPort: "9000", GRPCPort: "9001", Host: "0.0.0.0"},
		Kernel:    KernelConfig{MaxHandleTableSize: 32768},
		Logging:   LogConfig{Level: "info", Development: false},
		RateLimit: RateLimitConfig{RequestsPerSecond: 500, Burst: 1000, Enabled: true},
	}
}
