// Package config provides 12-factor configuration management for kerneld.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: debug HTTP port, gRPC port and listen host
//   - Kernel: handle table capacity of the Core instance
//   - Logging: Log level and output format
//   - RateLimit: token-bucket limit on Core's Create* operations
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Debug server on %s:%s\n", cfg.Server.Host, cfg.Server.DebugPort)
//
// Environment Variables:
//   - DEBUG_PORT, GRPC_PORT, HOST, MAX_HANDLE_TABLE_SIZE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
