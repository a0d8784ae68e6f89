package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Chat defaults
	DefaultChatFilePath = "data/result.json"

	// Processing defaults
	DefaultCacheDir        = "cache"
	DefaultCacheTTL        = 60 * time.Minute
	DefaultCleanupInterval = 1 * time.Hour
	DefaultSampleSize      = 10000
	DefaultMaxPageSize     = 1000
	DefaultTaskTimeout     = 30 * time.Minute
	DefaultTaskTTL         = 24 * time.Hour

	// Metrics defaults
	DefaultMetricsPath = "/metrics"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)
