package config

const (
	// Service information
	ServiceName    = "ga4-insights"
	ServiceVersion = "v0.3.0"
	APIVersion     = "v1"

	// Default timeouts (seconds)
	DefaultGA4Timeout      = 30
	DefaultLLMTimeout      = 30
	DefaultShutdownTimeout = 30

	// Report limits
	DefaultRowLimit = 10000

	// Retry configurations
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 500 // milliseconds

	// MaxRequestBodySize caps the POST /ga4 payload.
	MaxRequestBodySize = 1 << 20
)

// Environment-specific constants
var (
	ProductionLogLevel  = "warn"
	StagingLogLevel     = "info"
	DevelopmentLogLevel = "debug"
	TestLogLevel        = "error"
)
