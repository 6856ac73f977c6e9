package config

import "time"

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	GA4        GA4Config        `mapstructure:"ga4" yaml:"ga4"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Schema     SchemaConfig     `mapstructure:"schema" yaml:"schema"`
	CORS       CORSConfig       `mapstructure:"cors" yaml:"cors"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`
}

// GA4Config handles the Google Analytics Data API backend
type GA4Config struct {
	PropertyID string `mapstructure:"property_id" yaml:"property_id"`
	// Service-account key material. CredentialsJSON wins over CredentialsFile.
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json" yaml:"credentials_json"`
	// Endpoint overrides the Data API base URL (tests, proxies).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries       int           `mapstructure:"retries" yaml:"retries"` // total attempts, 1 disables retry
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay" yaml:"max_retry_delay"`
	RowLimit      int64         `mapstructure:"row_limit" yaml:"row_limit"`
}

// SchemaConfig points at an optional allow-list override file
type SchemaConfig struct {
	AllowListFile string `mapstructure:"allow_list_file" yaml:"allow_list_file"`
}

// CORSConfig handles Cross-Origin Resource Sharing
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// MonitoringConfig handles self-monitoring configuration
type MonitoringConfig struct {
	Enabled           bool   `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath       string `mapstructure:"metrics_path" yaml:"metrics_path"`
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled" yaml:"prometheus_enabled"`
	TracingEnabled    bool   `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	OTLPEndpoint      string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
}
