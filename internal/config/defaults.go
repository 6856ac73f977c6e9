package config

import "time"

// GetDefaultConfig returns a configuration with all default values.
// Property id and credentials have no defaults and must be supplied.
func GetDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Port:        8010,
		LogLevel:    "info",

		GA4: GA4Config{
			Timeout:       time.Duration(DefaultGA4Timeout) * time.Second,
			Retries:       DefaultRetryAttempts,
			RetryDelay:    time.Duration(DefaultRetryDelay) * time.Millisecond,
			MaxRetryDelay: 5 * time.Second,
			RowLimit:      DefaultRowLimit,
		},

		LLM: DefaultLLMConfig(),

		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           3600,
		},

		Monitoring: MonitoringConfig{
			Enabled:           true,
			MetricsPath:       "/metrics",
			PrometheusEnabled: true,
			TracingEnabled:    false,
		},
	}
}
