package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ConfigValidationErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "ga4_insights_config_validation_errors_total",
		Help: "Total number of configuration validation errors",
	},
)

// RecordValidationError records a configuration validation error
func RecordValidationError() {
	ConfigValidationErrors.Inc()
}
