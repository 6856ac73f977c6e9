package config

import "github.com/spf13/viper"

// environmentPresets are layered over the base defaults for the configured
// environment. Values from the config file or the environment still win.
var environmentPresets = map[string]map[string]any{
	"production": {
		"log_level":              ProductionLogLevel,
		"cors.allowed_origins":   []string{},
		"cors.allow_credentials": false,
	},
	"staging": {
		"log_level": StagingLogLevel,
	},
	"development": {
		"log_level": DevelopmentLogLevel,
	},
	"test": {
		"log_level":                  TestLogLevel,
		"monitoring.tracing_enabled": false,
		// fail fast in tests
		"ga4.retries": 1,
	},
}

// applyEnvironmentDefaults must run after the config file and environment
// have been read, since the environment name itself may come from either.
func applyEnvironmentDefaults(v *viper.Viper) {
	for key, value := range environmentPresets[v.GetString("environment")] {
		v.SetDefault(key, value)
	}
}
