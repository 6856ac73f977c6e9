package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for nested keys, e.g. GA4INSIGHTS_GA4_ROW_LIMIT.
const EnvPrefix = "GA4INSIGHTS"

// Load loads configuration from various sources with priority order:
// 1. Environment variables
// 2. Configuration file (CONFIG_PATH, or config.yaml on the search path)
// 3. Presets for the configured environment
// 4. Default values
//
// Secrets are resolved and the result validated; a missing property id,
// missing credentials or a missing model API key are reported here so the
// process can refuse to start.
func Load() (*Config, error) {
	v := viper.New()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/ga4-insights/")
		v.AddConfigPath("./configs/")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars and defaults
	}

	overrideWithEnvVars(v)
	applyEnvironmentDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := LoadSecrets(&config); err != nil {
		RecordValidationError()
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		RecordValidationError()
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// LoadDotEnv populates the process environment from the given .env files
// (".env" when none are given). Missing files are ignored and variables
// already present in the environment are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// setDefaults sets reasonable default values
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	// Server defaults
	v.SetDefault("environment", d.Environment)
	v.SetDefault("port", d.Port)
	v.SetDefault("log_level", d.LogLevel)

	// GA4 backend
	v.SetDefault("ga4.property_id", "")
	v.SetDefault("ga4.credentials_file", "")
	v.SetDefault("ga4.credentials_json", "")
	v.SetDefault("ga4.endpoint", "")
	v.SetDefault("ga4.timeout", d.GA4.Timeout)
	v.SetDefault("ga4.retries", d.GA4.Retries)
	v.SetDefault("ga4.retry_delay", d.GA4.RetryDelay)
	v.SetDefault("ga4.max_retry_delay", d.GA4.MaxRetryDelay)
	v.SetDefault("ga4.row_limit", d.GA4.RowLimit)

	// LLM
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.extraction_prompt", d.LLM.ExtractionPrompt)
	v.SetDefault("llm.summary_prompt", d.LLM.SummaryPrompt)
	v.SetDefault("llm.openai.endpoint", "")
	v.SetDefault("llm.openai.api_key", d.LLM.OpenAI.APIKey)
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.max_tokens", d.LLM.OpenAI.MaxTokens)
	v.SetDefault("llm.openai.temperature", d.LLM.OpenAI.Temperature)
	v.SetDefault("llm.anthropic.endpoint", "")
	v.SetDefault("llm.anthropic.api_key", d.LLM.Anthropic.APIKey)
	v.SetDefault("llm.anthropic.model", d.LLM.Anthropic.Model)
	v.SetDefault("llm.anthropic.max_tokens", d.LLM.Anthropic.MaxTokens)

	v.SetDefault("schema.allow_list_file", "")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", d.CORS.AllowedOrigins)
	v.SetDefault("cors.allowed_methods", d.CORS.AllowedMethods)
	v.SetDefault("cors.allowed_headers", d.CORS.AllowedHeaders)
	v.SetDefault("cors.exposed_headers", d.CORS.ExposedHeaders)
	v.SetDefault("cors.allow_credentials", d.CORS.AllowCredentials)
	v.SetDefault("cors.max_age", d.CORS.MaxAge)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", d.Monitoring.Enabled)
	v.SetDefault("monitoring.metrics_path", d.Monitoring.MetricsPath)
	v.SetDefault("monitoring.prometheus_enabled", d.Monitoring.PrometheusEnabled)
	v.SetDefault("monitoring.tracing_enabled", d.Monitoring.TracingEnabled)
	v.SetDefault("monitoring.otlp_endpoint", "")
}

// overrideWithEnvVars explicitly handles the well-known, unprefixed
// environment variables.
func overrideWithEnvVars(v *viper.Viper) {
	// Server configuration
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("port", p)
		}
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", logLevel)
	}

	// GA4
	if propertyID := os.Getenv("GA4_PROPERTY_ID"); propertyID != "" {
		v.Set("ga4.property_id", strings.TrimSpace(propertyID))
	}

	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" && v.GetString("ga4.credentials_file") == "" {
		v.Set("ga4.credentials_file", credFile)
	}

	// LLM
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		v.Set("llm.provider", strings.ToLower(strings.TrimSpace(provider)))
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		switch strings.ToLower(v.GetString("llm.provider")) {
		case "anthropic":
			v.Set("llm.anthropic.model", model)
		default:
			v.Set("llm.openai.model", model)
		}
	}

	if openaiURL := os.Getenv("OPENAI_BASE_URL"); openaiURL != "" {
		v.Set("llm.openai.endpoint", openaiURL)
	}

	if anthropicURL := os.Getenv("ANTHROPIC_BASE_URL"); anthropicURL != "" {
		v.Set("llm.anthropic.endpoint", anthropicURL)
	}

	// Tracing
	if otlp := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); otlp != "" {
		v.Set("monitoring.otlp_endpoint", otlp)
		v.Set("monitoring.tracing_enabled", true)
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	// Validate port range
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	validEnvironments := []string{"development", "staging", "production", "test"}
	if !contains(validEnvironments, config.Environment) {
		return fmt.Errorf("invalid environment: %s", config.Environment)
	}

	if err := validateGA4(&config.GA4); err != nil {
		return err
	}
	return validateLLM(&config.LLM)
}

func validateGA4(c *GA4Config) error {
	if strings.TrimSpace(c.PropertyID) == "" {
		return fmt.Errorf("GA4 property id is required (GA4_PROPERTY_ID)")
	}
	if _, err := strconv.ParseUint(c.PropertyID, 10, 64); err != nil {
		return fmt.Errorf("GA4 property id must be numeric: %q", c.PropertyID)
	}
	if c.CredentialsJSON == "" && c.CredentialsFile == "" {
		return fmt.Errorf("GA4 credentials are required (GOOGLE_APPLICATION_CREDENTIALS, GA4_CREDENTIALS_JSON or GA4_CREDENTIALS_BASE64)")
	}
	if c.Endpoint != "" {
		if err := ValidateEndpoint(c.Endpoint); err != nil {
			return fmt.Errorf("invalid GA4 endpoint: %w", err)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("GA4 timeout must be positive")
	}
	if c.Retries < 1 {
		return fmt.Errorf("GA4 retries must be at least 1")
	}
	if c.RowLimit < 1 || c.RowLimit > 250000 {
		return fmt.Errorf("GA4 row limit must be between 1 and 250000")
	}
	return nil
}

func validateLLM(c *LLMConfig) error {
	if c.Timeout <= 0 {
		return fmt.Errorf("LLM timeout must be positive")
	}
	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OpenAI API key is required (OPENAI_API_KEY)")
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("OpenAI model is required")
		}
		if c.OpenAI.Endpoint != "" {
			if err := ValidateEndpoint(c.OpenAI.Endpoint); err != nil {
				return fmt.Errorf("invalid OpenAI endpoint: %w", err)
			}
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("Anthropic API key is required (ANTHROPIC_API_KEY)")
		}
		if c.Anthropic.Model == "" {
			return fmt.Errorf("Anthropic model is required")
		}
		if c.Anthropic.Endpoint != "" {
			if err := ValidateEndpoint(c.Anthropic.Endpoint); err != nil {
				return fmt.Errorf("invalid Anthropic endpoint: %w", err)
			}
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.Provider)
	}
	return nil
}
