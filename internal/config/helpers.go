package config

import (
	"encoding/json"
	"os"
	"strings"
)

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// ResolveEnvRef expands a value of the form "${VAR}" to the content of VAR.
// Anything else is returned unchanged.
func ResolveEnvRef(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return value
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ToJSON renders the configuration with secrets redacted.
func (c *Config) ToJSON() string {
	redacted := *c
	redacted.GA4.CredentialsJSON = redact(redacted.GA4.CredentialsJSON)
	redacted.LLM.OpenAI.APIKey = redact(redacted.LLM.OpenAI.APIKey)
	redacted.LLM.Anthropic.APIKey = redact(redacted.LLM.Anthropic.APIKey)

	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
