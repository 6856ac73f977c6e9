package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// LoadSecrets loads sensitive configuration from environment or files and
// expands "${VAR}" references in API keys.
func LoadSecrets(config *Config) error {
	// GA4 service-account key, most specific source first
	if b64 := os.Getenv("GA4_CREDENTIALS_BASE64"); b64 != "" {
		decoded, err := DecodeSecret(strings.TrimSpace(b64))
		if err != nil {
			return fmt.Errorf("GA4_CREDENTIALS_BASE64: %w", err)
		}
		config.GA4.CredentialsJSON = decoded
	} else if raw := os.Getenv("GA4_CREDENTIALS_JSON"); raw != "" {
		config.GA4.CredentialsJSON = raw
	}

	if config.GA4.CredentialsFile == "" {
		config.GA4.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	// Model API keys
	openaiKey, err := secretFromEnvOrFile("OPENAI_API_KEY")
	if err != nil {
		return err
	}
	if openaiKey != "" {
		config.LLM.OpenAI.APIKey = openaiKey
	} else {
		config.LLM.OpenAI.APIKey = ResolveEnvRef(config.LLM.OpenAI.APIKey)
	}

	anthropicKey, err := secretFromEnvOrFile("ANTHROPIC_API_KEY")
	if err != nil {
		return err
	}
	if anthropicKey != "" {
		config.LLM.Anthropic.APIKey = anthropicKey
	} else {
		config.LLM.Anthropic.APIKey = ResolveEnvRef(config.LLM.Anthropic.APIKey)
	}

	return nil
}

// secretFromEnvOrFile reads NAME, falling back to the file named by NAME_FILE.
func secretFromEnvOrFile(name string) (string, error) {
	if v := os.Getenv(name); v != "" {
		return strings.TrimSpace(v), nil
	}
	path := os.Getenv(name + "_FILE")
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s file: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// EncodeSecret base64 encodes a secret for storage
func EncodeSecret(secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(secret))
}

// DecodeSecret base64 decodes a stored secret
func DecodeSecret(encodedSecret string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encodedSecret)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret: %w", err)
	}
	return string(decoded), nil
}
