package config

import "time"

// LLMConfig contains configuration for the language model used to turn
// questions into report queries and to summarize report results.
type LLMConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"` // "openai" | "anthropic"

	// Provider-specific configurations
	OpenAI    OpenAIConfig    `mapstructure:"openai" yaml:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic" yaml:"anthropic"`

	// Timeout bounds each individual model call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// ExtractionPrompt is the system prompt for the tool-call round.
	ExtractionPrompt string `mapstructure:"extraction_prompt" yaml:"extraction_prompt"`
	// SummaryPrompt is the system prompt for the summarization round.
	SummaryPrompt string `mapstructure:"summary_prompt" yaml:"summary_prompt"`
}

// OpenAIConfig contains OpenAI-specific configuration.
type OpenAIConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"` // base URL, empty for the public API
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`   // Can use ${ENV_VAR} syntax
	Model       string  `mapstructure:"model" yaml:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
}

// AnthropicConfig contains Anthropic-specific configuration.
type AnthropicConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"` // Can use ${ENV_VAR} syntax
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// DefaultLLMConfig returns sensible defaults for the LLM configuration.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: "openai",
		OpenAI: OpenAIConfig{
			APIKey:      "${OPENAI_API_KEY}",
			Model:       "gpt-4o",
			MaxTokens:   1024,
			Temperature: 0.2,
		},
		Anthropic: AnthropicConfig{
			APIKey:    "${ANTHROPIC_API_KEY}",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 1024,
		},
		Timeout:          time.Duration(DefaultLLMTimeout) * time.Second,
		ExtractionPrompt: defaultExtractionPrompt,
		SummaryPrompt:    defaultSummaryPrompt,
	}
}

const defaultExtractionPrompt = `You answer questions about website traffic using Google Analytics 4.
Translate the user's question into a single call to the getGa4Report tool.
Use GA4 Data API metric and dimension names (for example activeUsers, sessions, bounceRate, city, deviceCategory).
Always request at least one metric and at least one dimension.
Dates must be YYYY-MM-DD or one of today, yesterday, NdaysAgo.
If the question cannot be answered with a GA4 report, do not call the tool.`

const defaultSummaryPrompt = `You are an analytics assistant. Answer the user's question using only the report data returned by the getGa4Report tool.
Mention concrete numbers and segment names, include the listed insights, and say so plainly when the report has no rows.`
