package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/platformbuilds/ga4-insights/internal/config"
	"github.com/platformbuilds/ga4-insights/internal/logging"
)

// LLMService defines the interface to the language model that turns a
// question into report arguments and the report into an answer.
type LLMService interface {
	// CallTool sends message with tool as the only available tool. It
	// returns (nil, nil) when the model answered without calling the tool.
	CallTool(ctx context.Context, system, message string, tool ToolDefinition) (*ToolCall, error)

	// Summarize replays the user message and the model's tool call together
	// with the tool result and returns the model's final text.
	Summarize(ctx context.Context, system, message string, call *ToolCall, result []byte) (string, error)

	// GetProviderName returns the name of the AI provider (e.g., "openai", "anthropic").
	GetProviderName() string

	// GetModelName returns the model name being used.
	GetModelName() string
}

// ToolDefinition is a function tool offered to the model.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is the JSON schema of the arguments object.
	Parameters map[string]any
}

// ToolCall is the model's request to run a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
	// Text is any prose the model produced next to the call.
	Text string

	// provider-native state replayed by Summarize
	assistant any
	tool      ToolDefinition
	otherIDs  []string
}

// NewToolDefinition derives the parameter schema from the fields of T.
func NewToolDefinition[T any](name, description string) (ToolDefinition, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return ToolDefinition{}, fmt.Errorf("failed to build schema for tool %s: %w", name, err)
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return ToolDefinition{}, fmt.Errorf("failed to encode schema for tool %s: %w", name, err)
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return ToolDefinition{}, fmt.Errorf("failed to decode schema for tool %s: %w", name, err)
	}
	return ToolDefinition{Name: name, Description: description, Parameters: params}, nil
}

// Properties returns the "properties" member of the schema.
func (t ToolDefinition) Properties() map[string]any {
	props, _ := t.Parameters["properties"].(map[string]any)
	return props
}

// Required returns the "required" member of the schema.
func (t ToolDefinition) Required() []string {
	raw, _ := t.Parameters["required"].([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// NewLLMService creates an LLMService based on configuration.
func NewLLMService(cfg config.LLMConfig, logger logging.Logger) (LLMService, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI, cfg.Timeout, logger)
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic, cfg.Timeout, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
