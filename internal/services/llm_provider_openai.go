package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/platformbuilds/ga4-insights/internal/config"
	"github.com/platformbuilds/ga4-insights/internal/logging"
	"github.com/platformbuilds/ga4-insights/internal/metrics"
)

// OpenAIProvider implements LLMService using OpenAI's chat completions API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      logging.Logger
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg config.OpenAIConfig, timeout time.Duration, logger logging.Logger) (*OpenAIProvider, error) {
	apiKey := config.ResolveEnvRef(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logging.OrNop(logger),
	}, nil
}

// CallTool asks the model for a call to tool.
func (p *OpenAIProvider) CallTool(ctx context.Context, system, message string, tool ToolDefinition) (*ToolCall, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Messages:    p.openingMessages(system, message),
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}},
		ToolChoice: "auto",
	}

	resp, err := p.complete(ctx, "extract", req)
	if err != nil {
		return nil, err
	}

	msg := resp.Choices[0].Message
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name != tool.Name {
			continue
		}
		p.logger.Debug("OpenAI returned tool call", "tool", tc.Function.Name, "id", tc.ID)
		return &ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
			Text:      msg.Content,
			// replay only the call that is answered
			assistant: openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   msg.Content,
				ToolCalls: []openai.ToolCall{tc},
			},
			tool: tool,
		}, nil
	}

	p.logger.Info("OpenAI answered without a tool call", "finish_reason", resp.Choices[0].FinishReason)
	return nil, nil
}

// Summarize sends [user, assistant tool call, tool result] and returns the answer.
func (p *OpenAIProvider) Summarize(ctx context.Context, system, message string, call *ToolCall, result []byte) (string, error) {
	if call == nil {
		return "", errors.New("summarize requires a tool call")
	}
	assistant, ok := call.assistant.(openai.ChatCompletionMessage)
	if !ok {
		return "", fmt.Errorf("tool call was not produced by the openai provider")
	}

	msgs := p.openingMessages(system, message)
	msgs = append(msgs, assistant, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    string(result),
	})

	resp, err := p.complete(ctx, "summarize", openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Messages:    msgs,
	})
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("OpenAI returned an empty answer")
	}
	return answer, nil
}

func (p *OpenAIProvider) openingMessages(system, message string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 4)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
}

func (p *OpenAIProvider) complete(ctx context.Context, operation string, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Debug("Calling OpenAI API", "model", p.model, "operation", operation, "messages", len(req.Messages))

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(timeoutCtx, req)
	metrics.RecordLLMCall("openai", operation, time.Since(start), err)
	if err != nil {
		p.logger.Error("OpenAI API call failed", "operation", operation, "error", err)
		return resp, fmt.Errorf("OpenAI API error: %w", err)
	}
	metrics.RecordLLMTokens("openai", int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))

	if len(resp.Choices) == 0 {
		return resp, fmt.Errorf("OpenAI returned no choices")
	}

	p.logger.Info("OpenAI API call successful", "operation", operation, "tokens_used", resp.Usage.TotalTokens)
	return resp, nil
}

// GetProviderName returns "openai".
func (p *OpenAIProvider) GetProviderName() string {
	return "openai"
}

// GetModelName returns the OpenAI model name.
func (p *OpenAIProvider) GetModelName() string {
	return p.model
}
