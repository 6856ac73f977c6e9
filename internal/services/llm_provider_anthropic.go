package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/platformbuilds/ga4-insights/internal/config"
	"github.com/platformbuilds/ga4-insights/internal/logging"
	"github.com/platformbuilds/ga4-insights/internal/metrics"
)

// AnthropicProvider implements LLMService using Anthropic's Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    logging.Logger
}

// NewAnthropicProvider creates a new Anthropic provider. SDK-level retries
// are disabled; model calls are never retried.
func NewAnthropicProvider(cfg config.AnthropicConfig, timeout time.Duration, logger logging.Logger) (*AnthropicProvider, error) {
	apiKey := config.ResolveEnvRef(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(cfg.Endpoint))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logging.OrNop(logger),
	}, nil
}

// CallTool asks the model for a call to tool.
func (p *AnthropicProvider) CallTool(ctx context.Context, system, message string, tool ToolDefinition) (*ToolCall, error) {
	user := anthropic.NewUserMessage(anthropic.NewTextBlock(message))
	resp, err := p.send(ctx, "extract", system, []anthropic.MessageParam{user}, tool)
	if err != nil {
		return nil, err
	}

	var (
		call  *ToolCall
		other []string
		text  []string
	)
	for _, blk := range resp.Content {
		if t := blk.AsText().Text; t != "" {
			text = append(text, t)
			continue
		}
		tu := blk.AsToolUse()
		if tu.ID == "" || tu.Name == "" {
			continue
		}
		if tu.Name == tool.Name && call == nil {
			call = &ToolCall{ID: tu.ID, Name: tu.Name, Arguments: tu.Input}
			continue
		}
		other = append(other, tu.ID)
	}

	if call == nil {
		p.logger.Info("Anthropic answered without a tool call", "stop_reason", resp.StopReason)
		return nil, nil
	}
	call.Text = strings.Join(text, "\n")
	call.assistant = resp.ToParam()
	call.tool = tool
	call.otherIDs = other
	p.logger.Debug("Anthropic returned tool call", "tool", call.Name, "id", call.ID)
	return call, nil
}

// Summarize sends [user, assistant tool_use, tool_result] and returns the answer.
func (p *AnthropicProvider) Summarize(ctx context.Context, system, message string, call *ToolCall, result []byte) (string, error) {
	if call == nil {
		return "", errors.New("summarize requires a tool call")
	}
	assistant, ok := call.assistant.(anthropic.MessageParam)
	if !ok {
		return "", fmt.Errorf("tool call was not produced by the anthropic provider")
	}

	// every tool_use block needs a result
	results := []anthropic.ContentBlockParamUnion{anthropic.NewToolResultBlock(call.ID, string(result), false)}
	for _, id := range call.otherIDs {
		results = append(results, anthropic.NewToolResultBlock(id, "not executed", true))
	}

	msgs := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(message)),
		assistant,
		anthropic.NewUserMessage(results...),
	}
	resp, err := p.send(ctx, "summarize", system, msgs, call.tool)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, blk := range resp.Content {
		if t := blk.AsText().Text; t != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(t)
		}
	}
	answer := strings.TrimSpace(b.String())
	if answer == "" {
		return "", errors.New("Anthropic returned an empty answer")
	}
	return answer, nil
}

func (p *AnthropicProvider) send(ctx context.Context, operation, system string, msgs []anthropic.MessageParam, tool ToolDefinition) (*anthropic.Message, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  msgs,
		Tools: []anthropic.ToolUnionParam{{OfTool: &anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.Opt(tool.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: tool.Properties(),
				Required:   tool.Required(),
			},
		}}},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	p.logger.Debug("Calling Anthropic API", "model", p.model, "operation", operation, "messages", len(msgs))

	start := time.Now()
	resp, err := p.client.Messages.New(timeoutCtx, params)
	metrics.RecordLLMCall("anthropic", operation, time.Since(start), err)
	if err != nil {
		p.logger.Error("Anthropic API call failed", "operation", operation, "error", err)
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}
	metrics.RecordLLMTokens("anthropic", resp.Usage.InputTokens, resp.Usage.OutputTokens)

	p.logger.Info("Anthropic API call successful", "operation", operation,
		"tokens_used", resp.Usage.InputTokens+resp.Usage.OutputTokens)
	return resp, nil
}

// GetProviderName returns "anthropic".
func (p *AnthropicProvider) GetProviderName() string {
	return "anthropic"
}

// GetModelName returns the Anthropic model name.
func (p *AnthropicProvider) GetModelName() string {
	return p.model
}
