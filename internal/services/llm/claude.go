package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
)

// ClaudeClient implements the LLMClient interface over the Anthropic
// SDK.
type ClaudeClient struct {
	config *common.ClaudeConfig
	client *anthropic.Client
	logger arbor.ILogger
}

// NewClaudeClient creates a Claude client from configuration
func NewClaudeClient(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set VENARI_ANTHROPIC_API_KEY or claude.api_key in config)")
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}

	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))

	logger.Debug().
		Str("model", config.Model).
		Int("max_tokens", config.MaxTokens).
		Float32("temperature", config.Temperature).
		Msg("Claude LLM client initialized")

	return &ClaudeClient{
		config: config,
		client: &client,
		logger: logger,
	}, nil
}

var _ interfaces.LLMClient = (*ClaudeClient)(nil)

// Generate produces a completion for the prompt
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	model := opts.Model
	if model == "" {
		model = c.config.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	temperature := c.config.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(float64(temperature))
	}
	if opts.JSONOutput {
		params.System = []anthropic.TextBlockParam{
			{Text: "Respond with valid JSON only. No prose, no code fences."},
		}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude")
	}

	c.logger.Debug().
		Int("prompt_length", len(prompt)).
		Int("response_length", b.Len()).
		Dur("duration", time.Since(start)).
		Msg("Claude generation completed")
	return b.String(), nil
}

// Close releases the client
func (c *ClaudeClient) Close() error {
	return nil
}
