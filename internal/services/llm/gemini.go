package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiClient implements the LLMClient interface over the Google
// genai SDK.
type GeminiClient struct {
	config *common.GeminiConfig
	client *genai.Client
	retry  *RetryConfig
	logger arbor.ILogger
}

// NewGeminiClient creates a Gemini client from configuration
func NewGeminiClient(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set VENARI_GEMINI_API_KEY or gemini.api_key in config)")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Debug().
		Str("model", config.Model).
		Float32("temperature", config.Temperature).
		Msg("Gemini LLM client initialized")

	return &GeminiClient{
		config: config,
		client: client,
		retry:  NewDefaultRetryConfig(),
		logger: logger,
	}, nil
}

var _ interfaces.LLMClient = (*GeminiClient)(nil)

// Generate produces a completion for the prompt, retrying through
// quota exhaustion with the API-suggested delay when present
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	model := opts.Model
	if model == "" {
		model = c.config.Model
	}
	temperature := c.config.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if opts.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.JSONOutput {
		genConfig.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{genai.NewPartFromText(prompt)}},
	}

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retry.CalculateBackoff(attempt-1, ExtractRetryDelay(lastErr))
			c.logger.Warn().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Gemini rate limited, backing off")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, genConfig)
		if err != nil {
			lastErr = err
			if IsRateLimitError(err) && attempt < c.retry.MaxRetries {
				continue
			}
			return "", fmt.Errorf("Gemini generation failed: %w", err)
		}

		text := extractText(resp)
		if text == "" {
			return "", fmt.Errorf("no response generated from Gemini")
		}

		c.logger.Debug().
			Int("prompt_length", len(prompt)).
			Int("response_length", len(text)).
			Dur("duration", time.Since(start)).
			Msg("Gemini generation completed")
		return text, nil
	}

	return "", fmt.Errorf("Gemini generation failed after retries: %w", lastErr)
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

// Close releases the client. The genai SDK holds no persistent
// connections, so this is a no-op kept for interface symmetry.
func (c *GeminiClient) Close() error {
	return nil
}
