package llm

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
)

// Provider identifies an LLM backend
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
)

// NewClient creates the configured LLM client. Selection order:
// llm.default_provider, falling back to whichever provider has an API
// key configured.
func NewClient(config *common.Config, logger arbor.ILogger) (interfaces.LLMClient, error) {
	provider := Provider(strings.ToLower(config.LLM.DefaultProvider))

	if provider == "" {
		switch {
		case config.Gemini.APIKey != "":
			provider = ProviderGemini
		case config.Claude.APIKey != "":
			provider = ProviderClaude
		default:
			return nil, fmt.Errorf("no LLM provider configured: set gemini.api_key or claude.api_key")
		}
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiClient(&config.Gemini, logger)
	case ProviderClaude:
		return NewClaudeClient(&config.Claude, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
