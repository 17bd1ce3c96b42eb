package interfaces

import (
	"context"

	"github.com/ternarybob/venari/internal/models"
)

// Fetcher is the policy HTTP entry point: rate limiting, retry,
// robots gate, and circuit breaking behind a single call.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

// Adapter translates a company's career endpoint into raw postings
type Adapter interface {
	Kind() models.AdapterKind
	ListJobs(ctx context.Context, company *models.Company) ([]models.Posting, error)
}

// GenerateOptions tune a single LLM call
type GenerateOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
	JSONOutput  bool // hint the provider to return a JSON document
}

// LLMClient generates text from a prompt. The caller passes a
// deterministic prompt and parses the returned text itself.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Close() error
}

// TelemetrySink receives crawl outcomes and counter increments.
// All methods must be safe for concurrent use.
type TelemetrySink interface {
	RecordCrawl(log models.CrawlLog)
	IncrRankerErrors()
	IncrRankerCalls()
}
