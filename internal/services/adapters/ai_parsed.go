package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/services/fetcher"
)

const extractionPrompt = `Extract every job posting from the following career page content.

Return ONLY a JSON array. Each element must have exactly these fields:
- "external_id": string, the posting's identifier on the page, or "" if none is visible
- "title": string, the job title
- "location": string, the location, or "" if not shown
- "url": string, the absolute link to the posting
- "description": string, the posting summary or description, or "" if not shown
- "posted_at": string, the posting date as shown, or "" if not shown

Do not invent postings. Do not include any text outside the JSON array.
If the page contains no job postings, return [].

Career page content:
%s`

// aiMaxContentChars bounds the markdown handed to the model
const aiMaxContentChars = 30000

// AIParsedAdapter extracts postings from raw HTML career pages: strip
// boilerplate, convert to markdown, then ask the LLM for a structured
// JSON array of postings.
type AIParsedAdapter struct {
	fetcher interfaces.Fetcher
	llm     interfaces.LLMClient
	logger  arbor.ILogger
}

// NewAIParsedAdapter creates the ai_parsed adapter
func NewAIParsedAdapter(f interfaces.Fetcher, llm interfaces.LLMClient, logger arbor.ILogger) *AIParsedAdapter {
	return &AIParsedAdapter{fetcher: f, llm: llm, logger: logger}
}

func (a *AIParsedAdapter) Kind() models.AdapterKind {
	return models.AdapterKindAIParsed
}

func (a *AIParsedAdapter) ListJobs(ctx context.Context, company *models.Company) ([]models.Posting, error) {
	body, err := a.fetcher.Fetch(ctx, company.CareerURL, nil)
	if err != nil {
		return nil, err
	}

	content, err := a.pageContent(body, company.CareerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", fetcher.ErrMalformedResponse, company.ID, err)
	}
	if len(content) > aiMaxContentChars {
		content = content[:aiMaxContentChars]
	}

	response, err := a.llm.Generate(ctx, fmt.Sprintf(extractionPrompt, content), interfaces.GenerateOptions{
		JSONOutput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM extraction failed for %s: %w", company.ID, err)
	}

	raws, err := parseExtraction(response)
	if err != nil {
		a.logger.Warn().
			Str("company_id", company.ID).
			Err(err).
			Msg("LLM returned malformed extraction")
		return nil, fmt.Errorf("%w: %s: %v", fetcher.ErrMalformedResponse, company.ID, err)
	}

	return usableSubset(raws), nil
}

// pageContent strips boilerplate and converts the page to markdown
func (a *AIParsedAdapter) pageContent(html []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return "", fmt.Errorf("no body element")
	}

	// Prefer the main content container when the page marks one
	content := body.Find("main, article, [role=main]").First()
	if content.Length() == 0 {
		content = body
	}
	content.Find("script, style, noscript, nav, header, footer, aside").Remove()
	content.Find("[class*=cookie], [class*=banner], [id*=cookie]").Remove()

	cleaned, err := goquery.OuterHtml(content)
	if err != nil {
		return "", err
	}

	converter := md.NewConverter(pageURL, true, nil)
	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	return markdown, nil
}

// parseExtraction validates the model output as a JSON array of
// postings. Code fences around the array are tolerated.
func parseExtraction(response string) ([]rawPosting, error) {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var raws []rawPosting
	if err := json.Unmarshal([]byte(text[start:end+1]), &raws); err != nil {
		return nil, fmt.Errorf("invalid extraction JSON: %w", err)
	}
	return raws, nil
}
