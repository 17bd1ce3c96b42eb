package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/services/fetcher"
)

// maxPages bounds pagination against endpoints that never return an
// empty page
const maxPages = 100

type pagedResponse struct {
	Jobs []rawPosting `json:"jobs"`
}

// PagedAPIAdapter pages through a JSON career endpoint using a `page`
// query parameter until an empty page.
type PagedAPIAdapter struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

// NewPagedAPIAdapter creates the paged_api adapter
func NewPagedAPIAdapter(f interfaces.Fetcher, logger arbor.ILogger) *PagedAPIAdapter {
	return &PagedAPIAdapter{fetcher: f, logger: logger}
}

func (a *PagedAPIAdapter) Kind() models.AdapterKind {
	return models.AdapterKindPagedAPI
}

// ListJobs iterates pages of the company endpoint, accumulating usable
// postings. Postings missing required fields are dropped, not failed.
func (a *PagedAPIAdapter) ListJobs(ctx context.Context, company *models.Company) ([]models.Posting, error) {
	base, err := url.Parse(company.CareerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid career URL for %s: %w", company.ID, err)
	}

	var postings []models.Posting
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := *base
		q := pageURL.Query()
		q.Set("page", strconv.Itoa(page))
		pageURL.RawQuery = q.Encode()

		body, err := a.fetcher.Fetch(ctx, pageURL.String(), nil)
		if err != nil {
			return nil, err
		}

		var resp pagedResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: page %d of %s: %v", fetcher.ErrMalformedResponse, page, company.ID, err)
		}

		if len(resp.Jobs) == 0 {
			break
		}

		usable := usableSubset(resp.Jobs)
		if dropped := len(resp.Jobs) - len(usable); dropped > 0 {
			a.logger.Debug().
				Str("company_id", company.ID).
				Int("page", page).
				Int("dropped", dropped).
				Msg("Dropped postings missing required fields")
		}
		postings = append(postings, usable...)
	}

	return postings, nil
}
