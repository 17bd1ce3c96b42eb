package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/services/fetcher"
)

// FeedAdapter reads a single JSON document of postings. Accepts either
// a bare array or a {"jobs": [...]} envelope.
type FeedAdapter struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

// NewFeedAdapter creates the feed adapter
func NewFeedAdapter(f interfaces.Fetcher, logger arbor.ILogger) *FeedAdapter {
	return &FeedAdapter{fetcher: f, logger: logger}
}

func (a *FeedAdapter) Kind() models.AdapterKind {
	return models.AdapterKindFeed
}

func (a *FeedAdapter) ListJobs(ctx context.Context, company *models.Company) ([]models.Posting, error) {
	body, err := a.fetcher.Fetch(ctx, company.CareerURL, nil)
	if err != nil {
		return nil, err
	}

	var raws []rawPosting
	if err := json.Unmarshal(body, &raws); err != nil {
		var envelope pagedResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: feed for %s: %v", fetcher.ErrMalformedResponse, company.ID, err)
		}
		raws = envelope.Jobs
	}

	usable := usableSubset(raws)
	if dropped := len(raws) - len(usable); dropped > 0 {
		a.logger.Debug().
			Str("company_id", company.ID).
			Int("dropped", dropped).
			Msg("Dropped postings missing required fields")
	}
	return usable, nil
}
