package adapters

import (
	"github.com/araddon/dateparse"

	"github.com/ternarybob/venari/internal/models"
)

// rawPosting is the wire shape shared by the structured adapters and
// the LLM extraction response
type rawPosting struct {
	ExternalID  string `json:"external_id"`
	ID          string `json:"id"` // some endpoints use "id" instead
	Title       string `json:"title"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PostedAt    string `json:"posted_at"`
}

// toPosting maps a wire posting into the model. Unparseable posted_at
// stays nil rather than defaulting to now.
func (r rawPosting) toPosting() models.Posting {
	p := models.Posting{
		ExternalID:  r.ExternalID,
		Title:       r.Title,
		Location:    r.Location,
		URL:         r.URL,
		Description: r.Description,
	}
	if p.ExternalID == "" {
		p.ExternalID = r.ID
	}
	if r.PostedAt != "" {
		if t, err := dateparse.ParseAny(r.PostedAt); err == nil {
			p.PostedAt = &t
		}
	}
	return p
}

// usableSubset maps and filters wire postings, dropping those missing
// required fields instead of failing the page
func usableSubset(raws []rawPosting) []models.Posting {
	postings := make([]models.Posting, 0, len(raws))
	for _, r := range raws {
		p := r.toPosting()
		if p.Usable() {
			postings = append(postings, p)
		}
	}
	return postings
}
