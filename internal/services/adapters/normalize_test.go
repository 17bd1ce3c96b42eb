package adapters

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ternarybob/venari/internal/models"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Jobs.Example.COM/careers",
			want: "https://jobs.example.com/careers",
		},
		{
			name: "strips default https port",
			in:   "https://example.com:443/jobs",
			want: "https://example.com/jobs",
		},
		{
			name: "strips default http port",
			in:   "http://example.com:80/jobs",
			want: "http://example.com/jobs",
		},
		{
			name: "keeps non-default port",
			in:   "https://example.com:8443/jobs",
			want: "https://example.com:8443/jobs",
		},
		{
			name: "removes utm parameters",
			in:   "https://example.com/jobs?utm_source=x&utm_campaign=y&id=7",
			want: "https://example.com/jobs?id=7",
		},
		{
			name: "removes click and session ids",
			in:   "https://example.com/jobs?gclid=abc&fbclid=def&sessionid=ghi&role=eng",
			want: "https://example.com/jobs?role=eng",
		},
		{
			name: "drops fragment",
			in:   "https://example.com/jobs#apply",
			want: "https://example.com/jobs",
		},
		{
			name: "sorts query keys",
			in:   "https://example.com/jobs?b=2&a=1&c=3",
			want: "https://example.com/jobs?a=1&b=2&c=3",
		},
		{
			name: "unparseable passes through",
			in:   "not a url",
			want: "not a url",
		},
		{
			name: "empty stays empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalURL(tt.in)
			if got != tt.want {
				t.Errorf("CanonicalURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalURLIdempotent(t *testing.T) {
	inputs := []string{
		"HTTPS://Example.COM:443/jobs?utm_source=x&b=2&a=1#frag",
		"http://example.com/careers?gclid=z&page=3",
	}
	for _, in := range inputs {
		once := CanonicalURL(in)
		twice := CanonicalURL(once)
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	n := NewNormalizer(4000)

	p := n.Normalize(models.Posting{
		ExternalID:  "  ext-1  ",
		Title:       "  Senior\t\tEngineer \n Backend ",
		Location:    "Sydney,\n NSW",
		URL:         "https://example.com/jobs/1",
		Description: "Build   things.",
	})

	if p.ExternalID != "ext-1" {
		t.Errorf("external id = %q", p.ExternalID)
	}
	if p.Title != "Senior Engineer Backend" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Location != "Sydney, NSW" {
		t.Errorf("location = %q", p.Location)
	}
	if p.Description != "Build things." {
		t.Errorf("description = %q", p.Description)
	}
}

func TestNormalizeEmptyExternalIDStaysEmpty(t *testing.T) {
	n := NewNormalizer(4000)
	p := n.Normalize(models.Posting{ExternalID: "   ", Title: "x", URL: "https://example.com/1"})
	if p.ExternalID != "" {
		t.Errorf("expected empty external id, got %q", p.ExternalID)
	}
}

func TestNormalizeDescriptionCap(t *testing.T) {
	n := NewNormalizer(20)

	p := n.Normalize(models.Posting{
		Title:       "t",
		URL:         "https://example.com/1",
		Description: "alpha beta gamma delta epsilon",
	})

	if len(p.Description) > 20 {
		t.Fatalf("description exceeds cap: %d chars", len(p.Description))
	}
	// Truncation lands on a word boundary
	if strings.HasSuffix(p.Description, "gam") {
		t.Errorf("description cut mid-word: %q", p.Description)
	}
	if p.Description != "alpha beta gamma" {
		t.Errorf("description = %q", p.Description)
	}
}

func TestNormalizeDescriptionCapKeepsRunesIntact(t *testing.T) {
	n := NewNormalizer(21)

	// No whitespace before the cap, and the cap byte lands inside a
	// two-byte rune
	p := n.Normalize(models.Posting{
		Title:       "t",
		URL:         "https://example.com/1",
		Description: strings.Repeat("é", 40),
	})

	if !utf8.ValidString(p.Description) {
		t.Fatalf("truncation split a rune: %q", p.Description)
	}
	if p.Description != strings.Repeat("é", 10) {
		t.Errorf("description = %q", p.Description)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(50)
	raw := models.Posting{
		ExternalID:  " id ",
		Title:       "A  B",
		URL:         "HTTPS://Example.com/j?utm_source=a&z=1",
		Description: "one two three four five six seven eight nine ten",
	}
	once := n.Normalize(raw)
	twice := n.Normalize(once)
	if once != twice {
		t.Errorf("normalize not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}
