package adapters

import (
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ternarybob/venari/internal/models"
)

// trackingParams are query parameters stripped during URL
// canonicalization. Session identifiers are matched by name.
var trackingParams = map[string]bool{
	"gclid":      true,
	"fbclid":     true,
	"msclkid":    true,
	"sessionid":  true,
	"session_id": true,
	"sid":        true,
	"phpsessid":  true,
	"jsessionid": true,
}

// Normalizer canonicalizes raw postings before upsert. Normalize is
// idempotent: applying it twice yields the same posting.
type Normalizer struct {
	maxDescriptionChars int
}

// NewNormalizer creates a normalizer capping descriptions at maxChars
func NewNormalizer(maxChars int) *Normalizer {
	return &Normalizer{maxDescriptionChars: maxChars}
}

// Normalize canonicalizes the posting in place and returns it
func (n *Normalizer) Normalize(p models.Posting) models.Posting {
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	p.URL = CanonicalURL(p.URL)
	p.Title = cleanText(p.Title)
	p.Location = cleanText(p.Location)
	p.Description = truncateAtWhitespace(cleanText(p.Description), n.maxDescriptionChars)
	return p
}

// CanonicalURL lowercases scheme and host, strips default ports,
// removes tracking and session parameters, drops fragments, and sorts
// the remaining query keys. Unparseable URLs pass through unchanged.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if host, port, ok := strings.Cut(u.Host, ":"); ok {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = host
		}
	}

	if u.RawQuery != "" {
		values := u.Query()
		keys := make([]string, 0, len(values))
		for k := range values {
			lower := strings.ToLower(k)
			if trackingParams[lower] || strings.HasPrefix(lower, "utm_") {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		for _, k := range keys {
			for _, v := range values[k] {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}

	return u.String()
}

// cleanText NFC-normalizes, collapses whitespace runs, and trims
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// truncateAtWhitespace caps s at max bytes, cutting at the last
// whitespace before the limit so words are not split. The cap backs up
// to a rune boundary first so a multi-byte rune is never halved.
func truncateAtWhitespace(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	boundary := max
	for boundary > 0 && !utf8.RuneStart(s[boundary]) {
		boundary--
	}
	cut := s[:boundary]
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
