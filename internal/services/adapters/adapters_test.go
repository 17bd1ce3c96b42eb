package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/services/fetcher"
)

// stubFetcher serves canned bodies keyed by full URL
type stubFetcher struct {
	responses map[string][]byte
	err       error
	calls     []string
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.responses[rawURL]
	if !ok {
		return []byte(`{"jobs":[]}`), nil
	}
	return body, nil
}

// stubLLM returns a fixed response
type stubLLM struct {
	response string
	err      error
	prompts  []string
}

func (l *stubLLM) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	return l.response, nil
}

func (l *stubLLM) Close() error { return nil }

func testCompany(kind models.AdapterKind) *models.Company {
	return &models.Company{
		ID:          "cmp_test",
		Name:        "Acme",
		CareerURL:   "https://example.com/careers",
		AdapterKind: kind,
		Active:      true,
	}
}

func pageURL(base string, page int) string {
	u, _ := url.Parse(base)
	q := u.Query()
	q.Set("page", fmt.Sprintf("%d", page))
	u.RawQuery = q.Encode()
	return u.String()
}

func TestPagedAPIAdapterPaginates(t *testing.T) {
	base := "https://example.com/careers"
	f := &stubFetcher{responses: map[string][]byte{
		pageURL(base, 1): []byte(`{"jobs":[{"id":"1","title":"Engineer","url":"https://example.com/j/1"},{"id":"2","title":"Designer","url":"https://example.com/j/2"}]}`),
		pageURL(base, 2): []byte(`{"jobs":[{"id":"3","title":"Manager","url":"https://example.com/j/3"}]}`),
		pageURL(base, 3): []byte(`{"jobs":[]}`),
	}}

	a := NewPagedAPIAdapter(f, common.GetLogger())
	postings, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindPagedAPI))
	require.NoError(t, err)

	require.Len(t, postings, 3)
	assert.Equal(t, "1", postings[0].ExternalID)
	assert.Equal(t, "Engineer", postings[0].Title)
	assert.Equal(t, "Manager", postings[2].Title)
	assert.Len(t, f.calls, 3, "should stop at the first empty page")
}

func TestPagedAPIAdapterDropsUnusable(t *testing.T) {
	base := "https://example.com/careers"
	f := &stubFetcher{responses: map[string][]byte{
		pageURL(base, 1): []byte(`{"jobs":[{"title":"No URL"},{"title":"Good","url":"https://example.com/j/1"},{"url":"https://example.com/j/2"}]}`),
	}}

	a := NewPagedAPIAdapter(f, common.GetLogger())
	postings, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindPagedAPI))
	require.NoError(t, err)

	// A partial page returns the usable subset, not an error
	require.Len(t, postings, 1)
	assert.Equal(t, "Good", postings[0].Title)
}

func TestPagedAPIAdapterMalformedJSON(t *testing.T) {
	base := "https://example.com/careers"
	f := &stubFetcher{responses: map[string][]byte{
		pageURL(base, 1): []byte(`<html>not json</html>`),
	}}

	a := NewPagedAPIAdapter(f, common.GetLogger())
	_, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindPagedAPI))
	assert.ErrorIs(t, err, fetcher.ErrMalformedResponse)
}

func TestPagedAPIAdapterPropagatesFetchError(t *testing.T) {
	f := &stubFetcher{err: fetcher.ErrCircuitOpen}
	a := NewPagedAPIAdapter(f, common.GetLogger())
	_, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindPagedAPI))
	assert.ErrorIs(t, err, fetcher.ErrCircuitOpen)
}

func TestFeedAdapterBareArray(t *testing.T) {
	f := &stubFetcher{responses: map[string][]byte{
		"https://example.com/careers": []byte(`[{"external_id":"a","title":"Engineer","url":"https://example.com/j/a","posted_at":"2026-08-01"}]`),
	}}

	a := NewFeedAdapter(f, common.GetLogger())
	postings, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindFeed))
	require.NoError(t, err)

	require.Len(t, postings, 1)
	assert.Equal(t, "a", postings[0].ExternalID)
	require.NotNil(t, postings[0].PostedAt)
	assert.Equal(t, 2026, postings[0].PostedAt.Year())
}

func TestFeedAdapterEnvelope(t *testing.T) {
	f := &stubFetcher{responses: map[string][]byte{
		"https://example.com/careers": []byte(`{"jobs":[{"title":"Engineer","url":"https://example.com/j/1"}]}`),
	}}

	a := NewFeedAdapter(f, common.GetLogger())
	postings, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindFeed))
	require.NoError(t, err)
	require.Len(t, postings, 1)
}

func TestFeedAdapterUnparseableDateStaysNil(t *testing.T) {
	f := &stubFetcher{responses: map[string][]byte{
		"https://example.com/careers": []byte(`[{"title":"Engineer","url":"https://example.com/j/1","posted_at":"whenever"}]`),
	}}

	a := NewFeedAdapter(f, common.GetLogger())
	postings, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindFeed))
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Nil(t, postings[0].PostedAt)
}

func TestAIParsedAdapterExtracts(t *testing.T) {
	f := &stubFetcher{responses: map[string][]byte{
		"https://example.com/careers": []byte(`<html><body><main><h1>Jobs</h1><p>Engineer role</p></main></body></html>`),
	}}
	llm := &stubLLM{response: `[{"external_id":"x1","title":"Engineer","location":"Remote","url":"https://example.com/j/x1","description":"Build things","posted_at":""}]`}

	a := NewAIParsedAdapter(f, llm, common.GetLogger())
	postings, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindAIParsed))
	require.NoError(t, err)

	require.Len(t, postings, 1)
	assert.Equal(t, "x1", postings[0].ExternalID)
	assert.Equal(t, "Remote", postings[0].Location)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Engineer role", "prompt should carry page content")
}

func TestAIParsedAdapterToleratesCodeFences(t *testing.T) {
	f := &stubFetcher{responses: map[string][]byte{
		"https://example.com/careers": []byte(`<html><body><p>x</p></body></html>`),
	}}
	llm := &stubLLM{response: "```json\n[{\"title\":\"Engineer\",\"url\":\"https://example.com/j/1\"}]\n```"}

	a := NewAIParsedAdapter(f, llm, common.GetLogger())
	postings, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindAIParsed))
	require.NoError(t, err)
	require.Len(t, postings, 1)
}

func TestAIParsedAdapterMalformedResponse(t *testing.T) {
	f := &stubFetcher{responses: map[string][]byte{
		"https://example.com/careers": []byte(`<html><body><p>x</p></body></html>`),
	}}
	llm := &stubLLM{response: `I could not find any jobs on this page.`}

	a := NewAIParsedAdapter(f, llm, common.GetLogger())
	_, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindAIParsed))
	assert.ErrorIs(t, err, fetcher.ErrMalformedResponse)
}

func TestAIParsedAdapterEmptyPage(t *testing.T) {
	f := &stubFetcher{responses: map[string][]byte{
		"https://example.com/careers": []byte(`<html><body><p>No openings right now</p></body></html>`),
	}}
	llm := &stubLLM{response: `[]`}

	a := NewAIParsedAdapter(f, llm, common.GetLogger())
	postings, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindAIParsed))
	require.NoError(t, err)
	assert.Empty(t, postings)
}

func TestAIParsedAdapterLLMError(t *testing.T) {
	f := &stubFetcher{responses: map[string][]byte{
		"https://example.com/careers": []byte(`<html><body><p>x</p></body></html>`),
	}}
	llm := &stubLLM{err: errors.New("deadline exceeded")}

	a := NewAIParsedAdapter(f, llm, common.GetLogger())
	_, err := a.ListJobs(context.Background(), testCompany(models.AdapterKindAIParsed))
	assert.Error(t, err)
}

func TestRegistryResolve(t *testing.T) {
	f := &stubFetcher{}
	r := NewRegistry(f, &stubLLM{}, common.GetLogger())

	for _, kind := range []models.AdapterKind{models.AdapterKindPagedAPI, models.AdapterKindFeed, models.AdapterKindAIParsed} {
		a, err := r.Resolve(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, a.Kind())
	}

	_, err := r.Resolve("unknown")
	assert.Error(t, err)
}

func TestRegistryWithoutLLM(t *testing.T) {
	r := NewRegistry(&stubFetcher{}, nil, common.GetLogger())

	_, err := r.Resolve(models.AdapterKindAIParsed)
	assert.Error(t, err, "ai_parsed should be unavailable without an LLM client")

	_, err = r.Resolve(models.AdapterKindPagedAPI)
	assert.NoError(t, err)
}
