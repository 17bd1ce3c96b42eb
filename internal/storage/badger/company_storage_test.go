package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

func testCompany(id, name string) *models.Company {
	return &models.Company{
		ID:          id,
		Name:        name,
		CareerURL:   "https://" + name + ".example.com/careers",
		AdapterKind: models.AdapterKindFeed,
		Active:      true,
	}
}

func TestSaveCompanyValidates(t *testing.T) {
	store := NewCompanyStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	err := store.SaveCompany(ctx, &models.Company{ID: "cmp_1", Name: "Acme"})
	assert.Error(t, err, "missing career_url must be rejected")

	bad := testCompany("cmp_1", "acme")
	bad.AdapterKind = "screen_scrape"
	assert.Error(t, store.SaveCompany(ctx, bad))

	require.NoError(t, store.SaveCompany(ctx, testCompany("cmp_1", "acme")))
	got, err := store.GetCompany(ctx, "cmp_1")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetCompanyByName(t *testing.T) {
	store := NewCompanyStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveCompany(ctx, testCompany("cmp_1", "acme")))

	got, err := store.GetCompanyByName(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "cmp_1", got.ID)

	_, err = store.GetCompanyByName(ctx, "nobody")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestListActiveCompaniesOrdering(t *testing.T) {
	store := NewCompanyStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now().Add(-10 * time.Minute)

	crawledOld := testCompany("cmp_b", "bravo")
	crawledOld.LastCrawledAt = &old
	crawledRecent := testCompany("cmp_a", "alpha")
	crawledRecent.LastCrawledAt = &recent
	neverTwo := testCompany("cmp_d", "delta")
	neverOne := testCompany("cmp_c", "charlie")
	inactive := testCompany("cmp_e", "echo")
	inactive.Active = false

	for _, c := range []*models.Company{crawledOld, crawledRecent, neverTwo, neverOne, inactive} {
		require.NoError(t, store.SaveCompany(ctx, c))
	}

	companies, err := store.ListActiveCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 4, "inactive companies excluded")

	// Never-crawled first (ties by ID), then oldest crawl first
	assert.Equal(t, "cmp_c", companies[0].ID)
	assert.Equal(t, "cmp_d", companies[1].ID)
	assert.Equal(t, "cmp_b", companies[2].ID)
	assert.Equal(t, "cmp_a", companies[3].ID)
}

func TestUpdateCompanyStatsEmptyCrawlCounter(t *testing.T) {
	store := NewCompanyStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveCompany(ctx, testCompany("cmp_1", "acme")))

	now := time.Now()
	require.NoError(t, store.UpdateCompanyStats(ctx, "cmp_1", 0, now))
	require.NoError(t, store.UpdateCompanyStats(ctx, "cmp_1", 0, now))

	got, err := store.GetCompany(ctx, "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ConsecutiveEmptyCrawls)
	assert.Equal(t, 0, got.TotalJobsFound)

	// A non-empty crawl resets the streak and accumulates the total
	require.NoError(t, store.UpdateCompanyStats(ctx, "cmp_1", 7, now))
	got, err = store.GetCompany(ctx, "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.ConsecutiveEmptyCrawls)
	assert.Equal(t, 7, got.TotalJobsFound)
	require.NotNil(t, got.LastCrawledAt)
}

func TestUpdateCompanyStatsMissingCompany(t *testing.T) {
	store := NewCompanyStorage(newTestDB(t), common.GetLogger())
	err := store.UpdateCompanyStats(context.Background(), "cmp_missing", 1, time.Now())
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestTouchCompanyCrawledLeavesCounters(t *testing.T) {
	store := NewCompanyStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	c := testCompany("cmp_1", "acme")
	c.ConsecutiveEmptyCrawls = 3
	c.TotalJobsFound = 12
	require.NoError(t, store.SaveCompany(ctx, c))

	at := time.Now()
	require.NoError(t, store.TouchCompanyCrawled(ctx, "cmp_1", at))

	got, err := store.GetCompany(ctx, "cmp_1")
	require.NoError(t, err)
	require.NotNil(t, got.LastCrawledAt)
	assert.Equal(t, 3, got.ConsecutiveEmptyCrawls, "failed crawls must not touch the empty streak")
	assert.Equal(t, 12, got.TotalJobsFound)
}
