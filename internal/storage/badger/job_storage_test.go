package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testPosting(externalID, url string) models.Posting {
	return models.Posting{
		ExternalID:  externalID,
		Title:       "Engineer",
		Location:    "Remote",
		URL:         url,
		Description: "Build things",
	}
}

func TestUpsertJobInsert(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	action, jobID, err := store.UpsertJob(ctx, testPosting("e1", "https://example.com/j/1"), "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, models.UpsertInserted, action)
	require.NotEmpty(t, jobID)

	job, err := store.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusNew, job.Status)
	assert.Equal(t, models.JobStageDiscover, job.Stage)
	assert.False(t, job.DiscoveredAt.IsZero())
}

func TestUpsertJobIdempotent(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	p := testPosting("e1", "https://example.com/j/1")
	_, firstID, err := store.UpsertJob(ctx, p, "cmp_1")
	require.NoError(t, err)

	action, secondID, err := store.UpsertJob(ctx, p, "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, models.UpsertUnchanged, action)
	assert.Equal(t, firstID, secondID)

	count, err := store.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertJobUpdatePreservesDiscovery(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	p := testPosting("e1", "https://example.com/j/1")
	_, jobID, err := store.UpsertJob(ctx, p, "cmp_1")
	require.NoError(t, err)

	before, err := store.GetJob(ctx, jobID)
	require.NoError(t, err)

	p.Description = "Build different things"
	action, updatedID, err := store.UpsertJob(ctx, p, "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, models.UpsertUpdated, action)
	assert.Equal(t, jobID, updatedID)

	after, err := store.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "Build different things", after.Description)
	assert.True(t, after.DiscoveredAt.Equal(before.DiscoveredAt), "discovery timestamp must survive updates")
	assert.Equal(t, models.JobStatusNew, after.Status)
}

func TestUpsertJobURLFallbackKey(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	// No external id: the canonical URL is the uniqueness key
	_, firstID, err := store.UpsertJob(ctx, testPosting("", "https://example.com/j/1"), "cmp_1")
	require.NoError(t, err)

	action, secondID, err := store.UpsertJob(ctx, testPosting("", "https://example.com/j/1"), "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, models.UpsertUnchanged, action)
	assert.Equal(t, firstID, secondID)

	// A different URL is a different job
	action, thirdID, err := store.UpsertJob(ctx, testPosting("", "https://example.com/j/2"), "cmp_1")
	require.NoError(t, err)
	assert.Equal(t, models.UpsertInserted, action)
	assert.NotEqual(t, firstID, thirdID)
}

func TestUpsertJobCompaniesIsolated(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	_, id1, err := store.UpsertJob(ctx, testPosting("e1", "https://example.com/j/1"), "cmp_1")
	require.NoError(t, err)
	action, id2, err := store.UpsertJob(ctx, testPosting("e1", "https://example.com/j/1"), "cmp_2")
	require.NoError(t, err)

	assert.Equal(t, models.UpsertInserted, action, "same posting for another company is a new row")
	assert.NotEqual(t, id1, id2)
}

func TestUpsertJobConcurrentSameKey(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	p := testPosting("e1", "https://example.com/j/1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.UpsertJob(ctx, p, "cmp_1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := store.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "concurrent racers on one key must collapse to a single row")
}

func TestAnnotateJobAI(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	_, jobID, err := store.UpsertJob(ctx, testPosting("e1", "https://example.com/j/1"), "cmp_1")
	require.NoError(t, err)

	score := 85
	require.NoError(t, store.AnnotateJobAI(ctx, jobID, models.AIAnnotation{
		MatchScore:  &score,
		Recommended: true,
		Summary:     "strong match",
	}))

	job, err := store.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, job.AI.MatchScore)
	assert.Equal(t, 85, *job.AI.MatchScore)
	assert.True(t, job.AI.Recommended)
}

func TestAnnotateJobAIClampsNilScore(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	_, jobID, err := store.UpsertJob(ctx, testPosting("e1", "https://example.com/j/1"), "cmp_1")
	require.NoError(t, err)

	rank := 3
	require.NoError(t, store.AnnotateJobAI(ctx, jobID, models.AIAnnotation{
		MatchScore:  nil,
		Recommended: true,
		Rank:        &rank,
	}))

	job, err := store.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.False(t, job.AI.Recommended, "nil score must clamp recommended")
	assert.Nil(t, job.AI.Rank)
}

func TestAnnotateMissingJob(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	err := store.AnnotateJobAI(context.Background(), "job_missing", models.AIAnnotation{})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestListJobsByStatus(t *testing.T) {
	store := NewJobStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	for _, u := range []string{"https://example.com/j/1", "https://example.com/j/2", "https://example.com/j/3"} {
		_, _, err := store.UpsertJob(ctx, testPosting("", u), "cmp_1")
		require.NoError(t, err)
	}

	jobs, err := store.ListJobsByStatus(ctx, models.JobStatusNew, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
