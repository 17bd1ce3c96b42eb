package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/models"
)

func TestCrawlLogLifecycle(t *testing.T) {
	store := NewCrawlLogStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	logID, err := store.OpenCrawlLog(ctx, "cmp_1", models.AdapterKindFeed)
	require.NoError(t, err)

	log, err := store.GetCrawlLog(ctx, logID)
	require.NoError(t, err)
	assert.Equal(t, models.CrawlStatusRunning, log.Status)
	assert.Nil(t, log.EndedAt)

	require.NoError(t, store.CloseCrawlLog(ctx, logID, models.CrawlStatusCompleted, 5, ""))

	log, err = store.GetCrawlLog(ctx, logID)
	require.NoError(t, err)
	assert.Equal(t, models.CrawlStatusCompleted, log.Status)
	assert.Equal(t, 5, log.JobsFound)
	require.NotNil(t, log.EndedAt)
}

func TestCrawlLogSingleRunningPerCompany(t *testing.T) {
	store := NewCrawlLogStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	logID, err := store.OpenCrawlLog(ctx, "cmp_1", models.AdapterKindFeed)
	require.NoError(t, err)

	_, err = store.OpenCrawlLog(ctx, "cmp_1", models.AdapterKindFeed)
	assert.Error(t, err, "second running log for the same company must be rejected")

	// Another company is unaffected
	_, err = store.OpenCrawlLog(ctx, "cmp_2", models.AdapterKindPagedAPI)
	assert.NoError(t, err)

	// After closing, the company can open again
	require.NoError(t, store.CloseCrawlLog(ctx, logID, models.CrawlStatusCompleted, 0, ""))
	_, err = store.OpenCrawlLog(ctx, "cmp_1", models.AdapterKindFeed)
	assert.NoError(t, err)
}

func TestCrawlLogOrchestratorScopeUnlimited(t *testing.T) {
	store := NewCrawlLogStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	// Orchestrator-scope logs (empty company) have no running limit
	_, err := store.OpenCrawlLog(ctx, "", "")
	require.NoError(t, err)
	_, err = store.OpenCrawlLog(ctx, "", "")
	require.NoError(t, err)
}

func TestCrawlLogCloseExactlyOnce(t *testing.T) {
	store := NewCrawlLogStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	logID, err := store.OpenCrawlLog(ctx, "cmp_1", models.AdapterKindFeed)
	require.NoError(t, err)

	require.NoError(t, store.CloseCrawlLog(ctx, logID, models.CrawlStatusFailed, 0, "boom"))
	err = store.CloseCrawlLog(ctx, logID, models.CrawlStatusCompleted, 1, "")
	assert.Error(t, err, "double close must fail")
}

func TestCrawlLogCloseRejectsRunningStatus(t *testing.T) {
	store := NewCrawlLogStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	logID, err := store.OpenCrawlLog(ctx, "cmp_1", models.AdapterKindFeed)
	require.NoError(t, err)

	err = store.CloseCrawlLog(ctx, logID, models.CrawlStatusRunning, 0, "")
	assert.Error(t, err)
}

func TestRecentLogsOrderAndLimit(t *testing.T) {
	store := NewCrawlLogStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.OpenCrawlLog(ctx, "", "")
		require.NoError(t, err)
		require.NoError(t, store.CloseCrawlLog(ctx, id, models.CrawlStatusCompleted, i, ""))
		ids = append(ids, id)
		time.Sleep(5 * time.Millisecond)
	}

	logs, err := store.RecentLogs(ctx, time.Now().Add(-time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, ids[2], logs[0].ID, "newest first")
	assert.Equal(t, ids[1], logs[1].ID)
}

func TestAggregateByAdapterKind(t *testing.T) {
	store := NewCrawlLogStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	open := func(company string, kind models.AdapterKind, status models.CrawlStatus) {
		id, err := store.OpenCrawlLog(ctx, company, kind)
		require.NoError(t, err)
		require.NoError(t, store.CloseCrawlLog(ctx, id, status, 0, ""))
	}

	open("cmp_1", models.AdapterKindFeed, models.CrawlStatusCompleted)
	open("cmp_2", models.AdapterKindFeed, models.CrawlStatusCompleted)
	open("cmp_3", models.AdapterKindFeed, models.CrawlStatusFailed)
	open("cmp_4", models.AdapterKindPagedAPI, models.CrawlStatusCompleted)

	// Orchestrator-scope logs stay out of per-kind health
	orchID, err := store.OpenCrawlLog(ctx, "", "")
	require.NoError(t, err)
	require.NoError(t, store.CloseCrawlLog(ctx, orchID, models.CrawlStatusFailed, 0, "x"))

	health, err := store.AggregateByAdapterKind(ctx, time.Hour)
	require.NoError(t, err)

	feed := health[models.AdapterKindFeed]
	assert.Equal(t, 3, feed.TotalRuns)
	assert.Equal(t, 1, feed.ErrorCount)
	assert.InDelta(t, 2.0/3.0, feed.SuccessRate, 0.001)
	assert.Equal(t, models.HealthError, feed.Label)

	paged := health[models.AdapterKindPagedAPI]
	assert.Equal(t, 1, paged.TotalRuns)
	assert.Equal(t, models.HealthHealthy, paged.Label)
}

func TestSweepStaleLogs(t *testing.T) {
	store := NewCrawlLogStorage(newTestDB(t), common.GetLogger())
	ctx := context.Background()

	firstID, err := store.OpenCrawlLog(ctx, "cmp_1", models.AdapterKindFeed)
	require.NoError(t, err)
	_, err = store.OpenCrawlLog(ctx, "cmp_2", models.AdapterKindFeed)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	swept, err := store.SweepStaleLogs(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	log, err := store.GetCrawlLog(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, models.CrawlStatusFailed, log.Status)
	assert.Contains(t, log.Error, "stale")

	// A swept company can crawl again
	_, err = store.OpenCrawlLog(ctx, "cmp_1", models.AdapterKindFeed)
	assert.NoError(t, err)
}
