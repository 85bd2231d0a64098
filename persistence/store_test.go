package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nehilsa2/linkedin_scraper/enrich"
	"github.com/Nehilsa2/linkedin_scraper/failure"
	"github.com/Nehilsa2/linkedin_scraper/profile"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	started := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.StartRun(ctx, "run-1", "Data Analyst", started))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusInProgress, run.Status)
	assert.Equal(t, started, run.StartedAt)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, s.FinishRun(ctx, "run-1", 2, 6, nil))

	run, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Pages)
	assert.Equal(t, 6, run.Records)
	assert.NotNil(t, run.FinishedAt)
	assert.Empty(t, run.ErrorMessage)
}

func TestStore_FailedRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.StartRun(ctx, "run-a", "Engineer", time.Now().Add(-time.Hour)))
	require.NoError(t, s.StartRun(ctx, "run-b", "Engineer", time.Now()))
	require.NoError(t, s.FinishRun(ctx, "run-b", 0, 0, errors.New("login failed")))

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-b", last.ID)
	assert.Equal(t, RunStatusFailed, last.Status)
	assert.Equal(t, "login failed", last.ErrorMessage)
}

func TestStore_FinishUnknownRun(t *testing.T) {
	assert.Error(t, newTestStore(t).FinishRun(context.Background(), "missing", 0, 0, nil))
}

func TestStore_GetRunMissing(t *testing.T) {
	run, err := newTestStore(t).GetRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestStore_Issues(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.StartRun(ctx, "run-1", "Engineer", time.Now()))

	require.NoError(t, s.RecordIssue(ctx, "run-1", failure.Navigation("advance page", errors.New("timeout"))))
	require.NoError(t, s.RecordIssue(ctx, "run-1", failure.Newf(failure.KindExtraction, "extract", "anchor without href")))

	issues, err := s.Issues(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, failure.KindNavigation, issues[0].Kind)
	assert.Equal(t, "advance page", issues[0].Op)
	assert.Contains(t, issues[0].Message, "timeout")
	assert.Equal(t, failure.KindExtraction, issues[1].Kind)
	assert.False(t, issues[1].RecordedAt.IsZero())
}

func TestStore_SaveProfiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.StartRun(ctx, "run-1", "Engineer", time.Now()))

	recs := []profile.Record{
		{Name: "A", ProfileURL: "https://www.linkedin.com/in/a", Page: 1, Enrichment: enrich.Result{StatusCode: 200, Payload: json.RawMessage(`{}`)}},
		{Name: "B", ProfileURL: "https://www.linkedin.com/in/b", Page: 1},
		{Name: "A", ProfileURL: "https://www.linkedin.com/in/a", Page: 2},
	}
	require.NoError(t, s.SaveProfiles(ctx, "run-1", recs))
	require.NoError(t, s.SaveProfiles(ctx, "run-1", nil))

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_profiles WHERE run_id = ?`, "run-1").Scan(&n))
	assert.Equal(t, 3, n)
}

func TestStore_LastRunOrdersSubSecondStarts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	whole := time.Date(2024, 5, 1, 9, 30, 5, 0, time.UTC)
	require.NoError(t, s.StartRun(ctx, "whole-second", "Engineer", whole))
	require.NoError(t, s.StartRun(ctx, "half-second", "Engineer", whole.Add(500*time.Millisecond)))

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "half-second", last.ID)
	assert.Equal(t, whole.Add(500*time.Millisecond), last.StartedAt)
}

func TestFormatTime_FixedWidth(t *testing.T) {
	a := formatTime(time.Date(2024, 5, 1, 9, 30, 5, 0, time.UTC))
	b := formatTime(time.Date(2024, 5, 1, 9, 30, 5, 500_000_000, time.FixedZone("CEST", 2*3600)))
	assert.Len(t, b, len(a))
	assert.Equal(t, "2024-05-01T09:30:05.000000000Z", a)
	assert.Equal(t, "2024-05-01T07:30:05.500000000Z", b)
}
