package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	assert.Error(t, err)
}

func TestOpenSQLite_InMemory(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateRun(context.Background(), "Acme", "Engineer", "")
	assert.NoError(t, err)
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	runID, err := s.CreateRun(ctx, "Acme", "Backend Engineer", "jobs/acme.txt")
	require.NoError(t, err)

	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "Acme", run.Company)
	assert.Equal(t, "Backend Engineer", run.RoleTitle)
	assert.Equal(t, "jobs/acme.txt", run.Source)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)

	require.NoError(t, s.CompleteRun(ctx, runID, RunStatusExhausted))
	run, err = s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusExhausted, run.Status)
	assert.NotNil(t, run.CompletedAt)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	s := openTestSQLite(t)
	run, err := s.GetRun(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	s := openTestSQLite(t)
	err := s.CompleteRun(context.Background(), uuid.New(), RunStatusApproved)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, "A", "", "")
	require.NoError(t, err)
	second, err := s.CreateRun(ctx, "B", "", "")
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)

	runs, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLite_RecordStep(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	runID, err := s.CreateRun(ctx, "Acme", "", "")
	require.NoError(t, err)

	require.NoError(t, s.RecordStep(ctx, runID, &RunStepInput{
		Step: "resume_ingestor", Category: "ingestion", Status: StepStatusInProgress,
	}))
	step, err := s.GetRunStep(ctx, runID, "resume_ingestor")
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, StepStatusInProgress, step.Status)
	assert.NotNil(t, step.StartedAt)
	assert.Nil(t, step.CompletedAt)
	startedAt := *step.StartedAt

	require.NoError(t, s.RecordStep(ctx, runID, &RunStepInput{
		Step: "resume_ingestor", Status: StepStatusFailed, Duration: 42 * time.Millisecond, Error: "boom",
	}))
	step, err = s.GetRunStep(ctx, runID, "resume_ingestor")
	require.NoError(t, err)
	assert.Equal(t, StepStatusFailed, step.Status)
	assert.Equal(t, "ingestion", step.Category, "empty category keeps the recorded one")
	assert.Equal(t, startedAt, *step.StartedAt)
	assert.NotNil(t, step.CompletedAt)
	require.NotNil(t, step.DurationMs)
	assert.Equal(t, 42, *step.DurationMs)
	require.NotNil(t, step.ErrorMessage)
	assert.Equal(t, "boom", *step.ErrorMessage)
}

func TestSQLite_ListRunSteps(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	runID, err := s.CreateRun(ctx, "Acme", "", "")
	require.NoError(t, err)

	for _, name := range []string{"resume_ingestor", "qualification_matcher", "resume_writer"} {
		require.NoError(t, s.RecordStep(ctx, runID, &RunStepInput{Step: name, Status: StepStatusInProgress}))
	}
	require.NoError(t, s.RecordStep(ctx, runID, &RunStepInput{Step: "resume_critic", Status: StepStatusPending}))

	steps, err := s.ListRunSteps(ctx, runID)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, "resume_critic", steps[3].Step)
	for _, st := range steps {
		assert.Equal(t, runID, st.RunID)
	}
}

func TestSQLite_Artifacts(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	runID, err := s.CreateRun(ctx, "Acme", "", "")
	require.NoError(t, err)

	require.NoError(t, s.SaveArtifact(ctx, runID, "issues_1", CategoryIssues, []string{"a"}))
	require.NoError(t, s.SaveArtifact(ctx, runID, "candidate_1", CategoryCandidate, map[string]int{"n": 1}))
	require.NoError(t, s.SaveArtifact(ctx, runID, "candidate_1", CategoryCandidate, map[string]int{"n": 2}))

	content, err := s.GetArtifact(ctx, runID, "candidate_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(content))

	missing, err := s.GetArtifact(ctx, runID, "final_artifact")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := s.ListArtifacts(ctx, runID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "candidate_1", list[0].Key)
	assert.Equal(t, "issues_1", list[1].Key)
	assert.Equal(t, CategoryIssues, list[1].Category)
}

func TestSQLite_SaveArtifact_Unmarshalable(t *testing.T) {
	s := openTestSQLite(t)
	runID, err := s.CreateRun(context.Background(), "Acme", "", "")
	require.NoError(t, err)

	err = s.SaveArtifact(context.Background(), runID, "bad", CategoryRaw, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal artifact")
}

func TestSQLite_PageCache(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	page, err := s.GetFreshPage(ctx, "https://example.com/job", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, page)

	require.NoError(t, s.UpsertPage(ctx, &Page{
		URL: "https://example.com/job", HTML: "<p>hi</p>", Text: "hi", StatusCode: 200,
		FetchedAt: now.Add(-30 * time.Minute),
	}))

	page, err = s.GetFreshPage(ctx, "https://example.com/job", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "hi", page.Text)
	assert.Equal(t, 200, page.StatusCode)

	page, err = s.GetFreshPage(ctx, "https://example.com/job", 10*time.Minute)
	require.NoError(t, err)
	assert.Nil(t, page, "stale page is a miss")
}
