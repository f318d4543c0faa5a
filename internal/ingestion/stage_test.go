package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
	"github.com/jonathan/resume-refiner/internal/types"
)

type extractorFunc func(ctx context.Context, role, text string) ([]byte, error)

func (f extractorFunc) Extract(ctx context.Context, role, text string) ([]byte, error) {
	return f(ctx, role, text)
}

func TestStage_Name(t *testing.T) {
	assert.Equal(t, ResumeStageName, NewResumeStage(nil, JSONExtractor{}, nil).Name())
	assert.Equal(t, JobDescriptionStageName, NewJobDescriptionStage(nil, JSONExtractor{}, nil).Name())
}

func TestStage_ReadsSourceAndWritesRecord(t *testing.T) {
	state := session.New()
	st := NewResumeStage(TextSource{Name: "resume.json", Text: resumeJSON}, JSONExtractor{}, nil)

	res := st.Run(context.Background(), state)
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, ResumeStageName, res.Stage)
	assert.Equal(t, []string{"raw_resume", "record_resume"}, res.Keys)
	assert.Contains(t, res.Message, "2 positions")

	resume, err := session.Require[*types.Resume](state, "record_resume")
	require.NoError(t, err)
	assert.Equal(t, "job_002", resume.WorkHistory[1].JobID)
	assert.True(t, state.Has("raw_resume"))
}

func TestStage_ReadsRawFromSession(t *testing.T) {
	state := session.New()
	state.Set("raw_job_description", jobDescriptionJSON)

	res := NewJobDescriptionStage(nil, JSONExtractor{}, nil).Run(context.Background(), state)
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, []string{"record_job_description"}, res.Keys)

	jd, err := session.Require[*types.JobDescription](state, "record_job_description")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", jd.JobInfo.JobTitle)
}

func TestStage_MissingRaw(t *testing.T) {
	res := NewResumeStage(nil, JSONExtractor{}, nil).Run(context.Background(), session.New())
	require.False(t, res.OK())

	var missing *session.MissingInputError
	require.ErrorAs(t, res.Err, &missing)
	assert.Equal(t, "raw_resume", missing.Key)
	assert.Equal(t, []string{ResumeStageName}, stage.Chain(res.Err))
}

func TestStage_BlankRaw(t *testing.T) {
	state := session.New()
	state.Set("raw_resume", " \n ")

	res := NewResumeStage(nil, JSONExtractor{}, nil).Run(context.Background(), state)
	var malformed *session.MalformedDataError
	require.ErrorAs(t, res.Err, &malformed)
	assert.Equal(t, "raw_resume", malformed.Key)
}

func TestStage_ExtractorFailure(t *testing.T) {
	boom := errors.New("model unavailable")
	ex := extractorFunc(func(context.Context, string, string) ([]byte, error) { return nil, boom })

	res := NewResumeStage(TextSource{Text: "Ada"}, ex, nil).Run(context.Background(), session.New())
	require.False(t, res.OK())

	var collab *stage.CollaboratorError
	require.ErrorAs(t, res.Err, &collab)
	assert.Equal(t, "extractor", collab.Collaborator)
	assert.ErrorIs(t, res.Err, boom)
}

func TestStage_MalformedRecord(t *testing.T) {
	ex := extractorFunc(func(context.Context, string, string) ([]byte, error) {
		return []byte(`{"job_info": {"company_name": "Acme", "job_title": "N/A"}}`), nil
	})

	state := session.New()
	res := NewJobDescriptionStage(TextSource{Text: "posting"}, ex, nil).Run(context.Background(), state)
	require.False(t, res.OK())

	var malformed *session.MalformedDataError
	require.ErrorAs(t, res.Err, &malformed)
	assert.Contains(t, res.Err.Error(), "job_info.job_title")
}

func TestStage_SourceFailure(t *testing.T) {
	res := NewResumeStage(TextSource{Name: "blank"}, JSONExtractor{}, nil).Run(context.Background(), session.New())
	require.False(t, res.OK())

	var collab *stage.CollaboratorError
	require.ErrorAs(t, res.Err, &collab)
	assert.Equal(t, "source blank", collab.Collaborator)
	assert.ErrorIs(t, res.Err, ErrEmptyDocument)
}

func TestStage_NoExtractor(t *testing.T) {
	res := (&Stage{Role: session.RoleResume}).Run(context.Background(), session.New())
	assert.False(t, res.OK())
}
