package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-refiner/internal/ingestion"
	"github.com/jonathan/resume-refiner/internal/matching"
	"github.com/jonathan/resume-refiner/internal/refine"
	"github.com/jonathan/resume-refiner/internal/session"
)

func workflowOrder() []string {
	return []string{
		ingestion.ResumeStageName,
		ingestion.JobDescriptionStageName,
		matching.MatchStageName,
		matching.ValidateStageName,
		refine.LoopStageName,
	}
}

func TestDefaultRegistry_Definitions(t *testing.T) {
	reg := DefaultRegistry()
	assert.ElementsMatch(t, workflowOrder(), reg.Names())

	for _, name := range reg.Names() {
		def, ok := reg.Definition(name)
		require.True(t, ok)
		assert.NotEmpty(t, def.Category, name)
		assert.NotEmpty(t, def.Writes, name)
	}
}

func TestDefaultRegistry_ValidateOrder(t *testing.T) {
	reg := DefaultRegistry()
	require.NoError(t, reg.ValidateOrder(workflowOrder(), nil))

	err := reg.ValidateOrder([]string{ingestion.ResumeStageName, matching.MatchStageName}, nil)
	var dep *DependencyError
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, matching.MatchStageName, dep.Stage)
	assert.Equal(t, []string{"record_job_description"}, dep.Missing)

	// A session seeded with records can start at matching.
	initial := []string{"record_resume", "record_job_description"}
	assert.NoError(t, reg.ValidateOrder(workflowOrder()[2:], initial))

	assert.Error(t, reg.ValidateOrder([]string{"render_latex"}, nil))
}

func TestRegistry_CheckWritesPatterns(t *testing.T) {
	reg := DefaultRegistry()
	assert.NoError(t, reg.CheckWrites(refine.LoopStageName, []string{"candidate_1", "issues_1", "candidate_12", session.KeyFinalArtifact}))

	err := reg.CheckWrites(refine.LoopStageName, []string{"candidate_1", "record_resume"})
	var own *OwnershipError
	require.ErrorAs(t, err, &own)
	assert.Equal(t, []string{"record_resume"}, own.Keys)

	assert.NoError(t, reg.CheckWrites("unregistered", []string{"anything"}))
}

func TestRegistry_Available(t *testing.T) {
	reg := DefaultRegistry()
	state := session.New()
	assert.ElementsMatch(t, []string{ingestion.ResumeStageName, ingestion.JobDescriptionStageName}, reg.Available(state))

	state.Set("record_resume", 1)
	state.Set("record_job_description", 1)
	assert.Contains(t, reg.Available(state), matching.MatchStageName)
	assert.NotContains(t, reg.Available(state), refine.LoopStageName)
}

func TestRegistry_NilIsPermissive(t *testing.T) {
	var reg *Registry
	assert.NoError(t, reg.CheckInputs("x", session.New()))
	assert.NoError(t, reg.CheckWrites("x", []string{"y"}))
}

func TestDependencyError_Message(t *testing.T) {
	err := &DependencyError{Stage: "resume_publisher", Missing: []string{"match_confirmed", "record_resume"}}
	assert.Equal(t, "missing dependencies for resume_publisher: match_confirmed, record_resume", err.Error())
	assert.Nil(t, (&DependencyError{Stage: "x"}).Unwrap())
}
