package matching

import (
	"context"
	"fmt"

	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
	"github.com/jonathan/resume-refiner/internal/types"
)

// Stage names
const (
	MatchStageName    = "qualifications_matcher"
	ValidateStageName = "qualifications_checker"
)

// MatchStage reads both records and writes match_confirmed and match_provisional.
type MatchStage struct {
	Matcher *Matcher
}

// Name returns the stage name.
func (s *MatchStage) Name() string { return MatchStageName }

// Run compares the records. A job description with no requirements succeeds
// with zero matches.
func (s *MatchStage) Run(ctx context.Context, state session.ReadWriter) stage.Result {
	resume, err := RequireResume(state)
	if err != nil {
		return stage.Fail(MatchStageName, err)
	}
	jd, err := RequireJobDescription(state)
	if err != nil {
		return stage.Fail(MatchStageName, err)
	}

	m := s.Matcher
	if m == nil {
		m = NewMatcher()
	}
	res := m.Match(resume, jd)
	state.Set(session.KeyMatchConfirmed, res.Confirmed)
	state.Set(session.KeyMatchProvisional, res.Provisional)

	return stage.Success(MatchStageName,
		fmt.Sprintf("%d confirmed, %d provisional", len(res.Confirmed), len(res.Provisional)),
		session.KeyMatchConfirmed, session.KeyMatchProvisional)
}

// ValidateStage resolves provisional matches and enforces the postcondition.
type ValidateStage struct {
	Validator *Validator
}

// Name returns the stage name.
func (s *ValidateStage) Name() string { return ValidateStageName }

// Run promotes or discards every provisional match. It fails with a
// PolicyError, writing nothing, if the resolution leaves anything unresolved.
func (s *ValidateStage) Run(ctx context.Context, state session.ReadWriter) stage.Result {
	confirmed, err := session.Require[[]types.QualificationMatch](state, session.KeyMatchConfirmed)
	if err != nil {
		return stage.Fail(ValidateStageName, err)
	}
	provisional, err := session.Require[[]types.QualificationMatch](state, session.KeyMatchProvisional)
	if err != nil {
		return stage.Fail(ValidateStageName, err)
	}

	v := s.Validator
	if v == nil {
		v = NewValidator(nil, nil)
	}
	res := v.Resolve(confirmed, provisional)
	// Every provisional match is either confirmed or discarded.
	if handled := len(res.Confirmed) - len(confirmed) + len(res.Discarded); handled != len(provisional) {
		return stage.Fail(ValidateStageName, &stage.PolicyError{
			Message: fmt.Sprintf("%d of %d provisional matches resolved", handled, len(provisional)),
		})
	}
	if err := CheckResolved(res.Confirmed, nil); err != nil {
		return stage.Fail(ValidateStageName, err)
	}
	state.Set(session.KeyMatchConfirmed, res.Confirmed)
	state.Set(session.KeyMatchProvisional, []types.QualificationMatch{})

	return stage.Success(ValidateStageName,
		fmt.Sprintf("%d promoted, %d discarded, %d confirmed", len(res.Promoted), len(res.Discarded), len(res.Confirmed)),
		session.KeyMatchConfirmed, session.KeyMatchProvisional)
}

// RequireResume reads the resume record, rejecting a nil record as malformed.
func RequireResume(r session.Reader) (*types.Resume, error) {
	key := session.RecordKey(session.RoleResume)
	resume, err := session.Require[*types.Resume](r, key)
	if err != nil {
		return nil, err
	}
	if resume == nil {
		return nil, &session.MalformedDataError{Key: key, Message: "record is nil"}
	}
	if resume.ContactInfo.Name == "" {
		return nil, &session.MalformedDataError{Key: key, Message: "contact_info.name is required"}
	}
	return resume, nil
}

// RequireJobDescription reads the job description record, rejecting a nil or
// headerless record as malformed.
func RequireJobDescription(r session.Reader) (*types.JobDescription, error) {
	key := session.RecordKey(session.RoleJobDescription)
	jd, err := session.Require[*types.JobDescription](r, key)
	if err != nil {
		return nil, err
	}
	if jd == nil {
		return nil, &session.MalformedDataError{Key: key, Message: "record is nil"}
	}
	if jd.JobInfo.CompanyName == "" || jd.JobInfo.JobTitle == "" {
		return nil, &session.MalformedDataError{Key: key, Message: "job_info.company_name and job_info.job_title are required"}
	}
	return jd, nil
}
