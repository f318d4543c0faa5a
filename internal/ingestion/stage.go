package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
)

// Stage names
const (
	ResumeStageName         = "resume_ingestor"
	JobDescriptionStageName = "job_description_ingestor"
)

// Stage ingests the document of one role. With a Source it reads the
// document and writes raw_<role>; without one it reads raw_<role> from the
// session. It always writes record_<role>.
type Stage struct {
	Role      string
	Source    Source // optional
	Extractor Extractor
	Logger    *slog.Logger
}

// NewResumeStage builds the resume ingestion stage.
func NewResumeStage(src Source, ex Extractor, logger *slog.Logger) *Stage {
	return &Stage{Role: session.RoleResume, Source: src, Extractor: ex, Logger: logger}
}

// NewJobDescriptionStage builds the job description ingestion stage.
func NewJobDescriptionStage(src Source, ex Extractor, logger *slog.Logger) *Stage {
	return &Stage{Role: session.RoleJobDescription, Source: src, Extractor: ex, Logger: logger}
}

// Name returns the stage name for the role.
func (s *Stage) Name() string {
	switch s.Role {
	case session.RoleResume:
		return ResumeStageName
	case session.RoleJobDescription:
		return JobDescriptionStageName
	default:
		return s.Role + "_ingestor"
	}
}

// Run reads, extracts and validates one document. A record missing its
// identifying fields fails the stage.
func (s *Stage) Run(ctx context.Context, state session.ReadWriter) stage.Result {
	name := s.Name()
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if s.Extractor == nil {
		return stage.Fail(name, fmt.Errorf("no extractor configured"))
	}

	rawKey := session.RawKey(s.Role)
	written := []string{}
	var text string
	if s.Source != nil {
		doc, err := s.Source.Read(ctx)
		if err != nil {
			return stage.Fail(name, &stage.CollaboratorError{Collaborator: "source " + s.Source.String(), Cause: err})
		}
		logger.Debug("document read", "stage", name, "source", doc.Metadata.Source,
			"hash", doc.Metadata.Hash, "platform", doc.Metadata.Platform, "chars", len(doc.Text))
		text = doc.Text
		state.Set(rawKey, text)
		written = append(written, rawKey)
	} else {
		raw, err := session.Require[string](state, rawKey)
		if err != nil {
			return stage.Fail(name, err)
		}
		if text = CleanText(raw); text == "" {
			return stage.Fail(name, &session.MalformedDataError{Key: rawKey, Message: "document is empty"})
		}
	}

	data, err := s.Extractor.Extract(ctx, s.Role, text)
	if err != nil {
		return stage.Fail(name, &stage.CollaboratorError{Collaborator: "extractor", Cause: err})
	}

	recordKey := session.RecordKey(s.Role)
	var summary string
	switch s.Role {
	case session.RoleResume:
		resume, err := ParseResume(data)
		if err != nil {
			return stage.Fail(name, err)
		}
		state.Set(recordKey, resume)
		summary = fmt.Sprintf("%s: %d sections, %d positions", recordKey, len(resume.Sections()), len(resume.WorkHistory))
	case session.RoleJobDescription:
		jd, err := ParseJobDescription(data)
		if err != nil {
			return stage.Fail(name, err)
		}
		state.Set(recordKey, jd)
		summary = fmt.Sprintf("%s: %s at %s, %d requirements", recordKey, jd.JobInfo.JobTitle, jd.JobInfo.CompanyName, len(jd.Requirements()))
	default:
		return stage.Fail(name, fmt.Errorf("unknown role %q", s.Role))
	}

	written = append(written, recordKey)
	return stage.Success(name, summary, written...)
}
