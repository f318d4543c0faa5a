package matching

import (
	"fmt"
	"log/slog"

	"github.com/jonathan/resume-refiner/internal/stage"
	"github.com/jonathan/resume-refiner/internal/types"
)

// Validator resolves every provisional match: promoted to validated_inferred
// when the policy allows it, discarded otherwise.
type Validator struct {
	policy *Policy
	logger *slog.Logger
}

// NewValidator creates a validator. A nil policy uses DefaultPolicy.
func NewValidator(policy *Policy, logger *slog.Logger) *Validator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{policy: policy, logger: logger}
}

// Resolution is the outcome of validating a set of provisional matches
type Resolution struct {
	Confirmed []types.QualificationMatch
	Promoted  []types.QualificationMatch
	Discarded []types.QualificationMatch
}

// Resolve promotes or discards each provisional match. Exact and direct matches
// found in provisional are moved to confirmed unchanged. The decision depends
// only on the match and the policy, so repeated runs agree.
func (v *Validator) Resolve(confirmed, provisional []types.QualificationMatch) Resolution {
	res := Resolution{Confirmed: append([]types.QualificationMatch(nil), confirmed...)}

	for _, m := range provisional {
		if m.MatchType == types.MatchExact || m.MatchType == types.MatchDirect || m.MatchType == types.MatchValidatedInferred {
			res.Confirmed = append(res.Confirmed, m)
			continue
		}
		allowed, rule, err := v.policy.Allow(m)
		if err != nil {
			v.logger.Warn("promotion rule failed; discarding match",
				"requirement", m.Requirement, "source", m.SourcePath, "error", err)
			res.Discarded = append(res.Discarded, m)
			continue
		}
		if !allowed {
			v.logger.Debug("inferred match discarded",
				"requirement", m.Requirement, "source", m.SourcePath, "rule", rule)
			res.Discarded = append(res.Discarded, m)
			continue
		}
		m.MatchType = types.MatchValidatedInferred
		res.Confirmed = append(res.Confirmed, m)
		res.Promoted = append(res.Promoted, m)
	}

	res.Confirmed = sortMatches(res.Confirmed)
	return res
}

// CheckResolved verifies the validation postcondition: nothing provisional
// remains and no unvalidated inference sits in the confirmed set.
func CheckResolved(confirmed, provisional []types.QualificationMatch) error {
	if len(provisional) > 0 {
		return &stage.PolicyError{Message: fmt.Sprintf("%d provisional matches remain after validation", len(provisional))}
	}
	for _, m := range confirmed {
		if m.MatchType == types.MatchInferred {
			return &stage.PolicyError{Message: fmt.Sprintf("confirmed match %q from %s is still inferred", m.Requirement, m.SourcePath)}
		}
		if err := m.Validate(); err != nil {
			return &stage.PolicyError{Message: "invalid confirmed match", Cause: err}
		}
	}
	return nil
}
