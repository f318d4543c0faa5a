//go:build property
// +build property

package matching

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/jonathan/resume-refiner/internal/types"
)

// TestMatcherIdempotence verifies matching is a pure function of its inputs.
// Property: Match(r, jd) == Match(r, jd)
func TestMatcherIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("matching twice yields identical sets", prop.ForAll(
		func(skills []string, reqs []string) bool {
			r := testResume()
			r.Skills = types.SkillSet{{Name: "Generated", Skills: skills}}
			jd := testJD(&types.RequiredQualifications{TechnicalSkills: reqs, SoftSkills: reqs}, nil)

			m := NewMatcher(WithClock(fixedNow))
			first := m.Match(r, jd)
			second := m.Match(r, jd)
			if len(first.Confirmed) != len(second.Confirmed) || len(first.Provisional) != len(second.Provisional) {
				return false
			}
			for i := range first.Confirmed {
				if first.Confirmed[i] != second.Confirmed[i] {
					return false
				}
			}
			for i := range first.Provisional {
				if first.Provisional[i] != second.Provisional[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestValidationLeavesNothingProvisional verifies the validation postcondition.
// Property: after Resolve, no confirmed match is inferred and CheckResolved passes
func TestValidationLeavesNothingProvisional(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	certainties := []types.Certainty{types.CertaintyCertain, types.CertaintyLikely, types.CertaintyWeak}

	properties.Property("validation resolves every provisional match", prop.ForAll(
		func(reqs []string, tiers []int, reasons []string) bool {
			var provisional []types.QualificationMatch
			for i, req := range reqs {
				if req == "" {
					continue
				}
				m := inferred(req, certainties[0])
				if i < len(tiers) {
					m.Certainty = certainties[tiers[i]%len(certainties)]
				}
				if i < len(reasons) {
					m.ConfidenceReasoning = reasons[i]
				}
				provisional = append(provisional, m)
			}
			res := NewValidator(nil, nil).Resolve(nil, provisional)
			if len(res.Promoted)+len(res.Discarded) != len(provisional) {
				return false
			}
			return CheckResolved(res.Confirmed, nil) == nil
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
