package matching

import (
	"fmt"
	"os"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/resume-refiner/internal/types"
)

// PolicyRule is one CEL expression that must evaluate to true for an inferred
// match to be promoted.
type PolicyRule struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// PolicyFile is the on-disk YAML form of a promotion policy
type PolicyFile struct {
	Rules []PolicyRule `yaml:"rules"`
}

// DefaultPolicyRules promote only certain-tier inferences that carry
// reasoning and cite a concrete resume value.
func DefaultPolicyRules() []PolicyRule {
	return []PolicyRule{
		{Name: "certain_only", Expression: `certainty == "certain"`},
		{Name: "has_reasoning", Expression: `size(reasoning) > 0`},
		{Name: "has_evidence", Expression: `size(source_value) > 0 && size(source_path) > 0`},
	}
}

type compiledRule struct {
	name string
	prg  cel.Program
}

// Policy decides whether an inferred match is promoted. Every rule must hold;
// any evaluation error counts as a refusal.
type Policy struct {
	rules []compiledRule
}

// NewPolicy compiles the rules. Compilation errors are returned immediately.
func NewPolicy(rules []PolicyRule) (*Policy, error) {
	env, err := cel.NewEnv(
		cel.Variable("requirement", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("source_path", cel.StringType),
		cel.Variable("source_value", cel.StringType),
		cel.Variable("certainty", cel.StringType),
		cel.Variable("reasoning", cel.StringType),
	)
	if err != nil {
		return nil, &RuleError{Message: "failed to create CEL environment", Cause: err}
	}

	p := &Policy{}
	for _, r := range rules {
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, &RuleError{Rule: r.Name, Message: "compile error", Cause: issues.Err()}
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, &RuleError{Rule: r.Name, Message: "program error", Cause: err}
		}
		p.rules = append(p.rules, compiledRule{name: r.Name, prg: prg})
	}
	return p, nil
}

// DefaultPolicy returns the compiled default policy.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultPolicyRules())
	if err != nil {
		panic(fmt.Sprintf("default promotion policy does not compile: %v", err))
	}
	return p
}

// LoadPolicyFile reads a YAML policy file.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RuleError{Message: fmt.Sprintf("failed to read policy file %s", path), Cause: err}
	}
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &RuleError{Message: fmt.Sprintf("failed to parse policy file %s", path), Cause: err}
	}
	if len(file.Rules) == 0 {
		return nil, &RuleError{Message: fmt.Sprintf("policy file %s defines no rules", path)}
	}
	return NewPolicy(file.Rules)
}

// Allow evaluates every rule against m. It returns the name of the first rule
// that refused, or an error when a rule could not be evaluated.
func (p *Policy) Allow(m types.QualificationMatch) (bool, string, error) {
	input := map[string]any{
		"requirement":  m.Requirement,
		"category":     m.RequirementCategory,
		"source_path":  m.SourcePath,
		"source_value": m.SourceValue,
		"certainty":    string(m.Certainty),
		"reasoning":    m.ConfidenceReasoning,
	}
	for _, r := range p.rules {
		out, _, err := r.prg.Eval(input)
		if err != nil {
			return false, r.name, &RuleError{Rule: r.name, Message: "eval error", Cause: err}
		}
		allowed, ok := out.Value().(bool)
		if !ok {
			return false, r.name, &RuleError{Rule: r.name, Message: "result not boolean"}
		}
		if !allowed {
			return false, r.name, nil
		}
	}
	return true, "", nil
}
