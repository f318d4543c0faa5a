package pipeline

import (
	"fmt"
	"path"
	"sort"

	"github.com/jonathan/resume-refiner/internal/session"
)

// Stage categories
const (
	CategoryIngestion  = "ingestion"
	CategoryMatching   = "matching"
	CategoryRefinement = "refinement"
)

// StageDefinition declares what a stage reads and writes. Write patterns use
// path.Match syntax so iteration keys can be declared as "candidate_*".
type StageDefinition struct {
	Name     string
	Category string
	Reads    []string
	Optional []string
	Writes   []string
}

// Registry holds stage definitions. Stages without a definition are not
// checked.
type Registry struct {
	defs map[string]StageDefinition
}

// NewRegistry builds a registry from definitions.
func NewRegistry(defs ...StageDefinition) *Registry {
	r := &Registry{defs: make(map[string]StageDefinition, len(defs))}
	for _, d := range defs {
		r.defs[d.Name] = d
	}
	return r
}

// Definition returns the definition for a stage.
func (r *Registry) Definition(name string) (StageDefinition, bool) {
	if r == nil {
		return StageDefinition{}, false
	}
	d, ok := r.defs[name]
	return d, ok
}

// Names returns the registered stage names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CheckInputs returns a DependencyError listing every declared input that
// is absent from state.
func (r *Registry) CheckInputs(name string, state session.Reader) error {
	def, ok := r.Definition(name)
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range def.Reads {
		if !state.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Stage: name, Missing: missing}
	}
	return nil
}

// CheckWrites rejects keys the stage has not declared.
func (r *Registry) CheckWrites(name string, written []string) error {
	def, ok := r.Definition(name)
	if !ok {
		return nil
	}
	var undeclared []string
	for _, key := range written {
		if !covered(def.Writes, key) {
			undeclared = append(undeclared, key)
		}
	}
	if len(undeclared) > 0 {
		return &OwnershipError{Stage: name, Keys: undeclared}
	}
	return nil
}

// Available returns the registered stages whose inputs are all present,
// sorted by name.
func (r *Registry) Available(state session.Reader) []string {
	var out []string
	for _, name := range r.Names() {
		if r.CheckInputs(name, state) == nil {
			out = append(out, name)
		}
	}
	return out
}

// ValidateOrder checks that every declared input of each stage in order is
// either in initial or written by an earlier stage.
func (r *Registry) ValidateOrder(order []string, initial []string) error {
	var produced []string
	produced = append(produced, initial...)
	for _, name := range order {
		def, ok := r.Definition(name)
		if !ok {
			return fmt.Errorf("unknown stage: %s", name)
		}
		var missing []string
		for _, key := range def.Reads {
			if !covered(produced, key) {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return &DependencyError{Stage: name, Missing: missing}
		}
		produced = append(produced, def.Writes...)
	}
	return nil
}

func covered(patterns []string, key string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, key); ok {
			return true
		}
	}
	return false
}
