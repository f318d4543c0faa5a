package refine

import "fmt"

// ConfigError represents an invalid loop configuration
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid refinement config: %s: %s", e.Field, e.Message)
}

// OutputError represents a generator or critic result that violates its contract
type OutputError struct {
	Collaborator string
	Message      string
	Cause        error
}

func (e *OutputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s output: %s: %v", e.Collaborator, e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid %s output: %s", e.Collaborator, e.Message)
}

func (e *OutputError) Unwrap() error {
	return e.Cause
}
