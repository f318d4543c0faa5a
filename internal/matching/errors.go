package matching

import "fmt"

// RuleError represents a promotion policy that could not be built or evaluated
type RuleError struct {
	Rule    string
	Message string
	Cause   error
}

func (e *RuleError) Error() string {
	prefix := "promotion policy"
	if e.Rule != "" {
		prefix = fmt.Sprintf("promotion rule %s", e.Rule)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *RuleError) Unwrap() error {
	return e.Cause
}
