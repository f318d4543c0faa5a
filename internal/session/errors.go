package session

import "fmt"

// MissingInputError is returned when a required key is absent from the session.
type MissingInputError struct {
	Key string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %q not found in session", e.Key)
}

// MalformedDataError is returned when a key is present but its value cannot be
// used: wrong type, placeholder values, or missing required fields.
type MalformedDataError struct {
	Key     string
	Message string
	Cause   error
}

func (e *MalformedDataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed data at %q: %s: %v", e.Key, e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed data at %q: %s", e.Key, e.Message)
}

func (e *MalformedDataError) Unwrap() error {
	return e.Cause
}

// ImmutableKeyError is returned when a write-once key is written a second time.
type ImmutableKeyError struct {
	Key string
}

func (e *ImmutableKeyError) Error() string {
	return fmt.Sprintf("key %q is write-once and already set", e.Key)
}
