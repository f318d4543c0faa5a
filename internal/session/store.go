// Package session holds the per-run key/value state shared by pipeline stages.
//
// A Store lives for exactly one pipeline run. Stages never write to it
// directly; they write through an Overlay that the sequencer commits only when
// the stage succeeds, so a failed stage leaves no partial writes behind.
package session

import (
	"fmt"
	"sort"
	"sync"
)

// Reader is the read side of a session.
type Reader interface {
	// Lookup returns the value and whether the key is present. A present key
	// holding a zero value is distinguishable from an absent key.
	Lookup(key string) (any, bool)
	Get(key string) any
	Has(key string) bool
	Keys() []string
}

// Writer is the write side of a session.
type Writer interface {
	// Set writes a freely overwritable key.
	Set(key string, value any)
	// SetOnce writes a write-once key; a second write returns ImmutableKeyError.
	SetOnce(key string, value any) error
}

// ReadWriter combines Reader and Writer.
type ReadWriter interface {
	Reader
	Writer
}

// Forkable is a session that can buffer writes in an Overlay. Store and
// Overlay both implement it.
type Forkable interface {
	ReadWriter
	Fork() *Overlay
}

type entry struct {
	value any
	once  bool
}

// applier receives a batch of buffered writes from a child overlay.
type applier interface {
	apply(writes map[string]entry) error
}

// Store is the root session state for one run. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	values map[string]entry
}

// New creates an empty session store.
func New() *Store {
	return &Store{values: make(map[string]entry)}
}

// Lookup returns the value for key and whether it is present.
func (s *Store) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.values[key]
	return e.value, ok
}

// Get returns the value for key, or nil when absent.
func (s *Store) Get(key string) any {
	v, _ := s.Lookup(key)
	return v
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}

// Keys returns all present keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set writes an overwritable key. Calling Set on a write-once key panics.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.values[key]; ok && e.once {
		panic(fmt.Sprintf("session: Set on write-once key %q", key))
	}
	s.values[key] = entry{value: value}
}

// SetOnce writes a write-once key.
func (s *Store) SetOnce(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return &ImmutableKeyError{Key: key}
	}
	s.values[key] = entry{value: value, once: true}
	return nil
}

// Snapshot returns a shallow copy of the current state.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, e := range s.values {
		out[k] = e.value
	}
	return out
}

func (s *Store) apply(writes map[string]entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkConflicts(writes, func(k string) (entry, bool) {
		e, ok := s.values[k]
		return e, ok
	}); err != nil {
		return err
	}
	for k, e := range writes {
		s.values[k] = e
	}
	return nil
}

// checkConflicts rejects a batch that would overwrite a write-once key, or
// write-once a key that already exists.
func checkConflicts(writes map[string]entry, existing func(string) (entry, bool)) error {
	keys := make([]string, 0, len(writes))
	for k := range writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cur, ok := existing(k)
		if !ok {
			continue
		}
		if cur.once || writes[k].once {
			return &ImmutableKeyError{Key: k}
		}
	}
	return nil
}

// Require reads key and asserts its type. An absent key yields
// MissingInputError; a present key of the wrong type yields MalformedDataError.
func Require[T any](r Reader, key string) (T, error) {
	var zero T
	v, ok := r.Lookup(key)
	if !ok {
		return zero, &MissingInputError{Key: key}
	}
	t, ok := v.(T)
	if !ok {
		return zero, &MalformedDataError{
			Key:     key,
			Message: fmt.Sprintf("expected %T, got %T", zero, v),
		}
	}
	return t, nil
}
