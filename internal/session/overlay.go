package session

import (
	"fmt"
	"sort"
	"sync"
)

// Overlay buffers writes on top of a parent session. Reads fall through to the
// parent for keys the overlay has not written. Nothing reaches the parent until
// Commit, and a discarded overlay leaves the parent untouched.
type Overlay struct {
	parent interface {
		Reader
		applier
	}
	mu        sync.RWMutex
	writes    map[string]entry
	committed bool
}

// Fork returns an overlay over the store.
func (s *Store) Fork() *Overlay {
	return &Overlay{parent: s, writes: make(map[string]entry)}
}

// Fork returns a nested overlay. Committing the child publishes into o, not
// into o's parent.
func (o *Overlay) Fork() *Overlay {
	return &Overlay{parent: o, writes: make(map[string]entry)}
}

// Lookup returns the buffered value if written, otherwise the parent's.
func (o *Overlay) Lookup(key string) (any, bool) {
	o.mu.RLock()
	e, ok := o.writes[key]
	o.mu.RUnlock()
	if ok {
		return e.value, true
	}
	return o.parent.Lookup(key)
}

// Get returns the value for key, or nil when absent.
func (o *Overlay) Get(key string) any {
	v, _ := o.Lookup(key)
	return v
}

// Has reports whether key is present in the overlay or its parent.
func (o *Overlay) Has(key string) bool {
	_, ok := o.Lookup(key)
	return ok
}

// Keys returns the sorted union of buffered and parent keys.
func (o *Overlay) Keys() []string {
	seen := make(map[string]struct{})
	for _, k := range o.parent.Keys() {
		seen[k] = struct{}{}
	}
	o.mu.RLock()
	for k := range o.writes {
		seen[k] = struct{}{}
	}
	o.mu.RUnlock()
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set buffers an overwritable write. Calling Set on a write-once key panics.
func (o *Overlay) Set(key string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isOnce(key) {
		panic(fmt.Sprintf("session: Set on write-once key %q", key))
	}
	o.writes[key] = entry{value: value}
}

// SetOnce buffers a write-once write. It fails if the key exists in the
// overlay or anywhere above it.
func (o *Overlay) SetOnce(key string, value any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.writes[key]; ok {
		return &ImmutableKeyError{Key: key}
	}
	if o.parent.Has(key) {
		return &ImmutableKeyError{Key: key}
	}
	o.writes[key] = entry{value: value, once: true}
	return nil
}

// Written returns the keys buffered in this overlay, sorted.
func (o *Overlay) Written() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Commit publishes every buffered write to the parent in one step. Either all
// writes land or none do.
func (o *Overlay) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.committed {
		return fmt.Errorf("session: overlay already committed")
	}
	if err := o.parent.apply(o.writes); err != nil {
		return err
	}
	o.committed = true
	return nil
}

func (o *Overlay) apply(writes map[string]entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	err := checkConflicts(writes, func(k string) (entry, bool) {
		if e, ok := o.writes[k]; ok {
			return e, true
		}
		if v, ok := o.parent.Lookup(k); ok {
			return entry{value: v, once: o.parentOnce(k)}, true
		}
		return entry{}, false
	})
	if err != nil {
		return err
	}
	for k, e := range writes {
		o.writes[k] = e
	}
	return nil
}

// isOnce reports whether key is write-once here or in an ancestor. Caller holds o.mu.
func (o *Overlay) isOnce(key string) bool {
	if e, ok := o.writes[key]; ok {
		return e.once
	}
	return o.parentOnce(key)
}

func (o *Overlay) parentOnce(key string) bool {
	switch p := o.parent.(type) {
	case *Store:
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.values[key].once
	case *Overlay:
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.isOnce(key)
	}
	return false
}
