package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LookupDistinguishesAbsentFromZero(t *testing.T) {
	s := New()
	s.Set("flag", false)
	s.Set("list", []string{})

	v, ok := s.Lookup("flag")
	assert.True(t, ok)
	assert.Equal(t, false, v)

	v, ok = s.Lookup("list")
	assert.True(t, ok)
	assert.Empty(t, v)

	v, ok = s.Lookup("absent")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestStore_SetOverwrites(t *testing.T) {
	s := New()
	s.Set(KeyMatchConfirmed, 1)
	s.Set(KeyMatchConfirmed, 2)
	assert.Equal(t, 2, s.Get(KeyMatchConfirmed))
}

func TestStore_SetOnce(t *testing.T) {
	s := New()
	require.NoError(t, s.SetOnce(CandidateKey(1), "first"))

	err := s.SetOnce(CandidateKey(1), "second")
	var immutable *ImmutableKeyError
	require.ErrorAs(t, err, &immutable)
	assert.Equal(t, "candidate_1", immutable.Key)
	assert.Equal(t, "first", s.Get(CandidateKey(1)))
}

func TestStore_SetOnWriteOncePanics(t *testing.T) {
	s := New()
	require.NoError(t, s.SetOnce(IssuesKey(2), nil))
	assert.Panics(t, func() { s.Set(IssuesKey(2), "x") })
}

func TestStore_KeysSorted(t *testing.T) {
	s := New()
	s.Set("b", 1)
	s.Set("a", 1)
	require.NoError(t, s.SetOnce("c", 1))
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := New()
	s.Set("a", 1)
	snap := s.Snapshot()
	snap["b"] = 2
	assert.False(t, s.Has("b"))
}

func TestStore_ConcurrentDisjointWrites(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SetOnce(CandidateKey(i), i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Keys(), 50)
}

func TestRequire(t *testing.T) {
	s := New()
	s.Set("text", "hello")

	got, err := Require[string](s, "text")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = Require[string](s, "absent")
	var missing *MissingInputError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "absent", missing.Key)

	_, err = Require[int](s, "text")
	var malformed *MalformedDataError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Error(), "expected int, got string")
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "record_resume", RecordKey(RoleResume))
	assert.Equal(t, "record_job_description", RecordKey(RoleJobDescription))
	assert.Equal(t, "raw_resume", RawKey(RoleResume))
	assert.Equal(t, "candidate_3", CandidateKey(3))
	assert.Equal(t, "issues_1", IssuesKey(1))
}
