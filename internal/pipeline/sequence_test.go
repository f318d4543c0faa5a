package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
)

func TestSequence_RunsStagesInOrder(t *testing.T) {
	state := session.New()
	var order []string
	track := func(name string) stage.Processor {
		return stage.Func{StageName: name, Fn: func(_ context.Context, s session.ReadWriter) stage.Result {
			order = append(order, name)
			s.Set(name, true)
			return stage.Success(name, "", name)
		}}
	}

	res := NewSequence("outer", []stage.Processor{track("a"), track("b"), track("c")}).Run(context.Background(), state)
	require.True(t, res.OK())
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, res.Keys)
	assert.Equal(t, []string{"a", "b", "c"}, state.Keys())
}

func TestSequence_HaltsOnFirstFailure(t *testing.T) {
	state := session.New()
	boom := errors.New("boom")
	c := &counter{}

	seq := NewSequence("outer", []stage.Processor{
		c.wrap(setter("first", "kept", 1)),
		c.wrap(failing("second", "discarded", boom)),
		c.wrap(setter("third", "never", 3)),
	})
	res := seq.Run(context.Background(), state)

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, []string{"outer", "second"}, stage.Chain(res.Err))
	assert.Equal(t, "outer -> second -> boom", res.Err.Error())

	assert.True(t, state.Has("kept"))
	assert.False(t, state.Has("discarded"), "failed stage writes must not be committed")
	assert.Equal(t, 0, c.count("third"))
}

func TestSequence_NestedErrorChain(t *testing.T) {
	missing := stage.Func{StageName: "leaf", Fn: func(_ context.Context, s session.ReadWriter) stage.Result {
		_, err := session.Require[string](s, "raw_resume")
		return stage.Fail("leaf", err)
	}}
	inner := NewSequence("inner", []stage.Processor{missing})
	outer := NewSequence("outer", []stage.Processor{inner})

	res := outer.Run(context.Background(), session.New())
	require.Error(t, res.Err)
	assert.Equal(t, []string{"outer", "inner", "leaf"}, stage.Chain(res.Err))
	assert.Equal(t, `outer -> inner -> leaf -> missing input: "raw_resume" not found in session`, res.Err.Error())

	var mi *session.MissingInputError
	require.ErrorAs(t, res.Err, &mi)
	assert.Equal(t, "raw_resume", mi.Key)
}

func TestSequence_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &counter{}
	cancelling := stage.Func{StageName: "first", Fn: func(context.Context, session.ReadWriter) stage.Result {
		cancel()
		return stage.Success("first", "")
	}}

	res := NewSequence("outer", []stage.Processor{cancelling, c.wrap(setter("second", "k", 1))}).Run(ctx, session.New())
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, []string{"outer", "second"}, stage.Chain(res.Err))
	assert.Equal(t, 0, c.count("second"))
}

func TestSequence_RequiresForkableSession(t *testing.T) {
	plain := struct{ session.ReadWriter }{session.New()}
	res := NewSequence("outer", []stage.Processor{setter("a", "k", 1)}).Run(context.Background(), plain)
	require.False(t, res.OK())
	assert.Contains(t, res.Err.Error(), "cannot be forked")
}

func TestSequence_ReportsEvents(t *testing.T) {
	ev := &events{}
	seq := NewSequence("outer", []stage.Processor{
		setter("a", "k", 1),
		failing("b", "", errors.New("nope")),
	}, WithListener(ev.listen))
	seq.Run(context.Background(), session.New())

	assert.Equal(t, []string{StatusInProgress, StatusCompleted}, ev.statuses("a"))
	assert.Equal(t, []string{StatusInProgress, StatusFailed}, ev.statuses("b"))
}

func TestSequence_RegistryChecksInputs(t *testing.T) {
	reg := NewRegistry(StageDefinition{Name: "needs", Reads: []string{"a", "b"}, Writes: []string{"c"}})
	c := &counter{}

	res := NewSequence("outer", []stage.Processor{c.wrap(setter("needs", "c", 1))}, WithRegistry(reg)).
		Run(context.Background(), session.New())
	require.False(t, res.OK())
	assert.Equal(t, 0, c.count("needs"), "stage must not start without its inputs")

	var dep *DependencyError
	require.ErrorAs(t, res.Err, &dep)
	assert.Equal(t, []string{"a", "b"}, dep.Missing)

	var mi *session.MissingInputError
	require.ErrorAs(t, res.Err, &mi)
	assert.Equal(t, "a", mi.Key)
}

func TestSequence_RegistryChecksOwnership(t *testing.T) {
	reg := NewRegistry(StageDefinition{Name: "writer", Writes: []string{"candidate_*"}})
	state := session.New()

	res := NewSequence("outer", []stage.Processor{setter("writer", "final_artifact", 1)}, WithRegistry(reg)).
		Run(context.Background(), state)
	require.False(t, res.OK())

	var own *OwnershipError
	require.ErrorAs(t, res.Err, &own)
	assert.Equal(t, []string{"final_artifact"}, own.Keys)
	assert.False(t, state.Has("final_artifact"))

	res = NewSequence("outer", []stage.Processor{setter("writer", "candidate_3", 1)}, WithRegistry(reg)).
		Run(context.Background(), state)
	assert.True(t, res.OK())
}
