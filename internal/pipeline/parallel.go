package pipeline

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
)

// Parallel runs independent stages concurrently. Each stage writes to its own
// overlay; the group publishes all writes together only when every stage
// succeeded and no two stages wrote the same key.
type Parallel struct {
	name   string
	stages []stage.Processor
	settings
}

// NewParallel creates a named parallel group.
func NewParallel(name string, stages []stage.Processor, opts ...Option) *Parallel {
	return &Parallel{name: name, stages: stages, settings: newSettings(opts)}
}

// Name returns the group name.
func (p *Parallel) Name() string { return p.name }

// Run fans out the stages with errgroup. The first failure cancels the rest.
func (p *Parallel) Run(ctx context.Context, state session.ReadWriter) stage.Result {
	parent, ok := state.(session.Forkable)
	if !ok {
		return stage.Fail(p.name, fmt.Errorf("session of type %T cannot be forked", state))
	}
	if err := ctx.Err(); err != nil {
		return stage.Fail(p.name, err)
	}

	group := parent.Fork()
	overlays := make([]*session.Overlay, len(p.stages))
	written := make([][]string, len(p.stages))
	for i := range p.stages {
		overlays[i] = group.Fork()
	}

	g, gCtx := errgroup.WithContext(ctx)
	for i, s := range p.stages {
		g.Go(func() error {
			keys, err := runStage(gCtx, s, overlays[i], p.settings, false)
			if err != nil {
				return err
			}
			written[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stage.Fail(p.name, err)
	}

	owner := make(map[string]string)
	for i, keys := range written {
		for _, k := range keys {
			if prev, dup := owner[k]; dup {
				stages := []string{prev, p.stages[i].Name()}
				return stage.Fail(p.name, &WriteConflictError{Key: k, Stages: stages})
			}
			owner[k] = p.stages[i].Name()
		}
	}

	for i, o := range overlays {
		if err := o.Commit(); err != nil {
			return stage.Fail(p.name, stage.Wrap(p.stages[i].Name(), err))
		}
	}
	if err := group.Commit(); err != nil {
		return stage.Fail(p.name, err)
	}

	keys := make([]string, 0, len(owner))
	for k := range owner {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return stage.Success(p.name, fmt.Sprintf("%d stage(s) completed in parallel", len(p.stages)), keys...)
}
