package pipeline

import (
	"context"
	"sync"

	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
)

// setter writes key=value and succeeds.
func setter(name, key string, value any) stage.Processor {
	return stage.Func{StageName: name, Fn: func(_ context.Context, s session.ReadWriter) stage.Result {
		s.Set(key, value)
		return stage.Success(name, "ok", key)
	}}
}

// failing writes key and then fails with err.
func failing(name, key string, err error) stage.Processor {
	return stage.Func{StageName: name, Fn: func(_ context.Context, s session.ReadWriter) stage.Result {
		if key != "" {
			s.Set(key, "partial")
		}
		return stage.Fail(name, err)
	}}
}

// counter counts how often a stage ran.
type counter struct {
	mu   sync.Mutex
	runs map[string]int
}

func (c *counter) wrap(p stage.Processor) stage.Processor {
	return stage.Func{StageName: p.Name(), Fn: func(ctx context.Context, s session.ReadWriter) stage.Result {
		c.mu.Lock()
		if c.runs == nil {
			c.runs = make(map[string]int)
		}
		c.runs[p.Name()]++
		c.mu.Unlock()
		return p.Run(ctx, s)
	}}
}

func (c *counter) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs[name]
}

// events collects listener events.
type events struct {
	mu  sync.Mutex
	all []Event
}

func (e *events) listen(ev Event) {
	e.mu.Lock()
	e.all = append(e.all, ev)
	e.mu.Unlock()
}

func (e *events) statuses(name string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.all {
		if ev.Stage == name {
			out = append(out, ev.Status)
		}
	}
	return out
}
