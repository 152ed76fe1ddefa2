package enrich

import (
	"context"
	"time"

	"github.com/roach88/gridfill/internal/record"
	"github.com/roach88/gridfill/internal/scheduler"
)

// WithTimeout wraps task so each call runs under its own deadline. The
// scheduler has no timeout of its own; a slow task holds its slot until
// this deadline cancels it. A zero or negative d returns task unchanged.
func WithTimeout(task scheduler.Task, d time.Duration) scheduler.Task {
	if d <= 0 {
		return task
	}
	return &timeoutTask{task: task, timeout: d}
}

type timeoutTask struct {
	task    scheduler.Task
	timeout time.Duration
}

func (t *timeoutTask) Enrich(ctx context.Context, rec record.Record) record.Result {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.task.Enrich(ctx, rec)
}

// TaskName forwards the wrapped task's name so journals stay readable.
func (t *timeoutTask) TaskName() string {
	if n, ok := t.task.(scheduler.Named); ok {
		return n.TaskName()
	}
	return "task"
}
