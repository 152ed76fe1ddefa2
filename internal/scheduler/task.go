package scheduler

import (
	"context"

	"github.com/roach88/gridfill/internal/record"
)

// Task maps one record to a result. Implementations must not mutate shared
// record state; the scheduler applies the returned update.
type Task interface {
	Enrich(ctx context.Context, rec record.Record) record.Result
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func(ctx context.Context, rec record.Record) record.Result

// Enrich calls f(ctx, rec).
func (f TaskFunc) Enrich(ctx context.Context, rec record.Record) record.Result {
	return f(ctx, rec)
}

// Named is implemented by tasks that can describe their source. The name is
// recorded in the run journal.
type Named interface {
	TaskName() string
}

func taskName(t Task) string {
	if n, ok := t.(Named); ok {
		return n.TaskName()
	}
	return "task"
}
