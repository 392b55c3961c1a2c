package taskpool

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
)

// TaskFunc is one sub-task of a Group. taskID identifies the sub-task,
// numSubTasks is the total count in the group, and workerID identifies the
// calling worker, mirroring original_source's TaskGroup TaskFunc signature.
type TaskFunc func(taskID, numSubTasks, workerID int)

// Group is one parallel-for submission split into a fixed number of
// sub-tasks, ported from original_source/src/thread/TaskGroup.hpp. Workers
// pull sub-tasks off it until it is exhausted or aborted; callers block on
// Wait until every sub-task has completed, panicked, or the group aborted.
type Group struct {
	fn        TaskFunc
	numTasks  int
	nextTask  int
	remaining int

	mu       sync.Mutex
	done     chan struct{}
	closed   bool
	aborting bool
	errs     error
}

// newGroup constructs a Group ready to be enqueued on a Pool.
func newGroup(fn TaskFunc, numSubTasks int) *Group {
	g := &Group{
		fn:        fn,
		numTasks:  numSubTasks,
		remaining: numSubTasks,
		done:      make(chan struct{}),
	}
	if numSubTasks <= 0 {
		close(g.done)
		g.closed = true
	}
	return g
}

// startSubTask claims the next unstarted sub-task index, or returns
// ok=false if the group is exhausted or aborting.
func (g *Group) startSubTask() (idx int, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aborting || g.nextTask >= g.numTasks {
		return 0, false
	}
	idx = g.nextTask
	g.nextTask++
	return idx, true
}

// run executes sub-task idx, recovering any panic into a TaskPanic error and
// marking the group finished once every sub-task has reported in.
func (g *Group) run(idx, workerID int) {
	defer g.finishOne()
	defer func() {
		if r := recover(); r != nil {
			g.abort(svoerr.NewTaskPanic(r))
		}
	}()
	g.fn(idx, g.numTasks, workerID)
}

func (g *Group) finishOne() {
	g.mu.Lock()
	g.remaining--
	finished := g.remaining <= 0
	g.mu.Unlock()
	if finished {
		g.close()
	}
}

func (g *Group) abort(err error) {
	g.mu.Lock()
	g.aborting = true
	g.remaining -= g.numTasks - g.nextTask
	g.nextTask = g.numTasks
	g.errs = multierr.Append(g.errs, err)
	g.mu.Unlock()
}

func (g *Group) close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()
	close(g.done)
}

// Wait blocks until every sub-task has finished, returning the combined
// error of any recovered panics (nil on clean completion).
func (g *Group) Wait() error {
	<-g.done
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.errs != nil {
		return errors.Wrap(g.errs, "task group failed")
	}
	return nil
}

// IsAborting reports whether some sub-task has already triggered an abort,
// letting long-running sub-tasks check for early exit cooperatively.
func (g *Group) IsAborting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aborting
}
