// Package taskpool implements the fixed-size worker pool, task group and
// rendezvous barrier that back both octree construction and tiled
// rendering, ported from original_source/src/thread/ThreadPool.{hpp,cpp}
// and ThreadBarrier.cpp onto goroutines and channels.
package taskpool

import (
	"context"
	"sync"

	"github.com/edaniels/golog"
)

// Pool is a fixed-size worker pool that consumes a FIFO queue of Groups,
// each split into sub-tasks that any worker may claim.
type Pool struct {
	logger    golog.Logger
	numWorker int

	mu      sync.Mutex
	queue   []*Group
	waiting chan struct{}

	stopped chan struct{}
	stopOne sync.Once
	wg      sync.WaitGroup
}

// New starts a Pool with numWorkers goroutines. Callers must call Stop when
// finished to release the workers.
func New(ctx context.Context, numWorkers int, logger golog.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &Pool{
		logger:    logger,
		numWorker: numWorkers,
		waiting:   make(chan struct{}, numWorkers),
		stopped:   make(chan struct{}),
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	return p
}

// NumWorkers reports the pool's fixed worker count.
func (p *Pool) NumWorkers() int { return p.numWorker }

// Enqueue submits fn split into numSubTasks sub-tasks and returns the Group
// handle immediately without blocking for completion.
func (p *Pool) Enqueue(fn TaskFunc, numSubTasks int) *Group {
	g := newGroup(fn, numSubTasks)
	if numSubTasks <= 0 {
		return g
	}
	p.mu.Lock()
	p.queue = append(p.queue, g)
	p.mu.Unlock()
	p.wake()
	return g
}

// Run submits fn split into numSubTasks sub-tasks and blocks until they all
// complete, returning any recovered panic wrapped as a TaskPanic.
func (p *Pool) Run(fn TaskFunc, numSubTasks int) error {
	return p.Enqueue(fn, numSubTasks).Wait()
}

// Yield lets the calling goroutine (which may itself be outside the pool,
// e.g. the submitter of group g) drain sub-tasks of g directly instead of
// idling on Wait, matching original_source's ThreadPool::yield.
func (p *Pool) Yield(g *Group) {
	for {
		idx, ok := g.startSubTask()
		if !ok {
			return
		}
		g.run(idx, -1)
	}
}

func (p *Pool) wake() {
	select {
	case p.waiting <- struct{}{}:
	default:
	}
}

func (p *Pool) acquireTask() (*Group, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) > 0 {
		g := p.queue[0]
		idx, ok := g.startSubTask()
		if !ok {
			p.queue = p.queue[1:]
			continue
		}
		if idx == g.numTasks-1 {
			p.queue = p.queue[1:]
		}
		return g, idx, true
	}
	return nil, 0, false
}

func (p *Pool) runWorker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	for {
		g, idx, ok := p.acquireTask()
		if ok {
			g.run(idx, workerID)
			continue
		}
		select {
		case <-p.stopped:
			return
		case <-ctx.Done():
			return
		case <-p.waiting:
		}
	}
}

// Stop signals every worker goroutine to exit once its current sub-task (if
// any) finishes, and waits for them to drain.
func (p *Pool) Stop() {
	p.stopOne.Do(func() { close(p.stopped) })
	p.wg.Wait()
}
