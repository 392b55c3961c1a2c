package taskpool

import "sync"

// Barrier is a two-phase rendezvous barrier for a fixed number of
// participants, ported from original_source/src/ThreadBarrier.cpp's
// two-semaphore turnstile pattern onto a mutex and buffered channels
// standing in for POSIX semaphores. The renderer's workers call WaitPre
// before sweeping their band of a frame and WaitPost after it, so no worker
// starts sweeping until all have arrived and none returns until all have
// finished their band.
type Barrier struct {
	n int

	mu         sync.Mutex
	waitCount  int
	turnstile1 chan struct{}
	turnstile2 chan struct{}

	released bool
}

// NewBarrier constructs a Barrier for exactly n participants.
func NewBarrier(n int) *Barrier {
	return &Barrier{
		n:          n,
		turnstile1: make(chan struct{}, n),
		turnstile2: make(chan struct{}, n),
	}
}

// WaitPre blocks until all n participants have called WaitPre, i.e. until
// every worker has arrived at the start of the current frame's sweep.
func (b *Barrier) WaitPre() {
	b.mu.Lock()
	b.waitCount++
	if b.waitCount == b.n {
		for i := 0; i < b.n; i++ {
			b.turnstile1 <- struct{}{}
		}
	}
	b.mu.Unlock()

	<-b.turnstile1
}

// WaitPost blocks until all n participants have called WaitPost, i.e. until
// every worker has finished its part of the current frame's sweep.
func (b *Barrier) WaitPost() {
	b.mu.Lock()
	b.waitCount--
	if b.waitCount == 0 {
		for i := 0; i < b.n; i++ {
			b.turnstile2 <- struct{}{}
		}
	}
	b.mu.Unlock()

	<-b.turnstile2
}

// ReleaseAll wakes every participant currently blocked in WaitPre or
// WaitPost, used to unblock all workers on shutdown.
func (b *Barrier) ReleaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	for i := 0; i < b.n; i++ {
		select {
		case b.turnstile1 <- struct{}{}:
		default:
		}
		select {
		case b.turnstile2 <- struct{}{}:
		default:
		}
	}
}
