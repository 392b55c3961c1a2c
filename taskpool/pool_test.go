package taskpool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestRunCompletesAllSubTasks(t *testing.T) {
	pool := New(context.Background(), 4, golog.NewTestLogger(t))
	defer pool.Stop()

	var count int64
	err := pool.Run(func(taskID, numSubTasks, workerID int) {
		atomic.AddInt64(&count, 1)
	}, 100)

	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, int64(100))
}

func TestRunRecoversPanic(t *testing.T) {
	pool := New(context.Background(), 2, golog.NewTestLogger(t))
	defer pool.Stop()

	err := pool.Run(func(taskID, numSubTasks, workerID int) {
		if taskID == 3 {
			panic("boom")
		}
	}, 10)

	test.That(t, err, test.ShouldNotBeNil)
}

func TestZeroSubTasksCompletesImmediately(t *testing.T) {
	pool := New(context.Background(), 2, golog.NewTestLogger(t))
	defer pool.Stop()

	err := pool.Run(func(taskID, numSubTasks, workerID int) {
		t.Fatal("should never run")
	}, 0)
	test.That(t, err, test.ShouldBeNil)
}

func TestBarrierRendezvous(t *testing.T) {
	const n = 8
	b := NewBarrier(n)
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			b.WaitPre()
			b.WaitPost()
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
}
