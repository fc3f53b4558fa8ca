// internal/schedule/scheduler_test.go
package schedule

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunsTask(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	done := make(chan struct{})
	s.After(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestScheduler_Ordering(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var mu sync.Mutex
	var order []int
	record := func(n int) func() {
		return func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}
	}

	done := make(chan struct{})
	s.After(60*time.Millisecond, func() { record(3)(); close(done) })
	s.After(20*time.Millisecond, record(1))
	s.After(40*time.Millisecond, record(2))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("execution order = %v, want [1 2 3]", order)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var ran atomic.Bool
	cancel := s.After(50*time.Millisecond, func() { ran.Store(true) })
	cancel()

	if s.Pending() != 0 {
		t.Errorf("Pending() = %d after cancel, want 0", s.Pending())
	}

	time.Sleep(100 * time.Millisecond)
	if ran.Load() {
		t.Error("cancelled task ran anyway")
	}

	// cancelling twice is harmless
	cancel()
}

func TestScheduler_CancelAfterRun(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	done := make(chan struct{})
	cancel := s.After(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	// no-op once the task has fired
	cancel()
}

func TestScheduler_StopDropsPending(t *testing.T) {
	s := NewScheduler()

	var ran atomic.Bool
	s.After(time.Hour, func() { ran.Store(true) })

	s.Stop()
	if ran.Load() {
		t.Error("pending task ran during Stop")
	}

	// Stop is idempotent, and After on a stopped scheduler is a no-op
	s.Stop()
	cancel := s.After(time.Millisecond, func() { ran.Store(true) })
	cancel()
	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Error("task scheduled after Stop ran")
	}
}

func TestScheduler_ManyPending(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var count atomic.Int32
	done := make(chan struct{})
	const n = 100
	for i := 0; i < n; i++ {
		s.After(time.Duration(i%10)*time.Millisecond, func() {
			if count.Add(1) == n {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("only %d of %d tasks ran", count.Load(), n)
	}
}
