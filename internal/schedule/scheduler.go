// internal/schedule/scheduler.go
// One timer draining a min-heap of pending tasks, instead of one OS timer
// per pending item. Resource use stays bounded no matter how many one-shot
// actions are outstanding.
package schedule

import (
	"container/heap"
	"sync"
	"time"
)

type task struct {
	at    time.Time
	seq   uint64
	fn    func()
	index int // heap index, -1 once removed
}

type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if !h[i].at.Equal(h[j].at) {
		return h[i].at.Before(h[j].at)
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler runs one-shot functions at their scheduled time on a single
// background goroutine.
type Scheduler struct {
	mu      sync.Mutex
	heap    taskHeap
	seq     uint64
	wake    chan struct{}
	done    chan struct{}
	stopped bool
}

// CancelFunc removes a pending task. Calling it after the task has run
// is a no-op.
type CancelFunc func()

// NewScheduler creates and starts a scheduler.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// After schedules fn to run after delay and returns a cancel function.
func (s *Scheduler) After(delay time.Duration, fn func()) CancelFunc {
	t := &task{at: time.Now().Add(delay), fn: fn}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return func() {}
	}
	s.seq++
	t.seq = s.seq
	heap.Push(&s.heap, t)
	s.mu.Unlock()

	s.poke()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.index >= 0 {
			heap.Remove(&s.heap, t.index)
		}
	}
}

// Pending returns the number of tasks not yet run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}

// Stop terminates the scheduler. Pending tasks are dropped. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.heap = nil
	s.mu.Unlock()

	s.poke()
	<-s.done
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}

		var wait time.Duration = time.Hour
		if len(s.heap) > 0 {
			wait = time.Until(s.heap[0].at)
		}

		if wait <= 0 {
			t := heap.Pop(&s.heap).(*task)
			s.mu.Unlock()
			t.fn()
			continue
		}
		s.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
		case <-s.wake:
		}
	}
}
