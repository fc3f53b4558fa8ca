// internal/engine/monitor.go
package engine

import (
	"context"
	"sync"
	"time"
)

// stopWait bounds how long StopMonitoring blocks for the loop goroutine
// to observe cancellation and exit.
const stopWait = 5 * time.Second

type loopState struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// StartMonitoring launches the background monitoring loop with the given
// tick interval. A no-op if the loop is already running.
func (e *Engine) StartMonitoring(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	e.loop.mu.Lock()
	defer e.loop.mu.Unlock()
	if e.loop.running {
		e.logger.Debug("monitoring already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.loop.running = true
	e.loop.cancel = cancel
	e.loop.done = done

	go e.runLoop(ctx, interval, done)
	e.logger.Info("monitoring started", "interval", interval)
}

// StopMonitoring signals the loop to terminate and waits (bounded) for
// it to exit. Idempotent; safe to call when the loop never started.
func (e *Engine) StopMonitoring() {
	e.loop.mu.Lock()
	if !e.loop.running {
		e.loop.mu.Unlock()
		return
	}
	cancel, done := e.loop.cancel, e.loop.done
	e.loop.running = false
	e.loop.cancel = nil
	e.loop.done = nil
	e.loop.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopWait):
		e.logger.Warn("monitoring loop did not stop in time")
	}
	e.logger.Info("monitoring stopped")
}

// runLoop is the background control loop. A tick fully completes,
// including persistence writes, before the next sleep begins; the loop
// never overlaps itself. Any single-cycle failure is logged and the loop
// survives.
func (e *Engine) runLoop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	dec := e.EvaluateInteractionNeed(ctx, e.opts.DefaultUser)
	if dec == nil {
		return
	}
	if err := e.ExecuteInteraction(ctx, *dec, e.opts.DefaultUser); err != nil {
		// this tick is lost; the trigger re-evaluates next cycle
		e.logger.Warn("tick aborted", "trigger", dec.TriggerID, "error", err)
	}
}
