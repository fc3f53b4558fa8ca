// internal/engine/monitor_test.go
package engine

import (
	"testing"
	"time"
)

func TestMonitoring_StartStop(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	eng.RegisterTrigger(neverFire("quiet"))

	eng.StartMonitoring(10 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		eng.StopMonitoring()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(stopWait + time.Second):
		t.Fatal("StopMonitoring did not return")
	}
}

func TestMonitoring_StopImmediatelyAfterStart(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	eng.RegisterTrigger(neverFire("quiet"))

	// no tick has happened yet; stop must still return promptly
	eng.StartMonitoring(time.Hour)

	done := make(chan struct{})
	go func() {
		eng.StopMonitoring()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopWait + time.Second):
		t.Fatal("StopMonitoring hung waiting for a tick")
	}
}

func TestMonitoring_StartIsIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	eng.RegisterTrigger(neverFire("quiet"))

	eng.StartMonitoring(10 * time.Millisecond)
	eng.StartMonitoring(10 * time.Millisecond) // no second loop
	eng.StopMonitoring()
	eng.StopMonitoring() // no panic on double stop
}

func TestMonitoring_LoopExecutesDecisions(t *testing.T) {
	exec := &recordingExecutor{}
	eng, st := newTestEngine(t, exec)
	eng.RegisterTrigger(alwaysFire("t1", 5))

	eng.StartMonitoring(10 * time.Millisecond)
	defer eng.StopMonitoring()

	deadline := time.Now().Add(2 * time.Second)
	for exec.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("loop never dispatched a decision")
		}
		time.Sleep(10 * time.Millisecond)
	}

	records, err := st.History("t1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(records) == 0 {
		t.Error("loop dispatched without persisting")
	}
	// the hour-long cooldown keeps the loop from spamming
	time.Sleep(50 * time.Millisecond)
	if exec.count() > 1 {
		t.Errorf("dispatched %d times inside one cooldown", exec.count())
	}
}
