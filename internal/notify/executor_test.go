// internal/notify/executor_test.go
package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/colebrumley/interruptd/internal/decision"
)

type stubDispatcher struct {
	calls int
	err   error
}

func (s *stubDispatcher) Dispatch(ctx context.Context, dec decision.Decision) error {
	s.calls++
	return s.err
}

func TestLogExecutor_Dispatch(t *testing.T) {
	e := NewLogExecutor(nil)
	err := e.Dispatch(context.Background(), decision.Decision{
		TriggerID:       "t1",
		InteractionType: decision.Notification,
		PriorityTier:    decision.TierLow,
		Reason:          "test",
	})
	if err != nil {
		t.Errorf("Dispatch() error = %v", err)
	}
}

func TestMulti_FanOut(t *testing.T) {
	a := &stubDispatcher{}
	b := &stubDispatcher{}
	m := NewMulti(a, b)

	if err := m.Dispatch(context.Background(), decision.Decision{}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", a.calls, b.calls)
	}
}

func TestMulti_OneFailureDoesNotStopOthers(t *testing.T) {
	a := &stubDispatcher{err: errors.New("boom")}
	b := &stubDispatcher{}
	m := NewMulti(a, b)

	err := m.Dispatch(context.Background(), decision.Decision{})
	if err == nil {
		t.Error("expected aggregated error")
	}
	if b.calls != 1 {
		t.Error("second dispatcher skipped after first failed")
	}
}

func TestRenderMessage(t *testing.T) {
	dec := decision.Decision{
		PriorityTier: decision.TierCritical,
		Reason:       "resource_critical: disk nearly full",
		Content: map[string]any{
			"message_template": "observed {{observed}} over {{threshold}}",
			"observed":         0.97,
			"threshold":        0.95,
		},
	}

	msg := renderMessage(dec)
	if !strings.HasPrefix(msg, ":rotating_light: ") {
		t.Errorf("critical message missing prefix: %q", msg)
	}
	if !strings.Contains(msg, "observed 0.97 over 0.95") {
		t.Errorf("template not expanded: %q", msg)
	}
}

func TestRenderMessage_NoTemplate(t *testing.T) {
	dec := decision.Decision{
		PriorityTier: decision.TierLow,
		Reason:       "morning_greeting: hello",
		Content:      map[string]any{},
	}

	msg := renderMessage(dec)
	if msg != "morning_greeting: hello" {
		t.Errorf("message = %q", msg)
	}
}
