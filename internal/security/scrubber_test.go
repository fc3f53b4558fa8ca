// internal/security/scrubber_test.go
package security

import (
	"strings"
	"testing"
)

func TestScrubPayload(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		mustHide string
	}{
		{
			"json token field",
			`{"token":"sk-abc123def456","observed":2.5}`,
			"sk-abc123def456",
		},
		{
			"api key assignment",
			`api_key=supersecretvalue99`,
			"supersecretvalue99",
		},
		{
			"password pair",
			`password: hunter2hunter2`,
			"hunter2hunter2",
		},
		{
			"bearer token",
			`Authorization header was Bearer eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9abc`,
			"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9abc",
		},
		{
			"long hex string",
			`session id deadbeefdeadbeefdeadbeefdeadbeef observed`,
			"deadbeefdeadbeefdeadbeefdeadbeef",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScrubPayload(tt.payload)
			if strings.Contains(got, tt.mustHide) {
				t.Errorf("ScrubPayload() leaked %q: %q", tt.mustHide, got)
			}
			if !strings.Contains(got, "[REDACTED]") {
				t.Errorf("ScrubPayload() produced no redaction marker: %q", got)
			}
		})
	}
}

func TestScrubPayload_LeavesOrdinaryDataAlone(t *testing.T) {
	payload := `{"trigger_id":"long_work_session","observed":3.5,"threshold":2.0}`
	if got := ScrubPayload(payload); got != payload {
		t.Errorf("ScrubPayload() mangled benign payload: %q", got)
	}
}
