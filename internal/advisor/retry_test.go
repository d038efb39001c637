package advisor

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestPolicyDelay(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 16 * time.Second}

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		16 * time.Second,
	}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Fatalf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
	if got := p.Delay(0); got != time.Second {
		t.Fatalf("Delay(0) = %v, want %v", got, time.Second)
	}
}

func TestPolicyDelayUncapped(t *testing.T) {
	p := Policy{BaseDelay: 10 * time.Millisecond}
	if got := p.Delay(4); got != 80*time.Millisecond {
		t.Fatalf("Delay(4) = %v, want 80ms", got)
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	r := NewRetry(Policy{MaxAttempts: 3, BaseDelay: time.Second})
	if r.State() != Retrying {
		t.Fatalf("initial state = %v", r.State())
	}

	step := r.Next(Success)
	if step.State != Succeeded || step.Wait != 0 {
		t.Fatalf("step = %+v, want succeeded with no wait", step)
	}
	if r.Attempts() != 1 {
		t.Fatalf("attempts = %d, want 1", r.Attempts())
	}
}

func TestRetryTransientThenExhausted(t *testing.T) {
	r := NewRetry(Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 16 * time.Second})

	first := r.Next(Transient)
	if first.State != Retrying || first.Wait != time.Second {
		t.Fatalf("first = %+v", first)
	}
	second := r.Next(Transient)
	if second.State != Retrying || second.Wait != 2*time.Second {
		t.Fatalf("second = %+v", second)
	}
	third := r.Next(Transient)
	if third.State != Exhausted {
		t.Fatalf("third = %+v, want exhausted", third)
	}
	if r.Attempts() != 3 {
		t.Fatalf("attempts = %d, want 3", r.Attempts())
	}

	again := r.Next(Success)
	if again.State != Exhausted || r.Attempts() != 3 {
		t.Fatalf("terminal state changed: %+v attempts=%d", again, r.Attempts())
	}
}

func TestRetryPermanentStopsImmediately(t *testing.T) {
	r := NewRetry(Policy{MaxAttempts: 5, BaseDelay: time.Second})

	r.Next(Transient)
	step := r.Next(Permanent)
	if step.State != Failed {
		t.Fatalf("state = %v, want failed", step.State)
	}
	if r.Attempts() != 2 {
		t.Fatalf("attempts = %d, want 2", r.Attempts())
	}
}

func TestRetryZeroAttemptsAllowsOne(t *testing.T) {
	r := NewRetry(Policy{})
	if step := r.Next(Transient); step.State != Exhausted {
		t.Fatalf("state = %v, want exhausted", step.State)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, Success},
		{"too many requests", &StatusError{Code: http.StatusTooManyRequests}, Transient},
		{"internal error", &StatusError{Code: http.StatusInternalServerError}, Transient},
		{"bad gateway", &StatusError{Code: http.StatusBadGateway}, Transient},
		{"unavailable", &StatusError{Code: http.StatusServiceUnavailable}, Transient},
		{"gateway timeout", &StatusError{Code: http.StatusGatewayTimeout}, Transient},
		{"bad request", &StatusError{Code: http.StatusBadRequest}, Permanent},
		{"unauthorized", &StatusError{Code: http.StatusUnauthorized}, Permanent},
		{"wrapped status", fmt.Errorf("call: %w", &StatusError{Code: http.StatusServiceUnavailable}), Transient},
		{"not configured", fmt.Errorf("api key is required: %w", ErrNotConfigured), Permanent},
		{"invalid request", ErrInvalidRequest, Permanent},
		{"empty response", ErrEmptyResponse, Permanent},
		{"network", errors.New("connection reset by peer"), Transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Retrying:  "retrying",
		Succeeded: "succeeded",
		Exhausted: "exhausted",
		Failed:    "failed",
		State(42): "unknown",
	} {
		if got := state.String(); got != want {
			t.Fatalf("String() = %q, want %q", got, want)
		}
	}
}
