package advisor

import (
	"errors"
	"net/http"
	"time"
)

// Outcome classifies one attempt.
type Outcome int

const (
	Success Outcome = iota
	Transient
	Permanent
)

// State is where a Retry stands after its latest outcome.
type State int

const (
	Retrying State = iota
	Succeeded
	Exhausted
	Failed
)

func (s State) String() string {
	switch s {
	case Retrying:
		return "retrying"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Step tells the caller what to do next. Wait is set only when State is Retrying.
type Step struct {
	State State
	Wait  time.Duration
}

// Policy bounds a retry sequence.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay is the wait after the given failed attempt (1-based):
// BaseDelay doubled per prior attempt, capped at MaxDelay when MaxDelay is set.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retry is a bounded exponential-backoff state machine. It performs no I/O;
// the caller reports each attempt's outcome and acts on the returned Step.
type Retry struct {
	policy   Policy
	attempts int
	state    State
}

func NewRetry(policy Policy) *Retry {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Retry{policy: policy, state: Retrying}
}

// Attempts reports how many outcomes have been recorded.
func (r *Retry) Attempts() int {
	return r.attempts
}

func (r *Retry) State() State {
	return r.state
}

// Next records the outcome of the attempt just made. Once a terminal state
// is reached further calls return it unchanged.
func (r *Retry) Next(outcome Outcome) Step {
	if r.state != Retrying {
		return Step{State: r.state}
	}
	r.attempts++

	switch outcome {
	case Success:
		r.state = Succeeded
	case Permanent:
		r.state = Failed
	default:
		if r.attempts >= r.policy.MaxAttempts {
			r.state = Exhausted
			break
		}
		return Step{State: Retrying, Wait: r.policy.Delay(r.attempts)}
	}
	return Step{State: r.state}
}

// Classify maps a transport error to an Outcome. Throttling and server-side
// statuses are transient. Network failures are transient too.
func Classify(err error) Outcome {
	if err == nil {
		return Success
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return Transient
		default:
			return Permanent
		}
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrEmptyResponse) {
		return Permanent
	}
	return Transient
}
