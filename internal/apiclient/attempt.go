package apiclient

import (
	"context"
	"time"
)

// Phase is a state of the retry state machine
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAttempting
	PhaseSuccess
	PhaseRetrying
	PhaseExhausted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAttempting:
		return "attempting"
	case PhaseSuccess:
		return "success"
	case PhaseRetrying:
		return "retrying"
	case PhaseExhausted:
		return "exhausted"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RequestAttempt identifies one physical attempt of a logical call.
// It is a value; Next returns the following attempt.
type RequestAttempt struct {
	Endpoint    string
	Index       int
	MaxAttempts int
}

// NewRequestAttempt returns the first attempt. maxAttempts below 1 is treated as 1.
func NewRequestAttempt(endpoint string, maxAttempts int) RequestAttempt {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RequestAttempt{
		Endpoint:    endpoint,
		MaxAttempts: maxAttempts,
	}
}

// IsLast returns true if no attempt follows this one
func (a RequestAttempt) IsLast() bool {
	return a.Index >= a.MaxAttempts-1
}

// Next returns the following attempt
func (a RequestAttempt) Next() RequestAttempt {
	a.Index++
	return a
}

// AttemptResult is what one physical attempt produced.
// A non-nil Err means no response was received.
type AttemptResult struct {
	StatusCode int
	Err        error
}

// Step is the transition out of Attempting(i)
func Step(a RequestAttempt, r AttemptResult) Phase {
	switch {
	case r.Err != nil || r.StatusCode >= 500:
		if a.IsLast() {
			return PhaseExhausted
		}
		return PhaseRetrying
	case r.StatusCode >= 400:
		return PhaseFailed
	default:
		return PhaseSuccess
	}
}

// Backoff returns how long to wait after a failed attempt
type Backoff func(a RequestAttempt) time.Duration

// LinearBackoff waits unit*(i+1) after attempt i
func LinearBackoff(unit time.Duration) Backoff {
	return func(a RequestAttempt) time.Duration {
		return unit * time.Duration(a.Index+1)
	}
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// timerSleep is the default Sleeper
func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
