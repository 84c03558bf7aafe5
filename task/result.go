package task

import (
	"fmt"

	"github.com/nstehr/ego/awareness"
)

type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeDone
	OutcomeFailed
	OutcomeNoop
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "RUNNING"
	case OutcomeDone:
		return "DONE"
	case OutcomeFailed:
		return "FAILED"
	case OutcomeNoop:
		return "NOOP"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Reasons with engine-level meaning.
const (
	ReasonIdle   = "idle"
	ReasonDidAny = "did_any"
)

// Result is the tagged outcome of one step. Facts are belief writes the
// engine applies on the task's behalf.
type Result struct {
	Outcome    Outcome
	Reason     string
	RetryAfter float64 // seconds, FAILED only
	Telemetry  map[string]any
	Facts      []awareness.Fact
}

func Running(reason string) Result { return Result{Outcome: OutcomeRunning, Reason: reason} }
func Done(reason string) Result    { return Result{Outcome: OutcomeDone, Reason: reason} }
func Noop(reason string) Result    { return Result{Outcome: OutcomeNoop, Reason: reason} }

func Failed(reason string, retryAfter float64) Result {
	return Result{Outcome: OutcomeFailed, Reason: reason, RetryAfter: retryAfter}
}

// Idle is a RUNNING result that issued nothing this tick.
func Idle() Result { return Running(ReasonIdle) }

// FromBool interprets a legacy boolean step result.
func FromBool(didAny bool) Result {
	if didAny {
		return Running(ReasonDidAny)
	}
	return Idle()
}

// With appends belief writes.
func (r Result) With(facts ...awareness.Fact) Result {
	r.Facts = append(append([]awareness.Fact(nil), r.Facts...), facts...)
	return r
}

// WithTelemetry sets one telemetry field.
func (r Result) WithTelemetry(key string, value any) Result {
	t := make(map[string]any, len(r.Telemetry)+1)
	for k, v := range r.Telemetry {
		t[k] = v
	}
	t[key] = value
	r.Telemetry = t
	return r
}

// Acted reports whether the step consumed command budget: RUNNING with a
// reason and telemetry that are not idle.
func (r Result) Acted() bool {
	if r.Outcome != OutcomeRunning || r.Reason == ReasonIdle {
		return false
	}
	idle, _ := r.Telemetry["idle"].(bool)
	return !idle
}

func (r Result) String() string {
	if r.Outcome == OutcomeFailed {
		return fmt.Sprintf("%s(%s, retry=%.1fs)", r.Outcome, r.Reason, r.RetryAfter)
	}
	return fmt.Sprintf("%s(%s)", r.Outcome, r.Reason)
}
