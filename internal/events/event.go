// Package events carries the structured step-level event stream of a run.
// Every sink receives the same events; the console narrative is just the
// zerolog rendering of them.
package events

import (
	"sync"
	"time"
)

// Outcome of a unit of work.
type Outcome string

const (
	Started Outcome = "started"
	Passed  Outcome = "passed"
	Failed  Outcome = "failed"
	Skipped Outcome = "skipped"
)

// Kind says what an event is about.
type Kind string

const (
	KindRun        Kind = "run"
	KindStage      Kind = "stage"
	KindCheckpoint Kind = "checkpoint"
	KindTeardown   Kind = "teardown"
)

// Event is one step-level record.
type Event struct {
	RunID string
	Kind  Kind
	Stage string
	// Checkpoint names the checkpoint of a KindCheckpoint event; Stage is
	// the stage that owns it.
	Checkpoint string
	Outcome    Outcome
	Message    string
	Duration   time.Duration
	// Failure is the failure classification when Outcome is Failed.
	Failure string
	Err     error
	Time    time.Time
	// Fields are extra string attributes rendered by sinks.
	Fields map[string]string
}

// Sink consumes events. Emit must not block for long.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Recorder stamps events with the run id and time, keeps them, and fans
// them out to sinks. It is safe for concurrent use.
type Recorder struct {
	runID string
	now   func() time.Time
	sinks []Sink

	mu     sync.Mutex
	events []Event
}

// NewRecorder creates a recorder for one run.
func NewRecorder(runID string, sinks ...Sink) *Recorder {
	return &Recorder{runID: runID, now: time.Now, sinks: sinks}
}

// WithClock replaces time.Now; used by tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// RunID returns the run identifier.
func (r *Recorder) RunID() string { return r.runID }

// Now returns the recorder's clock reading.
func (r *Recorder) Now() time.Time { return r.now() }

// Emit records e and forwards it to every sink.
func (r *Recorder) Emit(e Event) {
	e.RunID = r.runID
	if e.Time.IsZero() {
		e.Time = r.now()
	}

	r.mu.Lock()
	r.events = append(r.events, e)
	sinks := r.sinks
	r.mu.Unlock()

	for _, s := range sinks {
		s.Emit(e)
	}
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
