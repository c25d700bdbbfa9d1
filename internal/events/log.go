package events

import (
	"github.com/rs/zerolog"
)

// LogSink renders events through zerolog. It adds run_id itself, so the
// logger it is given must not carry one already.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink writing to log.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(e Event) {
	var ev *zerolog.Event
	switch e.Outcome {
	case Failed:
		if e.Kind == KindTeardown {
			ev = s.log.Warn()
		} else {
			ev = s.log.Error()
		}
	case Skipped:
		ev = s.log.Debug()
	default:
		ev = s.log.Info()
	}

	ev = ev.Str("run_id", e.RunID).
		Str("kind", string(e.Kind)).
		Str("outcome", string(e.Outcome))
	if e.Stage != "" {
		ev = ev.Str("stage", e.Stage)
	}
	if e.Checkpoint != "" {
		ev = ev.Str("checkpoint", e.Checkpoint)
	}
	if e.Outcome != Started {
		ev = ev.Dur("duration", e.Duration)
	}
	if e.Failure != "" {
		ev = ev.Str("failure", e.Failure)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	for k, v := range e.Fields {
		ev = ev.Str(k, v)
	}

	msg := e.Message
	if e.Outcome == Passed && msg != "" && e.Kind != KindRun {
		msg = "✅ " + msg
	}
	ev.Msg(msg)
}
