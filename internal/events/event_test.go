package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderStampsAndFansOut(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	var a, b []Event
	r := NewRecorder("run-1",
		SinkFunc(func(e Event) { a = append(a, e) }),
		SinkFunc(func(e Event) { b = append(b, e) }),
	).WithClock(func() time.Time { return at })

	r.Emit(Event{Kind: KindStage, Stage: "open", Outcome: Started})
	r.Emit(Event{Kind: KindStage, Stage: "open", Outcome: Passed, Duration: time.Second})

	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.Equal(t, "run-1", a[0].RunID)
	assert.Equal(t, at, a[0].Time)
	assert.Equal(t, r.Events(), a)
	assert.Equal(t, "run-1", r.RunID())
}

func TestRecorderKeepsExplicitTime(t *testing.T) {
	explicit := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecorder("run-2")
	r.Emit(Event{Outcome: Started, Time: explicit})
	assert.Equal(t, explicit, r.Events()[0].Time)
}

func TestRecorderConcurrentEmit(t *testing.T) {
	r := NewRecorder("run-3")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Emit(Event{Kind: KindStage, Outcome: Started})
		}()
	}
	wg.Wait()
	assert.Len(t, r.Events(), 50)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))
	r := NewRecorder("run-4", sink)

	r.Emit(Event{Kind: KindStage, Stage: "create_provider", Outcome: Started, Message: "Step 3: Adding Provider User..."})
	r.Emit(Event{Kind: KindStage, Stage: "create_provider", Outcome: Passed, Message: "Provider created successfully", Duration: 1500 * time.Millisecond})
	r.Emit(Event{Kind: KindStage, Stage: "create_patient", Outcome: Failed, Failure: "checkpoint", Err: errors.New("not visible")})
	r.Emit(Event{Kind: KindTeardown, Stage: "remove_patient", Outcome: Failed, Err: errors.New("no delete button")})
	r.Emit(Event{Kind: KindCheckpoint, Stage: "create_patient", Checkpoint: "patient_created", Outcome: Passed,
		Message: `text="Patient1 PatientLast1" visible`, Fields: map[string]string{"selector": `text="Patient1 PatientLast1"`}})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 5)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "Step 3: Adding Provider User...", lines[0]["message"])
	assert.NotContains(t, lines[0], "duration")

	assert.Equal(t, "✅ Provider created successfully", lines[1]["message"])
	assert.Equal(t, "run-4", lines[1]["run_id"])
	assert.Contains(t, lines[1], "duration")

	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "checkpoint", lines[2]["failure"])
	assert.Equal(t, "not visible", lines[2]["error"])

	assert.Equal(t, "warn", lines[3]["level"])

	assert.Equal(t, "create_patient", lines[4]["stage"])
	assert.Equal(t, "patient_created", lines[4]["checkpoint"])
	assert.Equal(t, `text="Patient1 PatientLast1"`, lines[4]["selector"])
}
