package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aithinkitive/ecare-e2e/internal/fixture"
)

func sampleSummary(passed bool) Summary {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s := Summary{
		RunID:      "run-1",
		Passed:     passed,
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Fixture: fixture.Fixture{
			FirstName:        "TestUser123",
			LastName:         "LastName1700000000000",
			Email:            "test1700000000000@testmail.com",
			PatientFirstName: "Patient123",
			PatientLastName:  "PatientLast1700000000000",
			PatientEmail:     "patient1700000000000@testmail.com",
		},
		Stages: []StageResult{{Name: "open", Outcome: "passed", Duration: time.Second}},
	}
	if !passed {
		s.Failure = "checkpoint"
		s.Error = `stage create_patient: checkpoint patient_created: text="Patient123 PatientLast1700000000000" not visible`
	}
	return s
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, sampleSummary(true)))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, true, got["passed"])
	assert.NotContains(t, got, "failure")
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, sampleSummary(false)))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "checkpoint", got["failure"])
	assert.Equal(t, false, got["passed"])
}

func TestEncodeUnknownFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, "xml", sampleSummary(true))
	assert.EqualError(t, err, `unknown report format "xml"`)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	require.NoError(t, Write(path, FormatJSON, sampleSummary(true)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, sampleSummary(true).Duration())
}

func TestPrintSummaryPassed(t *testing.T) {
	var buf bytes.Buffer
	s := sampleSummary(true)
	s.TeardownErrors = []string{"patient: delete button not found"}
	PrintSummary(&buf, s)

	out := buf.String()
	assert.Contains(t, out, "Test Summary:")
	assert.Contains(t, out, "- Provider: TestUser123 LastName1700000000000 (test1700000000000@testmail.com)")
	assert.Contains(t, out, "- Patient: Patient123 PatientLast1700000000000 (patient1700000000000@testmail.com)")
	assert.Contains(t, out, "- Appointment: Booked and validated")
	assert.Contains(t, out, "Teardown: patient: delete button not found")
}

func TestPrintSummaryFailed(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleSummary(false))

	out := buf.String()
	assert.Contains(t, out, "Run run-1 failed (checkpoint)")
	assert.NotContains(t, out, "Test Summary:")
}
