// Package report writes run summaries.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aithinkitive/ecare-e2e/internal/fixture"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// StageResult is the outcome of one stage.
type StageResult struct {
	Name     string        `json:"name" yaml:"name"`
	Outcome  string        `json:"outcome" yaml:"outcome"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary describes a finished run.
type Summary struct {
	RunID          string          `json:"run_id" yaml:"run_id"`
	Passed         bool            `json:"passed" yaml:"passed"`
	Failure        string          `json:"failure,omitempty" yaml:"failure,omitempty"`
	Error          string          `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt      time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt     time.Time       `json:"finished_at" yaml:"finished_at"`
	Fixture        fixture.Fixture `json:"fixture" yaml:"fixture"`
	Stages         []StageResult   `json:"stages" yaml:"stages"`
	TeardownErrors []string        `json:"teardown_errors,omitempty" yaml:"teardown_errors,omitempty"`
}

// Duration of the whole run.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Encode writes s to w in the given format.
func Encode(w io.Writer, format string, s Summary) error {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Write stores s at path, creating parent directories.
func Write(path, format string, s Summary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := Encode(f, format, s); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

// PrintSummary renders the human summary shown after a run.
func PrintSummary(w io.Writer, s Summary) {
	fx := s.Fixture
	if !s.Passed {
		fmt.Fprintf(w, "❌ Run %s failed", s.RunID)
		if s.Failure != "" {
			fmt.Fprintf(w, " (%s)", s.Failure)
		}
		fmt.Fprintln(w)
		if s.Error != "" {
			fmt.Fprintf(w, "   %s\n", s.Error)
		}
		return
	}

	fmt.Fprintln(w, "🎉 All test steps completed successfully!")
	fmt.Fprintln(w, "Test Summary:")
	fmt.Fprintf(w, "- Provider: %s (%s)\n", fx.ProviderName(), fx.Email)
	fmt.Fprintf(w, "- Patient: %s (%s)\n", fx.PatientName(), fx.PatientEmail)
	fmt.Fprintln(w, "- Appointment: Booked and validated")
	for _, msg := range s.TeardownErrors {
		fmt.Fprintf(w, "⚠️  Teardown: %s\n", msg)
	}
}
