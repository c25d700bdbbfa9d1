// Package scenario owns one end-to-end run: it generates the fixture,
// launches the browser session, drives the workflow and reports the result.
package scenario

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aithinkitive/ecare-e2e/internal/browser"
	"github.com/aithinkitive/ecare-e2e/internal/config"
	"github.com/aithinkitive/ecare-e2e/internal/events"
	"github.com/aithinkitive/ecare-e2e/internal/fixture"
	"github.com/aithinkitive/ecare-e2e/internal/ledger"
	"github.com/aithinkitive/ecare-e2e/internal/metrics"
	"github.com/aithinkitive/ecare-e2e/internal/report"
	"github.com/aithinkitive/ecare-e2e/internal/workflow"
)

// Deps are the collaborators of a run. Zero values get sensible defaults,
// except Launcher which is required.
type Deps struct {
	Launcher  browser.Launcher
	Ledger    ledger.Ledger
	Metrics   *metrics.Collector
	Sinks     []events.Sink
	Generator *fixture.Generator
	Log       zerolog.Logger
	// Out receives the human run summary. Nil means stdout.
	Out      io.Writer
	NewRunID func() string
}

// Scenario runs the eCare workflow.
type Scenario struct {
	mu   sync.RWMutex
	cfg  *config.Config
	deps Deps
}

// New creates a scenario.
func New(cfg *config.Config, deps Deps) *Scenario {
	if deps.Ledger == nil {
		deps.Ledger = ledger.NewMemory()
	}
	if deps.Generator == nil {
		deps.Generator = fixture.NewGenerator()
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	return &Scenario{cfg: cfg, deps: deps}
}

// SetConfig replaces the configuration used by subsequent runs. A run
// already in progress keeps the configuration it started with.
func (s *Scenario) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Scenario) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Run performs one run with a fresh fixture.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (report.Summary, error) {
	return New(cfg, deps).Run(ctx)
}

// Run performs one run with a fresh fixture. The browser session is closed
// on every exit path. The returned error is nil only if every checkpoint held.
func (s *Scenario) Run(ctx context.Context) (report.Summary, error) {
	return s.RunFixture(ctx, s.deps.Generator.Generate())
}

// RunFixture performs one run with fx.
func (s *Scenario) RunFixture(ctx context.Context, fx fixture.Fixture) (sum report.Summary, err error) {
	cfg := s.config()
	runID := s.deps.NewRunID()
	log := s.deps.Log.With().Str("run_id", runID).Logger()

	// The sink stamps run_id on every event line itself.
	sinks := []events.Sink{events.NewLogSink(s.deps.Log)}
	if s.deps.Metrics != nil {
		sinks = append(sinks, s.deps.Metrics)
	}
	sinks = append(sinks, s.deps.Sinks...)
	rec := events.NewRecorder(runID, sinks...)

	log.Info().
		Str("provider", fx.ProviderName()).
		Str("provider_email", fx.Email).
		Str("contact_number", fx.ContactNumber).
		Str("npi_number", fx.NPINumber).
		Str("patient", fx.PatientName()).
		Str("patient_email", fx.PatientEmail).
		Msg("Generated test data")

	if cfg.Wait.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Wait.RunTimeout)
		defer cancel()
	}

	started := rec.Now()
	res := &workflow.Result{Fixture: fx, StartedAt: started}
	defer func() {
		sum = s.finish(ctx, cfg, rec, res, err)
	}()

	session, err := s.deps.Launcher.Launch(ctx)
	if err != nil {
		err = fmt.Errorf("launch browser: %w", err)
		res.Err = err
		res.Failure = workflow.Classify(err)
		return sum, err
	}

	failed := true
	defer func() {
		if cerr := session.Close(failed); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close browser session")
		}
	}()

	driver := workflow.New(session.Page(), WorkflowConfig(cfg),
		workflow.WithRecorder(rec),
		workflow.WithLedger(s.deps.Ledger),
		workflow.WithLogger(log),
	)
	out, err := driver.Run(ctx, fx)
	*res = *out
	failed = !res.Passed
	return sum, err
}

// finish emits the run event, pushes metrics, writes the report and prints
// the summary.
func (s *Scenario) finish(ctx context.Context, cfg *config.Config, rec *events.Recorder, res *workflow.Result, err error) report.Summary {
	if res.FinishedAt.IsZero() {
		res.FinishedAt = rec.Now()
	}
	sum := Summarize(rec.RunID(), res)

	ev := events.Event{
		Kind:     events.KindRun,
		Outcome:  events.Passed,
		Message:  "Run passed",
		Duration: res.FinishedAt.Sub(res.StartedAt),
		Fields: map[string]string{
			"provider": res.Fixture.ProviderName(),
			"patient":  res.Fixture.PatientName(),
		},
	}
	if !res.Passed {
		ev.Outcome = events.Failed
		ev.Message = "Run failed"
		ev.Failure = string(res.Failure)
		ev.Err = err
	}
	rec.Emit(ev)

	if s.deps.Metrics != nil && cfg.Metrics.PushURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if perr := s.deps.Metrics.Push(pushCtx, cfg.Metrics.PushURL, cfg.Metrics.Job); perr != nil {
			s.deps.Log.Warn().Err(perr).Msg("failed to push metrics")
		}
		cancel()
	}

	if cfg.Report.Path != "" {
		if werr := report.Write(cfg.Report.Path, cfg.Report.Format, sum); werr != nil {
			s.deps.Log.Warn().Err(werr).Str("path", cfg.Report.Path).Msg("failed to write report")
		}
	}

	report.PrintSummary(s.deps.Out, sum)
	return sum
}

// Summarize converts a workflow result to a report summary.
func Summarize(runID string, res *workflow.Result) report.Summary {
	sum := report.Summary{
		RunID:      runID,
		Passed:     res.Passed,
		Failure:    string(res.Failure),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Fixture:    res.Fixture,
	}
	if res.Err != nil {
		sum.Error = res.Err.Error()
	}
	for _, st := range res.Stages {
		sr := report.StageResult{Name: st.Name, Outcome: string(st.Outcome), Duration: st.Duration}
		if st.Err != nil {
			sr.Error = st.Err.Error()
		}
		sum.Stages = append(sum.Stages, sr)
	}
	for _, terr := range res.TeardownErrors {
		sum.TeardownErrors = append(sum.TeardownErrors, terr.Error())
	}
	return sum
}
