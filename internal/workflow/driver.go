// Package workflow drives the eCare provider portal through the end-to-end
// business flow: sign in, create a provider, publish availability, register
// a patient, book an appointment and find it in the appointment list.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aithinkitive/ecare-e2e/internal/browser"
	"github.com/aithinkitive/ecare-e2e/internal/events"
	"github.com/aithinkitive/ecare-e2e/internal/fixture"
	"github.com/aithinkitive/ecare-e2e/internal/ledger"
)

// Stage names in execution order.
const (
	StageOpen                  = "open"
	StageAuthenticate          = "authenticate"
	StageCreateProvider        = "create_provider"
	StageConfigureAvailability = "configure_availability"
	StageCreatePatient         = "create_patient"
	StageBookAppointment       = "book_appointment"
	StageValidateAppointment   = "validate_appointment"
)

// Checkpoint names.
const (
	CheckpointProviderCreated   = "provider_created"
	CheckpointPatientCreated    = "patient_created"
	CheckpointAppointmentListed = "appointment_listed"
)

// Stage is one ordered block of interactions.
type Stage struct {
	Name  string
	Start string
	Done  string
	Run   func(ctx context.Context, fx fixture.Fixture) error
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Name     string
	Outcome  events.Outcome
	Duration time.Duration
	Err      error
}

// Result of a run. Passed is true only when every stage and checkpoint held.
type Result struct {
	Fixture        fixture.Fixture
	Stages         []StageResult
	Passed         bool
	Err            error
	Failure        FailureKind
	Created        []ledger.Entry
	TeardownErrors []error
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Driver runs the scenario against one page.
type Driver struct {
	cfg    Config
	page   browser.Page
	finder *browser.Finder
	rec    *events.Recorder
	ledger ledger.Ledger
	log    zerolog.Logger

	created     []ledger.Entry
	appointment int
}

// Option configures a Driver.
type Option func(*Driver)

// WithRecorder sets the event recorder.
func WithRecorder(rec *events.Recorder) Option {
	return func(d *Driver) { d.rec = rec }
}

// WithLedger sets where created entities are recorded.
func WithLedger(l ledger.Ledger) Option {
	return func(d *Driver) { d.ledger = l }
}

// WithLogger sets the logger for interaction-level detail.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// New creates a driver for page.
func New(page browser.Page, cfg Config, opts ...Option) *Driver {
	cfg.Options = cfg.Options.withDefaults()
	if cfg.Wait == (browser.WaitPolicy{}) {
		cfg.Wait = browser.DefaultWaitPolicy()
	}
	if cfg.TeardownTimeout == 0 {
		cfg.TeardownTimeout = 2 * time.Minute
	}

	d := &Driver{cfg: cfg, page: page, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.rec == nil {
		d.rec = events.NewRecorder("")
	}
	d.finder = browser.NewFinder(page, cfg.Wait).WithLogger(d.log)
	return d
}

// Stages returns the ordered stages of the scenario.
func (d *Driver) Stages() []Stage {
	return []Stage{
		{Name: StageOpen, Start: "Step 1: Navigating to login page...", Done: "Login page loaded", Run: d.open},
		{Name: StageAuthenticate, Start: "Step 2: Logging in...", Done: "Logged in successfully", Run: d.authenticate},
		{Name: StageCreateProvider, Start: "Step 3: Adding Provider User...", Done: "Provider created successfully", Run: d.createProvider},
		{Name: StageConfigureAvailability, Start: "Step 4: Setting Provider Availability...", Done: "Provider availability set successfully", Run: d.configureAvailability},
		{Name: StageCreatePatient, Start: "Step 5: Adding New Patient...", Done: "Patient created successfully", Run: d.createPatient},
		{Name: StageBookAppointment, Start: "Step 6: Booking New Appointment...", Done: "Appointment booked successfully", Run: d.bookAppointment},
		{Name: StageValidateAppointment, Start: "Step 7: Validating Appointment...", Done: "Appointment validated successfully", Run: d.validateAppointment},
	}
}

// Run executes every stage in order and stops at the first failure. The
// returned error, if any, is a *StageError and equals Result.Err.
func (d *Driver) Run(ctx context.Context, fx fixture.Fixture) (*Result, error) {
	d.created, d.appointment = nil, -1
	res := &Result{Fixture: fx, StartedAt: d.rec.Now()}

	for _, st := range d.Stages() {
		if res.Err != nil {
			res.Stages = append(res.Stages, StageResult{Name: st.Name, Outcome: events.Skipped})
			d.rec.Emit(events.Event{Kind: events.KindStage, Stage: st.Name, Outcome: events.Skipped})
			continue
		}
		sr := d.runStage(ctx, st, fx)
		res.Stages = append(res.Stages, sr)
		if sr.Err != nil {
			res.Err = &StageError{Stage: st.Name, Err: sr.Err}
			res.Failure = Classify(sr.Err)
		}
	}
	res.Passed = res.Err == nil

	if d.cfg.Teardown {
		res.TeardownErrors = d.teardown(ctx)
	}
	res.Created = append([]ledger.Entry(nil), d.created...)
	res.FinishedAt = d.rec.Now()

	if res.Err != nil {
		return res, res.Err
	}
	return res, nil
}

func (d *Driver) runStage(ctx context.Context, st Stage, fx fixture.Fixture) StageResult {
	start := d.rec.Now()
	d.rec.Emit(events.Event{Kind: events.KindStage, Stage: st.Name, Outcome: events.Started, Message: st.Start})

	err := ctx.Err()
	if err == nil {
		err = st.Run(ctx, fx)
	}
	dur := d.rec.Now().Sub(start)

	if err != nil {
		d.rec.Emit(events.Event{
			Kind:     events.KindStage,
			Stage:    st.Name,
			Outcome:  events.Failed,
			Message:  st.Name + " failed",
			Duration: dur,
			Failure:  string(Classify(err)),
			Err:      err,
		})
		return StageResult{Name: st.Name, Outcome: events.Failed, Duration: dur, Err: err}
	}

	d.rec.Emit(events.Event{Kind: events.KindStage, Stage: st.Name, Outcome: events.Passed, Message: st.Done, Duration: dur})
	return StageResult{Name: st.Name, Outcome: events.Passed, Duration: dur}
}

// settle waits for the page to stop loading after a navigation.
func (d *Driver) settle() error {
	if err := d.page.WaitForNetworkIdle(); err != nil {
		return fmt.Errorf("wait for network idle: %w", err)
	}
	return nil
}

// navigate clicks each target in turn, settling after every click.
func (d *Driver) navigate(ctx context.Context, path ...browser.Target) error {
	for _, t := range path {
		if err := d.finder.Click(ctx, t); err != nil {
			return err
		}
		if err := d.settle(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) choose(ctx context.Context, control browser.Target, value string) error {
	return d.finder.Choose(ctx, control, value, option(control, value))
}

// checkpoint waits until text is visible. A timeout is a *CheckpointError.
// Its events carry the owning stage and the checkpoint name separately.
func (d *Driver) checkpoint(ctx context.Context, stage, name, start, text string) error {
	sel := browser.Text(text)
	timeout := d.cfg.Wait.CheckpointTimeout
	fields := map[string]string{"selector": sel}
	began := d.rec.Now()
	d.rec.Emit(events.Event{Kind: events.KindCheckpoint, Stage: stage, Checkpoint: name, Outcome: events.Started, Message: start, Fields: fields})

	err := d.cfg.Wait.WaitVisible(ctx, d.page, sel, timeout)
	dur := d.rec.Now().Sub(began)
	if err != nil {
		if ctx.Err() == nil {
			err = &CheckpointError{Checkpoint: name, Selector: sel, Timeout: timeout, Err: err}
		}
		d.rec.Emit(events.Event{
			Kind: events.KindCheckpoint, Stage: stage, Checkpoint: name, Outcome: events.Failed,
			Message: "checkpoint " + name + " failed", Duration: dur, Failure: string(Classify(err)), Err: err, Fields: fields,
		})
		return err
	}

	d.rec.Emit(events.Event{
		Kind: events.KindCheckpoint, Stage: stage, Checkpoint: name, Outcome: events.Passed,
		Message: sel + " visible", Duration: dur, Fields: fields,
	})
	return nil
}

// remember records an entity the portal accepted and returns its index in
// d.created. Ledger problems never fail the run.
func (d *Driver) remember(ctx context.Context, kind ledger.Kind, name, email string) int {
	e := ledger.Entry{RunID: d.rec.RunID(), Kind: kind, Name: name, Email: email, CreatedAt: d.rec.Now()}
	if d.ledger != nil {
		stored, err := d.ledger.Record(ctx, e)
		if err != nil {
			d.log.Warn().Err(err).Str("kind", string(kind)).Str("name", name).Msg("failed to record residue")
		} else {
			e = stored
		}
	}
	d.created = append(d.created, e)
	return len(d.created) - 1
}

// confirm marks a remembered entity as seen by its checkpoint.
func (d *Driver) confirm(ctx context.Context, idx int) {
	e := &d.created[idx]
	e.Confirmed = true
	if d.ledger == nil || e.ID == "" {
		return
	}
	if err := d.ledger.MarkConfirmed(ctx, e.ID); err != nil {
		d.log.Warn().Err(err).Str("id", e.ID).Msg("failed to confirm residue")
	}
}
