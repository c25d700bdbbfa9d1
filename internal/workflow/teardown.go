package workflow

import (
	"context"
	"fmt"

	"github.com/aithinkitive/ecare-e2e/internal/events"
	"github.com/aithinkitive/ecare-e2e/internal/ledger"
)

// teardown removes what the run created, newest first. It never changes the
// run verdict; every problem is returned for reporting.
func (d *Driver) teardown(ctx context.Context) []error {
	if err := ctx.Err(); err != nil {
		d.log.Warn().Err(err).Msg("teardown skipped")
		return []error{fmt.Errorf("teardown skipped: %w", err)}
	}
	if len(d.created) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.TeardownTimeout)
	defer cancel()

	var errs []error
	for i := len(d.created) - 1; i >= 0; i-- {
		e := d.created[i]
		stage := "remove_" + string(e.Kind)
		start := d.rec.Now()
		d.rec.Emit(events.Event{Kind: events.KindTeardown, Stage: stage, Outcome: events.Started,
			Message: fmt.Sprintf("Removing %s %s...", e.Kind, e.Name)})

		if err := d.remove(ctx, e); err != nil {
			err = fmt.Errorf("remove %s %q: %w", e.Kind, e.Name, err)
			errs = append(errs, err)
			d.rec.Emit(events.Event{Kind: events.KindTeardown, Stage: stage, Outcome: events.Failed,
				Message: "teardown step failed", Duration: d.rec.Now().Sub(start), Failure: string(Classify(err)), Err: err})
			continue
		}

		at := d.rec.Now()
		d.rec.Emit(events.Event{Kind: events.KindTeardown, Stage: stage, Outcome: events.Passed,
			Message: fmt.Sprintf("Removed %s %s", e.Kind, e.Name), Duration: at.Sub(start)})
		d.created[i].RemovedAt = &at
		if d.ledger != nil && e.ID != "" {
			if err := d.ledger.MarkRemoved(ctx, e.ID, at); err != nil {
				d.log.Warn().Err(err).Str("id", e.ID).Msg("failed to mark residue removed")
			}
		}
	}
	return errs
}

func (d *Driver) remove(ctx context.Context, e ledger.Entry) error {
	switch e.Kind {
	case ledger.KindAppointment:
		return d.navigate(ctx, navScheduling, navAppointments, row(e.Name), cancelAppt, confirmButton)
	case ledger.KindPatient:
		return d.navigate(ctx, navPatients, row(e.Name), deleteButton, confirmButton)
	case ledger.KindProvider:
		return d.navigate(ctx, navSettings, navUserSettings, navProviders, row(e.Name), deleteButton, confirmButton)
	default:
		return fmt.Errorf("unknown entity kind %q", e.Kind)
	}
}
