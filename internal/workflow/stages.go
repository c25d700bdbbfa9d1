package workflow

import (
	"context"
	"fmt"

	"github.com/aithinkitive/ecare-e2e/internal/browser"
	"github.com/aithinkitive/ecare-e2e/internal/fixture"
	"github.com/aithinkitive/ecare-e2e/internal/ledger"
)

func (d *Driver) open(ctx context.Context, _ fixture.Fixture) error {
	if err := d.page.Goto(d.cfg.BaseURL); err != nil {
		return fmt.Errorf("navigate to %s: %w", d.cfg.BaseURL, err)
	}
	return d.settle()
}

func (d *Driver) authenticate(ctx context.Context, _ fixture.Fixture) error {
	if err := d.finder.Fill(ctx, loginEmail, d.cfg.Email); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, loginPassword, d.cfg.Password); err != nil {
		return err
	}
	if err := d.finder.Click(ctx, loginButton); err != nil {
		return err
	}
	if err := d.settle(); err != nil {
		return err
	}

	// The Settings entry only renders for a signed-in session.
	err := d.cfg.Wait.WaitVisible(ctx, d.page, navSettings.Candidates[0], d.cfg.Wait.LocateTimeout)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("login did not reach the portal (page at %s): %w", d.page.URL(), err)
	}
	return err
}

func (d *Driver) createProvider(ctx context.Context, fx fixture.Fixture) error {
	if err := d.navigate(ctx, navSettings, navUserSettings, navProviders, addProviderUser); err != nil {
		return err
	}

	d.log.Info().Msg("Filling provider details...")
	if err := d.finder.Fill(ctx, firstNameInput, fx.FirstName); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, lastNameInput, fx.LastName); err != nil {
		return err
	}
	if err := d.choose(ctx, roleControl, d.cfg.Options.Role); err != nil {
		return err
	}
	if err := d.choose(ctx, genderControl, d.cfg.Options.Gender); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, contactInput, fx.ContactNumber); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, formEmailInput, fx.Email); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, npiInput, fx.NPINumber); err != nil {
		return err
	}
	if err := d.navigate(ctx, saveButton); err != nil {
		return err
	}
	idx := d.remember(ctx, ledger.KindProvider, fx.ProviderName(), fx.Email)

	if err := d.checkpoint(ctx, StageCreateProvider, CheckpointProviderCreated, "Validating provider creation...", fx.ProviderName()); err != nil {
		return err
	}
	d.confirm(ctx, idx)
	return nil
}

func (d *Driver) configureAvailability(ctx context.Context, fx fixture.Fixture) error {
	opts := d.cfg.Options
	if err := d.navigate(ctx, navScheduling, navAvailability, editAvailability); err != nil {
		return err
	}

	provider := personOption(providerControl, fx.FirstName, fx.ProviderName())
	if err := d.finder.Choose(ctx, providerControl, fx.ProviderName(), provider); err != nil {
		return err
	}
	if err := d.choose(ctx, timezoneControl, opts.Timezone); err != nil {
		return err
	}
	if err := d.choose(ctx, bookingWindowControl, opts.BookingWindow); err != nil {
		return err
	}
	if err := d.choose(ctx, dayControl, opts.Day); err != nil {
		return err
	}
	// Time controls are native selects or time inputs; neither opens a list.
	if err := d.finder.Choose(ctx, startTimeControl, opts.StartTime, browser.Target{}); err != nil {
		return err
	}
	if err := d.finder.Choose(ctx, endTimeControl, opts.EndTime, browser.Target{}); err != nil {
		return err
	}
	if err := d.finder.Check(ctx, availabilityTelehealth); err != nil {
		return err
	}
	return d.navigate(ctx, saveButton)
}

func (d *Driver) createPatient(ctx context.Context, fx fixture.Fixture) error {
	opts := d.cfg.Options
	if err := d.navigate(ctx, menuCreate, menuNewPatient, enterPatientDetails, nextButton); err != nil {
		return err
	}

	d.log.Info().Msg("Filling patient details...")
	if err := d.finder.Fill(ctx, firstNameInput, fx.PatientFirstName); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, lastNameInput, fx.PatientLastName); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, dobInput, opts.DateOfBirth); err != nil {
		return err
	}
	if err := d.choose(ctx, genderControl, opts.Gender); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, mobileInput, opts.Mobile); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, formEmailInput, fx.PatientEmail); err != nil {
		return err
	}
	if err := d.navigate(ctx, saveButton); err != nil {
		return err
	}
	idx := d.remember(ctx, ledger.KindPatient, fx.PatientName(), fx.PatientEmail)

	if err := d.checkpoint(ctx, StageCreatePatient, CheckpointPatientCreated, "Validating patient creation...", fx.PatientName()); err != nil {
		return err
	}
	d.confirm(ctx, idx)
	return nil
}

func (d *Driver) bookAppointment(ctx context.Context, fx fixture.Fixture) error {
	opts := d.cfg.Options
	if err := d.navigate(ctx, menuCreate, menuNewAppt); err != nil {
		return err
	}

	patient := personOption(patientControl, fx.PatientFirstName, fx.PatientName())
	if err := d.finder.Choose(ctx, patientControl, fx.PatientName(), patient); err != nil {
		return err
	}
	if err := d.choose(ctx, appointmentTypeControl, opts.AppointmentType); err != nil {
		return err
	}
	if err := d.finder.Fill(ctx, reasonInput, opts.Reason); err != nil {
		return err
	}
	if err := d.choose(ctx, appointmentTimezone, opts.Timezone); err != nil {
		return err
	}
	if err := d.finder.Check(ctx, appointmentTelehealth); err != nil {
		return err
	}
	provider := personOption(appointmentProvider, fx.FirstName, fx.ProviderName())
	if err := d.finder.Choose(ctx, appointmentProvider, fx.ProviderName(), provider); err != nil {
		return err
	}
	if err := d.navigate(ctx, viewAvailabilityButton); err != nil {
		return err
	}
	if err := d.finder.Click(ctx, timeSlot); err != nil {
		return err
	}
	if err := d.navigate(ctx, saveAndClose); err != nil {
		return err
	}
	d.appointment = d.remember(ctx, ledger.KindAppointment, fx.PatientName(), fx.PatientEmail)
	return nil
}

func (d *Driver) validateAppointment(ctx context.Context, fx fixture.Fixture) error {
	if err := d.navigate(ctx, navScheduling, navAppointments); err != nil {
		return err
	}
	if err := d.checkpoint(ctx, StageValidateAppointment, CheckpointAppointmentListed, "Validating appointment listing...", fx.PatientName()); err != nil {
		return err
	}
	d.confirm(ctx, d.appointment)
	return nil
}
