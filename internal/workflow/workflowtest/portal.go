// Package workflowtest scripts a fake eCare provider portal on top of
// browsertest.Page, enough for the workflow to run end to end in tests.
package workflowtest

import (
	"github.com/aithinkitive/ecare-e2e/internal/browser"
	"github.com/aithinkitive/ecare-e2e/internal/browser/browsertest"
)

// Selectors the portal renders. They mirror the DOM of the real portal.
const (
	SelEmail         = `input[type="email"]`
	SelEmailByName   = `input[name="email"]`
	SelPassword      = `input[type="password"]`
	SelLogin         = `button:has-text("Let")`
	SelFirstName     = `input[name="firstName"]`
	SelLastName      = `input[name="lastName"]`
	SelRole          = `select[name="role"]`
	SelGender        = `select[name="gender"]`
	SelContact       = `input[name="contactNumber"]`
	SelNPI           = `input[name="npiNumber"]`
	SelSave          = `button:has-text("Save")`
	SelProvider      = `select[name="provider"]`
	SelTimezone      = `select[name="timezone"]`
	SelBookingWindow = `select[name="bookingWindow"]`
	SelDay           = `select[name="day"]`
	SelStartTime     = `select[name="startTime"]`
	SelEndTime       = `input[type="time"][name*="end" i]`
	SelTelehealth    = `input[type="checkbox"][name*="telehealth"]`
	SelDOB           = `input[name="dob"]`
	SelMobile        = `input[name="mobile"]`
	SelPatient       = `select[name="patientName"]`
	SelApptType      = `select[name="appointmentType"]`
	SelReason        = `textarea[name="reason"]`
	SelViewAvail     = `button:has-text("View Availability")`
	SelTimeSlot      = `.time-slot`
	SelSaveAndClose  = `button:has-text("Save and Close")`
	SelDelete        = `button:has-text("Delete")`
	SelCancelAppt    = `button:has-text("Cancel Appointment")`
	SelConfirm       = `button:has-text("Yes")`
)

var (
	textSettings     = browser.Text("Settings")
	textUserSettings = browser.Text("User Settings")
	textProviders    = browser.Text("Providers")
	textAddProvider  = browser.Text("Add Provider User")
	textScheduling   = browser.Text("Scheduling")
	textAvailability = browser.Text("Availability")
	textEditAvail    = browser.Text("Edit Availability")
	textAppointments = browser.Text("Appointments")
	textPatients     = browser.Text("Patients")
	textCreate       = browser.Text("Create")
	textNewPatient   = browser.Text("New Patient")
	textNewAppt      = browser.Text("New Appointment")
	textEnterDetails = browser.Text("Enter Patient Details")
	textNext         = browser.Text("Next")
)

// Availability is what the portal stored for a provider.
type Availability struct {
	Provider      string
	Timezone      string
	BookingWindow string
	Day           string
	Start         string
	End           string
	Telehealth    bool
}

// Appointment is a booked visit.
type Appointment struct {
	Patient    string
	Provider   string
	Type       string
	Reason     string
	Timezone   string
	Telehealth bool
}

// Portal is a fake eCare portal. It is driven from the goroutine that
// clicks, so its state is not locked.
type Portal struct {
	Page *browsertest.Page

	email    string
	password string

	// Knobs that break the portal in specific ways.
	HideSavedProviders bool
	HideSavedPatients  bool
	HideAppointments   bool
	NoEditAvailability bool
	NoDelete           bool
	// StaleAppointments omits every row the first time the appointment
	// list is shown.
	StaleAppointments bool
	// EmailByNameOnly renders the login email field without its type.
	EmailByNameOnly bool

	Providers    []string
	Patients     []string
	Availability []Availability
	Appointments []Appointment

	screen   []string
	form     string
	slot     bool
	selected string
	pending  string
	listings int
	// OnSave runs after a form is saved, with the form name.
	OnSave func(form string)
}

// NewPortal creates a portal accepting the given credentials.
func NewPortal(email, password string) *Portal {
	p := &Portal{Page: browsertest.NewPage(), email: email, password: password}
	p.Page.OnGoto(func(*browsertest.Page, string) { p.loginScreen() })
	p.Page.OnClick(SelLogin, func(*browsertest.Page) { p.login() })

	p.nav(textSettings, func() { p.show(textUserSettings) })
	p.nav(textUserSettings, func() { p.show(textProviders) })
	p.nav(textProviders, p.providerList)
	p.nav(textAddProvider, p.providerForm)
	p.nav(textScheduling, func() { p.show(textAvailability, textAppointments) })
	p.nav(textAvailability, func() {
		if p.NoEditAvailability {
			p.show()
			return
		}
		p.show(textEditAvail)
	})
	p.nav(textEditAvail, p.availabilityForm)
	p.nav(textAppointments, p.appointmentList)
	p.nav(textPatients, p.patientList)
	p.nav(textCreate, func() { p.show(textNewPatient, textNewAppt) })
	p.nav(textNewPatient, func() { p.show(textEnterDetails) })
	p.nav(textEnterDetails, func() { p.show(textNext) })
	p.nav(textNext, p.patientForm)
	p.nav(textNewAppt, p.appointmentForm)

	p.nav(SelSave, p.save)
	p.nav(SelSaveAndClose, p.save)
	p.nav(SelViewAvail, func() { p.add(SelTimeSlot, browsertest.Element{Tag: "button"}) })
	p.nav(SelTimeSlot, func() { p.slot = true })
	p.nav(SelDelete, func() { p.pending = "delete"; p.add(SelConfirm, browsertest.Element{Tag: "button"}) })
	p.nav(SelCancelAppt, func() { p.pending = "cancel"; p.add(SelConfirm, browsertest.Element{Tag: "button"}) })
	p.nav(SelConfirm, p.confirm)
	return p
}

func (p *Portal) nav(selector string, fn func()) {
	p.Page.OnClick(selector, func(*browsertest.Page) { fn() })
}

// show replaces the current screen with the given elements.
func (p *Portal) show(selectors ...string) {
	for _, sel := range p.screen {
		p.Page.Remove(sel)
	}
	p.screen = nil
	p.form = ""
	for _, sel := range selectors {
		p.add(sel, browsertest.Element{Tag: "a"})
	}
}

func (p *Portal) add(selector string, el browsertest.Element) {
	p.Page.Add(selector, el)
	p.screen = append(p.screen, selector)
}

func (p *Portal) rows(names []string) {
	for _, name := range names {
		name := name
		sel := browser.Text(name)
		p.add(sel, browsertest.Element{Tag: "td"})
		p.nav(sel, func() {
			p.selected = name
			if !p.NoDelete {
				p.add(SelDelete, browsertest.Element{Tag: "button"})
				p.add(SelCancelAppt, browsertest.Element{Tag: "button"})
			}
		})
	}
}

func (p *Portal) loginScreen() {
	p.show()
	if !p.EmailByNameOnly {
		p.add(SelEmail, browsertest.Element{Tag: "input"})
	}
	p.add(SelEmailByName, browsertest.Element{Tag: "input"})
	p.add(SelPassword, browsertest.Element{Tag: "input"})
	p.add(SelLogin, browsertest.Element{Tag: "button"})
}

func (p *Portal) login() {
	email := p.Page.Value(SelEmail)
	if email == "" {
		email = p.Page.Value(SelEmailByName)
	}
	if email != p.email || p.Page.Value(SelPassword) != p.password {
		return
	}
	p.show()
	for _, sel := range []string{textSettings, textScheduling, textCreate, textPatients} {
		p.Page.Add(sel, browsertest.Element{Tag: "a"})
	}
}

// Logged reports whether the navigation of a signed-in session is shown.
func (p *Portal) Logged() bool {
	_, ok := p.Page.Element(textSettings)
	return ok
}

func (p *Portal) providerList() {
	p.show(textAddProvider)
	if !p.HideSavedProviders {
		p.rows(p.Providers)
	}
}

func (p *Portal) patientList() {
	p.show()
	if !p.HideSavedPatients {
		p.rows(p.Patients)
	}
}

func (p *Portal) appointmentList() {
	p.show()
	p.listings++
	if p.HideAppointments || (p.StaleAppointments && p.listings == 1) {
		return
	}
	names := make([]string, 0, len(p.Appointments))
	for _, a := range p.Appointments {
		names = append(names, a.Patient)
	}
	p.rows(names)
}

func (p *Portal) providerForm() {
	p.show()
	p.form = "provider"
	p.add(SelFirstName, browsertest.Element{Tag: "input"})
	p.add(SelLastName, browsertest.Element{Tag: "input"})
	p.add(SelRole, browsertest.Element{Tag: "select", Options: []string{"Admin", "Provider", "Staff"}})
	p.add(SelGender, browsertest.Element{Tag: "select", Options: []string{"Male", "Female", "Other"}})
	p.add(SelContact, browsertest.Element{Tag: "input"})
	p.add(SelEmailByName, browsertest.Element{Tag: "input"})
	p.add(SelNPI, browsertest.Element{Tag: "input"})
	p.add(SelSave, browsertest.Element{Tag: "button"})
}

func (p *Portal) availabilityForm() {
	p.show()
	p.form = "availability"
	p.add(SelProvider, browsertest.Element{Tag: "select", Options: append([]string(nil), p.Providers...)})
	p.add(SelTimezone, browsertest.Element{Tag: "select", Options: []string{"Indian Standard Time", "Eastern Standard Time"}})
	p.add(SelBookingWindow, browsertest.Element{Tag: "select", Options: []string{"1 Week", "2 Week", "3 Week"}})
	p.add(SelDay, browsertest.Element{Tag: "select", Options: []string{"Monday", "Tuesday"}})
	p.add(SelStartTime, browsertest.Element{Tag: "select", Options: []string{"00:00", "00:15"}})
	p.add(SelEndTime, browsertest.Element{Tag: "input"})
	p.add(SelTelehealth, browsertest.Element{Tag: "input"})
	p.add(SelSave, browsertest.Element{Tag: "button"})
}

func (p *Portal) patientForm() {
	p.show()
	p.form = "patient"
	p.add(SelFirstName, browsertest.Element{Tag: "input"})
	p.add(SelLastName, browsertest.Element{Tag: "input"})
	p.add(SelDOB, browsertest.Element{Tag: "input"})
	p.add(SelGender, browsertest.Element{Tag: "select", Options: []string{"Male", "Female", "Other"}})
	p.add(SelMobile, browsertest.Element{Tag: "input"})
	p.add(SelEmailByName, browsertest.Element{Tag: "input"})
	p.add(SelSave, browsertest.Element{Tag: "button"})
}

func (p *Portal) appointmentForm() {
	p.show()
	p.form = "appointment"
	p.slot = false
	p.add(SelPatient, browsertest.Element{Tag: "select", Options: append([]string(nil), p.Patients...)})
	p.add(SelApptType, browsertest.Element{Tag: "select", Options: []string{"New Patient Visit", "Follow Up"}})
	p.add(SelReason, browsertest.Element{Tag: "textarea"})
	p.add(SelTimezone, browsertest.Element{Tag: "select", Options: []string{"Indian Standard Time"}})
	p.add(SelTelehealth, browsertest.Element{Tag: "input"})
	p.add(SelProvider, browsertest.Element{Tag: "select", Options: append([]string(nil), p.Providers...)})
	p.add(SelViewAvail, browsertest.Element{Tag: "button"})
	p.add(SelSaveAndClose, browsertest.Element{Tag: "button"})
}

func (p *Portal) checked(sel string) bool {
	el, _ := p.Page.Element(sel)
	return el.Checked
}

func (p *Portal) save() {
	v := p.Page.Value
	form := p.form
	switch form {
	case "provider":
		name := v(SelFirstName) + " " + v(SelLastName)
		p.Providers = append(p.Providers, name)
		p.providerList()
	case "availability":
		p.Availability = append(p.Availability, Availability{
			Provider:      v(SelProvider),
			Timezone:      v(SelTimezone),
			BookingWindow: v(SelBookingWindow),
			Day:           v(SelDay),
			Start:         v(SelStartTime),
			End:           v(SelEndTime),
			Telehealth:    p.checked(SelTelehealth),
		})
		p.show()
	case "patient":
		name := v(SelFirstName) + " " + v(SelLastName)
		p.Patients = append(p.Patients, name)
		p.show()
		if !p.HideSavedPatients {
			p.rows([]string{name})
		}
	case "appointment":
		if !p.slot {
			return
		}
		p.Appointments = append(p.Appointments, Appointment{
			Patient:    v(SelPatient),
			Provider:   v(SelProvider),
			Type:       v(SelApptType),
			Reason:     v(SelReason),
			Timezone:   v(SelTimezone),
			Telehealth: p.checked(SelTelehealth),
		})
		p.show()
	default:
		return
	}
	if p.OnSave != nil {
		p.OnSave(form)
	}
}

func (p *Portal) confirm() {
	name := p.selected
	switch p.pending {
	case "cancel":
		kept := p.Appointments[:0]
		for _, a := range p.Appointments {
			if a.Patient != name {
				kept = append(kept, a)
			}
		}
		p.Appointments = kept
	case "delete":
		p.Providers = without(p.Providers, name)
		p.Patients = without(p.Patients, name)
	}
	p.pending = ""
	p.selected = ""
	p.show()
}

func without(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
