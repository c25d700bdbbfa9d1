package workflow

import (
	"github.com/aithinkitive/ecare-e2e/internal/browser"
)

// Controls of the eCare provider portal, most specific selector first.
var (
	loginEmail    = browser.NewTarget("login email", `input[type="email"]`, `input[name="email"]`, `input[placeholder*="email" i]`)
	loginPassword = browser.NewTarget("login password", `input[type="password"]`, `input[name="password"]`, `input[placeholder*="password" i]`)
	loginButton   = browser.NewTarget("login button",
		browser.HasText("button", "Let"), browser.HasText("button", "Login"), browser.HasText("button", "Sign"), `button[type="submit"]`)

	navSettings     = browser.NewTarget("Settings", browser.Text("Settings"))
	navUserSettings = browser.NewTarget("User Settings", browser.Text("User Settings"))
	navProviders    = browser.NewTarget("Providers", browser.Text("Providers"))
	navScheduling   = browser.NewTarget("Scheduling", browser.Text("Scheduling"), `[data-testid*="scheduling"]`)
	navAvailability = browser.NewTarget("Availability", browser.Text("Availability"), `[data-testid*="availability"]`)
	navAppointments = browser.NewTarget("Appointments", browser.Text("Appointments"), `[data-testid*="appointments"]`)
	navPatients     = browser.NewTarget("Patients", browser.Text("Patients"), `[data-testid*="patients"]`)
	menuCreate      = browser.NewTarget("Create", browser.Text("Create"), `[data-testid*="create"]`, browser.HasText("button", "Create"))
	menuNewPatient  = browser.NewTarget("New Patient", browser.Text("New Patient"), `[data-testid*="new-patient"]`)
	menuNewAppt     = browser.NewTarget("New Appointment", browser.Text("New Appointment"), `[data-testid*="new-appointment"]`)

	addProviderUser = browser.NewTarget("Add Provider User", browser.Text("Add Provider User"))
	firstNameInput  = browser.NewTarget("first name", `input[name="firstName"]`, `input[placeholder*="first" i]`)
	lastNameInput   = browser.NewTarget("last name", `input[name="lastName"]`, `input[placeholder*="last" i]`)
	roleControl     = browser.NewTarget("role", `select[name="role"]`, `[data-testid*="role"]`, browser.Text("Role"))
	genderControl   = browser.NewTarget("gender", `select[name="gender"]`, `[data-testid*="gender"]`, browser.Text("Gender"))
	contactInput    = browser.NewTarget("contact number",
		`input[name="contactNumber"]`, `input[placeholder*="contact" i]`, `input[placeholder*="phone" i]`)
	formEmailInput = browser.NewTarget("email", `input[name="email"]`, `input[placeholder*="email" i]:not([type="password"])`)
	npiInput       = browser.NewTarget("NPI number", `input[name="npiNumber"]`, `input[placeholder*="npi" i]`)
	saveButton     = browser.NewTarget("Save", browser.HasText("button", "Save"), `[data-testid*="save"]`)

	editAvailability = browser.NewTarget("Edit Availability",
		browser.Text("Edit Availability"), browser.HasText("button", "Edit"), `[data-testid*="edit-availability"]`)
	providerControl      = browser.NewTarget("provider", `select[name="provider"]`, `[data-testid*="provider"]`, browser.Text("Provider"))
	timezoneControl      = browser.NewTarget("timezone", `select[name="timezone"]`, `[data-testid*="timezone"]`, browser.Text("Timezone"))
	bookingWindowControl = browser.NewTarget("booking window",
		`select[name="bookingWindow"]`, `[data-testid*="booking"]`, browser.Text("Booking Window"))
	dayControl             = browser.NewTarget("day", `select[name="day"]`, `[data-testid*="day"]`, browser.Text("Day"))
	startTimeControl       = browser.NewTarget("start time", `select[name="startTime"]`, `input[type="time"][name*="start" i]`)
	endTimeControl         = browser.NewTarget("end time", `select[name="endTime"]`, `input[type="time"][name*="end" i]`)
	availabilityTelehealth = browser.NewTarget("availability telehealth",
		`input[type="checkbox"][name*="telehealth"]`, `input[type="checkbox"]:near(text="Telehealth")`)

	enterPatientDetails = browser.NewTarget("Enter Patient Details",
		browser.Text("Enter Patient Details"), browser.HasText("button", "Enter"), `[data-testid*="patient-details"]`)
	nextButton  = browser.NewTarget("Next", browser.Text("Next"), browser.HasText("button", "Next"))
	dobInput    = browser.NewTarget("date of birth", `input[name="dob"]`, `input[type="date"]`, `input[placeholder*="date" i]`)
	mobileInput = browser.NewTarget("mobile",
		`input[name="mobile"]`, `input[placeholder*="mobile" i]`, `input[placeholder*="phone" i]`)

	patientControl = browser.NewTarget("patient name",
		`select[name="patientName"]`, `[data-testid*="patient"]`, browser.Text("Patient Name"))
	appointmentTypeControl = browser.NewTarget("appointment type",
		`select[name="appointmentType"]`, `[data-testid*="appointment-type"]`, browser.Text("Appointment Type"))
	reasonInput = browser.NewTarget("reason for visit",
		`input[name="reason"]`, `textarea[name="reason"]`, `input[placeholder*="reason" i]`)
	appointmentTimezone   = browser.NewTarget("appointment timezone", `select[name="timezone"]`, `[data-testid*="timezone"]`)
	appointmentTelehealth = browser.NewTarget("appointment telehealth",
		`input[type="checkbox"][name*="telehealth"]`, `input[type="radio"][value*="telehealth"]`)
	appointmentProvider    = browser.NewTarget("appointment provider", `select[name="provider"]`, `[data-testid*="provider"]`)
	viewAvailabilityButton = browser.NewTarget("View Availability",
		browser.HasText("button", "View Availability"), `[data-testid*="view-availability"]`)
	timeSlot = browser.NewTarget("first time slot",
		`[data-testid*="time-slot"]`, `.time-slot`, browser.HasText("button", "AM"), browser.HasText("button", "PM"))
	saveAndClose = browser.NewTarget("Save and Close",
		browser.HasText("button", "Save and Close"), browser.HasText("button", "Save"), `[data-testid*="save"]`)

	deleteButton  = browser.NewTarget("Delete", browser.HasText("button", "Delete"), `[data-testid*="delete"]`)
	cancelAppt    = browser.NewTarget("Cancel Appointment", browser.HasText("button", "Cancel Appointment"), `[data-testid*="cancel-appointment"]`)
	confirmButton = browser.NewTarget("Confirm", browser.HasText("button", "Yes"), browser.HasText("button", "Confirm"), `[data-testid*="confirm"]`)
)

// option returns the target for a dropdown entry labelled value.
func option(control browser.Target, value string) browser.Target {
	return browser.NewTarget(control.Name+" option "+value, browser.HasText("option", value), browser.Text(value))
}

// personOption matches a dropdown entry for a person, by first name in a
// native select and by full name in a custom list.
func personOption(control browser.Target, first, full string) browser.Target {
	return browser.NewTarget(control.Name+" option "+full, browser.HasText("option", first), browser.Text(full))
}

// row returns the target for the list entry showing name.
func row(name string) browser.Target {
	return browser.NewTarget("row "+name, browser.Text(name))
}
