package workflow

import (
	"time"

	"github.com/aithinkitive/ecare-e2e/internal/browser"
)

// Options holds the fixed form values entered by the scenario.
type Options struct {
	Role            string `mapstructure:"role"`
	Gender          string `mapstructure:"gender"`
	Timezone        string `mapstructure:"timezone"`
	BookingWindow   string `mapstructure:"booking_window"`
	Day             string `mapstructure:"day"`
	StartTime       string `mapstructure:"start_time"`
	EndTime         string `mapstructure:"end_time"`
	DateOfBirth     string `mapstructure:"date_of_birth"`
	Mobile          string `mapstructure:"mobile"`
	AppointmentType string `mapstructure:"appointment_type"`
	Reason          string `mapstructure:"reason"`
}

// DefaultOptions returns the values the eCare staging tenant expects.
func DefaultOptions() Options {
	return Options{
		Role:            "Provider",
		Gender:          "Male",
		Timezone:        "Indian Standard Time",
		BookingWindow:   "3 Week",
		Day:             "Monday",
		StartTime:       "00:00",
		EndTime:         "23:45",
		DateOfBirth:     "1995-01-01",
		Mobile:          "9876544400",
		AppointmentType: "New Patient Visit",
		Reason:          "Fever",
	}
}

// withDefaults fills empty fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&o.Role, d.Role)
	fill(&o.Gender, d.Gender)
	fill(&o.Timezone, d.Timezone)
	fill(&o.BookingWindow, d.BookingWindow)
	fill(&o.Day, d.Day)
	fill(&o.StartTime, d.StartTime)
	fill(&o.EndTime, d.EndTime)
	fill(&o.DateOfBirth, d.DateOfBirth)
	fill(&o.Mobile, d.Mobile)
	fill(&o.AppointmentType, d.AppointmentType)
	fill(&o.Reason, d.Reason)
	return o
}

// Config configures a Driver.
type Config struct {
	BaseURL  string
	Email    string
	Password string
	Options  Options
	Wait     browser.WaitPolicy
	// Teardown enables best-effort removal of created entities after the run.
	Teardown        bool
	TeardownTimeout time.Duration
}
