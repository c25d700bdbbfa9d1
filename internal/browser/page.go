// Package browser wraps the browser-automation collaborator behind the small
// set of primitives the workflow consumes, and adds ranked selector lookup and
// condition waits on top of them.
package browser

import "context"

// Page is one open browser tab. Every selector is a single Playwright
// selector; ranking between alternatives happens in Finder.
type Page interface {
	// Goto navigates and waits until the network is idle.
	Goto(url string) error
	WaitForNetworkIdle() error

	Count(selector string) (int, error)
	IsVisible(selector string) (bool, error)
	// TagName returns the lower-case tag of the first match.
	TagName(selector string) (string, error)

	Fill(selector, value string) error
	Click(selector string) error
	Check(selector string) error
	// SelectOption selects by option value or label on a native <select>.
	SelectOption(selector, value string) error

	Screenshot(path string) error
	URL() string
	Close() error
}

// Session owns a page and everything needed to release it.
type Session interface {
	Page() Page
	// Close releases the page and browser. failed marks the run as failed so
	// the session can keep diagnostics such as a screenshot.
	Close(failed bool) error
}

// Launcher opens isolated sessions, one per run.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
