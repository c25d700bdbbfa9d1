package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Target is a named control with ranked alternative selectors. Candidates
// are tried in order; the first one matching at least one element wins.
type Target struct {
	Name       string
	Candidates []string
}

// NewTarget builds a Target.
func NewTarget(name string, candidates ...string) Target {
	return Target{Name: name, Candidates: candidates}
}

func (t Target) String() string {
	return fmt.Sprintf("%s [%s]", t.Name, strings.Join(t.Candidates, " | "))
}

// Text returns a selector matching an element whose text is exactly s.
func Text(s string) string {
	return "text=" + strconv.Quote(s)
}

// HasText returns a selector for tag elements containing s.
func HasText(tag, s string) string {
	return tag + ":has-text(" + strconv.Quote(s) + ")"
}

// LocatorError reports that no candidate of a target matched in time.
type LocatorError struct {
	Target  string
	Tried   []string
	Timeout time.Duration
	// Err is the last error returned by the page, if any.
	Err error
}

func (e *LocatorError) Error() string {
	msg := fmt.Sprintf("locate %q: no element matched any of [%s] within %s",
		e.Target, strings.Join(e.Tried, ", "), e.Timeout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LocatorError) Unwrap() error { return e.Err }

// errNoMatch is the retryable condition inside Locate.
var errNoMatch = errors.New("no candidate matched")

// Finder resolves targets against a page using condition waits.
type Finder struct {
	page   Page
	policy WaitPolicy
	log    zerolog.Logger
}

// NewFinder creates a finder for page.
func NewFinder(page Page, policy WaitPolicy) *Finder {
	return &Finder{page: page, policy: policy, log: zerolog.Nop()}
}

// WithLogger sets the logger that receives the winning selector of every
// Locate at debug level.
func (f *Finder) WithLogger(log zerolog.Logger) *Finder {
	f.log = log
	return f
}

// Locate returns the first candidate selector of t that matches an element.
// It polls until one does or the locate timeout elapses.
func (f *Finder) Locate(ctx context.Context, t Target) (string, error) {
	if len(t.Candidates) == 0 {
		return "", &LocatorError{Target: t.Name, Timeout: f.policy.LocateTimeout, Err: errors.New("target has no candidates")}
	}

	var (
		found   string
		lastErr error
	)
	err := f.policy.poll(ctx, f.policy.LocateTimeout, func() error {
		for _, sel := range t.Candidates {
			n, err := f.page.Count(sel)
			if err != nil {
				lastErr = err
				continue
			}
			if n > 0 {
				found = sel
				return nil
			}
		}
		return errNoMatch
	})
	if err == nil {
		f.log.Debug().Str("target", t.Name).Str("selector", found).Msg("located")
		return found, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	return "", &LocatorError{
		Target:  t.Name,
		Tried:   append([]string(nil), t.Candidates...),
		Timeout: f.policy.LocateTimeout,
		Err:     lastErr,
	}
}

// Fill locates t and fills it with value.
func (f *Finder) Fill(ctx context.Context, t Target, value string) error {
	sel, err := f.Locate(ctx, t)
	if err != nil {
		return err
	}
	if err := f.page.Fill(sel, value); err != nil {
		return &ActionError{Action: "fill", Target: t.Name, Selector: sel, Err: err}
	}
	return nil
}

// Click locates t and clicks it.
func (f *Finder) Click(ctx context.Context, t Target) error {
	sel, err := f.Locate(ctx, t)
	if err != nil {
		return err
	}
	if err := f.page.Click(sel); err != nil {
		return &ActionError{Action: "click", Target: t.Name, Selector: sel, Err: err}
	}
	return nil
}

// Check locates t and checks it.
func (f *Finder) Check(ctx context.Context, t Target) error {
	sel, err := f.Locate(ctx, t)
	if err != nil {
		return err
	}
	if err := f.page.Check(sel); err != nil {
		return &ActionError{Action: "check", Target: t.Name, Selector: sel, Err: err}
	}
	return nil
}

// Choose picks option in the control t. Native selects are set directly.
// Inputs are filled, then the option target is clicked when it has candidates
// (autocomplete). Anything else is opened with a click before the option
// target is clicked.
func (f *Finder) Choose(ctx context.Context, t Target, option string, optionTarget Target) error {
	sel, err := f.Locate(ctx, t)
	if err != nil {
		return err
	}
	tag, err := f.page.TagName(sel)
	if err != nil {
		return &ActionError{Action: "inspect", Target: t.Name, Selector: sel, Err: err}
	}

	switch tag {
	case "select":
		if err := f.page.SelectOption(sel, option); err != nil {
			return &ActionError{Action: "select", Target: t.Name, Selector: sel, Err: err}
		}
		return nil
	case "input":
		if err := f.page.Fill(sel, option); err != nil {
			return &ActionError{Action: "fill", Target: t.Name, Selector: sel, Err: err}
		}
		if len(optionTarget.Candidates) == 0 {
			return nil
		}
		return f.Click(ctx, optionTarget)
	}

	if err := f.page.Click(sel); err != nil {
		return &ActionError{Action: "open", Target: t.Name, Selector: sel, Err: err}
	}
	return f.Click(ctx, optionTarget)
}

// ActionError reports that a located element rejected an action.
type ActionError struct {
	Action   string
	Target   string
	Selector string
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s %q via %s: %v", e.Action, e.Target, e.Selector, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
