// Package browsertest provides an in-memory browser.Page for tests.
//
// A Page holds elements keyed by the exact selector string a caller will
// use. Handlers registered with OnClick run when that selector is clicked and
// may add or remove elements, which is enough to script multi-screen flows.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aithinkitive/ecare-e2e/internal/browser"
)

// Element is a fake DOM element.
type Element struct {
	Tag     string
	Hidden  bool
	Value   string
	Checked bool
	// Options lists the values accepted by SelectOption on a select.
	Options []string
	// Delay hides the element from Count and IsVisible for this many polls.
	Delay int
}

// Action is one recorded interaction.
type Action struct {
	Kind     string
	Selector string
	Value    string
}

func (a Action) String() string {
	if a.Value == "" {
		return a.Kind + " " + a.Selector
	}
	return fmt.Sprintf("%s %s = %q", a.Kind, a.Selector, a.Value)
}

// Page is a scripted browser.Page. It is safe for concurrent use.
type Page struct {
	mu       sync.Mutex
	url      string
	elements map[string]*Element
	onClick  map[string]func(*Page)
	onGoto   func(*Page, string)
	failures map[string]error
	actions  []Action
	closed   bool
	shots    []string
}

var _ browser.Page = (*Page)(nil)

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{
		elements: make(map[string]*Element),
		onClick:  make(map[string]func(*Page)),
		failures: make(map[string]error),
	}
}

// Add registers an element under selector, replacing any existing one.
func (p *Page) Add(selector string, el Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := el
	p.elements[selector] = &e
	return p
}

// Remove deletes the element registered under selector.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// Element returns a copy of the element under selector.
func (p *Page) Element(selector string) (Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[selector]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// Value returns the filled value of selector, or "".
func (p *Page) Value(selector string) string {
	el, _ := p.Element(selector)
	return el.Value
}

// OnClick registers a handler. Handlers run without the page lock held.
func (p *Page) OnClick(selector string, fn func(*Page)) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick[selector] = fn
	return p
}

// OnGoto registers a navigation handler.
func (p *Page) OnGoto(fn func(*Page, string)) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onGoto = fn
	return p
}

// FailOn makes every action on selector return err.
func (p *Page) FailOn(selector string, err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[selector] = err
	return p
}

// Actions returns the recorded interactions in order.
func (p *Page) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Action(nil), p.actions...)
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Screenshots returns the paths passed to Screenshot.
func (p *Page) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.shots...)
}

func (p *Page) record(kind, selector, value string) {
	p.actions = append(p.actions, Action{Kind: kind, Selector: selector, Value: value})
}

// present decrements Delay and reports whether the element can be seen.
func (p *Page) present(selector string) (*Element, bool) {
	el, ok := p.elements[selector]
	if !ok {
		return nil, false
	}
	if el.Delay > 0 {
		el.Delay--
		return nil, false
	}
	return el, true
}

func (p *Page) lookup(kind, selector, value string) (*Element, error) {
	if p.closed {
		return nil, errors.New("page closed")
	}
	if err := p.failures[selector]; err != nil {
		return nil, err
	}
	el, ok := p.elements[selector]
	if !ok || el.Delay > 0 {
		return nil, fmt.Errorf("%s: no element for %s", kind, selector)
	}
	p.record(kind, selector, value)
	return el, nil
}

func (p *Page) Goto(url string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("page closed")
	}
	p.url = url
	p.record("goto", url, "")
	fn := p.onGoto
	p.mu.Unlock()

	if fn != nil {
		fn(p, url)
	}
	return nil
}

func (p *Page) WaitForNetworkIdle() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("page closed")
	}
	p.record("networkidle", "", "")
	return nil
}

func (p *Page) Count(selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("page closed")
	}
	if _, ok := p.present(selector); ok {
		return 1, nil
	}
	return 0, nil
}

func (p *Page) IsVisible(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, errors.New("page closed")
	}
	el, ok := p.present(selector)
	return ok && !el.Hidden, nil
}

func (p *Page) TagName(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failures[selector]; err != nil {
		return "", err
	}
	el, ok := p.elements[selector]
	if p.closed || !ok {
		return "", fmt.Errorf("tag: no element for %s", selector)
	}
	return el.Tag, nil
}

func (p *Page) Fill(selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.lookup("fill", selector, value)
	if err != nil {
		return err
	}
	el.Value = value
	return nil
}

func (p *Page) Click(selector string) error {
	p.mu.Lock()
	if _, err := p.lookup("click", selector, ""); err != nil {
		p.mu.Unlock()
		return err
	}
	fn := p.onClick[selector]
	p.mu.Unlock()

	if fn != nil {
		fn(p)
	}
	return nil
}

func (p *Page) Check(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.lookup("check", selector, "")
	if err != nil {
		return err
	}
	el.Checked = true
	return nil
}

func (p *Page) SelectOption(selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.lookup("select", selector, value)
	if err != nil {
		return err
	}
	if len(el.Options) > 0 {
		found := false
		for _, o := range el.Options {
			if o == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no option %q in %s", value, selector)
		}
	}
	el.Value = value
	return nil
}

func (p *Page) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shots = append(p.shots, path)
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Session wraps a Page as a browser.Session.
type Session struct {
	page *Page

	// CloseErr is returned from Close.
	CloseErr error

	mu     sync.Mutex
	closed bool
	failed bool
}

var _ browser.Session = (*Session)(nil)

// NewSession returns a session around page.
func NewSession(page *Page) *Session {
	return &Session{page: page}
}

func (s *Session) Page() browser.Page { return s.page }

func (s *Session) Close(failed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.failed = failed
	if failed {
		_ = s.page.Screenshot("failure.png")
	}
	_ = s.page.Close()
	return s.CloseErr
}

// Closed reports whether Close was called and with which failed flag.
func (s *Session) Closed() (closed, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed, s.failed
}

// Launcher hands out a fixed sequence of sessions.
type Launcher struct {
	mu       sync.Mutex
	sessions []*Session
	next     int
	Err      error
}

var _ browser.Launcher = (*Launcher)(nil)

// NewLauncher returns a launcher that yields sessions in order.
func NewLauncher(sessions ...*Session) *Launcher {
	return &Launcher{sessions: sessions}
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	if l.next >= len(l.sessions) {
		return nil, errors.New("browsertest: no more sessions")
	}
	s := l.sessions[l.next]
	l.next++
	return s, nil
}

// Launched returns how many sessions were handed out.
func (l *Launcher) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}
