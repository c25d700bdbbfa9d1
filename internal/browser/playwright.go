package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// PlaywrightOptions configures Chromium sessions.
type PlaywrightOptions struct {
	Headless       bool
	SlowMo         time.Duration
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	Screenshots    bool
	Videos         bool
	ArtifactsDir   string
	SkipInstall    bool
	// Name prefixes failure screenshots.
	Name string
}

// PlaywrightLauncher starts one Playwright driver and Chromium per session.
type PlaywrightLauncher struct {
	opts PlaywrightOptions
	log  zerolog.Logger
}

// NewPlaywrightLauncher creates a launcher.
func NewPlaywrightLauncher(opts PlaywrightOptions, log zerolog.Logger) *PlaywrightLauncher {
	if opts.ViewportWidth == 0 {
		opts.ViewportWidth = 1920
	}
	if opts.ViewportHeight == 0 {
		opts.ViewportHeight = 1080
	}
	if opts.ArtifactsDir == "" {
		opts.ArtifactsDir = "./test-results"
	}
	if opts.Name == "" {
		opts.Name = "ecare"
	}
	return &PlaywrightLauncher{opts: opts, log: log}
}

// Launch initializes the driver, launches Chromium and opens a page.
// Partially acquired resources are released on error.
func (l *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !l.opts.SkipInstall {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		// Fallback: attempt install driver explicitly then retry
		_ = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
		pw, err = playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("could not start playwright after retry: %w", err)
		}
	}
	s := &playwrightSession{pw: pw, opts: l.opts, log: l.log}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
		SlowMo:   playwright.Float(float64(l.opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = s.Close(false)
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	s.browser = browser

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  l.opts.ViewportWidth,
			Height: l.opts.ViewportHeight,
		},
	}
	if l.opts.Videos {
		contextOpts.RecordVideo = &playwright.RecordVideo{
			Dir: filepath.Join(l.opts.ArtifactsDir, "videos"),
		}
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = s.Close(false)
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	s.context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		_ = s.Close(false)
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	if l.opts.Timeout > 0 {
		page.SetDefaultTimeout(float64(l.opts.Timeout.Milliseconds()))
	}
	s.page = &playwrightPage{page: page}

	return s, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *playwrightPage
	opts    PlaywrightOptions
	log     zerolog.Logger
}

func (s *playwrightSession) Page() Page { return s.page }

// Close takes a screenshot on failure, then closes page, context, browser
// and driver in that order. It reports every close error.
func (s *playwrightSession) Close(failed bool) error {
	if failed && s.opts.Screenshots && s.page != nil {
		path := filepath.Join(s.opts.ArtifactsDir, "screenshots",
			fmt.Sprintf("%s_%d.png", s.opts.Name, time.Now().Unix()))
		if err := s.page.Screenshot(path); err != nil {
			s.log.Warn().Err(err).Msg("failure screenshot not saved")
		} else {
			s.log.Info().Str("path", path).Msg("failure screenshot saved")
		}
	}

	var errs []error
	if s.page != nil {
		errs = append(errs, s.page.Close())
	}
	if s.context != nil {
		errs = append(errs, s.context.Close())
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.pw != nil {
		errs = append(errs, s.pw.Stop())
	}
	return errors.Join(errs...)
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil && strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
		return fmt.Errorf("redirect loop navigating to %s (check the base URL / login redirect configuration): %w", url, err)
	}
	return err
}

func (p *playwrightPage) WaitForNetworkIdle() error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
}

func (p *playwrightPage) Count(selector string) (int, error) {
	return p.page.Locator(selector).Count()
}

func (p *playwrightPage) IsVisible(selector string) (bool, error) {
	return p.page.Locator(selector).First().IsVisible()
}

func (p *playwrightPage) TagName(selector string) (string, error) {
	v, err := p.page.Locator(selector).First().Evaluate("el => el.tagName.toLowerCase()", nil)
	if err != nil {
		return "", err
	}
	tag, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected tag name %v", v)
	}
	return tag, nil
}

func (p *playwrightPage) Fill(selector, value string) error {
	return p.page.Locator(selector).First().Fill(value)
}

func (p *playwrightPage) Click(selector string) error {
	return p.page.Locator(selector).First().Click()
}

func (p *playwrightPage) Check(selector string) error {
	return p.page.Locator(selector).First().Check()
}

// resolveOptionJS maps a value or visible label to the option's value.
const resolveOptionJS = `(el, want) => {
	const opt = [...el.options].find(o => o.value === want || o.label === want || o.textContent.trim() === want);
	return opt ? opt.value : null;
}`

func (p *playwrightPage) SelectOption(selector, value string) error {
	loc := p.page.Locator(selector).First()
	resolved, err := loc.Evaluate(resolveOptionJS, value)
	if err != nil {
		return err
	}
	optValue, ok := resolved.(string)
	if !ok {
		return fmt.Errorf("no option %q in %s", value, selector)
	}
	_, err = loc.SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(optValue),
	})
	return err
}

func (p *playwrightPage) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *playwrightPage) URL() string { return p.page.URL() }

func (p *playwrightPage) Close() error { return p.page.Close() }
