package scenario

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aithinkitive/ecare-e2e/internal/browser"
	"github.com/aithinkitive/ecare-e2e/internal/config"
	"github.com/aithinkitive/ecare-e2e/internal/ledger"
	"github.com/aithinkitive/ecare-e2e/internal/workflow"
)

// WaitPolicy builds the condition-wait policy from configuration.
func WaitPolicy(cfg *config.Config) browser.WaitPolicy {
	return browser.WaitPolicy{
		InitialInterval:   cfg.Wait.InitialInterval,
		MaxInterval:       cfg.Wait.MaxInterval,
		LocateTimeout:     cfg.Wait.LocateTimeout,
		CheckpointTimeout: cfg.Wait.CheckpointTimeout,
	}
}

// WorkflowConfig builds the driver configuration.
func WorkflowConfig(cfg *config.Config) workflow.Config {
	return workflow.Config{
		BaseURL:  cfg.Target.BaseURL,
		Email:    cfg.Target.Email,
		Password: cfg.Target.Password,
		Options:  workflow.Options(cfg.Scenario),
		Wait:     WaitPolicy(cfg),
		Teardown: cfg.Teardown.Enabled,
	}
}

// NewLauncher returns the Playwright launcher described by cfg.
func NewLauncher(cfg *config.Config, log zerolog.Logger) *browser.PlaywrightLauncher {
	b := cfg.Browser
	return browser.NewPlaywrightLauncher(browser.PlaywrightOptions{
		Headless:       b.Headless,
		SlowMo:         b.SlowMo,
		Timeout:        b.Timeout,
		ViewportWidth:  b.ViewportWidth,
		ViewportHeight: b.ViewportHeight,
		Screenshots:    b.Screenshots,
		Videos:         b.Videos,
		ArtifactsDir:   b.ArtifactsDir,
		SkipInstall:    b.SkipInstall,
		Name:           "ecare",
	}, log)
}

// OpenLedger returns a Redis ledger when an address is configured and an
// in-process one otherwise. Both forget an entry ledger.ttl after it was
// recorded.
func OpenLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, error) {
	l := cfg.Ledger
	if l.RedisAddr == "" {
		return ledger.NewMemoryWithTTL(l.TTL), nil
	}
	return ledger.NewRedis(ctx, ledger.RedisConfig{
		Addr:      l.RedisAddr,
		Password:  l.RedisPassword,
		DB:        l.RedisDB,
		KeyPrefix: l.KeyPrefix,
		TTL:       l.TTL,
	})
}

// TaskName is the runner task name of the scenario.
const TaskName = "ecare-e2e-scenario"

// Task adapts a Scenario to runner.Task.
type Task struct {
	scenario *Scenario
	schedule string
	timeout  time.Duration
}

// Task returns a runner task executing the scenario on schedule.
func (s *Scenario) Task(schedule string) *Task {
	timeout := s.config().Wait.RunTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	// Leave room for session teardown and the metrics push after the run.
	return &Task{scenario: s, schedule: schedule, timeout: timeout + time.Minute}
}

func (t *Task) Name() string           { return TaskName }
func (t *Task) Schedule() string       { return t.schedule }
func (t *Task) Timeout() time.Duration { return t.timeout }

func (t *Task) Run(ctx context.Context) error {
	_, err := t.scenario.Run(ctx)
	return err
}
