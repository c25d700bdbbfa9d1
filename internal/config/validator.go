package config

import (
	"fmt"
	"net/url"
	"strings"
)

// SafetyValidator collects non-fatal warnings about a configuration that is
// valid but likely to surprise: plain-text credentials, untracked residue and
// timing settings that cannot hold.
type SafetyValidator struct {
	config   *Config
	warnings []string
}

func NewSafetyValidator(cfg *Config) *SafetyValidator {
	return &SafetyValidator{config: cfg, warnings: []string{}}
}

// Warnings runs every check and returns the collected warnings.
func (v *SafetyValidator) Warnings() []string {
	v.warnings = v.warnings[:0]

	v.validateTransport()
	v.validateResidueTracking()
	v.validateTiming()
	v.validateBrowser()

	return v.warnings
}

func (v *SafetyValidator) validateTransport() {
	u, err := url.Parse(v.config.Target.BaseURL)
	if err != nil {
		return
	}
	if u.Scheme == "http" && !isLocalHost(u.Hostname()) {
		v.addWarning("target.base_url uses plain http; credentials are sent unencrypted")
	}
}

func (v *SafetyValidator) validateResidueTracking() {
	if v.config.Teardown.Enabled || v.config.Ledger.RedisAddr != "" {
		return
	}
	v.addWarning("teardown is disabled and ledger.redis_addr is unset; created records are not tracked after exit")
}

func (v *SafetyValidator) validateTiming() {
	w := v.config.Wait
	if w.RunTimeout > 0 && w.RunTimeout < 3*w.CheckpointTimeout {
		v.addWarning(fmt.Sprintf("wait.run_timeout %s leaves no room for three checkpoints of %s", w.RunTimeout, w.CheckpointTimeout))
	}
	if w.MaxInterval > w.LocateTimeout {
		v.addWarning(fmt.Sprintf("wait.max_interval %s exceeds wait.locate_timeout %s", w.MaxInterval, w.LocateTimeout))
	}
}

func (v *SafetyValidator) validateBrowser() {
	b := v.config.Browser
	if b.Headless && b.SlowMo > 0 {
		v.addWarning(fmt.Sprintf("browser.slow_mo %s slows headless runs without a visible window", b.SlowMo))
	}
	if !b.Screenshots && !b.Videos {
		v.addWarning("browser screenshots and videos are both off; failures leave no visual evidence")
	}
}

func (v *SafetyValidator) addWarning(msg string) {
	v.warnings = append(v.warnings, msg)
}

func isLocalHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".localhost")
}
