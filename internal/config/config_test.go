package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearLegacyEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BASE_URL", "HEADLESS", "SLOW_MO", "PLAYWRIGHT_PREINSTALLED"} {
		t.Setenv(key, "")
	}
}

func TestLoaderDefaults(t *testing.T) {
	clearLegacyEnv(t)

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Target.BaseURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
	assert.Equal(t, 1080, cfg.Browser.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Wait.LocateTimeout)
	assert.Equal(t, 20*time.Second, cfg.Wait.CheckpointTimeout)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "ecare-e2e", cfg.Ledger.KeyPrefix)
	assert.False(t, cfg.Teardown.Enabled)

	t.Run("scenario literals", func(t *testing.T) {
		assert.Equal(t, "Provider", cfg.Scenario.Role)
		assert.Equal(t, "Male", cfg.Scenario.Gender)
		assert.Equal(t, "Indian Standard Time", cfg.Scenario.Timezone)
		assert.Equal(t, "3 Week", cfg.Scenario.BookingWindow)
		assert.Equal(t, "Monday", cfg.Scenario.Day)
		assert.Equal(t, "00:00", cfg.Scenario.StartTime)
		assert.Equal(t, "23:45", cfg.Scenario.EndTime)
		assert.Equal(t, "1995-01-01", cfg.Scenario.DateOfBirth)
		assert.Equal(t, "9876544400", cfg.Scenario.Mobile)
		assert.Equal(t, "New Patient Visit", cfg.Scenario.AppointmentType)
		assert.Equal(t, "Fever", cfg.Scenario.Reason)
	})
}

func TestLoaderEnvironmentOverrides(t *testing.T) {
	clearLegacyEnv(t)
	t.Setenv("ECARE_TARGET_EMAIL", "rose.gomez@jourrapide.com")
	t.Setenv("ECARE_TARGET_PASSWORD", "secret")
	t.Setenv("ECARE_WAIT_LOCATE_TIMEOUT", "5s")
	t.Setenv("ECARE_BROWSER_HEADLESS", "false")
	t.Setenv("ECARE_TEARDOWN_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "rose.gomez@jourrapide.com", cfg.Target.Email)
	assert.Equal(t, "secret", cfg.Target.Password)
	assert.Equal(t, 5*time.Second, cfg.Wait.LocateTimeout)
	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.Teardown.Enabled)
}

func TestLoaderLegacyEnvironment(t *testing.T) {
	clearLegacyEnv(t)
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("HEADLESS", "false")
	t.Setenv("SLOW_MO", "250")
	t.Setenv("PLAYWRIGHT_PREINSTALLED", "1")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Target.BaseURL)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.Browser.SlowMo)
	assert.True(t, cfg.Browser.SkipInstall)

	t.Run("prefixed variable wins", func(t *testing.T) {
		t.Setenv("ECARE_TARGET_BASE_URL", "https://qa.example.com/")
		cfg, err := NewLoader("").Load()
		require.NoError(t, err)
		assert.Equal(t, "https://qa.example.com/", cfg.Target.BaseURL)
	})
}

func TestLoaderFile(t *testing.T) {
	clearLegacyEnv(t)
	path := filepath.Join(t.TempDir(), "ecare.yaml")
	content := `
target:
  base_url: https://qa.example.com/
  email: qa@example.com
  password: pw
wait:
  checkpoint_timeout: 45s
report:
  path: out/report.yaml
  format: yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://qa.example.com/", cfg.Target.BaseURL)
	assert.Equal(t, "qa@example.com", cfg.Target.Email)
	assert.Equal(t, 45*time.Second, cfg.Wait.CheckpointTimeout)
	assert.Equal(t, "yaml", cfg.Report.Format)
	// untouched keys keep defaults
	assert.Equal(t, 15*time.Second, cfg.Wait.LocateTimeout)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLoaderSetOverride(t *testing.T) {
	clearLegacyEnv(t)
	l := NewLoader("")
	l.Set("teardown.enabled", true)
	l.Set("browser.headless", false)

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.True(t, cfg.Teardown.Enabled)
	assert.False(t, cfg.Browser.Headless)
	assert.Same(t, cfg, l.Current())
}

func TestLoaderWatch(t *testing.T) {
	clearLegacyEnv(t)
	path := filepath.Join(t.TempDir(), "ecare.yaml")
	write := func(email string) {
		content := "target:\n  email: " + email + "\n  password: pw\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	write("first@example.com")

	l := NewLoader(path)
	cfg, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, "first@example.com", cfg.Target.Email)

	var reloaded atomic.Value
	l.Watch(func(c *Config) { reloaded.Store(c.Target.Email) }, func(error) {})

	write("second@example.com")
	require.Eventually(t, func() bool {
		v, _ := reloaded.Load().(string)
		return v == "second@example.com"
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "second@example.com", l.Current().Target.Email)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Target:  TargetConfig{BaseURL: "https://example.com/", Email: "a@b.c", Password: "pw"},
			Wait:    WaitConfig{InitialInterval: time.Millisecond, MaxInterval: time.Second, LocateTimeout: time.Second, CheckpointTimeout: time.Second},
			Logging: LoggingConfig{Format: "json"},
			Report:  ReportConfig{Format: "yaml"},
		}
	}

	require.NoError(t, valid().Validate())

	testCases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing base url", func(c *Config) { c.Target.BaseURL = "" }, "target.base_url is required"},
		{"relative base url", func(c *Config) { c.Target.BaseURL = "/login" }, "is not an absolute URL"},
		{"missing email", func(c *Config) { c.Target.Email = "" }, "target.email is required"},
		{"missing password", func(c *Config) { c.Target.Password = "" }, "target.password is required"},
		{"zero locate timeout", func(c *Config) { c.Wait.LocateTimeout = 0 }, "wait.locate_timeout"},
		{"zero checkpoint timeout", func(c *Config) { c.Wait.CheckpointTimeout = 0 }, "wait.checkpoint_timeout"},
		{"inverted intervals", func(c *Config) { c.Wait.MaxInterval = 0 }, "wait.max_interval"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad report format", func(c *Config) { c.Report.Format = "csv" }, "report.format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseDotEnvLine(t *testing.T) {
	testCases := []struct {
		line    string
		key     string
		val     string
		matches bool
	}{
		{"ECARE_TARGET_EMAIL=a@b.c", "ECARE_TARGET_EMAIL", "a@b.c", true},
		{"  export HEADLESS=false ", "HEADLESS", "false", true},
		{`ECARE_TARGET_PASSWORD="Pass@123"`, "ECARE_TARGET_PASSWORD", "Pass@123", true},
		{"SLOW_MO='100'", "SLOW_MO", "100", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"=value", "", "", false},
		{"EMPTY=", "", "", false},
		{"no-equals", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			key, val, ok := parseDotEnvLine(tc.line)
			assert.Equal(t, tc.matches, ok)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.val, val)
		})
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ECARE_DOTENV_A=fromfile\nECARE_DOTENV_B=fromfile\n"), 0o600))

	t.Setenv("ECARE_DOTENV_A", "fromenv")
	t.Setenv("ECARE_DOTENV_B", "")
	require.NoError(t, os.Unsetenv("ECARE_DOTENV_B"))

	loadDotEnv(path)
	t.Cleanup(func() { _ = os.Unsetenv("ECARE_DOTENV_B") })

	assert.Equal(t, "fromenv", os.Getenv("ECARE_DOTENV_A"))
	assert.Equal(t, "fromfile", os.Getenv("ECARE_DOTENV_B"))
}
