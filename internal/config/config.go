package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. ECARE_TARGET_EMAIL.
const EnvPrefix = "ECARE"

// Config represents the scenario configuration
type Config struct {
	Target   TargetConfig   `mapstructure:"target"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Wait     WaitConfig     `mapstructure:"wait"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Teardown TeardownConfig `mapstructure:"teardown"`
	Report   ReportConfig   `mapstructure:"report"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
}

type TargetConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	SlowMo         time.Duration `mapstructure:"slow_mo"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	Screenshots    bool          `mapstructure:"screenshots"`
	Videos         bool          `mapstructure:"videos"`
	ArtifactsDir   string        `mapstructure:"artifacts_dir"`
	SkipInstall    bool          `mapstructure:"skip_install"`
}

// WaitConfig bounds every condition wait the driver performs.
type WaitConfig struct {
	InitialInterval   time.Duration `mapstructure:"initial_interval"`
	MaxInterval       time.Duration `mapstructure:"max_interval"`
	LocateTimeout     time.Duration `mapstructure:"locate_timeout"`
	CheckpointTimeout time.Duration `mapstructure:"checkpoint_timeout"`
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	PushURL string `mapstructure:"push_url"`
	Job     string `mapstructure:"job"`
	Listen  string `mapstructure:"listen"`
}

type LedgerConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type TeardownConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ReportConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// ScenarioConfig holds the fixed literals entered during the workflow.
type ScenarioConfig struct {
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

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// DefaultBaseURL is the staging entry point of the provider portal.
const DefaultBaseURL = "https://stage_aithinkitive.uat.provider.ecarehealth.com/"

func setDefaults(v *viper.Viper) {
	v.SetDefault("target.base_url", DefaultBaseURL)
	v.SetDefault("target.email", "")
	v.SetDefault("target.password", "")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slow_mo", 0)
	v.SetDefault("browser.timeout", 30*time.Second)
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.screenshots", true)
	v.SetDefault("browser.videos", false)
	v.SetDefault("browser.artifacts_dir", "./test-results")
	v.SetDefault("browser.skip_install", false)

	v.SetDefault("wait.initial_interval", 100*time.Millisecond)
	v.SetDefault("wait.max_interval", 2*time.Second)
	v.SetDefault("wait.locate_timeout", 15*time.Second)
	v.SetDefault("wait.checkpoint_timeout", 20*time.Second)
	v.SetDefault("wait.run_timeout", 10*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.push_url", "")
	v.SetDefault("metrics.job", "ecare_e2e")
	v.SetDefault("metrics.listen", "")

	v.SetDefault("ledger.redis_addr", "")
	v.SetDefault("ledger.redis_password", "")
	v.SetDefault("ledger.redis_db", 0)
	v.SetDefault("ledger.key_prefix", "ecare-e2e")
	v.SetDefault("ledger.ttl", 7*24*time.Hour)

	v.SetDefault("teardown.enabled", false)

	v.SetDefault("report.path", "")
	v.SetDefault("report.format", "json")

	v.SetDefault("schedule.cron", "0 */30 * * * *")

	v.SetDefault("scenario.role", "Provider")
	v.SetDefault("scenario.gender", "Male")
	v.SetDefault("scenario.timezone", "Indian Standard Time")
	v.SetDefault("scenario.booking_window", "3 Week")
	v.SetDefault("scenario.day", "Monday")
	v.SetDefault("scenario.start_time", "00:00")
	v.SetDefault("scenario.end_time", "23:45")
	v.SetDefault("scenario.date_of_birth", "1995-01-01")
	v.SetDefault("scenario.mobile", "9876544400")
	v.SetDefault("scenario.appointment_type", "New Patient Visit")
	v.SetDefault("scenario.reason", "Fever")
}

// Loader reads configuration from an optional YAML file, the environment
// and a .env file in the working directory.
type Loader struct {
	v    *viper.Viper
	path string

	mu  sync.RWMutex
	cfg *Config
}

// NewLoader creates a loader. An empty path means environment and defaults only.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v, path: path}
}

// Load reads and unmarshals the configuration. It does not validate.
func (l *Loader) Load() (*Config, error) {
	loadDotEnv(".env")

	if l.path != "" {
		l.v.SetConfigFile(l.path)
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyLegacyEnv(cfg)

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Set overrides a single key, e.g. from a CLI flag. Call before Load.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Current returns the last loaded configuration (thread-safe)
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Watch reloads the file on change and calls onChange with the new config.
// Reloads that fail to unmarshal or validate keep the previous config.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := l.v.Unmarshal(newCfg); err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		applyLegacyEnv(newCfg)
		if err := newCfg.Validate(); err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}

		l.mu.Lock()
		l.cfg = newCfg
		l.mu.Unlock()
		onChange(newCfg)
	})
	l.v.WatchConfig()
}

// Load is a shortcut for NewLoader(path).Load() followed by Validate.
func Load(path string) (*Config, error) {
	cfg, err := NewLoader(path).Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyLegacyEnv honours the variable names used by older e2e harnesses.
// Prefixed variables win when both are set.
func applyLegacyEnv(cfg *Config) {
	if os.Getenv(EnvPrefix+"_TARGET_BASE_URL") == "" {
		if raw := os.Getenv("BASE_URL"); raw != "" {
			cfg.Target.BaseURL = raw
		}
	}
	if os.Getenv(EnvPrefix+"_BROWSER_HEADLESS") == "" && os.Getenv("HEADLESS") == "false" {
		cfg.Browser.Headless = false
	}
	if os.Getenv(EnvPrefix+"_BROWSER_SLOW_MO") == "" {
		if raw := os.Getenv("SLOW_MO"); raw != "" {
			if ms, err := strconv.Atoi(raw); err == nil {
				cfg.Browser.SlowMo = time.Duration(ms) * time.Millisecond
			} else {
				cfg.Browser.SlowMo = 100 * time.Millisecond
			}
		}
	}
	if os.Getenv("PLAYWRIGHT_PREINSTALLED") == "1" {
		cfg.Browser.SkipInstall = true
	}
}

// Validate checks the fields a run cannot start without.
func (c *Config) Validate() error {
	var problems []string

	if c.Target.BaseURL == "" {
		problems = append(problems, "target.base_url is required")
	} else if u, err := url.Parse(c.Target.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("target.base_url %q is not an absolute URL", c.Target.BaseURL))
	}
	if c.Target.Email == "" {
		problems = append(problems, "target.email is required")
	}
	if c.Target.Password == "" {
		problems = append(problems, "target.password is required")
	}

	if c.Wait.InitialInterval <= 0 {
		problems = append(problems, "wait.initial_interval must be positive")
	}
	if c.Wait.MaxInterval < c.Wait.InitialInterval {
		problems = append(problems, "wait.max_interval must not be smaller than wait.initial_interval")
	}
	if c.Wait.LocateTimeout <= 0 {
		problems = append(problems, "wait.locate_timeout must be positive")
	}
	if c.Wait.CheckpointTimeout <= 0 {
		problems = append(problems, "wait.checkpoint_timeout must be positive")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	switch c.Report.Format {
	case "json", "yaml":
	default:
		problems = append(problems, fmt.Sprintf("report.format %q must be json or yaml", c.Report.Format))
	}

	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}
