package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aithinkitive/ecare-e2e/internal/config"
	"github.com/aithinkitive/ecare-e2e/internal/fixture"
	"github.com/aithinkitive/ecare-e2e/internal/ledger"
	"github.com/aithinkitive/ecare-e2e/internal/logger"
	"github.com/aithinkitive/ecare-e2e/internal/metrics"
	"github.com/aithinkitive/ecare-e2e/internal/runner"
	"github.com/aithinkitive/ecare-e2e/internal/scenario"
	"github.com/aithinkitive/ecare-e2e/internal/version"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "ecare-e2e",
	Short: "End-to-end UI scenario for the eCare provider portal",
	Long: `ecare-e2e drives a real browser through the eCare provider portal:
it signs in, creates a provider, configures availability, registers a
patient, books an appointment and checks that it is listed.`,
	Version:      version.String(),
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scenario once (or --runs times) and exit",
	RunE:  runScenario,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the scenario on a cron schedule until interrupted",
	RunE:  runSchedule,
}

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Print a freshly generated test fixture",
	RunE:  runFixture,
}

var residueCmd = &cobra.Command{
	Use:   "residue",
	Short: "List records the scenario created in the target environment",
	RunE:  runResidue,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		if format == "text" {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ecare-e2e %s\n", rootCmd.Version)
			return err
		}
		return encode(cmd.OutOrStdout(), format, version.GetInfo())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console or json)")

	runCmd.Flags().Int("runs", 1, "number of consecutive runs, each with fresh data")
	runCmd.Flags().Bool("teardown", false, "remove created records after each run")
	runCmd.Flags().String("report", "", "write a run report to this path (numbered per run when --runs > 1)")
	runCmd.Flags().Bool("headed", false, "show the browser window")

	scheduleCmd.Flags().String("cron", "", "cron expression with seconds (overrides schedule.cron)")
	scheduleCmd.Flags().Bool("now", false, "run once immediately before waiting for the schedule")

	fixtureCmd.Flags().StringP("output", "o", "json", "output format (json or yaml)")
	residueCmd.Flags().StringP("output", "o", "table", "output format (table, json or yaml)")
	residueCmd.Flags().Bool("all", false, "include records already removed")
	versionCmd.Flags().StringP("output", "o", "text", "output format (text, json or yaml)")

	rootCmd.AddCommand(runCmd, scheduleCmd, fixtureCmd, residueCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies flag overrides and loads the configuration. overrides
// maps config keys to flag names on cmd; unchanged flags are ignored.
func loadConfig(cmd *cobra.Command, overrides map[string]string) (*config.Loader, *config.Config, error) {
	loader := config.NewLoader(configPath)
	if logLevel != "" {
		loader.Set("logging.level", logLevel)
	}
	if logFormat != "" {
		loader.Set("logging.format", logFormat)
	}
	for key, flag := range overrides {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "bool":
			v, _ := cmd.Flags().GetBool(flag)
			loader.Set(key, v)
		default:
			loader.Set(key, f.Value.String())
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return loader, cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stdout,
	})
}

func logWarnings(log zerolog.Logger, cfg *config.Config) {
	for _, w := range config.NewSafetyValidator(cfg).Warnings() {
		log.Warn().Msg(w)
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runScenario(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd, map[string]string{
		"teardown.enabled": "teardown",
		"report.path":      "report",
	})
	if err != nil {
		return err
	}
	if headed, _ := cmd.Flags().GetBool("headed"); headed {
		cfg.Browser.Headless = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	runs, _ := cmd.Flags().GetInt("runs")
	if runs < 1 {
		return fmt.Errorf("--runs must be at least 1, got %d", runs)
	}

	log := newLogger(cfg)
	logWarnings(log, cfg)
	ctx, stop := signalContext(cmd)
	defer stop()

	led, err := scenario.OpenLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	sc := scenario.New(cfg, scenario.Deps{
		Launcher: scenario.NewLauncher(cfg, log),
		Ledger:   led,
		Metrics:  metrics.NewCollector(),
		Log:      log,
		Out:      cmd.OutOrStdout(),
	})

	failed := 0
	for i := 1; i <= runs; i++ {
		if runs > 1 {
			log.Info().Int("run", i).Int("of", runs).Msg("Starting run")
			sc.SetConfig(configForRun(cfg, i))
		}
		if _, err := sc.Run(ctx); err != nil {
			failed++
			if ctx.Err() != nil {
				break
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, runs)
	}
	return nil
}

// configForRun returns cfg with the report path numbered for run i, so
// consecutive runs keep their own reports.
func configForRun(cfg *config.Config, i int) *config.Config {
	if cfg.Report.Path == "" {
		return cfg
	}
	next := *cfg
	ext := filepath.Ext(cfg.Report.Path)
	next.Report.Path = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(cfg.Report.Path, ext), i, ext)
	return &next
}

func runSchedule(cmd *cobra.Command, args []string) error {
	loader, cfg, err := loadConfig(cmd, map[string]string{"schedule.cron": "cron"})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg)
	logWarnings(log, cfg)
	ctx, stop := signalContext(cmd)
	defer stop()

	led, err := scenario.OpenLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	collector := metrics.NewCollector()
	sc := scenario.New(cfg, scenario.Deps{
		Launcher: scenario.NewLauncher(cfg, log),
		Ledger:   led,
		Metrics:  collector,
		Log:      log,
		Out:      cmd.OutOrStdout(),
	})

	loader.Watch(func(next *config.Config) {
		sc.SetConfig(next)
		log.Info().Msg("Configuration reloaded")
	}, func(err error) {
		log.Warn().Err(err).Msg("Ignoring invalid configuration change")
	})

	if cfg.Metrics.Listen != "" {
		srv := metricsServer(cfg.Metrics.Listen, collector)
		go func() {
			log.Info().Str("addr", cfg.Metrics.Listen).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	registry := runner.NewTaskRegistry()
	registry.Register(sc.Task(cfg.Schedule.Cron))
	r := runner.NewRunner(registry, log)

	if now, _ := cmd.Flags().GetBool("now"); now {
		// The runner already logs the outcome; a failed first run does not stop the schedule.
		_ = r.RunNow(ctx, scenario.TaskName)
	}

	if err := r.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "👋 Scheduler stopped")
	return nil
}

func metricsServer(addr string, c *metrics.Collector) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func runFixture(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	return encode(cmd.OutOrStdout(), format, fixture.Generate())
}

func runResidue(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cfg.Ledger.RedisAddr == "" {
		return errors.New("residue needs a persistent ledger; set ledger.redis_addr")
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	led, err := scenario.OpenLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	entries, err := led.List(ctx)
	if err != nil {
		return err
	}
	if all, _ := cmd.Flags().GetBool("all"); !all {
		open := entries[:0]
		for _, e := range entries {
			if !e.Removed() {
				open = append(open, e)
			}
		}
		entries = open
	}

	format, _ := cmd.Flags().GetString("output")
	if format == "table" {
		return printResidue(cmd.OutOrStdout(), entries)
	}
	return encode(cmd.OutOrStdout(), format, entries)
}

func printResidue(w io.Writer, entries []ledger.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "✅ No residue recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tKIND\tNAME\tEMAIL\tRUN\tCONFIRMED\tREMOVED")
	for _, e := range entries {
		removed := "-"
		if e.RemovedAt != nil {
			removed = e.RemovedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.Kind, e.Name, e.Email, e.RunID, e.Confirmed, removed)
	}
	return tw.Flush()
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
