package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kylerisse/internetcheck/pkg/config"
	"github.com/kylerisse/internetcheck/pkg/connectivity"
	"github.com/kylerisse/internetcheck/pkg/report"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// exitUsage is returned for bad flags or configuration.
const exitUsage = 2

// runner is satisfied by *connectivity.Checker.
type runner interface {
	Run(ctx context.Context) connectivity.Report
}

// app carries the process dependencies so tests can swap them out.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	isTerminal func() bool
	newChecker func(cfg *config.Config, logger *logrus.Logger) (runner, error)

	exitCode int
}

type flags struct {
	quiet      bool
	verbose    bool
	jsonOutput bool
	configFile string
	logLevel   string
}

// execute runs the command line and returns the process exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	cmd := a.newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "internetcheck: %v\n", err)
		return exitUsage
	}
	return a.exitCode
}

func (a *app) newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "internetcheck",
		Short: "Check whether this host has working internet access",
		Long: `internetcheck probes well-known captive-portal endpoints over HTTPS.
If none answer as expected it also tries DNS resolution and ICMP ping to tell
a dead link apart from limited connectivity.

Exit status is 0 when HTTP works and 1 otherwise.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), f)
		},
	}

	cmd.Flags().BoolVar(&f.quiet, "quiet", false, "No output, exit code only")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "Show per-probe details when access is missing")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().StringVar(&f.configFile, "config", "", "Config file (default <user config dir>/internetcheck/config.yaml)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level for stderr diagnostics (overrides config)")

	cmd.SetVersionTemplate(fmt.Sprintf("internetcheck version %s\ncommit: %s\nbuilt: %s\n", Version, GitCommit, BuildDate))

	return cmd
}

func (a *app) run(ctx context.Context, f flags) error {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	logger, err := newLogger(cfg, a.stderr)
	if err != nil {
		return err
	}
	logger.WithField("file", cfg.File).Debug("configuration loaded")

	checker, err := a.newChecker(cfg, logger)
	if err != nil {
		return err
	}

	rep := checker.Run(ctx)
	a.exitCode = rep.ExitCode()

	opts := report.Options{
		Quiet:   f.quiet,
		Verbose: f.verbose,
		JSON:    f.jsonOutput,
		Color:   !f.jsonOutput && report.ColorEnabled(a.isTerminal),
	}
	if err := report.Write(a.stdout, rep, opts); err != nil {
		logger.WithError(err).Warn("failed to write report")
	}

	return nil
}

// newLogger builds the stderr logger. stdout is reserved for the report.
func newLogger(cfg *config.Config, w io.Writer) (*logrus.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger, nil
}
