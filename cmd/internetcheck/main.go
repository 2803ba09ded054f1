package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/kylerisse/internetcheck/pkg/config"
	"github.com/kylerisse/internetcheck/pkg/connectivity"
)

func main() {
	// Ctrl+C makes pending probes fail fast instead of killing the process
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
		newChecker: newChecker,
	}
	code := a.execute(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}

// newChecker builds the probe cascade from the loaded configuration.
func newChecker(cfg *config.Config, logger *logrus.Logger) (runner, error) {
	return connectivity.FromConfig(connectivity.NewRegistry(), cfg.Sections(), connectivity.WithLogger(logger))
}
