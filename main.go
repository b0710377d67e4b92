// Command testmode switches Windows between test-signing mode and normal
// driver signature enforcement by reconciling the testsigning and
// nointegritychecks boot flags, then optionally restarts.
//
// Usage:
//
//	testmode [--mode enable|disable] [--auto-accept] [--auto-reboot] [--no-elevate]
//
// Exit status is 0 on success or when the user declines the prompt, 1 on
// any failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/appkins-org/go-testmode/internal/bcd"
	"github.com/appkins-org/go-testmode/internal/command"
	"github.com/appkins-org/go-testmode/internal/config"
	"github.com/appkins-org/go-testmode/internal/console"
	"github.com/appkins-org/go-testmode/internal/elevation"
	"github.com/appkins-org/go-testmode/internal/reboot"
	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
)

// Process bindings, replaced in tests.
var (
	stdout           = io.Writer(os.Stdout)
	stdin            = io.Reader(os.Stdin)
	newRunner        = func(log logr.Logger) command.Runner { return &command.Exec{Log: log} }
	requireElevated  = elevation.Require
	relaunchElevated = elevation.Relaunch
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := config.NewFlagSet(filepath.Base(os.Args[0]))
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	cfg, err := config.NewConfig(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer cfg.Close()

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer done()

	a := &app{
		cfg:      cfg,
		log:      cfg.Log,
		out:      console.New(stdout, stdin),
		runner:   newRunner(cfg.Log),
		require:  requireElevated,
		relaunch: relaunchElevated,
		args:     args,
	}
	if err := a.apply(ctx); err != nil {
		a.out.Error("%v", err)
		a.log.Error(err, "testmode failed")
		return 1
	}
	return 0
}

// app carries everything apply touches so tests can replace the OS.
type app struct {
	cfg      *config.Config
	log      logr.Logger
	out      *console.Printer
	runner   command.Runner
	require  func() error
	relaunch func([]string) error
	args     []string
}

func (a *app) apply(ctx context.Context) error {
	mode, err := bcd.ParseMode(a.cfg.Mode)
	if err != nil {
		return err
	}
	log := a.log.WithValues("mode", mode.String())

	if err := a.require(); err != nil {
		if a.cfg.NoElevate || !errors.Is(err, elevation.ErrNotElevated) {
			return err
		}
		log.Info("relaunching with administrator privileges")
		if err := a.relaunch(a.args); err != nil {
			return fmt.Errorf("%w: %w", elevation.ErrNotElevated, err)
		}
		return nil
	}

	if !a.cfg.AutoAccept {
		ok, err := a.out.Confirm(fmt.Sprintf("Apply mode '%s'?", mode))
		if err != nil {
			return err
		}
		if !ok {
			a.out.Warn("Aborted by user. Exiting.")
			log.Info("aborted at confirmation prompt")
			return nil
		}
	}

	store := bcd.NewBcdedit(a.cfg.BcdeditPath, a.runner, bcd.NewParser(a.cfg.TruthyTokens), a.log)

	a.out.Rule(fmt.Sprintf("Verifying Test Mode + DSE state (%s)", mode))
	a.out.Info("Checking BCD flags")

	res, err := bcd.NewReconciler(store, a.log).Reconcile(ctx, mode)
	a.report(store, res, err)
	if err != nil {
		var cerr *bcd.ConvergenceError
		if errors.As(err, &cerr) {
			return fmt.Errorf("windows rejected test mode or DSE changes: %w", err)
		}
		return err
	}
	a.out.OK("Test Mode + DSE state verified.")

	if res.Changed {
		a.out.Warn("System must reboot to apply changes.")

		if a.cfg.AutoReboot {
			rb := &reboot.Rebooter{
				Runner: a.runner,
				Path:   a.cfg.ShutdownPath,
				Delay:  a.cfg.RebootDelay,
				Log:    a.log,
			}
			a.out.OK("Rebooting in %s...", a.cfg.RebootDelay)
			a.out.Command(rb.CommandLine())
			res, err := rb.Restart(ctx)
			a.toolOutput(res)
			return err
		}
	}

	a.out.Panel("--- Completed Successfully! ---")
	if !a.cfg.AutoAccept {
		a.out.Pause()
	}
	return nil
}
