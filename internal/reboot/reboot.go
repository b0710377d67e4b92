// Package reboot restarts the machine through shutdown.exe.
package reboot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/appkins-org/go-testmode/internal/command"
	"github.com/go-logr/logr"
)

// maxDelay is the largest timeout shutdown /t accepts (ten years).
const maxDelay = 315360000 * time.Second

// Rebooter schedules a forced restart after Delay.
type Rebooter struct {
	Runner command.Runner
	Path   string
	Delay  time.Duration
	Log    logr.Logger
}

// Args returns the shutdown arguments for r.
func (r *Rebooter) Args() []string {
	d := r.Delay
	switch {
	case d < 0:
		d = 0
	case d > maxDelay:
		d = maxDelay
	}
	secs := int64(d.Round(time.Second) / time.Second)
	return []string{"/r", "/t", strconv.FormatInt(secs, 10), "/f"}
}

// CommandLine is the invocation Restart runs, for display.
func (r *Rebooter) CommandLine() string {
	return command.Line(r.Path, r.Args()...)
}

// Restart asks the OS to restart. It returns once shutdown.exe has
// accepted or refused the request, along with what it printed.
func (r *Rebooter) Restart(ctx context.Context) (command.Result, error) {
	r.Log.Info("scheduling restart", "delay", r.Delay.String())

	res, err := r.Runner.Run(ctx, r.Path, r.Args()...)
	if err != nil {
		return res, fmt.Errorf("reboot: %w", err)
	}
	if !res.Success() {
		return res, fmt.Errorf("reboot: %s: exit code %d", r.CommandLine(), res.ExitCode)
	}
	return res, nil
}
