// Package command runs external tools and reports how they exited.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/appkins-org/go-testmode/internal/wow64"
	"github.com/go-logr/logr"
	"go.uber.org/multierr"
)

// Result is the outcome of a command that was started.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports a zero exit code.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Runner starts a command and waits for it to exit. The error is reserved
// for commands that could not be run at all; a non-zero exit is reported
// through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Exec runs commands as child processes with WOW64 file system
// redirection disabled for the duration of each call.
type Exec struct {
	Log logr.Logger
	// Env is appended to the parent environment.
	Env []string
}

var _ Runner = (*Exec)(nil)

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, name string, args ...string) (res Result, err error) {
	guard, gerr := wow64.Disable()
	if gerr != nil {
		e.Log.V(1).Info("running with file system redirection", "reason", gerr.Error())
	}
	defer func() {
		err = multierr.Append(err, guard.Revert())
	}()

	line := Line(name, args...)
	e.Log.V(1).Info("running command", "command", line, "redirectionDisabled", guard.Active())

	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	res = Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("command/run(%s): %w", line, runErr)
	}

	e.Log.V(1).Info("command finished", "command", line, "exitCode", res.ExitCode, "stdout", res.Stdout, "stderr", res.Stderr)
	return res, nil
}

// Line renders a command line the way it would be typed in cmd.exe,
// quoting the program path when it contains spaces.
func Line(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	if strings.ContainsAny(name, " \t") {
		name = `"` + name + `"`
	}
	parts = append(parts, name)
	parts = append(parts, args...)
	return strings.Join(parts, " ")
}
