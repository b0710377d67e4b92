package bcd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/appkins-org/go-testmode/internal/command"
	"github.com/go-logr/logr"
	"go.uber.org/multierr"
)

// ErrQuery means the boot configuration could not be enumerated.
var ErrQuery = errors.New("bcd: unable to query boot configuration")

// Store reads and writes the managed flags.
type Store interface {
	Query(ctx context.Context) (State, error)
	// Set writes one flag. The Result is whatever the tool printed, also
	// when the write failed.
	Set(ctx context.Context, flag Flag, value bool) (command.Result, error)
}

// enumerations are tried in order until one exits cleanly.
var enumerations = [][]string{
	{"/enum", "{current}"},
	{"/enum"},
}

// Bcdedit is a Store that drives bcdedit.exe.
type Bcdedit struct {
	Path   string
	Runner command.Runner
	Parser *Parser
	Log    logr.Logger
}

var _ Store = (*Bcdedit)(nil)

// NewBcdedit returns a Bcdedit for the tool at path.
func NewBcdedit(path string, r command.Runner, p *Parser, log logr.Logger) *Bcdedit {
	return &Bcdedit{Path: path, Runner: r, Parser: p, Log: log}
}

// Query enumerates the current boot entry, falling back to a full
// enumeration, and parses both flags from the output. It fails with
// ErrQuery when neither form succeeds.
func (b *Bcdedit) Query(ctx context.Context) (State, error) {
	var errs error
	for _, args := range enumerations {
		line := command.Line(b.Path, args...)

		res, err := b.Runner.Run(ctx, b.Path, args...)
		switch {
		case err != nil:
			errs = multierr.Append(errs, err)
		case !res.Success():
			errs = multierr.Append(errs, fmt.Errorf("%s: exit code %d", line, res.ExitCode))
		default:
			return b.parser().Parse(res.Stdout), nil
		}
		b.Log.V(1).Info("enumeration failed", "command", line)
	}
	return State{}, fmt.Errorf("%w: %w", ErrQuery, errs)
}

// Set runs bcdedit /set for flag. A non-zero exit is returned as an error
// carrying whatever the tool printed.
func (b *Bcdedit) Set(ctx context.Context, flag Flag, value bool) (command.Result, error) {
	res, err := b.Runner.Run(ctx, b.Path, "/set", flag.String(), OnOff(value))
	if err != nil {
		return res, fmt.Errorf("bcd/set(%s): %w", flag, err)
	}
	if !res.Success() {
		msg := strings.TrimSpace(strings.TrimSpace(res.Stderr) + " " + strings.TrimSpace(res.Stdout))
		return res, fmt.Errorf("bcd/set(%s): exit code %d: %s", flag, res.ExitCode, msg)
	}
	return res, nil
}

// CommandLine is the invocation Set runs for flag, for display.
func (b *Bcdedit) CommandLine(flag Flag, value bool) string {
	return command.Line(b.Path, "/set", flag.String(), OnOff(value))
}

func (b *Bcdedit) parser() *Parser {
	if b.Parser == nil {
		return NewParser(nil)
	}
	return b.Parser
}
