// Package commandtest provides a scripted command.Runner for tests.
package commandtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/appkins-org/go-testmode/internal/command"
)

// ErrUnscripted is returned for a command with no matching handler.
var ErrUnscripted = errors.New("commandtest: unscripted command")

// Handler produces the outcome of one invocation.
type Handler func(args []string) (command.Result, error)

// Fake records every invocation and answers from handlers keyed by the
// first argument (for bcdedit, "/enum" or "/set").
type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    [][]string
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{handlers: map[string]Handler{}}
}

// Handle registers h for invocations whose first argument is verb.
func (f *Fake) Handle(verb string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[verb] = h
	return f
}

// Run implements command.Runner.
func (f *Fake) Run(_ context.Context, name string, args ...string) (command.Result, error) {
	f.mu.Lock()
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	var h Handler
	if len(args) > 0 {
		h = f.handlers[args[0]]
	}
	f.mu.Unlock()

	if h == nil {
		return command.Result{}, ErrUnscripted
	}
	return h(args)
}

// Calls returns the recorded invocations, program name first.
func (f *Fake) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsWith returns the recorded argument lists (program name dropped)
// whose first argument is verb, joined by spaces.
func (f *Fake) CallsWith(verb string) []string {
	var out []string
	for _, c := range f.Calls() {
		if len(c) > 1 && c[1] == verb {
			out = append(out, strings.Join(c[1:], " "))
		}
	}
	return out
}

// Exit is a Handler answering with a fixed output and exit code.
func Exit(code int, stdout string) Handler {
	return func([]string) (command.Result, error) {
		return command.Result{ExitCode: code, Stdout: stdout}, nil
	}
}
