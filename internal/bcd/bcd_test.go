package bcd

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/appkins-org/go-testmode/internal/command"
	"github.com/appkins-org/go-testmode/internal/command/commandtest"
	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolPath = `C:\Windows\System32\bcdedit.exe`

// fakeTool emulates bcdedit against an in-memory boot entry.
type fakeTool struct {
	state State
	// reject makes every /set exit non-zero without changing state, the
	// way Secure Boot policy blocks the write.
	reject bool
	// ignore makes /set report success without changing state.
	ignore bool
	// scopedFails makes "/enum {current}" exit non-zero.
	scopedFails bool
	// enumFails makes every enumeration exit non-zero.
	enumFails bool
}

func (ft *fakeTool) render() string {
	var b strings.Builder
	b.WriteString("Windows Boot Loader\n-------------------\nidentifier              {current}\n")
	for _, f := range Flags {
		// bcdedit omits elements that were never set; cover both shapes.
		if ft.state.Get(f) {
			fmt.Fprintf(&b, "%-24sYes\n", f)
		} else if f == NoIntegrityChecks {
			fmt.Fprintf(&b, "%-24sNo\n", f)
		}
	}
	return b.String()
}

func (ft *fakeTool) runner() *commandtest.Fake {
	return commandtest.New().
		Handle("/enum", func(args []string) (command.Result, error) {
			if ft.enumFails || (ft.scopedFails && len(args) > 1) {
				return command.Result{ExitCode: 1, Stderr: "The boot configuration data store could not be opened."}, nil
			}
			return command.Result{Stdout: ft.render()}, nil
		}).
		Handle("/set", func(args []string) (command.Result, error) {
			if ft.reject {
				return command.Result{ExitCode: 1, Stderr: "The value is protected by Secure Boot policy and cannot be modified or deleted."}, nil
			}
			if !ft.ignore {
				ft.state.Set(Flag(args[1]), args[2] == "on")
			}
			return command.Result{Stdout: "The operation completed successfully."}, nil
		})
}

func newReconciler(r command.Runner) *Reconciler {
	return NewReconciler(NewBcdedit(toolPath, r, NewParser(nil), logr.Discard()), logr.Discard())
}

func TestReconcileEnableAlreadyEnabled(t *testing.T) {
	ft := &fakeTool{state: Uniform(true)}
	fake := ft.runner()

	res, err := newReconciler(fake).Reconcile(context.Background(), Enable)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Empty(t, res.Corrections)
	assert.Empty(t, fake.CallsWith("/set"))
	assert.Equal(t, Uniform(true), res.After)
}

func TestReconcileEnableFromDisabled(t *testing.T) {
	ft := &fakeTool{state: Uniform(false)}
	fake := ft.runner()

	res, err := newReconciler(fake).Reconcile(context.Background(), Enable)
	require.NoError(t, err)

	want := []string{"/set testsigning on", "/set nointegritychecks on"}
	if diff := cmp.Diff(want, fake.CallsWith("/set")); diff != "" {
		t.Errorf("set commands mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, res.Changed)
	assert.Equal(t, Uniform(false), res.Before)
	assert.Equal(t, Uniform(true), res.After)
}

func TestReconcileDisableMixed(t *testing.T) {
	ft := &fakeTool{state: State{TestSigning: true}}
	fake := ft.runner()

	res, err := newReconciler(fake).Reconcile(context.Background(), Disable)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"/set testsigning off"}, fake.CallsWith("/set")); diff != "" {
		t.Errorf("set commands mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, res.Changed)
	assert.Equal(t, Uniform(false), res.After)
}

func TestReconcileExample(t *testing.T) {
	ft := &fakeTool{state: State{TestSigning: false, NoIntegrityChecks: true}}
	fake := ft.runner()

	res, err := newReconciler(fake).Reconcile(context.Background(), Enable)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"/set testsigning on"}, fake.CallsWith("/set")); diff != "" {
		t.Errorf("set commands mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, State{TestSigning: true, NoIntegrityChecks: true}, res.After)
	assert.True(t, res.Changed)
}

func TestReconcileIdempotent(t *testing.T) {
	ft := &fakeTool{state: Uniform(false)}
	r := newReconciler(ft.runner())

	first, err := r.Reconcile(context.Background(), Enable)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), Enable)
	require.NoError(t, err)

	assert.True(t, first.Changed)
	assert.False(t, second.Changed)
}

func TestReconcileRejected(t *testing.T) {
	ft := &fakeTool{state: Uniform(false), reject: true}
	fake := ft.runner()

	res, err := newReconciler(fake).Reconcile(context.Background(), Enable)

	var cerr *ConvergenceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, Uniform(true), cerr.Desired)
	assert.Equal(t, Uniform(false), cerr.Observed)
	assert.Equal(t, Flags, cerr.Mismatched())

	// Each mismatched flag is attempted once and the re-query is the last
	// command issued.
	assert.Len(t, fake.CallsWith("/set"), 2)
	calls := fake.Calls()
	assert.Equal(t, []string{toolPath, "/enum", "{current}"}, calls[len(calls)-1])

	assert.True(t, res.Changed)
	require.Len(t, res.Corrections, 2)
	for _, c := range res.Corrections {
		assert.Error(t, c.Err)
	}
}

func TestReconcileSilentlyIgnored(t *testing.T) {
	ft := &fakeTool{state: State{TestSigning: true}, ignore: true}

	res, err := newReconciler(ft.runner()).Reconcile(context.Background(), Enable)

	var cerr *ConvergenceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []Flag{NoIntegrityChecks}, cerr.Mismatched())
	require.Len(t, res.Corrections, 1)
	assert.NoError(t, res.Corrections[0].Err)
}

func TestQueryFallsBackToFullEnumeration(t *testing.T) {
	ft := &fakeTool{state: State{NoIntegrityChecks: true}, scopedFails: true}
	fake := ft.runner()

	got, err := NewBcdedit(toolPath, fake, nil, logr.Discard()).Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, State{NoIntegrityChecks: true}, got)

	want := [][]string{
		{toolPath, "/enum", "{current}"},
		{toolPath, "/enum"},
	}
	if diff := cmp.Diff(want, fake.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryFailure(t *testing.T) {
	ft := &fakeTool{enumFails: true}
	fake := ft.runner()

	_, err := NewBcdedit(toolPath, fake, nil, logr.Discard()).Query(context.Background())
	assert.ErrorIs(t, err, ErrQuery)
	assert.Len(t, fake.Calls(), 2)
}

func TestQueryFailureWhenToolMissing(t *testing.T) {
	// No handlers: every call fails to start.
	_, err := NewBcdedit(toolPath, commandtest.New(), nil, logr.Discard()).Query(context.Background())
	assert.ErrorIs(t, err, ErrQuery)
	assert.ErrorIs(t, err, commandtest.ErrUnscripted)
}

func TestReconcileStopsOnQueryFailure(t *testing.T) {
	ft := &fakeTool{enumFails: true}
	fake := ft.runner()

	_, err := newReconciler(fake).Reconcile(context.Background(), Enable)
	assert.ErrorIs(t, err, ErrQuery)
	assert.Empty(t, fake.CallsWith("/set"))
}

func TestSetReportsExitCode(t *testing.T) {
	ft := &fakeTool{reject: true}

	res, err := NewBcdedit(toolPath, ft.runner(), nil, logr.Discard()).Set(context.Background(), TestSigning, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code 1")
	assert.Contains(t, err.Error(), "Secure Boot")
	assert.Equal(t, 1, res.ExitCode)
}

func TestCorrectionsKeepToolOutput(t *testing.T) {
	tests := map[string]struct {
		tool       *fakeTool
		wantStdout string
		wantStderr string
	}{
		"accepted": {tool: &fakeTool{}, wantStdout: "The operation completed successfully."},
		"refused":  {tool: &fakeTool{reject: true}, wantStderr: "protected by Secure Boot policy"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			res, _ := newReconciler(tt.tool.runner()).Reconcile(context.Background(), Enable)
			require.Len(t, res.Corrections, 2)
			for _, c := range res.Corrections {
				assert.Contains(t, c.Output.Stdout, tt.wantStdout)
				assert.Contains(t, c.Output.Stderr, tt.wantStderr)
			}
		})
	}
}

func TestReconcilePhases(t *testing.T) {
	tests := map[string]struct {
		tool *fakeTool
		want Phase
	}{
		"converged":    {tool: &fakeTool{state: Uniform(false)}, want: Converged},
		"no change":    {tool: &fakeTool{state: Uniform(true)}, want: Converged},
		"rejected":     {tool: &fakeTool{reject: true}, want: Rejected},
		"query failed": {tool: &fakeTool{enumFails: true}, want: Querying},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			res, _ := newReconciler(tt.tool.runner()).Reconcile(context.Background(), Enable)
			assert.Equal(t, tt.want, res.Phase, res.Phase.String())
		})
	}
}

func TestCommandLine(t *testing.T) {
	b := NewBcdedit(toolPath, nil, nil, logr.Discard())
	assert.Equal(t, toolPath+" /set nointegritychecks off", b.CommandLine(NoIntegrityChecks, false))
}
