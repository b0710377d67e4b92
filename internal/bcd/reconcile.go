package bcd

import (
	"context"
	"fmt"

	"github.com/appkins-org/go-testmode/internal/command"
	"github.com/go-logr/logr"
)

// Correction is one attempted flag change.
type Correction struct {
	Flag  Flag
	Value bool
	// Err is the failure reported by the Store, if any. A failed
	// correction is not fatal by itself.
	Err error
	// Output is what the tool printed for this change.
	Output command.Result
}

// Phase is a state of the reconciliation procedure.
//
//	Querying -> NoChangeNeeded | Correcting -> Reconfirming -> Converged | Rejected
type Phase int

const (
	Querying Phase = iota
	NoChangeNeeded
	Correcting
	Reconfirming
	Converged
	Rejected
)

func (p Phase) String() string {
	switch p {
	case Querying:
		return "querying"
	case NoChangeNeeded:
		return "no-change-needed"
	case Correcting:
		return "correcting"
	case Reconfirming:
		return "reconfirming"
	case Converged:
		return "converged"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result describes one reconciliation.
type Result struct {
	Mode Mode
	// Phase is the last phase entered. On error it tells which step
	// failed.
	Phase  Phase
	Before State
	After  State
	// Changed is true when at least one flag differed from the target
	// before correction, whether or not the write succeeded.
	Changed     bool
	Corrections []Correction
}

// ConvergenceError reports flags that still differ from the target after
// correction. Windows refused the change and retrying will not help.
type ConvergenceError struct {
	Desired  State
	Observed State
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("bcd: changes rejected: want %s, have %s", e.Desired, e.Observed)
}

// Mismatched returns the flags that did not converge.
func (e *ConvergenceError) Mismatched() []Flag {
	return e.Observed.Diff(e.Desired)
}

// Reconciler drives the managed flags to the state requested by a Mode.
type Reconciler struct {
	Store Store
	Log   logr.Logger
}

// NewReconciler returns a Reconciler writing through s.
func NewReconciler(s Store, log logr.Logger) *Reconciler {
	return &Reconciler{Store: s, Log: log}
}

// Reconcile queries both flags, sets every flag that differs from the
// target of mode, and queries again. The returned Result is filled in as
// far as the procedure got, including on error.
//
// Errors are ErrQuery from either query, or a *ConvergenceError when the
// second query still differs from the target.
func (r *Reconciler) Reconcile(ctx context.Context, mode Mode) (Result, error) {
	log := r.Log.WithValues("mode", mode.String())
	target := mode.Target()
	res := Result{Mode: mode, Phase: Querying}

	before, err := r.Store.Query(ctx)
	if err != nil {
		return res, err
	}
	res.Before = before
	log.Info("queried boot flags", "state", before.String())

	res.Phase = NoChangeNeeded
	for _, f := range before.Diff(target) {
		res.Phase = Correcting
		res.Changed = true
		c := Correction{Flag: f, Value: target.Get(f)}
		if c.Output, c.Err = r.Store.Set(ctx, f, c.Value); c.Err != nil {
			log.Error(c.Err, "failed to set boot flag", "flag", f.String(), "value", OnOff(c.Value))
		} else {
			log.Info("boot flag updated", "flag", f.String(), "value", OnOff(c.Value))
		}
		res.Corrections = append(res.Corrections, c)
	}
	if !res.Changed {
		log.Info("boot flags already in requested state")
	}

	res.Phase = Reconfirming
	after, err := r.Store.Query(ctx)
	if err != nil {
		return res, err
	}
	res.After = after

	if after != target {
		res.Phase = Rejected
		cerr := &ConvergenceError{Desired: target, Observed: after}
		log.Error(cerr, "boot flags did not converge", "mismatched", fmt.Sprint(cerr.Mismatched()))
		return res, cerr
	}
	res.Phase = Converged
	log.Info("boot flags verified", "state", after.String(), "changed", res.Changed)
	return res, nil
}
