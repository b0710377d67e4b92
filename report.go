package main

import (
	"github.com/appkins-org/go-testmode/internal/bcd"
	"github.com/appkins-org/go-testmode/internal/command"
)

var flagTitles = map[bcd.Flag]string{
	bcd.TestSigning:       "Testsigning",
	bcd.NoIntegrityChecks: "NoIntegrityChecks",
}

// report renders a reconciliation on the console as far as it got. The
// error itself is printed by the caller.
func (a *app) report(store *bcd.Bcdedit, res bcd.Result, err error) {
	if res.Phase == bcd.Querying {
		return
	}

	a.printState(res.Before)

	attempted := map[bcd.Flag]bcd.Correction{}
	for _, c := range res.Corrections {
		attempted[c.Flag] = c
	}
	for _, f := range bcd.Flags {
		c, ok := attempted[f]
		if !ok {
			a.out.OK("%s already correct.", flagTitles[f])
			continue
		}
		a.out.Warn("%s is %s, adjusting", flagTitles[f], onOffUpper(!c.Value))
		a.out.Command(store.CommandLine(f, c.Value))
		a.toolOutput(c.Output)
		if c.Err != nil {
			a.out.Error("Failed to set BCD flag: %s -> %s", f, bcd.OnOff(c.Value))
		} else {
			a.out.OK("BCD flag updated: %s = %s", f, bcd.OnOff(c.Value))
		}
	}

	a.out.Info("Rechecking BCD flags")
	if res.Phase == bcd.Reconfirming && err != nil {
		return
	}
	a.printState(res.After)
}

func (a *app) toolOutput(res command.Result) {
	a.out.Output(res.Stdout)
	a.out.ErrorOutput(res.Stderr)
}

func (a *app) printState(s bcd.State) {
	for _, f := range bcd.Flags {
		a.out.Field(f.String(), s.Get(f))
	}
}

func onOffUpper(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
