// Package bcd reconciles the two Boot Configuration Data flags that gate
// loading of test-signed kernel drivers: testsigning and
// nointegritychecks.
//
// A Reconciler reads both flags through a Store, issues a set for every
// flag that differs from the state requested by a Mode, and reads both
// flags again. Windows may refuse the change (Secure Boot policy, for
// example); the second read is the only arbiter of success and a mismatch
// is reported as a *ConvergenceError without retrying.
//
// Bcdedit is the Store backed by bcdedit.exe. Its text output is turned
// into a State by a Parser, so the reconciliation never looks at tool
// output directly.
package bcd
