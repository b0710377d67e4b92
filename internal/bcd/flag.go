package bcd

import (
	"errors"
	"fmt"
	"strings"
)

// Flag is a BCD element name understood by bcdedit /set.
type Flag string

const (
	// TestSigning allows test-signed kernel drivers to load.
	TestSigning Flag = "testsigning"
	// NoIntegrityChecks turns off driver signature enforcement checks.
	NoIntegrityChecks Flag = "nointegritychecks"
)

// Flags lists every managed flag in the order they are reconciled.
var Flags = []Flag{TestSigning, NoIntegrityChecks}

func (f Flag) String() string { return string(f) }

// OnOff renders a flag value the way bcdedit /set expects it.
func OnOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// State holds a value for each managed flag.
type State struct {
	TestSigning       bool
	NoIntegrityChecks bool
}

// Uniform returns a State with every flag set to v.
func Uniform(v bool) State {
	return State{TestSigning: v, NoIntegrityChecks: v}
}

// Get returns the value of f. Unknown flags read as false.
func (s State) Get(f Flag) bool {
	switch f {
	case TestSigning:
		return s.TestSigning
	case NoIntegrityChecks:
		return s.NoIntegrityChecks
	default:
		return false
	}
}

// Set assigns v to f. Unknown flags are ignored.
func (s *State) Set(f Flag, v bool) {
	switch f {
	case TestSigning:
		s.TestSigning = v
	case NoIntegrityChecks:
		s.NoIntegrityChecks = v
	}
}

// Diff returns the flags whose value in s differs from want.
func (s State) Diff(want State) []Flag {
	var out []Flag
	for _, f := range Flags {
		if s.Get(f) != want.Get(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s State) String() string {
	parts := make([]string, 0, len(Flags))
	for _, f := range Flags {
		parts = append(parts, fmt.Sprintf("%s=%s", f, OnOff(s.Get(f))))
	}
	return strings.Join(parts, " ")
}

// ErrInvalidMode is returned by ParseMode for anything but enable or disable.
var ErrInvalidMode = errors.New("bcd: mode must be enable or disable")

// Mode selects the target state of both flags.
type Mode int

const (
	// Enable turns test-signing mode on and integrity checks off.
	Enable Mode = iota
	// Disable restores signature enforcement.
	Disable
)

// ParseMode accepts "enable" or "disable" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enable":
		return Enable, nil
	case "disable":
		return Disable, nil
	default:
		return Enable, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Desired is the value both flags take under m.
func (m Mode) Desired() bool { return m == Enable }

// Target is the State requested by m.
func (m Mode) Target() State { return Uniform(m.Desired()) }

func (m Mode) String() string {
	switch m {
	case Enable:
		return "enable"
	case Disable:
		return "disable"
	default:
		return "unknown"
	}
}
