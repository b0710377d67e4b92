//go:build !windows && !unix

package elevation

// Elevated is always false where privileges cannot be inspected.
func Elevated() bool { return false }

// Relaunch always fails with ErrUnsupported.
func Relaunch([]string) error { return ErrUnsupported }
