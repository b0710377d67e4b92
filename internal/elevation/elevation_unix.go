//go:build unix

package elevation

import "golang.org/x/sys/unix"

// Elevated reports whether the effective user is root.
func Elevated() bool {
	return unix.Geteuid() == 0
}

// Relaunch always fails with ErrUnsupported.
func Relaunch([]string) error {
	return ErrUnsupported
}
