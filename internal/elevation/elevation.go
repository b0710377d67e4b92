// Package elevation checks for, and requests, administrative rights.
// Writing boot configuration requires them.
package elevation

import "errors"

var (
	// ErrNotElevated means the process lacks administrative rights.
	ErrNotElevated = errors.New("elevation: administrator privileges required")
	// ErrUnsupported means the platform cannot relaunch elevated.
	ErrUnsupported = errors.New("elevation: relaunch not supported on this platform")
)

// Require returns ErrNotElevated unless the process is elevated.
func Require() error {
	if !Elevated() {
		return ErrNotElevated
	}
	return nil
}
