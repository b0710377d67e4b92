//go:build !windows

package wow64

// Disable returns an inactive guard; redirection only exists on Windows.
func Disable() (*Guard, error) {
	return &Guard{}, nil
}

func (g *Guard) revert() error { return nil }
