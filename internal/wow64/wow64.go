// Package wow64 scopes the WOW64 file system redirection of the calling
// thread. A 32-bit process on 64-bit Windows sees SysWOW64 in place of
// System32 unless redirection is disabled, which hides the 64-bit
// bcdedit.exe and shutdown.exe.
package wow64

// Guard is an acquired redirection-disabled scope. The zero value is an
// inactive guard whose Revert does nothing.
type Guard struct {
	active bool
	old    uintptr
}

// Active reports whether redirection is currently disabled by g.
func (g *Guard) Active() bool { return g != nil && g.active }

// Revert restores redirection for the thread that acquired g. It is safe
// to call on a nil or inactive guard and more than once.
func (g *Guard) Revert() error {
	if !g.Active() {
		return nil
	}
	g.active = false
	return g.revert()
}
