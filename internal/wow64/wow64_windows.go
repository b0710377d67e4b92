//go:build windows

package wow64

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32    = windows.NewLazySystemDLL("kernel32.dll")
	procDisable = kernel32.NewProc("Wow64DisableWow64FsRedirection")
	procRevert  = kernel32.NewProc("Wow64RevertWow64FsRedirection")
)

func underWow64() bool {
	var wow bool
	if err := windows.IsWow64Process(windows.CurrentProcess(), &wow); err != nil {
		return false
	}
	return wow
}

// Disable turns redirection off for the current OS thread. The calling
// goroutine stays locked to that thread until Revert.
//
// A native 64-bit process, or a system without the WOW64 entry points,
// gets an inactive guard.
func Disable() (*Guard, error) {
	if !underWow64() {
		return &Guard{}, nil
	}
	if procDisable.Find() != nil || procRevert.Find() != nil {
		return &Guard{}, nil
	}

	runtime.LockOSThread()

	g := &Guard{}
	r1, _, err := procDisable.Call(uintptr(unsafe.Pointer(&g.old)))
	if r1 == 0 {
		runtime.UnlockOSThread()
		return &Guard{}, fmt.Errorf("wow64/disable: %w", err)
	}
	g.active = true
	return g, nil
}

func (g *Guard) revert() error {
	defer runtime.UnlockOSThread()

	r1, _, err := procRevert.Call(g.old)
	if r1 == 0 {
		return fmt.Errorf("wow64/revert: %w", err)
	}
	return nil
}
