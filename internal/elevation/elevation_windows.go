//go:build windows

package elevation

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/windows"
)

// Elevated reports whether the process token is elevated.
func Elevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// Relaunch starts the current executable again through the UAC "runas"
// verb with args. The caller should exit once it returns nil.
func Relaunch(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("elevation/relaunch: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("elevation/relaunch: %w", err)
	}

	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = windows.EscapeArg(a)
	}

	verbPtr, _ := windows.UTF16PtrFromString("runas")
	exePtr, _ := windows.UTF16PtrFromString(exe)
	cwdPtr, _ := windows.UTF16PtrFromString(cwd)
	argPtr, _ := windows.UTF16PtrFromString(strings.Join(quoted, " "))

	if err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, cwdPtr, windows.SW_NORMAL); err != nil {
		return fmt.Errorf("elevation/relaunch: %w", err)
	}
	return nil
}
