//go:build windows

package audio

import "golang.org/x/sys/windows"

var modKernel32 = windows.NewLazySystemDLL("kernel32.dll")
var procBeep = modKernel32.NewProc("Beep")

// systemBeepFallback calls the Win32 kernel32 Beep API directly when the
// beeep package's notification-sound path fails.
func systemBeepFallback(freqHz, durationMs uint32) {
	procBeep.Call(uintptr(freqHz), uintptr(durationMs))
}
