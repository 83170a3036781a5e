//go:build windows

package hotkeys

import "golang.org/x/sys/windows"

// isDown reports whether vk currently reads as physically down via
// GetAsyncKeyState. Only the high bit (current state) is consulted; the
// low bit (key-pressed-since-last-call latch) is not used because the
// poll loop does its own edge detection.
func isDown(vk VK) bool {
	state := windows.GetAsyncKeyState(int32(vk))
	return state&0x8000 != 0
}
