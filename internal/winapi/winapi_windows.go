//go:build windows

// Package winapi wraps the small set of raw user32/kernel32 entry points
// the product needs that golang.org/x/sys/windows does not itself
// expose as typed wrappers: SendInput, clipboard text get/set, and
// foreground-window capture/restore. Declared via
// windows.NewLazySystemDLL, the same mechanism x/sys/windows itself uses
// internally for its own syscalls.
package winapi

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procSendInput           = user32.NewProc("SendInput")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procIsWindow            = user32.NewProc("IsWindow")
	procOpenClipboard       = user32.NewProc("OpenClipboard")
	procCloseClipboard      = user32.NewProc("CloseClipboard")
	procEmptyClipboard      = user32.NewProc("EmptyClipboard")
	procGetClipboardData    = user32.NewProc("GetClipboardData")
	procSetClipboardData    = user32.NewProc("SetClipboardData")

	procGlobalAlloc  = kernel32.NewProc("GlobalAlloc")
	procGlobalLock   = kernel32.NewProc("GlobalLock")
	procGlobalUnlock = kernel32.NewProc("GlobalUnlock")
)

const (
	inputKeyboard  = 1
	keyeventfKeyUp = 0x0002
	cfUnicodeText  = 13
	gmemMoveable   = 0x0002
)

// HWND is an opaque foreground-window handle.
type HWND uintptr

// keybdInput mirrors the Win32 KEYBDINPUT struct embedded in INPUT.
type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// input mirrors the Win32 INPUT struct for type==INPUT_KEYBOARD. The
// padding matches the union's size on 64-bit Windows.
type input struct {
	inputType uint32
	_         uint32 // alignment padding before the union on amd64
	ki        keybdInput
	padding   uint64
}

func sendKeyEvent(vk uint16, keyUp bool) error {
	var flags uint32
	if keyUp {
		flags = keyeventfKeyUp
	}

	in := input{
		inputType: inputKeyboard,
		ki:        keybdInput{wVk: vk, dwFlags: flags},
	}

	ret, _, err := procSendInput.Call(
		1,
		uintptr(unsafe.Pointer(&in)),
		unsafe.Sizeof(in),
	)
	if ret == 0 {
		return fmt.Errorf("winapi: SendInput failed: %w", err)
	}
	return nil
}

// KeyDown presses vk down without releasing it.
func KeyDown(vk uint16) error { return sendKeyEvent(vk, false) }

// KeyUp releases vk.
func KeyUp(vk uint16) error { return sendKeyEvent(vk, true) }

// GetForegroundWindow returns the handle of the currently focused window.
func GetForegroundWindow() HWND {
	ret, _, _ := procGetForegroundWindow.Call()
	return HWND(ret)
}

// SetForegroundWindow attempts to bring hwnd to the foreground, returning
// whether Windows honored the request.
func SetForegroundWindow(hwnd HWND) bool {
	ret, _, _ := procSetForegroundWindow.Call(uintptr(hwnd))
	return ret != 0
}

// IsWindow reports whether hwnd still refers to a live window.
func IsWindow(hwnd HWND) bool {
	ret, _, _ := procIsWindow.Call(uintptr(hwnd))
	return ret != 0
}

// GetClipboardText reads the clipboard's CF_UNICODETEXT contents,
// best-effort: an unreadable or non-text clipboard returns ("", err).
func GetClipboardText() (string, error) {
	ret, _, err := procOpenClipboard.Call(0)
	if ret == 0 {
		return "", fmt.Errorf("winapi: OpenClipboard failed: %w", err)
	}
	defer procCloseClipboard.Call()

	handle, _, _ := procGetClipboardData.Call(cfUnicodeText)
	if handle == 0 {
		return "", fmt.Errorf("winapi: clipboard has no text")
	}

	ptr, _, _ := procGlobalLock.Call(handle)
	if ptr == 0 {
		return "", fmt.Errorf("winapi: GlobalLock failed")
	}
	defer procGlobalUnlock.Call(handle)

	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(ptr))), nil
}

// SetClipboardText replaces the clipboard's contents with text.
func SetClipboardText(text string) error {
	ret, _, err := procOpenClipboard.Call(0)
	if ret == 0 {
		return fmt.Errorf("winapi: OpenClipboard failed: %w", err)
	}
	defer procCloseClipboard.Call()

	procEmptyClipboard.Call()

	utf16, err := windows.UTF16FromString(text)
	if err != nil {
		return err
	}
	size := uintptr(len(utf16)) * 2

	handle, _, err := procGlobalAlloc.Call(gmemMoveable, size)
	if handle == 0 {
		return fmt.Errorf("winapi: GlobalAlloc failed: %w", err)
	}

	ptr, _, _ := procGlobalLock.Call(handle)
	if ptr == 0 {
		return fmt.Errorf("winapi: GlobalLock failed")
	}
	copy(unsafe.Slice((*uint16)(unsafe.Pointer(ptr)), len(utf16)), utf16)
	procGlobalUnlock.Call(handle)

	ret, _, err = procSetClipboardData.Call(cfUnicodeText, handle)
	if ret == 0 {
		return fmt.Errorf("winapi: SetClipboardData failed: %w", err)
	}
	return nil
}
