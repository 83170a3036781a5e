// Package clipboard implements RAII-style clipboard save/restore, Ctrl+C
// based selected-text capture, and Ctrl+V based text insertion via
// SendInput. Ported from original_source's clipboard_manager.rs and
// win32_input.rs (the keyDelay/poll timings are carried over unchanged;
// they are empirical and spec.md section 9 warns against shortening
// them).
package clipboard

import (
	"time"

	"github.com/quietkey/pushtotalk/internal/winapi"
)

const (
	keyDelay = 15 * time.Millisecond

	vkControl = 0x11
	vkC       = 0x43
	vkV       = 0x56
	vkShift   = 0x10
	vkLShift  = 0xA0
	vkRShift  = 0xA1
	vkMenu    = 0x12
	vkLMenu   = 0xA4
	vkRMenu   = 0xA5
	vkLWin    = 0x5B
	vkRWin    = 0x5C
	vkLCtrl   = 0xA2
	vkRCtrl   = 0xA3
)

// Guard is an RAII-style clipboard save/restore. Construct with NewGuard,
// then `defer guard.Restore()`. Both save and restore are best-effort:
// an unreadable clipboard is treated as "nothing to restore", and
// restore errors are swallowed so a paste failure never cascades into a
// clipboard-restore failure.
type Guard struct {
	original    string
	hadOriginal bool
}

// NewGuard captures the clipboard's current text.
func NewGuard() *Guard {
	text, err := winapi.GetClipboardText()
	if err != nil {
		return &Guard{}
	}
	return &Guard{original: text, hadOriginal: true}
}

// Restore writes the captured text back, swallowing any error — the
// destructor-equivalent half of the RAII pattern.
func (g *Guard) Restore() {
	if !g.hadOriginal {
		return
	}
	_ = winapi.SetClipboardText(g.original)
}

// releaseAllModifiers defensively releases every modifier key Win32
// exposes, both generic and left/right forms, guarding against a stuck
// modifier from the hotkey that triggered this capture.
func releaseAllModifiers() {
	for _, vk := range []uint16{
		vkControl, vkLCtrl, vkRCtrl,
		vkShift, vkLShift, vkRShift,
		vkMenu, vkLMenu, vkRMenu,
		vkLWin, vkRWin,
	} {
		_ = winapi.KeyUp(vk)
	}
}

func sendChord(modifier, key uint16) error {
	if err := winapi.KeyDown(modifier); err != nil {
		return err
	}
	time.Sleep(keyDelay)

	if err := winapi.KeyDown(key); err != nil {
		return err
	}
	time.Sleep(keyDelay)

	if err := winapi.KeyUp(key); err != nil {
		return err
	}
	time.Sleep(keyDelay)

	return winapi.KeyUp(modifier)
}

// CaptureSelection copies the current selection via a simulated Ctrl+C
// and polls the clipboard for an update. It returns a Guard the caller
// must Restore once insertion is done, plus the captured text (empty if
// no selection was detected within the poll window). The short ~320ms
// window is what distinguishes "user had something selected" from "user
// had nothing selected" — do not extend it.
func CaptureSelection() (*Guard, string) {
	guard := NewGuard()

	_ = winapi.SetClipboardText("")
	time.Sleep(50 * time.Millisecond)

	releaseAllModifiers()
	time.Sleep(5 * time.Millisecond)

	if err := sendChord(vkControl, vkC); err != nil {
		return guard, ""
	}

	deadline := time.Now().Add(320 * time.Millisecond)
	for time.Now().Before(deadline) {
		text, err := winapi.GetClipboardText()
		if err == nil && text != "" {
			return guard, text
		}
		time.Sleep(15 * time.Millisecond)
	}
	return guard, ""
}

// InsertText puts text on the clipboard, simulates Ctrl+V, and restores
// guard's saved clipboard afterward. guard may be nil (no restore).
func InsertText(text string, guard *Guard) error {
	if err := winapi.SetClipboardText(text); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)

	if err := sendChord(vkControl, vkV); err != nil {
		return err
	}
	time.Sleep(150 * time.Millisecond)

	if guard != nil {
		guard.Restore()
	}
	return nil
}
