package clipboard

import (
	"time"

	"github.com/quietkey/pushtotalk/internal/winapi"
)

// FocusSnapshot is the foreground window handle captured at the instant
// a recording begins, used for verified focus restoration before paste.
type FocusSnapshot struct {
	hwnd winapi.HWND
}

// CaptureFocus snapshots the current foreground window.
func CaptureFocus() FocusSnapshot {
	return FocusSnapshot{hwnd: winapi.GetForegroundWindow()}
}

// Restore re-activates the snapshotted window, retrying up to 3 times and
// verifying GetForegroundWindow after each attempt, per spec.md section
// 4.7's focus-restoration contract. A saved handle that no longer refers
// to a live window (the user's target closed) is correct to skip — it
// returns false rather than erroring.
func (f FocusSnapshot) Restore() bool {
	if f.hwnd == 0 || !winapi.IsWindow(f.hwnd) {
		return false
	}

	for attempt := 0; attempt < 3; attempt++ {
		winapi.SetForegroundWindow(f.hwnd)
		if winapi.GetForegroundWindow() == f.hwnd {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}
