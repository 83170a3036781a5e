// Package tray gives the daemon a minimal Windows system-tray presence —
// an icon and a single Quit item — standing in for the rendered
// overlay/tray UI that spec.md section 2 places out of scope. It exists
// only so the event stream has somewhere visible to anchor; no recording
// state is rendered here.
package tray

import "github.com/tadvi/systray"

// Run blocks on the systray event loop, which must run on its own
// goroutine separate from the hotkey poll loop. onQuit is invoked once,
// from the tray's own goroutine, when the user picks Quit.
func Run(onQuit func()) {
	systray.Run(func() {
		systray.SetTitle("PushToTalk")
		systray.SetTooltip("PushToTalk dictation daemon")

		quitItem := systray.AddMenuItem("Quit", "Exit PushToTalk")
		go func() {
			<-quitItem.ClickedCh
			onQuit()
		}()
	}, func() {})
}
