//go:build windows

package mute

import (
	"github.com/go-ole/go-ole"
)

// comGuard is an RAII-style COM apartment guard. It records whether it
// performed the initialization so it only calls CoUninitialize if it was
// the one that called CoInitializeEx — the "already-initialized in a
// different apartment" return is tolerated as a no-op.
type comGuard struct {
	didInit bool
}

func enterCOM() *comGuard {
	err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED)
	g := &comGuard{}
	if err == nil {
		g.didInit = true
	}
	return g
}

func (g *comGuard) release() {
	if g.didInit {
		ole.CoUninitialize()
	}
}
