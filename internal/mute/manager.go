// Package mute implements a self-healing, per-process WASAPI mute
// manager: it mutes every other render-endpoint audio session while a
// recording is in flight, restores them additively once the last
// concurrent recording ends, and runs a watchdog that force-restores
// after a logic-bug timeout. Ported near-verbatim in control flow from
// original_source's audio_mute_manager.rs (Arc<Mutex<_>> + AtomicU32 ->
// sync.Mutex + atomic.Uint32).
package mute

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	watchdogInterval = 1 * time.Second
	sessionTimeout    = 180 * time.Second
)

// Manager owns the set of PIDs this process has muted and the reference
// count of recordings currently in flight.
type Manager struct {
	ownPID uint32

	mu        sync.Mutex
	mutedPIDs map[uint32]struct{}

	enabled atomic.Bool

	activeSessions atomic.Uint32

	startMu   sync.Mutex
	startedAt *time.Time

	watchdogStop chan struct{}
	watchdogDone chan struct{}
}

// New constructs a Manager and starts its watchdog goroutine immediately;
// the watchdog runs for the lifetime of the process regardless of the
// enabled flag (it no-ops while disabled).
func New(enabled bool) *Manager {
	m := &Manager{
		ownPID:       uint32(os.Getpid()),
		mutedPIDs:    make(map[uint32]struct{}),
		watchdogStop: make(chan struct{}),
		watchdogDone: make(chan struct{}),
	}
	m.enabled.Store(enabled)
	go m.watchdog()
	return m
}

// SetEnabled toggles the mute feature; disabling immediately restores any
// currently muted applications.
func (m *Manager) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
	if !enabled {
		if _, err := m.RestoreVolumes(); err != nil {
			log.Printf("mute: restore on disable failed: %v", err)
		}
	}
}

func (m *Manager) IsEnabled() bool { return m.enabled.Load() }

// BeginSession increments the active-recording counter. Only the 0->1
// transition stamps a fresh start time — that is what the watchdog's
// timeout is measured against.
func (m *Manager) BeginSession() {
	prev := m.activeSessions.Add(1) - 1
	if prev == 0 {
		now := time.Now()
		m.startMu.Lock()
		m.startedAt = &now
		m.startMu.Unlock()
	}
}

// EndSession decrements the active-recording counter, refusing to go
// below zero via a CAS loop. The 1->0 transition clears the start time.
func (m *Manager) EndSession() {
	for {
		cur := m.activeSessions.Load()
		if cur == 0 {
			log.Printf("mute: end_session called with active_sessions already 0, ignoring")
			return
		}
		if m.activeSessions.CompareAndSwap(cur, cur-1) {
			if cur == 1 {
				m.startMu.Lock()
				m.startedAt = nil
				m.startMu.Unlock()
			}
			return
		}
	}
}

// MuteOtherApps enumerates render-endpoint audio sessions and mutes every
// one not already muted, not owned by this process, and not the system
// sounds pseudo-session (PID 0). It is additive: repeated calls during
// one recording only add newly appeared apps.
func (m *Manager) MuteOtherApps() (int, error) {
	if !m.IsEnabled() {
		return 0, nil
	}

	sessions, err := enumerateSessions()
	if err != nil {
		return 0, err
	}
	defer releaseAll(sessions)

	m.mu.Lock()
	defer m.mu.Unlock()

	muted := 0
	for _, s := range sessions {
		if s.pid == m.ownPID || s.pid == 0 {
			continue
		}
		if _, already := m.mutedPIDs[s.pid]; already {
			continue
		}

		isMuted, err := s.getMute()
		if err != nil {
			continue
		}
		if isMuted {
			// Already muted by the user externally; don't track it, so
			// restore never un-mutes something we didn't mute.
			continue
		}

		if err := s.setMute(true); err == nil {
			m.mutedPIDs[s.pid] = struct{}{}
			muted++
		}
	}
	return muted, nil
}

// RestoreVolumes un-mutes every PID this manager muted. Any PID that
// disappears from the live enumeration (the owning process exited while
// muted) is dropped from the tracked set as a zombie. Restoration aborts
// mid-loop if a new recording starts concurrently — leaving the
// remaining apps muted is the correct outcome in that race.
func (m *Manager) RestoreVolumes() (int, error) {
	return m.restoreVolumesInternal()
}

func (m *Manager) restoreVolumesInternal() (int, error) {
	m.mu.Lock()
	pending := make(map[uint32]struct{}, len(m.mutedPIDs))
	for pid := range m.mutedPIDs {
		pending[pid] = struct{}{}
	}
	m.mu.Unlock()

	if len(pending) == 0 {
		return 0, nil
	}

	sessions, err := enumerateSessions()
	if err != nil {
		return 0, err
	}
	defer releaseAll(sessions)

	restored := 0
	for _, s := range sessions {
		if m.activeSessions.Load() > 0 {
			return restored, nil
		}

		if _, wanted := pending[s.pid]; !wanted {
			continue
		}
		delete(pending, s.pid)

		if err := s.setMute(false); err == nil {
			m.mu.Lock()
			delete(m.mutedPIDs, s.pid)
			m.mu.Unlock()
			restored++
		}
	}

	// Anything left in pending never appeared in the live enumeration:
	// its owning process exited while muted. Drop the zombie PID so the
	// watchdog does not spin forever on an unreachable target.
	if len(pending) > 0 {
		m.mu.Lock()
		for pid := range pending {
			delete(m.mutedPIDs, pid)
		}
		m.mu.Unlock()
	}

	return restored, nil
}

func releaseAll(sessions []*wasapiSession) {
	for _, s := range sessions {
		s.release()
	}
}

// StopWatchdog halts the watchdog goroutine; call once at process exit.
func (m *Manager) StopWatchdog() {
	close(m.watchdogStop)
	<-m.watchdogDone
}

func (m *Manager) watchdog() {
	defer close(m.watchdogDone)

	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.watchdogStop:
			return
		case <-ticker.C:
			m.watchdogTick()
		}
	}
}

func (m *Manager) watchdogTick() {
	if !m.IsEnabled() {
		return
	}

	m.startMu.Lock()
	started := m.startedAt
	m.startMu.Unlock()

	if started != nil && time.Since(*started) > sessionTimeout && m.activeSessions.Load() > 0 {
		log.Printf("mute: CRITICAL recording session exceeded %s, forcing volume restore", sessionTimeout)
		m.activeSessions.Store(0)
		m.startMu.Lock()
		m.startedAt = nil
		m.startMu.Unlock()
	}

	if m.activeSessions.Load() != 0 {
		return
	}

	m.mu.Lock()
	hasMuted := len(m.mutedPIDs) > 0
	m.mu.Unlock()

	if hasMuted {
		if _, err := m.restoreVolumesInternal(); err != nil {
			log.Printf("mute: watchdog restore failed: %v", err)
		}
	}
}
