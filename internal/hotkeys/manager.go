// Package hotkeys polls Win32 key state every 10ms to detect a small,
// explicitly configured set of global hotkeys — dictation, assistant, and
// an optional release-lock variant — without installing a system-wide
// keyboard hook. Strict modifier matching, dual-hotkey arbitration, and
// three interaction modes (press, toggle, release-lock) are implemented
// directly from spec.md section 4.4, since the teacher's own hotkey
// manager is CGo/macOS-specific and has no Windows analogue to adapt.
package hotkeys

import (
	"sync"
	"sync/atomic"
	"time"
)

const pollInterval = 10 * time.Millisecond

// keyDown is swapped out in tests to simulate key states without depending
// on GetAsyncKeyState, which is a no-op outside Windows.
var keyDown = isDown

// Mode is a hotkey's interaction mode.
type Mode int

const (
	ModePress Mode = iota
	ModeToggle
)

// Config is one configured hotkey chord.
type Config struct {
	Keys []VK
	Mode Mode
}

// DualConfig names the two primary hotkeys plus the dictation-only
// release-lock variant.
type DualConfig struct {
	Dictation     Config
	Assistant     Config
	ReleaseLock   *Config // nil if release-lock is not configured
}

// Validate enforces non-empty, non-identical key lists, per spec.md's
// HotkeyConfig invariant.
func (c DualConfig) Validate() error {
	if len(c.Dictation.Keys) == 0 || len(c.Assistant.Keys) == 0 {
		return errEmptyKeys
	}
	if sameKeys(c.Dictation.Keys, c.Assistant.Keys) {
		return errIdenticalKeys
	}
	return nil
}

var (
	errEmptyKeys     = configError("hotkeys: hotkey key list must not be empty")
	errIdenticalKeys = configError("hotkeys: dictation and assistant hotkeys must differ")
)

type configError string

func (e configError) Error() string { return string(e) }

func sameKeys(a, b []VK) bool {
	if len(a) != len(b) {
		return false
	}
	setA := make(map[VK]bool, len(a))
	for _, k := range a {
		setA[k] = true
	}
	for _, k := range b {
		if !setA[k] {
			return false
		}
	}
	return true
}

// Trigger names which configuration produced an edge.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerDictation
	TriggerAssistant
	TriggerReleaseLock
)

// Handler receives hotkey edges. OnStart/OnStop correspond to Press/Toggle
// semantics; OnLockStart/OnLockCancel correspond to release-lock mode, and
// FinishLocked completes a locked recording through OnStop.
type Handler interface {
	OnStart(trigger Trigger)
	OnStop(trigger Trigger)
	OnLockStart(trigger Trigger)
	OnLockCancel(trigger Trigger)
}

// Manager runs the single poll thread and owns the recording-state
// reentrancy guard described in spec.md section 4.4.
type Manager struct {
	config  DualConfig
	handler Handler

	isActive atomic.Bool
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu                   sync.Mutex
	wasDictationDown     bool
	wasAssistantDown     bool
	wasReleaseLockDown   bool
	toggleDictationOn    bool
	toggleAssistantOn    bool
	isRecording          bool
	isLocked             bool
	activeTrigger        Trigger
	skipFirstPoll        bool
}

// NewManager constructs a Manager bound to config and handler. The
// manager does not start polling until Start is called.
func NewManager(config DualConfig, handler Handler) *Manager {
	return &Manager{
		config:  config,
		handler: handler,
		stopCh:  make(chan struct{}),
	}
}

// Start spawns the poll-loop goroutine. The edges observed on the very
// first tick are discarded (skipFirstPoll) to avoid a spurious start if a
// hotkey happens to already be held down when the service activates.
func (m *Manager) Start() {
	m.mu.Lock()
	m.skipFirstPoll = true
	m.mu.Unlock()

	m.isActive.Store(true)
	m.wg.Add(1)
	go m.pollLoop()
}

// Deactivate clears all state without terminating the polling goroutine,
// per spec.md's "avoid thread teardown latency on configuration reload".
// Reactivate resumes polling, optionally with a new configuration.
func (m *Manager) Deactivate() {
	m.isActive.Store(false)
	m.mu.Lock()
	m.wasDictationDown = false
	m.wasAssistantDown = false
	m.wasReleaseLockDown = false
	m.toggleDictationOn = false
	m.toggleAssistantOn = false
	m.isRecording = false
	m.isLocked = false
	m.activeTrigger = TriggerNone
	m.mu.Unlock()
}

// Reactivate resumes polling after Deactivate, discarding the next edge
// exactly as Start does.
func (m *Manager) Reactivate(config DualConfig) {
	m.mu.Lock()
	m.config = config
	m.skipFirstPoll = true
	m.mu.Unlock()
	m.isActive.Store(true)
}

// Stop halts the poll-loop goroutine permanently.
func (m *Manager) Stop() {
	m.isActive.Store(false)
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Manager) pollLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if m.isActive.Load() {
				m.tick()
			}
		}
	}
}

// strictDown reports whether every key in keys reads as down and no
// modifier outside keys is down, per spec.md's strict-match rule.
func strictDown(keys []VK) bool {
	if len(keys) == 0 {
		return false
	}
	allowed := make(map[VK]bool, len(keys))
	for _, k := range keys {
		allowed[k] = true
		if group, ok := modifierGroup(k); ok {
			allowed[group[0]] = true
			allowed[group[1]] = true
		}
	}

	for _, k := range keys {
		if !keyDown(k) {
			return false
		}
	}

	for mod := range allModifiers {
		if allowed[mod] {
			continue
		}
		if keyDown(mod) {
			return false
		}
	}
	return true
}

func (m *Manager) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	dictDown := strictDown(m.config.Dictation.Keys)
	assistDown := strictDown(m.config.Assistant.Keys)
	var lockDown bool
	if m.config.ReleaseLock != nil {
		lockDown = strictDown(m.config.ReleaseLock.Keys)
	}

	dictRising := dictDown && !m.wasDictationDown
	assistRising := assistDown && !m.wasAssistantDown
	lockRising := lockDown && !m.wasReleaseLockDown

	dictFalling := !dictDown && m.wasDictationDown
	assistFalling := !assistDown && m.wasAssistantDown

	m.wasDictationDown = dictDown
	m.wasAssistantDown = assistDown
	m.wasReleaseLockDown = lockDown

	if m.skipFirstPoll {
		m.skipFirstPoll = false
		return
	}

	// Reentrancy guard: while a recording (locked or not) is in flight,
	// only edges matching the originally-triggered configuration's stop
	// semantics can end it.
	if m.isRecording || m.isLocked {
		m.handleWhileActive(dictRising, assistRising, lockRising, dictFalling, assistFalling)
		return
	}

	// Arbitration priority when multiple configs go down on the same
	// poll: release-lock > dictation > assistant.
	switch {
	case lockRising:
		m.isLocked = true
		m.activeTrigger = TriggerReleaseLock
		m.handler.OnLockStart(TriggerReleaseLock)
	case dictRising:
		m.startForConfig(TriggerDictation, m.config.Dictation.Mode)
	case assistRising:
		m.startForConfig(TriggerAssistant, m.config.Assistant.Mode)
	}
}

func (m *Manager) startForConfig(trigger Trigger, mode Mode) {
	m.activeTrigger = trigger
	m.isRecording = true
	if mode == ModeToggle {
		if trigger == TriggerDictation {
			m.toggleDictationOn = true
		} else {
			m.toggleAssistantOn = true
		}
	}
	m.handler.OnStart(trigger)
}

func (m *Manager) handleWhileActive(dictRising, assistRising, lockRising, dictFalling, assistFalling bool) {
	switch m.activeTrigger {
	case TriggerReleaseLock:
		if lockRising {
			// A second press of the release-lock hotkey cancels.
			m.isLocked = false
			m.activeTrigger = TriggerNone
			m.handler.OnLockCancel(TriggerReleaseLock)
		}
		// dictation/assistant edges mid-lock are ignored: a different
		// configuration pressed mid-recording does not interrupt it.
	case TriggerDictation:
		m.endIfMatched(TriggerDictation, m.config.Dictation.Mode, dictRising, dictFalling, &m.toggleDictationOn)
	case TriggerAssistant:
		m.endIfMatched(TriggerAssistant, m.config.Assistant.Mode, assistRising, assistFalling, &m.toggleAssistantOn)
	}
}

func (m *Manager) endIfMatched(trigger Trigger, mode Mode, rising, falling bool, toggleOn *bool) {
	switch mode {
	case ModePress:
		if falling {
			m.isRecording = false
			m.activeTrigger = TriggerNone
			m.handler.OnStop(trigger)
		}
	case ModeToggle:
		if rising {
			*toggleOn = false
			m.isRecording = false
			m.activeTrigger = TriggerNone
			m.handler.OnStop(trigger)
		}
	}
}

// FinishLocked completes a release-lock recording via a software command
// (the recording overlay's "finish" button), per spec.md section 4.4.
func (m *Manager) FinishLocked() {
	m.mu.Lock()
	if !m.isLocked {
		m.mu.Unlock()
		return
	}
	m.isLocked = false
	trigger := m.activeTrigger
	m.activeTrigger = TriggerNone
	m.mu.Unlock()

	m.handler.OnStop(trigger)
}

// CancelLocked cancels a release-lock recording via a software command,
// without emitting OnStop (the caller's cancellation path emits
// transcription_cancelled instead).
func (m *Manager) CancelLocked() {
	m.mu.Lock()
	if !m.isLocked {
		m.mu.Unlock()
		return
	}
	m.isLocked = false
	trigger := m.activeTrigger
	m.activeTrigger = TriggerNone
	m.mu.Unlock()

	m.handler.OnLockCancel(trigger)
}
