package hotkeys

import "testing"

type countingHandler struct {
	started, stopped       int
	lockStarted, lockCanceled int
}

func (h *countingHandler) OnStart(Trigger)      { h.started++ }
func (h *countingHandler) OnStop(Trigger)       { h.stopped++ }
func (h *countingHandler) OnLockStart(Trigger)  { h.lockStarted++ }
func (h *countingHandler) OnLockCancel(Trigger) { h.lockCanceled++ }

// withKeys stubs keyDown for the duration of fn, restoring the previous
// implementation afterward.
func withKeys(down map[VK]bool, fn func()) {
	prev := keyDown
	keyDown = func(vk VK) bool { return down[vk] }
	defer func() { keyDown = prev }()
	fn()
}

func newTestManager(h Handler, mode Mode) *Manager {
	cfg := DualConfig{
		Dictation: Config{Keys: []VK{VkLControl}, Mode: mode},
		Assistant: Config{Keys: []VK{VkLMenu}, Mode: mode},
	}
	m := NewManager(cfg, h)
	m.skipFirstPoll = false // tests drive tick() directly, not via Start's poll loop
	return m
}

// TestPressModeStartedStoppedBalance guards spec.md section 8's invariant:
// for Press mode, recordings_started == recordings_stopped once the
// sequence ends with all keys up.
func TestPressModeStartedStoppedBalance(t *testing.T) {
	h := &countingHandler{}
	m := newTestManager(h, ModePress)

	withKeys(map[VK]bool{VkLControl: true}, m.tick)  // rising edge: start
	withKeys(map[VK]bool{VkLControl: true}, m.tick)  // held: no-op
	withKeys(map[VK]bool{}, m.tick)                  // falling edge: stop

	if h.started != 1 || h.stopped != 1 {
		t.Fatalf("started=%d stopped=%d, want 1/1", h.started, h.stopped)
	}
}

// TestToggleModeInvariant guards spec.md section 8: for Toggle mode,
// started - stopped is always in {0, 1}.
func TestToggleModeInvariant(t *testing.T) {
	h := &countingHandler{}
	m := newTestManager(h, ModeToggle)

	check := func() {
		diff := h.started - h.stopped
		if diff != 0 && diff != 1 {
			t.Fatalf("started-stopped = %d, want 0 or 1", diff)
		}
	}

	withKeys(map[VK]bool{VkLControl: true}, m.tick) // toggle on
	check()
	withKeys(map[VK]bool{}, m.tick) // key up: ignored in toggle mode
	check()
	withKeys(map[VK]bool{VkLControl: true}, m.tick) // toggle off
	check()
	withKeys(map[VK]bool{}, m.tick)
	check()

	if h.started != 1 || h.stopped != 1 {
		t.Fatalf("started=%d stopped=%d, want 1/1 after one full toggle cycle", h.started, h.stopped)
	}
}

// TestStrictMatchRejectsExtraModifier verifies an unrelated modifier held
// down breaks the strict match, per spec.md section 4.4.
func TestStrictMatchRejectsExtraModifier(t *testing.T) {
	h := &countingHandler{}
	m := newTestManager(h, ModePress)

	withKeys(map[VK]bool{VkLControl: true, VkLShift: true}, m.tick)
	if h.started != 0 {
		t.Fatalf("started=%d, want 0 (extra modifier must block strict match)", h.started)
	}
}

// TestReentrancyGuardIgnoresOtherConfig verifies that while dictation is
// recording, an assistant hotkey press is ignored.
func TestReentrancyGuardIgnoresOtherConfig(t *testing.T) {
	h := &countingHandler{}
	m := newTestManager(h, ModePress)

	withKeys(map[VK]bool{VkLControl: true}, m.tick) // start dictation
	withKeys(map[VK]bool{VkLControl: true, VkLMenu: true}, m.tick) // both down: the extra modifier breaks both strict matches, so assistant never starts

	if h.started != 1 {
		t.Fatalf("started=%d, want 1", h.started)
	}
}

// TestArbitrationPriorityReleaseLockOverDictation verifies release-lock
// wins when both configs go down on the same poll.
func TestArbitrationPriorityReleaseLockOverDictation(t *testing.T) {
	h := &countingHandler{}
	cfg := DualConfig{
		Dictation:   Config{Keys: []VK{VkLControl}, Mode: ModePress},
		Assistant:   Config{Keys: []VK{VkLMenu}, Mode: ModePress},
		ReleaseLock: &Config{Keys: []VK{VkLControl, VkF2}},
	}
	m := NewManager(cfg, h)
	m.skipFirstPoll = false

	withKeys(map[VK]bool{VkF2: true, VkLControl: true}, m.tick)

	if h.lockStarted != 1 || h.started != 0 {
		t.Fatalf("lockStarted=%d started=%d, want 1/0", h.lockStarted, h.started)
	}
}

// TestReleaseLockSecondPressCancels verifies a second tap of the
// release-lock hotkey cancels rather than starting a new recording.
func TestReleaseLockSecondPressCancels(t *testing.T) {
	h := &countingHandler{}
	cfg := DualConfig{
		Dictation:   Config{Keys: []VK{VkLControl}, Mode: ModePress},
		Assistant:   Config{Keys: []VK{VkLMenu}, Mode: ModePress},
		ReleaseLock: &Config{Keys: []VK{VkF2}},
	}
	m := NewManager(cfg, h)
	m.skipFirstPoll = false

	withKeys(map[VK]bool{VkF2: true}, m.tick) // start locked
	withKeys(map[VK]bool{}, m.tick)           // release: must NOT stop
	withKeys(map[VK]bool{VkF2: true}, m.tick) // second press: cancel

	if h.lockStarted != 1 || h.lockCanceled != 1 || h.stopped != 0 {
		t.Fatalf("lockStarted=%d lockCanceled=%d stopped=%d, want 1/1/0", h.lockStarted, h.lockCanceled, h.stopped)
	}
}

// TestSkipFirstPollDiscardsSpuriousStart verifies a hotkey already held
// down when the service activates does not trigger a start.
func TestSkipFirstPollDiscardsSpuriousStart(t *testing.T) {
	h := &countingHandler{}
	cfg := DualConfig{
		Dictation: Config{Keys: []VK{VkLControl}, Mode: ModePress},
		Assistant: Config{Keys: []VK{VkLMenu}, Mode: ModePress},
	}
	m := NewManager(cfg, h)
	m.skipFirstPoll = true // as Start() sets it

	withKeys(map[VK]bool{VkLControl: true}, m.tick)
	if h.started != 0 {
		t.Fatalf("started=%d, want 0 on first poll after activation", h.started)
	}

	withKeys(map[VK]bool{VkLControl: true}, m.tick) // still down, not a rising edge anymore
	if h.started != 0 {
		t.Fatalf("started=%d, want 0 (no edge without a release first)", h.started)
	}
}
