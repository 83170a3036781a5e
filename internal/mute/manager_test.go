package mute

import "testing"

// TestSessionCounterMatchedPairs exercises spec.md section 8's invariant:
// after any interleaving of begin/end calls with matched counts, the
// active-session counter returns to zero.
func TestSessionCounterMatchedPairs(t *testing.T) {
	m := New(false)
	defer m.StopWatchdog()

	m.BeginSession()
	m.BeginSession()
	m.BeginSession()
	if got := m.activeSessions.Load(); got != 3 {
		t.Fatalf("active sessions = %d, want 3", got)
	}

	m.EndSession()
	m.EndSession()
	m.EndSession()
	if got := m.activeSessions.Load(); got != 0 {
		t.Fatalf("active sessions = %d, want 0", got)
	}
}

// TestEndSessionNeverGoesNegative guards the CAS loop's floor: an extra
// end_session call beyond matched begins must not wrap the counter.
func TestEndSessionNeverGoesNegative(t *testing.T) {
	m := New(false)
	defer m.StopWatchdog()

	m.BeginSession()
	m.EndSession()
	m.EndSession() // extra, unmatched call
	if got := m.activeSessions.Load(); got != 0 {
		t.Fatalf("active sessions = %d, want 0 (must not wrap)", got)
	}
}

// TestBeginSessionStampsOnlyOnZeroToOneTransition verifies only the first
// concurrent session stamps last_session_start, per spec.md section 4.6.
func TestBeginSessionStampsOnlyOnZeroToOneTransition(t *testing.T) {
	m := New(false)
	defer m.StopWatchdog()

	m.BeginSession()
	m.startMu.Lock()
	first := m.startedAt
	m.startMu.Unlock()
	if first == nil {
		t.Fatalf("expected startedAt to be set on 0->1 transition")
	}

	m.BeginSession()
	m.startMu.Lock()
	second := m.startedAt
	m.startMu.Unlock()
	if second != first {
		t.Fatalf("startedAt must not change on a non-0->1 BeginSession")
	}

	m.EndSession()
	m.EndSession()
	m.startMu.Lock()
	cleared := m.startedAt
	m.startMu.Unlock()
	if cleared != nil {
		t.Fatalf("expected startedAt cleared on 1->0 transition")
	}
}
