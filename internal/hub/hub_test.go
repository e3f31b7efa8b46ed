package hub

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/session"
)

func testHub() *Hub {
	timings := session.Timings{Join: time.Second, Move: time.Second, Start: 10 * time.Millisecond}
	return New(zap.NewNop(), timings, nil)
}

func recvEvent(t *testing.T, ch <-chan session.Event, et session.EventType, within time.Duration) session.Event {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case evt := <-ch:
			if evt.Type == et {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", et)
			return session.Event{} // unreachable
		}
	}
}

func recvNoEvent(t *testing.T, ch <-chan session.Event, et session.EventType, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case evt := <-ch:
			if evt.Type == et {
				t.Fatalf("expected no %s within %v, but got one", et, within)
			}
		case <-deadline:
			return
		}
	}
}

func waitDone(t *testing.T, s *session.Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not close")
	}
}

func TestHub_CreateRejectsDuplicateCaseInsensitive(t *testing.T) {
	h := testHub()
	out := make(chan session.Event, 16)

	if _, err := h.Create("GameX", "host", out); err != nil {
		t.Fatalf("create: %v", err)
	}

	other := make(chan session.Event, 16)
	_, err := h.Create("gamex", "other", other)
	if !errors.Is(err, ErrSessionExists) {
		t.Fatalf("duplicate create: want ErrSessionExists, got %v", err)
	}
}

func TestHub_CreateSucceedsAfterDeletion(t *testing.T) {
	h := testHub()
	out := make(chan session.Event, 16)

	s, err := h.Create("GameX", "host", out)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The lone host leaving empties and removes the session.
	h.Leave("host", "GameX")
	waitDone(t, s)

	if h.Lookup("gamex") != nil {
		t.Fatalf("session still registered after close")
	}
	if h.Tracked("host") {
		t.Fatalf("connection still indexed after close")
	}
	if _, err := h.Create("gamex", "host2", make(chan session.Event, 16)); err != nil {
		t.Fatalf("re-create after deletion: %v", err)
	}
}

func TestHub_JoinUnknownSession(t *testing.T) {
	h := testHub()
	_, err := h.Join("NOSUCH", "guest", make(chan session.Event, 16))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("join unknown: want ErrSessionNotFound, got %v", err)
	}
	if h.Tracked("guest") {
		t.Fatalf("failed join must not leave an index entry")
	}
}

func TestHub_JoinIsCaseInsensitive(t *testing.T) {
	h := testHub()
	hostOut := make(chan session.Event, 16)
	guestOut := make(chan session.Event, 16)

	if _, err := h.Create("GameX", "host", hostOut); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.Join("gAmEx", "guest", guestOut); err != nil {
		t.Fatalf("join: %v", err)
	}
	if evt := recvEvent(t, guestOut, session.EvtParticipantNumber, time.Second); evt.Number != 2 {
		t.Fatalf("guest number: want 2, got %d", evt.Number)
	}
}

// departSurvivorEvents pairs two connections, drops the guest through depart,
// and returns the survivor's MembershipChanged count plus whether OpponentLeft
// arrived exactly once. Leave and Disconnect must produce the same picture.
func departSurvivorEvents(t *testing.T, depart func(h *Hub)) (int, bool) {
	t.Helper()
	h := testHub()
	hostOut := make(chan session.Event, 16)
	guestOut := make(chan session.Event, 16)

	if _, err := h.Create("GameX", "host", hostOut); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.Join("GameX", "guest", guestOut); err != nil {
		t.Fatalf("join: %v", err)
	}
	recvEvent(t, hostOut, session.EvtMatchStart, time.Second)

	depart(h)

	count := recvEvent(t, hostOut, session.EvtMembershipChanged, time.Second).Count
	recvEvent(t, hostOut, session.EvtOpponentLeft, time.Second)
	recvNoEvent(t, hostOut, session.EvtOpponentLeft, 100*time.Millisecond)

	if h.Tracked("guest") {
		t.Fatalf("departed connection still indexed")
	}
	if h.Lookup("GameX") == nil {
		t.Fatalf("session should survive with one participant")
	}
	return count, true
}

func TestHub_LeaveAndDisconnectAreEquivalent(t *testing.T) {
	leaveCount, leaveOnce := departSurvivorEvents(t, func(h *Hub) { h.Leave("guest", "GameX") })
	dropCount, dropOnce := departSurvivorEvents(t, func(h *Hub) { h.Disconnect("guest") })

	if leaveCount != 1 || dropCount != 1 {
		t.Fatalf("membership counts after departure: want 1 and 1, got %d and %d", leaveCount, dropCount)
	}
	if !leaveOnce || !dropOnce {
		t.Fatalf("survivor must see OpponentLeft exactly once on both paths")
	}
}

func TestHub_DisconnectUntrackedIsNoop(t *testing.T) {
	h := testHub()
	h.Disconnect("stranger") // must not panic or mutate anything
	if h.Tracked("stranger") {
		t.Fatalf("untracked disconnect created an index entry")
	}
}

func TestHub_CreateLeavesPreviousSession(t *testing.T) {
	h := testHub()
	out := make(chan session.Event, 16)

	first, err := h.Create("FIRST", "host", out)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := h.Create("SECOND", "host", out); err != nil {
		t.Fatalf("create second: %v", err)
	}

	// The lone host moving on empties the first session, which closes.
	waitDone(t, first)
	if h.Lookup("FIRST") != nil {
		t.Fatalf("abandoned session still registered")
	}
	if h.Lookup("SECOND") == nil {
		t.Fatalf("new session missing")
	}
}

func TestHub_ShutdownClosesAllSessions(t *testing.T) {
	h := testHub()
	a, _ := h.Create("AAA", "c1", make(chan session.Event, 16))
	b, _ := h.Create("BBB", "c2", make(chan session.Event, 16))

	h.Shutdown()
	waitDone(t, a)
	waitDone(t, b)
}
