// Package hub is the session store: the registry of live sessions keyed by
// case-insensitive id, plus the connection-to-session index used to clean up
// on disconnect without scanning every session. The hub only guards the two
// maps; all per-session state is serialized inside each session's own loop.
package hub

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/history"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/session"
)

var ErrSessionExists = errors.New("session already exists")
var ErrSessionNotFound = errors.New("session not found")

type Hub struct {
	log     *zap.Logger
	timings session.Timings
	rec     history.Recorder

	mu       sync.Mutex
	sessions map[string]*session.Session // keyed by lower-cased id
	conns    map[string]string           // connection id -> session key
}

func New(log *zap.Logger, timings session.Timings, rec history.Recorder) *Hub {
	return &Hub{
		log:      log,
		timings:  timings,
		rec:      rec,
		sessions: make(map[string]*session.Session),
		conns:    make(map[string]string),
	}
}

func key(id string) string { return strings.ToLower(id) }

// Create registers a new session with conn as host. A connection still
// occupying another session leaves it first.
func (h *Hub) Create(id, conn string, outbox chan session.Event) (*session.Session, error) {
	h.leavePrevious(conn, key(id))

	h.mu.Lock()
	k := key(id)
	if _, ok := h.sessions[k]; ok {
		h.mu.Unlock()
		return nil, ErrSessionExists
	}
	s := session.New(id, conn, outbox, session.Config{
		Timings:  h.timings,
		Log:      h.log,
		Registry: h,
		Recorder: h.rec,
	})
	h.sessions[k] = s
	h.conns[conn] = k
	h.mu.Unlock()
	return s, nil
}

// Join adds conn to the session with the given id. The index entry is placed
// optimistically; a full session detaches it again. Re-joining the session
// the connection is already in is idempotent and skips the leave-previous
// step.
func (h *Hub) Join(id, conn string, outbox chan session.Event) (*session.Session, error) {
	h.leavePrevious(conn, key(id))

	h.mu.Lock()
	k := key(id)
	s, ok := h.sessions[k]
	if !ok {
		h.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	h.conns[conn] = k
	h.mu.Unlock()

	if !s.Deliver(session.Join{Conn: conn, Outbox: outbox}) {
		// Closed between lookup and delivery.
		h.Detach(conn, id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Leave removes conn from the session with the given id.
func (h *Hub) Leave(conn, id string) {
	if s := h.Lookup(id); s != nil {
		s.Deliver(session.Leave{Conn: conn})
	}
}

// Disconnect folds a transport-level drop into the same cleanup as an
// explicit leave, located through the reverse index.
func (h *Hub) Disconnect(conn string) {
	h.mu.Lock()
	k, ok := h.conns[conn]
	s := h.sessions[k]
	h.mu.Unlock()

	if ok && s != nil {
		s.Deliver(session.Leave{Conn: conn})
	}
}

func (h *Hub) Lookup(id string) *session.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[key(id)]
}

// Tracked reports whether the connection currently occupies any session.
func (h *Hub) Tracked(conn string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[conn]
	return ok
}

// Remove implements session.Registry.
func (h *Hub) Remove(id string, conns ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := key(id)
	delete(h.sessions, k)
	for _, c := range conns {
		if h.conns[c] == k {
			delete(h.conns, c)
		}
	}
}

// Detach implements session.Registry.
func (h *Hub) Detach(conn, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conn] == key(id) {
		delete(h.conns, conn)
	}
}

// Shutdown closes every live session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	all := make([]*session.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		all = append(all, s)
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Deliver(session.Shutdown{})
	}
}

// leavePrevious detaches conn from whatever session it occupies, unless that
// is the one it is about to (re)enter.
func (h *Hub) leavePrevious(conn, nextKey string) {
	h.mu.Lock()
	k, ok := h.conns[conn]
	s := h.sessions[k]
	h.mu.Unlock()

	if ok && k != nextKey && s != nil {
		s.Deliver(session.Leave{Conn: conn})
	}
}
