// Package session runs one event loop per two-player session. Everything a
// session owns (membership, the choices pending for the current round, the
// phase, its timers) is mutated only inside that loop, so intents for the
// same session never interleave. Timers are the only spontaneous input;
// every fire is validated against a generation counter and the condition it
// was armed to watch, so a stale fire is a no-op.
package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/game"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/history"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/metrics"
)

type Phase string

const (
	PhaseAwaitingGuest Phase = "awaiting_guest"
	PhaseActive        Phase = "active"
	PhaseClosed        Phase = "closed"
)

// Registry is the slice of the session store a session needs to clean up
// after itself.
type Registry interface {
	// Remove drops the session from the store along with any index entries
	// the given connections still hold.
	Remove(id string, conns ...string)
	// Detach removes conn's index entry if it still points at this session.
	Detach(conn, id string)
}

type EventType string

const (
	EvtSessionCreated    EventType = "SessionCreated"
	EvtParticipantNumber EventType = "ParticipantNumber"
	EvtMembershipChanged EventType = "MembershipChanged"
	EvtSessionFull       EventType = "SessionFull"
	EvtSessionNotFound   EventType = "SessionNotFound"
	EvtSessionExists     EventType = "SessionAlreadyExists"
	EvtMatchStart        EventType = "MatchStart"
	EvtRoundResolved     EventType = "RoundResolved"
	EvtMoveTimedOut      EventType = "MoveTimedOut"
	EvtSessionExpired    EventType = "SessionExpired"
	EvtOpponentLeft      EventType = "OpponentLeft"
	EvtSessionState      EventType = "SessionState"
	EvtError             EventType = "Error"
)

// Event is one outbound notification for a participant.
type Event struct {
	Type      EventType
	SessionID string
	Number    int
	Count     int
	Moves     map[int]game.Choice
	Result    game.Outcome
	Started   bool
	Message   string
}

type Msg interface{ isSessionMsg() }

type Join struct {
	Conn   string
	Outbox chan Event
}

type Leave struct{ Conn string }

type Submit struct {
	Conn   string
	Outbox chan Event
	Choice game.Choice
}

type QueryState struct {
	Conn   string
	Outbox chan Event
}

type Shutdown struct{}

// GetState reflects internal state without data races; test use only.
type GetState struct{ Reply chan View }

type View struct {
	Phase        Phase
	Participants int
	Pending      int
	Started      bool
	Numbers      map[string]int
}

func (Join) isSessionMsg()       {}
func (Leave) isSessionMsg()      {}
func (Submit) isSessionMsg()     {}
func (QueryState) isSessionMsg() {}
func (Shutdown) isSessionMsg()   {}
func (GetState) isSessionMsg()   {}

type timerFired struct {
	purpose timerPurpose
	gen     uint64
}

func (timerFired) isSessionMsg() {}

type timerPurpose int

const (
	timerJoin timerPurpose = iota
	timerMove
	timerStart
)

type timer struct {
	gen uint64
	t   *time.Timer
}

type Timings struct {
	Join  time.Duration // how long a lone host waits for a guest
	Move  time.Duration // how long the second choice of a round may lag
	Start time.Duration // settle delay before MatchStart
}

func DefaultTimings() Timings {
	return Timings{Join: 60 * time.Second, Move: 30 * time.Second, Start: time.Second}
}

type participant struct {
	conn   string
	number int
	outbox chan Event
}

type Config struct {
	Timings  Timings
	Log      *zap.Logger
	Registry Registry
	Recorder history.Recorder // may be nil
}

type Session struct {
	id    string
	inbox chan Msg
	done  chan struct{}

	reg     Registry
	rec     history.Recorder
	log     *zap.Logger
	timings Timings

	phase        Phase
	participants []participant
	choices      map[int]game.Choice
	started      bool
	createdAt    time.Time

	timers [3]timer
}

// New registers the host as participant 1, announces the session to it, arms
// the join deadline and starts the loop.
func New(id, hostConn string, hostOutbox chan Event, cfg Config) *Session {
	s := &Session{
		id:           id,
		inbox:        make(chan Msg, 64),
		done:         make(chan struct{}),
		reg:          cfg.Registry,
		rec:          cfg.Recorder,
		log:          cfg.Log.With(zap.String("session_id", id)),
		timings:      cfg.Timings,
		phase:        PhaseAwaitingGuest,
		participants: []participant{{conn: hostConn, number: 1, outbox: hostOutbox}},
		choices:      make(map[int]game.Choice),
		createdAt:    time.Now(),
	}

	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.Inc()

	s.emit(hostOutbox, Event{Type: EvtSessionCreated, SessionID: id})
	s.emit(hostOutbox, Event{Type: EvtParticipantNumber, SessionID: id, Number: 1})
	s.emit(hostOutbox, Event{Type: EvtMembershipChanged, SessionID: id, Count: 1})
	s.arm(timerJoin, s.timings.Join)

	s.log.Info("session created", zap.String("host", hostConn))
	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Deliver hands a message to the loop; false means the session has closed.
func (s *Session) Deliver(m Msg) bool {
	select {
	case s.inbox <- m:
		return true
	case <-s.done:
		return false
	}
}

// Done is closed when the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) loop() {
	for m := range s.inbox {
		var stop bool
		switch msg := m.(type) {
		case Join:
			s.handleJoin(msg)
		case Leave:
			stop = s.handleLeave(msg)
		case Submit:
			s.handleSubmit(msg)
		case QueryState:
			s.emit(msg.Outbox, Event{Type: EvtSessionState, SessionID: s.id, Started: s.started})
		case timerFired:
			stop = s.handleTimer(msg)
		case GetState:
			msg.Reply <- s.view()
		case Shutdown:
			stop = true
			s.close()
		}
		if stop {
			return
		}
	}
}

func (s *Session) handleJoin(msg Join) {
	if p, ok := s.find(msg.Conn); ok {
		// Idempotent re-join: same number, membership untouched.
		s.emit(p.outbox, Event{Type: EvtParticipantNumber, SessionID: s.id, Number: p.number})
		s.broadcast(Event{Type: EvtMembershipChanged, SessionID: s.id, Count: len(s.participants)})
		return
	}

	if len(s.participants) >= 2 {
		s.emit(msg.Outbox, Event{Type: EvtSessionFull, SessionID: s.id})
		s.reg.Detach(msg.Conn, s.id)
		return
	}

	n := s.freeNumber()
	s.participants = append(s.participants, participant{conn: msg.Conn, number: n, outbox: msg.Outbox})
	s.cancel(timerJoin)
	s.phase = PhaseActive

	s.emit(msg.Outbox, Event{Type: EvtParticipantNumber, SessionID: s.id, Number: n})
	s.broadcast(Event{Type: EvtMembershipChanged, SessionID: s.id, Count: 2})

	// MatchStart goes out once per session, after a short settle delay so
	// both clients finish subscribing first.
	if !s.started {
		s.arm(timerStart, s.timings.Start)
	}
	s.log.Info("session paired", zap.String("guest", msg.Conn), zap.Int("number", n))
}

func (s *Session) handleLeave(msg Leave) bool {
	p, ok := s.find(msg.Conn)
	if !ok {
		// Explicit leave and transport disconnect both land here, possibly
		// twice; repeats are no-ops.
		return false
	}

	remaining := s.participants[:0]
	for _, q := range s.participants {
		if q.conn != msg.Conn {
			remaining = append(remaining, q)
		}
	}
	s.participants = remaining
	s.reg.Detach(msg.Conn, s.id)
	s.log.Info("participant left", zap.String("conn", msg.Conn), zap.Int("number", p.number))

	if len(s.participants) == 0 {
		s.close()
		return true
	}

	// The round in progress cannot complete anymore; abandon it.
	s.choices = make(map[int]game.Choice)
	s.cancel(timerMove)

	s.broadcast(Event{Type: EvtMembershipChanged, SessionID: s.id, Count: 1})
	if s.started {
		s.broadcast(Event{Type: EvtOpponentLeft, SessionID: s.id})
	}
	return false
}

func (s *Session) handleSubmit(msg Submit) {
	p, ok := s.find(msg.Conn)
	if !ok || len(s.participants) < 2 {
		// Unpaired move: tell the sender its opponent is gone.
		s.emit(msg.Outbox, Event{Type: EvtOpponentLeft, SessionID: s.id})
		return
	}

	// Last write wins per participant until the round resolves.
	s.choices[p.number] = msg.Choice

	if len(s.choices) < 2 {
		s.arm(timerMove, s.timings.Move)
		return
	}

	moves := s.choices
	result := game.Resolve(moves[1], moves[2])
	s.choices = make(map[int]game.Choice)
	s.cancel(timerMove)

	s.broadcast(Event{Type: EvtRoundResolved, SessionID: s.id, Moves: moves, Result: result})
	metrics.RoundsResolved.WithLabelValues(string(result)).Inc()
	if s.rec != nil {
		s.rec.RecordRound(s.id, moves[1], moves[2], result)
	}
	s.log.Debug("round resolved",
		zap.String("p1", string(moves[1])),
		zap.String("p2", string(moves[2])),
		zap.String("result", string(result)))
}

func (s *Session) handleTimer(msg timerFired) bool {
	if msg.gen != s.timers[msg.purpose].gen {
		// Superseded before it fired.
		return false
	}

	switch msg.purpose {
	case timerJoin:
		if len(s.participants) >= 2 {
			return false
		}
		metrics.Timeouts.WithLabelValues("join").Inc()
		s.broadcast(Event{Type: EvtSessionExpired, SessionID: s.id})
		s.log.Info("join deadline elapsed")
		s.close()
		return true

	case timerMove:
		if len(s.choices) >= 2 {
			return false
		}
		metrics.Timeouts.WithLabelValues("move").Inc()
		s.choices = make(map[int]game.Choice)
		s.broadcast(Event{Type: EvtMoveTimedOut, SessionID: s.id})
		s.log.Info("move deadline elapsed")

	case timerStart:
		if len(s.participants) < 2 || s.started {
			return false
		}
		s.started = true
		s.broadcast(Event{Type: EvtMatchStart, SessionID: s.id})
		s.log.Info("match started")
	}
	return false
}

func (s *Session) close() {
	s.phase = PhaseClosed
	for p := range s.timers {
		s.cancel(timerPurpose(p))
	}
	conns := make([]string, 0, len(s.participants))
	for _, p := range s.participants {
		conns = append(conns, p.conn)
	}
	s.reg.Remove(s.id, conns...)
	metrics.SessionsActive.Dec()
	close(s.done)
	s.log.Info("session closed")
}

func (s *Session) find(conn string) (participant, bool) {
	for _, p := range s.participants {
		if p.conn == conn {
			return p, true
		}
	}
	return participant{}, false
}

// freeNumber returns the participant number not currently taken. Numbers are
// assigned at join time and never rebound, so a surviving guest keeps 2 and
// a later joiner takes 1.
func (s *Session) freeNumber() int {
	for _, p := range s.participants {
		if p.number == 1 {
			return 2
		}
	}
	return 1
}

func (s *Session) arm(p timerPurpose, d time.Duration) {
	t := &s.timers[p]
	t.gen++
	if t.t != nil {
		t.t.Stop()
	}
	gen := t.gen
	t.t = time.AfterFunc(d, func() {
		select {
		case s.inbox <- timerFired{purpose: p, gen: gen}:
		case <-s.done:
		}
	})
}

func (s *Session) cancel(p timerPurpose) {
	t := &s.timers[p]
	t.gen++
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
}

func (s *Session) broadcast(evt Event) {
	for _, p := range s.participants {
		s.emit(p.outbox, evt)
	}
}

func (s *Session) emit(outbox chan Event, evt Event) {
	select {
	case outbox <- evt:
	default:
		// Outbox full: the connection's writer has stalled. Drop the event
		// rather than the loop; membership cleanup belongs to disconnect.
		s.log.Warn("dropping event for slow client", zap.String("event", string(evt.Type)))
	}
}

func (s *Session) view() View {
	numbers := make(map[string]int, len(s.participants))
	for _, p := range s.participants {
		numbers[p.conn] = p.number
	}
	return View{
		Phase:        s.phase,
		Participants: len(s.participants),
		Pending:      len(s.choices),
		Started:      s.started,
		Numbers:      numbers,
	}
}
