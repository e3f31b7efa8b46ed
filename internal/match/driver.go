package match

import (
	"sync"
	"time"
)

// Driver wraps the pure match state with the auto-advance behavior: after a
// round resolves with the match still open, the next round is requested on
// Advance() once the display delay passes. The pending advance is canceled
// by a generation bump whenever the match ends or the player quits, so a
// decided match never schedules a stray extra round.
type Driver struct {
	mu    sync.Mutex
	state State
	delay time.Duration
	gen   uint64
	timer *time.Timer

	advance chan struct{}
}

func NewDriver(m Mode, delay time.Duration) *Driver {
	return &Driver{
		state:   NewState(m),
		delay:   delay,
		advance: make(chan struct{}, 4),
	}
}

// Advance delivers one signal per auto-requested round.
func (d *Driver) Advance() <-chan struct{} { return d.advance }

func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start begins the match countdown (on MatchStart from the server).
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Start(d.state)
}

// BeginRound opens the current round for a choice.
func (d *Driver) BeginRound() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = BeginRound(d.state)
}

// Resolve folds a round outcome and, if the match is still open, schedules
// the next-round request.
func (d *Driver) Resolve(o Outcome) ([]Event, State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	events, next, err := Apply(d.state, o)
	if err != nil {
		return nil, d.state, err
	}
	d.state = next

	d.cancelLocked()
	if next.Phase != PhaseMatchOver {
		gen := d.gen
		d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
	}
	return events, next, nil
}

// Quit abandons the match and suppresses any pending advance.
func (d *Driver) Quit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.state.Phase = PhaseMatchOver
}

func (d *Driver) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.state.Phase != PhaseRoundResolved {
		d.mu.Unlock()
		return
	}
	d.state.Phase = PhaseCountdown
	d.mu.Unlock()

	select {
	case d.advance <- struct{}{}:
	default:
	}
}

func (d *Driver) cancelLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
