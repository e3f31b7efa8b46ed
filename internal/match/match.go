// Package match tracks the client-side progression of a multi-round match:
// best-of-N scoring with a sudden-death tiebreaker, or open-ended play with
// no round limit.
package match

import (
	"errors"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/game"
)

var ErrMatchOver = errors.New("match already over")
var ErrNotAwaitingChoice = errors.New("no round in progress")

// Outcome of one round from the local player's point of view.
type Outcome string

const (
	Self     Outcome = "self"
	Opponent Outcome = "opponent"
	Tie      Outcome = "tie"
)

// Relative maps a server round result to the perspective of the player
// holding participant number n.
func Relative(o game.Outcome, n int) Outcome {
	switch {
	case o == game.Tie:
		return Tie
	case o == game.P1Wins && n == 1, o == game.P2Wins && n == 2:
		return Self
	default:
		return Opponent
	}
}

// Mode is the round-limit policy. Rounds is an odd fixed count, or 0 for
// unlimited play.
type Mode struct {
	Rounds int
}

func BestOf(n int) Mode { return Mode{Rounds: n} }
func NoLimit() Mode     { return Mode{} }

func (m Mode) Limited() bool { return m.Rounds > 0 }

// Threshold is the win count that decides a fixed-count match outright.
func (m Mode) Threshold() int { return m.Rounds/2 + 1 }

type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseCountdown      Phase = "countdown"
	PhaseAwaitingChoice Phase = "awaiting_choice"
	PhaseRoundResolved  Phase = "round_resolved"
	PhaseMatchOver      Phase = "match_over"
)

type Winner string

const (
	WinnerNone     Winner = ""
	WinnerSelf     Winner = "self"
	WinnerOpponent Winner = "opponent"
)

type EventType string

const (
	EvtRoundScored       EventType = "RoundScored"
	EvtTiebreakerEntered EventType = "TiebreakerEntered"
	EvtMatchOver         EventType = "MatchOver"
)

type Event struct {
	Type   EventType
	Winner Winner
}

type State struct {
	Phase             Phase
	Mode              Mode
	SelfWins          int
	OpponentWins      int
	Ties              int
	History           []Outcome
	TiebreakerActive  bool
	TiebreakerHistory []Outcome
	Winner            Winner
}

func NewState(m Mode) State {
	return State{Phase: PhaseIdle, Mode: m}
}

// Start moves an idle match into its first countdown.
func Start(s State) State {
	if s.Phase == PhaseIdle {
		s.Phase = PhaseCountdown
	}
	return s
}

// BeginRound opens the round for choices once the countdown has run.
func BeginRound(s State) State {
	if s.Phase == PhaseCountdown || s.Phase == PhaseRoundResolved {
		s.Phase = PhaseAwaitingChoice
	}
	return s
}

// Apply folds one round outcome into the match state and decides whether the
// match is over. Termination rules for a fixed count of N rounds:
//   - a side reaching floor(N/2)+1 wins ends the match immediately;
//   - exhausting N rounds with unequal scores ends the match in favor of the
//     leader;
//   - exhausting N rounds level enters the tiebreaker, where the first
//     non-tie round decides the match regardless of counters. The tiebreaker
//     never nests: further ties inside it just replay a single round.
//
// Unlimited mode has no threshold; the match only ends by the player
// quitting.
func Apply(s State, o Outcome) ([]Event, State, error) {
	if s.Phase == PhaseMatchOver {
		return nil, s, ErrMatchOver
	}
	if s.Phase != PhaseAwaitingChoice {
		return nil, s, ErrNotAwaitingChoice
	}

	if s.TiebreakerActive {
		s.TiebreakerHistory = append(append([]Outcome(nil), s.TiebreakerHistory...), o)
	} else {
		s.History = append(append([]Outcome(nil), s.History...), o)
	}
	switch o {
	case Self:
		s.SelfWins++
	case Opponent:
		s.OpponentWins++
	case Tie:
		s.Ties++
	}

	events := []Event{{Type: EvtRoundScored}}

	if s.TiebreakerActive {
		if o == Tie {
			s.Phase = PhaseRoundResolved
			return events, s, nil
		}
		return finish(events, s, winnerFor(o))
	}

	if !s.Mode.Limited() {
		s.Phase = PhaseRoundResolved
		return events, s, nil
	}

	thr := s.Mode.Threshold()
	switch {
	case s.SelfWins >= thr:
		return finish(events, s, WinnerSelf)
	case s.OpponentWins >= thr:
		return finish(events, s, WinnerOpponent)
	case len(s.History) >= s.Mode.Rounds:
		if s.SelfWins > s.OpponentWins {
			return finish(events, s, WinnerSelf)
		}
		if s.OpponentWins > s.SelfWins {
			return finish(events, s, WinnerOpponent)
		}
		s.TiebreakerActive = true
		s.Phase = PhaseRoundResolved
		events = append(events, Event{Type: EvtTiebreakerEntered})
		return events, s, nil
	default:
		s.Phase = PhaseRoundResolved
		return events, s, nil
	}
}

func finish(events []Event, s State, w Winner) ([]Event, State, error) {
	s.Winner = w
	s.Phase = PhaseMatchOver
	events = append(events, Event{Type: EvtMatchOver, Winner: w})
	return events, s, nil
}

func winnerFor(o Outcome) Winner {
	if o == Self {
		return WinnerSelf
	}
	return WinnerOpponent
}
