package game

import "errors"

var ErrUnknownChoice = errors.New("unknown choice")

type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

func ParseChoice(s string) (Choice, error) {
	switch Choice(s) {
	case Rock, Paper, Scissors:
		return Choice(s), nil
	default:
		return "", ErrUnknownChoice
	}
}

type Outcome string

const (
	P1Wins Outcome = "p1"
	P2Wins Outcome = "p2"
	Tie    Outcome = "tie"
)

// beats reports whether a defeats b: rock beats scissors, scissors beats
// paper, paper beats rock.
func beats(a, b Choice) bool {
	switch a {
	case Rock:
		return b == Scissors
	case Paper:
		return b == Rock
	case Scissors:
		return b == Paper
	}
	return false
}

// Resolve maps two simultaneous choices to a round outcome. Equal choices
// tie; otherwise the first participant wins exactly when their choice beats
// the second's, and every remaining pair is a second-participant win.
func Resolve(a, b Choice) Outcome {
	if a == b {
		return Tie
	}
	if beats(a, b) {
		return P1Wins
	}
	return P2Wins
}
