package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/game"
)

// playRound walks the state through one full round.
func playRound(t *testing.T, s State, o Outcome) ([]Event, State) {
	t.Helper()
	s = BeginRound(s)
	require.Equal(t, PhaseAwaitingChoice, s.Phase)
	events, next, err := Apply(s, o)
	require.NoError(t, err)
	return events, next
}

func hasEvent(events []Event, et EventType) bool {
	for _, e := range events {
		if e.Type == et {
			return true
		}
	}
	return false
}

func TestRelative(t *testing.T) {
	assert.Equal(t, Self, Relative(game.P1Wins, 1))
	assert.Equal(t, Opponent, Relative(game.P1Wins, 2))
	assert.Equal(t, Self, Relative(game.P2Wins, 2))
	assert.Equal(t, Opponent, Relative(game.P2Wins, 1))
	assert.Equal(t, Tie, Relative(game.Tie, 1))
	assert.Equal(t, Tie, Relative(game.Tie, 2))
}

func TestBestOfThree_DecidedInThree_NoTiebreaker(t *testing.T) {
	s := Start(NewState(BestOf(3)))

	var events []Event
	for _, o := range []Outcome{Self, Opponent, Self} {
		events, s = playRound(t, s, o)
	}

	assert.Equal(t, PhaseMatchOver, s.Phase)
	assert.Equal(t, WinnerSelf, s.Winner)
	assert.False(t, s.TiebreakerActive)
	assert.True(t, hasEvent(events, EvtMatchOver))
	assert.Equal(t, 2, s.SelfWins)
	assert.Equal(t, 1, s.OpponentWins)
	assert.Len(t, s.History, 3)
}

func TestBestOfThree_LevelAfterThree_EntersTiebreaker(t *testing.T) {
	s := Start(NewState(BestOf(3)))

	var events []Event
	for _, o := range []Outcome{Self, Opponent, Tie} {
		events, s = playRound(t, s, o)
	}

	require.True(t, s.TiebreakerActive)
	require.NotEqual(t, PhaseMatchOver, s.Phase)
	assert.True(t, hasEvent(events, EvtTiebreakerEntered))

	// First non-tie round inside the tiebreaker decides the match, even
	// though the fixed round count is already exhausted.
	events, s = playRound(t, s, Opponent)
	assert.Equal(t, PhaseMatchOver, s.Phase)
	assert.Equal(t, WinnerOpponent, s.Winner)
	assert.True(t, hasEvent(events, EvtMatchOver))
	assert.Len(t, s.TiebreakerHistory, 1)
	assert.Len(t, s.History, 3)
}

func TestTiebreaker_TieReplaysSingleRound(t *testing.T) {
	s := Start(NewState(BestOf(3)))
	for _, o := range []Outcome{Self, Opponent, Tie} {
		_, s = playRound(t, s, o)
	}
	require.True(t, s.TiebreakerActive)

	// Repeated ties just replay; no nested tiebreaker, match stays open.
	for i := 0; i < 3; i++ {
		_, s = playRound(t, s, Tie)
		require.NotEqual(t, PhaseMatchOver, s.Phase)
		require.True(t, s.TiebreakerActive)
	}

	_, s = playRound(t, s, Self)
	assert.Equal(t, WinnerSelf, s.Winner)
	assert.Equal(t, PhaseMatchOver, s.Phase)
	assert.Len(t, s.TiebreakerHistory, 4)
}

func TestBestOfFive_MajorityEndsEarly(t *testing.T) {
	s := Start(NewState(BestOf(5)))
	for _, o := range []Outcome{Self, Self, Self} {
		_, s = playRound(t, s, o)
	}
	assert.Equal(t, PhaseMatchOver, s.Phase)
	assert.Equal(t, WinnerSelf, s.Winner)
	assert.Len(t, s.History, 3)
}

func TestFixedMode_ExhaustedUnequal_LeaderWins(t *testing.T) {
	s := Start(NewState(BestOf(3)))
	for _, o := range []Outcome{Tie, Tie, Opponent} {
		_, s = playRound(t, s, o)
	}
	assert.Equal(t, PhaseMatchOver, s.Phase)
	assert.Equal(t, WinnerOpponent, s.Winner)
	assert.False(t, s.TiebreakerActive)
}

func TestNoLimit_NeverEnds(t *testing.T) {
	s := Start(NewState(NoLimit()))
	for _, o := range []Outcome{Self, Self, Self, Self, Self, Opponent, Tie} {
		_, s = playRound(t, s, o)
		require.NotEqual(t, PhaseMatchOver, s.Phase)
		require.False(t, s.TiebreakerActive)
	}
	assert.Equal(t, 5, s.SelfWins)
	assert.Equal(t, 1, s.OpponentWins)
	assert.Equal(t, 1, s.Ties)
}

func TestApply_AfterMatchOver_Errors(t *testing.T) {
	s := Start(NewState(BestOf(3)))
	for _, o := range []Outcome{Self, Self} {
		_, s = playRound(t, s, o)
	}
	require.Equal(t, PhaseMatchOver, s.Phase)

	_, _, err := Apply(s, Opponent)
	require.ErrorIs(t, err, ErrMatchOver)
}

func TestDriver_AutoAdvancesWhileMatchOpen(t *testing.T) {
	d := NewDriver(BestOf(3), 10*time.Millisecond)
	d.Start()
	d.BeginRound()

	_, st, err := d.Resolve(Self)
	require.NoError(t, err)
	require.Equal(t, PhaseRoundResolved, st.Phase)

	select {
	case <-d.Advance():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for auto-advance")
	}
	assert.Equal(t, PhaseCountdown, d.State().Phase)
}

func TestDriver_SuppressesAdvanceOnceDecided(t *testing.T) {
	d := NewDriver(BestOf(3), 10*time.Millisecond)
	d.Start()

	d.BeginRound()
	_, _, err := d.Resolve(Self)
	require.NoError(t, err)
	<-d.Advance()

	d.BeginRound()
	_, st, err := d.Resolve(Self)
	require.NoError(t, err)
	require.Equal(t, PhaseMatchOver, st.Phase)

	select {
	case <-d.Advance():
		t.Fatal("advance after the match was decided")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDriver_QuitCancelsPendingAdvance(t *testing.T) {
	d := NewDriver(NoLimit(), 20*time.Millisecond)
	d.Start()
	d.BeginRound()
	_, _, err := d.Resolve(Tie)
	require.NoError(t, err)

	d.Quit()

	select {
	case <-d.Advance():
		t.Fatal("advance after quit")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, PhaseMatchOver, d.State().Phase)
}
