package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flopPlayers(stacks ...int) []*Player {
	players := make([]*Player, len(stacks))
	for i, s := range stacks {
		players[i] = &Player{Seat: i, Name: string(rune('A' + i)), Stack: s, IsActive: true}
	}
	return players
}

func TestIncompleteAllInDoesNotReopen(t *testing.T) {
	t.Parallel()
	players := flopPlayers(1000, 1000, 80)
	br := NewBettingRound(Flop, players, 0, 0, 10)

	_, err := br.Apply(0, raiseTo(100))
	require.NoError(t, err)
	_, err = br.Apply(1, call)
	require.NoError(t, err)

	// C cannot reach the current bet, so this is an all-in call for less.
	_, err = br.Apply(2, raiseTo(80))
	require.ErrorIs(t, err, ErrRaiseNotAllowed)
	a, err := br.Apply(2, call)
	require.NoError(t, err)

	assert.Equal(t, EventAllIn, a.Type)
	assert.Equal(t, 80, a.Paid)
	assert.True(t, players[2].AllIn)
	assert.True(t, br.IsComplete(), "A and B must not act again")
	assert.Equal(t, -1, br.ToAct)
	assert.Equal(t, 100, br.CurrentBet)
}

func TestFullAllInRaiseReopens(t *testing.T) {
	t.Parallel()
	players := flopPlayers(1000, 1000, 120)
	br := NewBettingRound(Flop, players, 0, 0, 10)

	_, err := br.Apply(0, raiseTo(100))
	require.NoError(t, err)
	_, err = br.Apply(1, call)
	require.NoError(t, err)

	a, err := br.Apply(2, raiseTo(120))
	require.NoError(t, err)
	assert.Equal(t, EventAllIn, a.Type)
	assert.True(t, a.Reopened)
	assert.Equal(t, 2, br.LastRaiser)

	require.False(t, br.IsComplete())
	assert.Equal(t, 0, br.ToAct)
	assert.False(t, players[0].HasActed)
	assert.False(t, players[1].HasActed)

	// A may re-raise because action was reopened.
	actions := br.ValidActions(players[0])
	require.Len(t, actions, 3)
	assert.Equal(t, LegalAction{Action: Raise, Min: 130, Max: 1000}, actions[2])

	_, err = br.Apply(0, call)
	require.NoError(t, err)
	_, err = br.Apply(1, call)
	require.NoError(t, err)
	assert.True(t, br.IsComplete())
}

func TestShortAllInAboveBetOnlyAllowsCallOrFold(t *testing.T) {
	t.Parallel()
	players := flopPlayers(1000, 1000, 105)
	br := NewBettingRound(Flop, players, 0, 0, 10)

	_, err := br.Apply(0, raiseTo(100))
	require.NoError(t, err)
	_, err = br.Apply(1, call)
	require.NoError(t, err)

	a, err := br.Apply(2, raiseTo(500))
	require.NoError(t, err)
	assert.Equal(t, 105, a.RaiseTo, "raise above reach is clamped to all-in")
	assert.False(t, a.Reopened)
	assert.Equal(t, 105, br.CurrentBet)
	assert.Equal(t, 0, br.LastRaiser, "only the full raise counts")

	require.Equal(t, 0, br.ToAct)
	actions := br.ValidActions(players[0])
	assert.Equal(t, []LegalAction{{Action: Fold}, {Action: Call, Min: 5, Max: 5}}, actions)

	_, err = br.Apply(0, raiseTo(300))
	require.ErrorIs(t, err, ErrRaiseNotAllowed)
	assert.Equal(t, 100, players[0].CurrentBet, "rejected raise must not mutate")

	_, err = br.Apply(0, call)
	require.NoError(t, err)
	_, err = br.Apply(1, fold)
	require.NoError(t, err)
	assert.True(t, br.IsComplete())
}

func TestRejectedActionsDoNotMutate(t *testing.T) {
	t.Parallel()
	players := flopPlayers(1000, 1000, 1000)
	br := NewBettingRound(Flop, players, 0, 0, 10)

	tests := []struct {
		name string
		seat int
		d    Decision
		want error
	}{
		{"out of turn", 1, call, ErrOutOfTurn},
		{"raise too small", 0, raiseTo(5), ErrRaiseTooSmall},
		{"unknown action", 0, Decision{Action: Action(9)}, ErrUnknownAction},
	}
	for _, tc := range tests {
		_, err := br.Apply(tc.seat, tc.d)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	for _, p := range players {
		assert.Equal(t, 1000, p.Stack)
		assert.False(t, p.HasActed)
	}
	assert.Equal(t, 0, br.ToAct)
	assert.Equal(t, 0, br.CurrentBet)
}

func TestCheckAroundCompletes(t *testing.T) {
	t.Parallel()
	players := flopPlayers(500, 500, 500)
	br := NewBettingRound(Turn, players, 1, 0, 10)

	assert.Equal(t, 1, br.ToAct, "first to act is the first seat from start")
	for _, seat := range []int{1, 2, 0} {
		a, err := br.Apply(seat, check)
		require.NoError(t, err)
		assert.Equal(t, EventCheck, a.Type)
	}
	assert.True(t, br.IsComplete())
}

func TestMinimumRaiseIsCurrentBetPlusBigBlind(t *testing.T) {
	t.Parallel()
	players := flopPlayers(1000, 1000)
	br := NewBettingRound(Flop, players, 0, 0, 20)

	assert.Equal(t, 20, br.MinRaiseTo())
	_, err := br.Apply(0, raiseTo(60))
	require.NoError(t, err)
	assert.Equal(t, 80, br.MinRaiseTo())

	_, err = br.Apply(1, raiseTo(79))
	require.ErrorIs(t, err, ErrRaiseTooSmall)
	_, err = br.Apply(1, raiseTo(80))
	require.NoError(t, err)
}

func TestFoldLeavesOneCompletes(t *testing.T) {
	t.Parallel()
	players := flopPlayers(100, 100)
	br := NewBettingRound(River, players, 0, 0, 10)

	_, err := br.Apply(0, raiseTo(50))
	require.NoError(t, err)
	a, err := br.Apply(1, fold)
	require.NoError(t, err)
	assert.Equal(t, EventFold, a.Type)
	assert.False(t, players[1].IsActive)
	assert.True(t, br.IsComplete())
}

func TestLoneActorAlreadyMatchedIsComplete(t *testing.T) {
	t.Parallel()
	players := flopPlayers(0, 500)
	players[0].AllIn = true
	players[0].CurrentBet = 10
	players[1].CurrentBet = 10

	br := NewBettingRound(Preflop, players, 1, 10, 10)
	assert.True(t, br.IsComplete(), "no opponent left to bet against")
	assert.Equal(t, -1, br.ToAct)
}

func TestParseAction(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Action
	}{
		{"fold", Fold},
		{"check", Call},
		{"CALL", Call},
		{"raise", Raise},
		{"bet", Raise},
	}
	for _, tc := range tests {
		got, err := ParseAction(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseAction("shove")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
