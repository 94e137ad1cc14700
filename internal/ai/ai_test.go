package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/internal/randutil"
	"github.com/lox/pokertable/poker"
)

// fixedStrength always reports the same strength.
type fixedStrength float64

func (f fixedStrength) Evaluate(_, _, _ []poker.Card) evaluator.Result {
	return evaluator.Result{Score: int((1 - float64(f)) * float64(evaluator.MaxScore))}
}

func facingBet(pot, currentBet, toCall, stack int) game.DecisionView {
	return game.DecisionView{
		Version:    game.DecisionViewVersion,
		HoleCards:  poker.MustParseCards("As", "Kd"),
		Public:     game.TableView{Street: game.Flop, Pot: pot, CurrentBet: currentBet},
		Stack:      stack,
		Pot:        pot,
		SPR:        float64(stack) / float64(pot),
		ToCall:     toCall,
		MinRaiseTo: currentBet + 10,
		MaxRaiseTo: currentBet - toCall + stack,
		LegalActions: []game.LegalAction{
			{Action: game.Fold},
			{Action: game.Call, Min: toCall, Max: toCall},
			{Action: game.Raise, Min: currentBet + 10, Max: currentBet - toCall + stack},
		},
	}
}

func noBluff(t *testing.T, p Personality) Profile {
	t.Helper()
	prof, ok := ProfileFor(p)
	require.True(t, ok)
	prof.Bluff = 0
	return prof
}

func newPlayer(t *testing.T, name string, s float64, opts ...Option) *Player {
	t.Helper()
	opts = append([]Option{WithEvaluator(fixedStrength(s)), WithSeed(1)}, opts...)
	p, err := New(name, opts...)
	require.NoError(t, err)
	return p
}

func TestTightPlayer(t *testing.T) {
	t.Parallel()
	prof := noBluff(t, Tight)

	tests := []struct {
		name     string
		strength float64
		view     game.DecisionView
		want     game.Decision
	}{
		{"folds weak hand to a bet", 0.2, facingBet(100, 50, 50, 1000), game.Decision{Action: game.Fold}},
		{"checks weak hand when free", 0.2, facingBet(100, 0, 0, 1000), game.Decision{Action: game.Call}},
		{"calls cheap price with anything", 0.2, facingBet(100, 5, 5, 1000), game.Decision{Action: game.Call}},
		{"calls medium hand", 0.6, facingBet(100, 50, 50, 1000), game.Decision{Action: game.Call}},
		{"raises strong hand by pot share", 0.9, facingBet(100, 20, 20, 1000), game.Decision{Action: game.Raise, Amount: 95}},
		{"shoves when shallow", 0.6, facingBet(200, 50, 50, 150), game.Decision{Action: game.Raise, Amount: 150}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := newPlayer(t, "tight", tc.strength, WithProfile(prof))
			assert.Equal(t, tc.want, p.Decide(tc.view))
		})
	}
}

func TestLoosePlayerCallsWiderThanTight(t *testing.T) {
	t.Parallel()
	view := facingBet(100, 50, 50, 1000)

	tight := newPlayer(t, "tight", 0.45, WithProfile(noBluff(t, Tight)))
	loose := newPlayer(t, "loose", 0.45, WithProfile(noBluff(t, Loose)))

	assert.Equal(t, game.Fold, tight.Decide(view).Action)
	assert.Equal(t, game.Call, loose.Decide(view).Action)
}

func TestRaiseIsClampedToLegalRange(t *testing.T) {
	t.Parallel()
	prof := noBluff(t, Aggressive)
	p := newPlayer(t, "aggressive", 0.95, WithProfile(prof))

	// Pot-sized raise would be 1020, the stack only reaches 300.
	view := facingBet(1000, 20, 20, 300)
	view.SPR = 5
	d := p.Decide(view)
	assert.Equal(t, game.Raise, d.Action)
	assert.Equal(t, 300, d.Amount)

	// A tiny pot still raises at least the minimum.
	view = facingBet(4, 0, 0, 1000)
	d = p.Decide(view)
	assert.Equal(t, game.Decision{Action: game.Raise, Amount: 10}, d)
}

func TestNoRaiseWhenNotLegal(t *testing.T) {
	t.Parallel()
	p := newPlayer(t, "aggressive", 0.99, WithProfile(noBluff(t, Aggressive)))
	view := facingBet(100, 50, 50, 1000)
	view.LegalActions = view.LegalActions[:2]

	assert.Equal(t, game.Decision{Action: game.Call}, p.Decide(view))
}

func TestCallingStationAlwaysCalls(t *testing.T) {
	t.Parallel()
	p := newPlayer(t, "calling-station", 0)
	for _, v := range []game.DecisionView{facingBet(100, 50, 50, 1000), facingBet(10, 0, 0, 10)} {
		assert.Equal(t, game.Decision{Action: game.Call}, p.Decide(v))
	}
}

func TestRandomPlayerStaysLegal(t *testing.T) {
	t.Parallel()
	p := newPlayer(t, "random", 0)

	for i := range 300 {
		toCall := (i % 3) * 25
		view := facingBet(100, toCall, toCall, 500)
		d := p.Decide(view)

		switch d.Action {
		case game.Fold:
			assert.NotZero(t, view.ToCall, "random player folded when checking was free")
		case game.Raise:
			assert.GreaterOrEqual(t, d.Amount, view.MinRaiseTo)
			assert.LessOrEqual(t, d.Amount, view.MaxRaiseTo)
		case game.Call:
		default:
			t.Fatalf("unexpected action %v", d.Action)
		}
	}
}

func TestBluffUsesSeededRNG(t *testing.T) {
	t.Parallel()
	prof, _ := ProfileFor(Aggressive)
	prof.Bluff = 1

	p := newPlayer(t, "aggressive", 0.01, WithProfile(prof))
	assert.Equal(t, game.Raise, p.Decide(facingBet(100, 50, 50, 1000)).Action)
}

func TestParsePersonality(t *testing.T) {
	t.Parallel()
	tests := map[string]Personality{
		"tight":           Tight,
		"LOOSE":           Loose,
		" aggressive ":    Aggressive,
		"station":         CallingStation,
		"calling-station": CallingStation,
		"random":          Random,
	}
	for in, want := range tests {
		got, err := ParsePersonality(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParsePersonality("maniac")
	assert.True(t, errors.Is(err, ErrUnknownPersonality))

	var p Personality
	require.NoError(t, p.UnmarshalText([]byte("loose")))
	assert.Equal(t, Loose, p)

	_, err = New("maniac")
	assert.ErrorIs(t, err, ErrUnknownPersonality)
}

func TestPersonalitiesPlayFullGames(t *testing.T) {
	t.Parallel()
	eval := evaluator.New(evaluator.WithTrials(10), evaluator.WithSeed(3))

	var seats []game.Seat
	for i, personality := range Personalities() {
		p, err := New(string(personality), WithEvaluator(eval), WithSeed(int64(i+1)))
		require.NoError(t, err)
		seats = append(seats, game.Seat{Kind: game.AI, Personality: string(personality), Provider: p})
	}

	cfg := game.DefaultConfig()
	tbl, err := game.NewTable(cfg, seats, game.WithRNG(randutil.New(5)), game.WithEvaluator(eval))
	require.NoError(t, err)

	total := tbl.TotalChips()
	for range 60 {
		_, err := tbl.PlayHand(context.Background())
		if errors.Is(err, game.ErrGameOver) {
			break
		}
		require.NoError(t, err)

		sum := 0
		for seat := range tbl.NumSeats() {
			p, err := tbl.Player(seat)
			require.NoError(t, err)
			sum += p.Stack
		}
		assert.Equal(t, total, sum)
	}
	assert.NoError(t, tbl.Err())
}
