package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/internal/randutil"
	"github.com/lox/pokertable/poker"
)

// fixedDeck builds a deck that deals holes (in deal order, starting left of
// the dealer) followed by the board, with burn cards taken from the rest.
func fixedDeck(t *testing.T, holes [][2]string, board [5]string) *poker.Deck {
	t.Helper()

	var named []string
	for _, h := range holes {
		named = append(named, h[0], h[1])
	}
	named = append(named, board[:]...)
	used := poker.NewHand(poker.MustParseCards(named...)...)
	require.Equal(t, len(named), used.CountCards(), "duplicate card in fixture")
	burns := used.Complement().Cards()[:3]

	var top []poker.Card
	for round := range 2 {
		for _, h := range holes {
			top = append(top, poker.MustParseCards(h[round])...)
		}
	}
	b := poker.MustParseCards(board[:]...)
	top = append(top, burns[0], b[0], b[1], b[2], burns[1], b[3], burns[2], b[4])

	order, err := poker.StackedOrder(top...)
	require.NoError(t, err)
	d, err := poker.NewDeckFromOrder(order)
	require.NoError(t, err)
	return d
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HandsPerLevel = 0
	return cfg
}

func newTestTable(t *testing.T, cfg Config, stacks []int, opts ...Option) *Table {
	t.Helper()
	seats := make([]Seat, len(stacks))
	for i, s := range stacks {
		seats[i] = Seat{Stack: s, Kind: AI}
	}
	opts = append([]Option{
		WithRNG(randutil.New(1)),
		WithEvaluator(evaluator.New(evaluator.WithSeed(1))),
	}, opts...)
	tbl, err := NewTable(cfg, seats, opts...)
	require.NoError(t, err)
	return tbl
}

func chipsInPlay(tbl *Table) int {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	sum := tbl.pot
	for _, p := range tbl.players {
		sum += p.Stack
	}
	return sum
}

func mustAct(t *testing.T, tbl *Table, seat int, d Decision) ActionResult {
	t.Helper()
	res, err := tbl.Act(seat, d)
	require.NoError(t, err, "seat %d %s %d", seat, d.Action, d.Amount)
	return res
}

// foldToBigBlind folds every seat in turn until the hand ends.
func foldToBigBlind(t *testing.T, tbl *Table) *HandResult {
	t.Helper()
	for tbl.InHand() {
		turn := tbl.Turn()
		mustAct(t, tbl, turn.Seat, Decision{Action: Fold})
	}
	return tbl.LastResult()
}

var (
	fold  = Decision{Action: Fold}
	call  = Decision{Action: Call}
	check = Decision{Action: Call}
)

func raiseTo(amount int) Decision {
	return Decision{Action: Raise, Amount: amount}
}

// countingEvaluator fails the test when showdown evaluation was not expected.
type countingEvaluator struct {
	calls int
	inner evaluator.HandEvaluator
}

func (c *countingEvaluator) Evaluate(hole, community, remaining []poker.Card) evaluator.Result {
	c.calls++
	return c.inner.Evaluate(hole, community, remaining)
}
