package game

import (
	"errors"
	"fmt"

	"github.com/lox/pokertable/poker"
)

// ErrTableBroken is returned by every call after an invariant violation.
var ErrTableBroken = errors.New("table halted after invariant violation")

// InvariantError reports a broken engine invariant. It signals a bug, not a
// bad request, and leaves the table unusable.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated during %s: %s", e.Op, e.Detail)
}

// snapshot captures what an operation must not change.
type snapshot struct {
	dealer, smallBlind, bigBlind int
	invested                     []int
}

func (t *Table) takeSnapshot() snapshot {
	s := snapshot{
		dealer:     t.dealerIndex,
		smallBlind: t.smallBlindIndex,
		bigBlind:   t.bigBlindIndex,
		invested:   make([]int, len(t.players)),
	}
	for i, p := range t.players {
		s.invested[i] = p.TotalInvested
	}
	return s
}

// guarded runs fn between invariant checks when checks are enabled. Errors
// returned by fn pass through untouched unless they are invariant errors,
// which halt the table. The game logic is the same with checks disabled.
func (t *Table) guarded(op string, fn func() error) error {
	if !t.checks {
		return t.halt(fn())
	}

	if ierr := t.checkState(op); ierr != nil {
		return t.halt(ierr)
	}
	before := t.takeSnapshot()

	if err := fn(); err != nil {
		return t.halt(err)
	}

	if ierr := t.checkState(op); ierr != nil {
		return t.halt(ierr)
	}
	if op != opStartHand {
		if ierr := t.checkStable(op, before); ierr != nil {
			return t.halt(ierr)
		}
	}
	return nil
}

const (
	opStartHand    = "start_hand"
	opPostBlind    = "post_blind"
	opAction       = "action"
	opStreet       = "street"
	opDistribute   = "distribute_pot"
	opEndHandReset = "end_hand"
)

// halt marks the table broken when err is an invariant violation.
func (t *Table) halt(err error) error {
	var ierr *InvariantError
	if err == nil || !errors.As(err, &ierr) {
		return err
	}
	if t.broken == nil {
		t.broken = ierr
		t.logger.Error().Str("op", ierr.Op).Str("detail", ierr.Detail).
			Int("hand", t.handCount).Msg("Invariant violated, table halted")
	}
	return err
}

// checkState verifies chip conservation, non-negative amounts and card uniqueness.
func (t *Table) checkState(op string) *InvariantError {
	if t.pot < 0 {
		return &InvariantError{Op: op, Detail: fmt.Sprintf("negative pot %d", t.pot)}
	}
	if cb := t.currentBet(); cb < 0 {
		return &InvariantError{Op: op, Detail: fmt.Sprintf("negative current bet %d", cb)}
	}

	sum := t.pot
	var seen poker.Hand
	count := 0
	for _, p := range t.players {
		if p.Stack < 0 {
			return &InvariantError{Op: op, Detail: fmt.Sprintf("seat %d has negative stack %d", p.Seat, p.Stack)}
		}
		sum += p.Stack
		for _, c := range p.HoleCards {
			seen.AddCard(c)
			count++
		}
	}
	if sum != t.totalChips {
		return &InvariantError{Op: op, Detail: fmt.Sprintf("stacks plus pot %d, expected %d", sum, t.totalChips)}
	}

	for _, c := range t.community {
		seen.AddCard(c)
		count++
	}
	burnt := t.deck.Burnt()
	count += burnt.CountCards()
	seen |= burnt
	if seen.CountCards() != count {
		return &InvariantError{Op: op, Detail: "duplicate card across hole, community and burnt cards"}
	}
	return nil
}

// checkStable verifies hand-level fields an operation must not move.
func (t *Table) checkStable(op string, before snapshot) *InvariantError {
	if op == opEndHandReset {
		return nil
	}
	if before.dealer != t.dealerIndex || before.smallBlind != t.smallBlindIndex || before.bigBlind != t.bigBlindIndex {
		return &InvariantError{Op: op, Detail: "dealer or blind positions changed mid-hand"}
	}
	for i, p := range t.players {
		if p.TotalInvested < before.invested[i] {
			return &InvariantError{
				Op:     op,
				Detail: fmt.Sprintf("seat %d total invested fell from %d to %d", p.Seat, before.invested[i], p.TotalInvested),
			}
		}
	}
	return nil
}
