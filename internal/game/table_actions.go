package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/poker"
)

var (
	ErrStaleTurn  = errors.New("turn has already been played")
	ErrNoProvider = errors.New("seat has no decision provider")
)

// ActionResult describes an accepted action and whether it finished the hand.
type ActionResult struct {
	Applied
	Street       Street      `json:"street"`
	TurnID       uint64      `json:"turn_id"`
	HandComplete bool        `json:"hand_complete"`
	Result       *HandResult `json:"result,omitempty"`
}

// Act applies a decision for seat. Rejected actions return an error and leave
// the table unchanged.
func (t *Table) Act(seat int, d Decision) (ActionResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.act(seat, d)
}

// ActOnTurn is Act for callers that captured a turn earlier, such as a timeout.
// It fails with ErrStaleTurn if any action has been applied since.
func (t *Table) ActOnTurn(turnID uint64, seat int, d Decision) (ActionResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.usable(); err != nil {
		return ActionResult{}, err
	}
	if !t.inHand {
		return ActionResult{}, ErrNoHandInProgress
	}
	if turnID != t.turnID {
		return ActionResult{}, fmt.Errorf("turn %d, current %d: %w", turnID, t.turnID, ErrStaleTurn)
	}
	return t.act(seat, d)
}

// Step asks the provider of the seat to act for a decision and applies it. A
// decision the engine rejects is replaced by a check when free, else a fold.
func (t *Table) Step() (ActionResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return ActionResult{}, err
	}
	seat := t.actionSeat()
	if seat < 0 {
		return ActionResult{}, ErrNoHandInProgress
	}
	p := t.players[seat]
	if p.Provider == nil {
		return ActionResult{}, fmt.Errorf("seat %d: %w", seat, ErrNoProvider)
	}

	view := t.decisionView(seat)
	d := p.Provider.Decide(view)
	res, err := t.act(seat, d)
	if err == nil || t.broken != nil {
		return res, err
	}

	fallback := Decision{Action: Fold}
	if view.ToCall == 0 {
		fallback = Decision{Action: Call}
	}
	t.logger.Warn().
		Err(err).
		Int("seat", seat).
		Str("player", p.Name).
		Str("action", d.Action.String()).
		Int("amount", d.Amount).
		Str("fallback", fallback.Action.String()).
		Msg("Provider decision rejected")
	return t.act(seat, fallback)
}

// PlayHand starts a hand and lets the seat providers play it to completion.
func (t *Table) PlayHand(ctx context.Context) (*HandResult, error) {
	if err := t.StartHand(); err != nil {
		return nil, err
	}
	for t.InHand() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := t.Step(); err != nil {
			return nil, err
		}
	}
	return t.LastResult(), nil
}

func (t *Table) act(seat int, d Decision) (ActionResult, error) {
	if err := t.usable(); err != nil {
		return ActionResult{}, err
	}
	if !t.inHand || t.round == nil {
		return ActionResult{}, ErrNoHandInProgress
	}
	if seat < 0 || seat >= len(t.players) {
		return ActionResult{}, fmt.Errorf("%w: %d", ErrUnknownSeat, seat)
	}

	street, turn := t.street, t.turnID
	var applied Applied
	err := t.guarded(opAction, func() error {
		a, err := t.round.Apply(seat, d)
		if err != nil {
			return err
		}
		applied = a
		t.pot += a.Paid
		t.record(Event{Type: a.Type, Street: street, Seat: seat, Amount: a.Paid, RaiseTo: a.RaiseTo})
		return nil
	})
	if err != nil {
		return ActionResult{}, err
	}
	t.turnID++

	t.logger.Debug().
		Int("hand", t.handCount).
		Str("street", street.String()).
		Int("seat", seat).
		Str("action", string(applied.Type)).
		Int("paid", applied.Paid).
		Int("pot", t.pot).
		Msg("Action applied")

	res := ActionResult{Applied: applied, Street: street, TurnID: turn}
	if t.round.IsComplete() {
		if err := t.advance(); err != nil {
			return res, err
		}
	}
	if !t.inHand {
		res.HandComplete = true
		res.Result = t.lastResult
	}
	return res, nil
}

func (t *Table) contenders() []*Player {
	var out []*Player
	for _, p := range t.players {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out
}

func (t *Table) actors() int {
	n := 0
	for _, p := range t.players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

// advance moves past completed streets until someone has to act or the hand ends.
func (t *Table) advance() error {
	for t.round.IsComplete() {
		if len(t.contenders()) <= 1 || t.street == River || t.actors() < 2 {
			return t.finishHand()
		}
		if err := t.guarded(opStreet, t.nextStreet); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) dealStreet() error {
	var cards []poker.Card
	switch len(t.community) {
	case 0:
		flop, err := t.deck.DealFlop()
		if err != nil {
			return err
		}
		cards = flop[:]
	case 3:
		c, err := t.deck.DealTurn()
		if err != nil {
			return err
		}
		cards = []poker.Card{c}
	case 4:
		c, err := t.deck.DealRiver()
		if err != nil {
			return err
		}
		cards = []poker.Card{c}
	default:
		return fmt.Errorf("board already has %d cards", len(t.community))
	}
	t.community = append(t.community, cards...)
	t.street++
	t.record(Event{Type: EventStreet, Street: t.street, Seat: -1, Cards: cards})
	return nil
}

func (t *Table) nextStreet() error {
	if err := t.dealStreet(); err != nil {
		return err
	}
	for _, p := range t.players {
		p.CurrentBet = 0
		p.HasActed = false
	}
	t.round = NewBettingRound(t.street, t.players, t.dealerIndex+1, 0, t.bigBlind)
	t.turnID++
	return nil
}

// runout deals the rest of the board once betting is over.
func (t *Table) runout() error {
	for len(t.community) < 5 {
		if err := t.dealStreet(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) finishHand() error {
	var result *HandResult
	err := t.guarded(opDistribute, func() error {
		if err := t.runout(); err != nil {
			return err
		}
		t.street = Showdown
		r, err := t.settle()
		result = r
		return err
	})
	if err != nil {
		return err
	}
	return t.completeHand(result)
}

// settle awards the pot. A lone survivor takes it without any evaluation.
func (t *Table) settle() (*HandResult, error) {
	res := &HandResult{
		HandID:     t.handID,
		HandNumber: t.handCount,
		Pot:        t.pot,
		Community:  slices.Clone(t.community),
	}

	contenders := t.contenders()
	var awards []Award
	if len(contenders) == 1 {
		awards = AwardUncontested(t.pot, contenders[0].Seat)
	} else {
		res.Showdown = true
		res.Scores = make(map[int]evaluator.Result, len(contenders))
		scores := make(map[int]int, len(contenders))
		for _, p := range contenders {
			r := t.evaluator.Evaluate(p.HoleCards, t.community, nil)
			scores[p.Seat] = r.Score
			res.Scores[p.Seat] = r
			t.record(Event{Type: EventShowdown, Street: Showdown, Seat: p.Seat, Cards: slices.Clone(p.HoleCards), Detail: r.Label})
		}

		pots, err := CalculatePots(t.players)
		if err != nil {
			return nil, err
		}
		res.Pots = pots
		awards, err = DistributePots(pots, scores, t.dealerIndex, len(t.players))
		if err != nil {
			var ierr *InvariantError
			if errors.As(err, &ierr) {
				return nil, err
			}
			return nil, &InvariantError{Op: opDistribute, Detail: err.Error()}
		}
	}

	for _, a := range awards {
		t.players[a.Seat].Stack += a.Amount
		t.pot -= a.Amount
		t.record(Event{Type: EventPotAwarded, Street: Showdown, Seat: a.Seat, Amount: a.Amount, Detail: fmt.Sprintf("pot %d", a.Pot)})
	}
	if t.pot != 0 {
		return nil, &InvariantError{Op: opDistribute, Detail: fmt.Sprintf("%d chips left in pot after distribution", t.pot)}
	}

	res.Awards = awards
	for _, a := range awards {
		if !slices.Contains(res.Winners, a.Seat) {
			res.Winners = append(res.Winners, a.Seat)
		}
	}
	slices.Sort(res.Winners)
	return res, nil
}

func (t *Table) completeHand(res *HandResult) error {
	for i, p := range t.players {
		if t.startStacks[i] > 0 && p.Stack == 0 {
			res.Eliminated = append(res.Eliminated, p.Seat)
			t.record(Event{Type: EventPlayerEliminated, Street: Showdown, Seat: p.Seat})
			t.logger.Info().Int("seat", p.Seat).Str("player", p.Name).Int("hand", t.handCount).Msg("Player eliminated")
		}
	}
	t.recordTable(EventHandComplete, res.Pot, "")

	rec := t.handRecord(res)
	t.lastResult = res
	t.inHand = false
	t.turnID++

	err := t.guarded(opEndHandReset, func() error {
		for _, p := range t.players {
			p.resetForHand()
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.logger.Info().
		Int("hand", t.handCount).
		Int("pot", res.Pot).
		Ints("winners", res.Winners).
		Bool("showdown", res.Showdown).
		Msg("Hand complete")

	if t.recorder != nil {
		t.recorder.Record(rec)
	}
	return nil
}

func (t *Table) handRecord(res *HandResult) HandRecord {
	rec := HandRecord{
		Version:        HandRecordVersion,
		HandID:         res.HandID,
		TableID:        t.id,
		HandNumber:     res.HandNumber,
		ButtonSeat:     t.dealerIndex,
		SmallBlindSeat: t.smallBlindIndex,
		BigBlindSeat:   t.bigBlindIndex,
		SmallBlind:     t.smallBlind,
		BigBlind:       t.bigBlind,
		FinalPot:       res.Pot,
		Showdown:       res.Showdown,
		Community:      slices.Clone(res.Community),
		Winners:        slices.Clone(res.Winners),
		Awards:         slices.Clone(res.Awards),
		Events:         slices.Clone(t.events),
		CompletedAt:    time.Now().UTC(),
	}
	for i, p := range t.players {
		seat := RecordSeat{
			Seat:        p.Seat,
			Name:        p.Name,
			Kind:        p.Kind,
			StartStack:  t.startStacks[i],
			EndStack:    p.Stack,
			Invested:    p.TotalInvested,
			HoleCards:   slices.Clone(p.HoleCards),
			Participant: t.startStacks[i] > 0,
			Folded:      t.startStacks[i] > 0 && !p.IsActive,
			Eliminated:  slices.Contains(res.Eliminated, p.Seat),
		}
		if r, ok := res.Scores[p.Seat]; ok {
			seat.Score = r.Score
			seat.HandLabel = r.Label
		}
		rec.Seats = append(rec.Seats, seat)
	}
	return rec
}
