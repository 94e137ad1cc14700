package game

import (
	"github.com/lox/pokertable/poker"
)

// DecisionViewVersion is bumped whenever DecisionView changes shape.
const DecisionViewVersion = 1

// DecisionProvider chooses an action for a seat. Implementations must be
// synchronous and must not call back into the table.
type DecisionProvider interface {
	Decide(view DecisionView) Decision
}

// DecisionProviderFunc adapts a function to DecisionProvider.
type DecisionProviderFunc func(DecisionView) Decision

func (f DecisionProviderFunc) Decide(v DecisionView) Decision { return f(v) }

// SeatView is the public part of a player.
type SeatView struct {
	Seat          int    `json:"seat"`
	Name          string `json:"name"`
	Kind          Kind   `json:"kind"`
	Personality   string `json:"personality,omitempty"`
	Stack         int    `json:"stack"`
	CurrentBet    int    `json:"current_bet"`
	TotalInvested int    `json:"total_invested"`
	IsActive      bool   `json:"is_active"`
	AllIn         bool   `json:"all_in"`
	HasActed      bool   `json:"has_acted"`
	Eliminated    bool   `json:"eliminated"`
	HasCards      bool   `json:"has_cards"`
}

// TableView is the read-only projection handed to transports. It never
// contains hole cards.
type TableView struct {
	TableID        string        `json:"table_id"`
	HandNumber     int           `json:"hand_number"`
	InHand         bool          `json:"in_hand"`
	Street         Street        `json:"street"`
	Pot            int           `json:"pot"`
	CurrentBet     int           `json:"current_bet"`
	SmallBlind     int           `json:"small_blind"`
	BigBlind       int           `json:"big_blind"`
	DealerSeat     int           `json:"dealer_seat"`
	SmallBlindSeat int           `json:"small_blind_seat"`
	BigBlindSeat   int           `json:"big_blind_seat"`
	Community      []poker.Card  `json:"community"`
	Seats          []SeatView    `json:"seats"`
	ActionSeat     int           `json:"action_seat"`
	TurnID         uint64        `json:"turn_id"`
	LegalActions   []LegalAction `json:"legal_actions,omitempty"`
	MinRaiseTo     int           `json:"min_raise_to,omitempty"`
}

// DecisionView is everything a decision provider may see for one seat.
type DecisionView struct {
	Version      int           `json:"version"`
	Seat         int           `json:"seat"`
	HoleCards    []poker.Card  `json:"hole_cards"`
	Public       TableView     `json:"public"`
	Stack        int           `json:"stack"`
	Pot          int           `json:"pot"`
	SPR          float64       `json:"spr"`
	ToCall       int           `json:"to_call"`
	MinRaiseTo   int           `json:"min_raise_to"`
	MaxRaiseTo   int           `json:"max_raise_to"`
	LegalActions []LegalAction `json:"legal_actions"`
}

// CanRaise reports whether a raise is among the legal actions.
func (v DecisionView) CanRaise() bool {
	for _, a := range v.LegalActions {
		if a.Action == Raise {
			return true
		}
	}
	return false
}

// Community returns the visible board.
func (v DecisionView) Community() []poker.Card {
	return v.Public.Community
}

// Street returns the street being played.
func (v DecisionView) Street() Street {
	return v.Public.Street
}

// ActionTurn identifies the pending decision. ID changes every time an action
// is applied, so a timer armed for one turn cannot act on a later one.
type ActionTurn struct {
	ID         uint64 `json:"id"`
	HandNumber int    `json:"hand_number"`
	Seat       int    `json:"seat"`
	Street     Street `json:"street"`
}

func (t *Table) currentBet() int {
	if t.round == nil {
		return 0
	}
	return t.round.CurrentBet
}

func (t *Table) actionSeat() int {
	if !t.inHand || t.round == nil {
		return -1
	}
	return t.round.ToAct
}

func (t *Table) projection() TableView {
	v := TableView{
		TableID:        t.id,
		HandNumber:     t.handCount,
		InHand:         t.inHand,
		Street:         t.street,
		Pot:            t.pot,
		CurrentBet:     t.currentBet(),
		SmallBlind:     t.smallBlind,
		BigBlind:       t.bigBlind,
		DealerSeat:     t.dealerIndex,
		SmallBlindSeat: t.smallBlindIndex,
		BigBlindSeat:   t.bigBlindIndex,
		Community:      append([]poker.Card{}, t.community...),
		Seats:          make([]SeatView, len(t.players)),
		ActionSeat:     t.actionSeat(),
		TurnID:         t.turnID,
	}
	for i, p := range t.players {
		v.Seats[i] = SeatView{
			Seat:          p.Seat,
			Name:          p.Name,
			Kind:          p.Kind,
			Personality:   p.Personality,
			Stack:         p.Stack,
			CurrentBet:    p.CurrentBet,
			TotalInvested: p.TotalInvested,
			IsActive:      p.IsActive,
			AllIn:         p.AllIn,
			HasActed:      p.HasActed,
			Eliminated:    !p.Funded() && !p.AllIn,
			HasCards:      len(p.HoleCards) > 0 && p.IsActive,
		}
	}
	if seat := v.ActionSeat; seat >= 0 {
		v.LegalActions = t.round.ValidActions(t.players[seat])
		v.MinRaiseTo = t.round.MinRaiseTo()
	}
	return v
}

// effectiveStack is the most p can win or lose against the deepest opponent still in.
func (t *Table) effectiveStack(p *Player) int {
	deepest := -1
	for _, o := range t.players {
		if o != p && o.IsActive {
			deepest = max(deepest, o.Stack)
		}
	}
	if deepest < 0 {
		return p.Stack
	}
	return min(p.Stack, deepest)
}

func (t *Table) decisionView(seat int) DecisionView {
	p := t.players[seat]
	view := DecisionView{
		Version:   DecisionViewVersion,
		Seat:      seat,
		HoleCards: append([]poker.Card{}, p.HoleCards...),
		Public:    t.projection(),
		Stack:     p.Stack,
		Pot:       t.pot,
	}
	if t.pot > 0 {
		view.SPR = float64(t.effectiveStack(p)) / float64(t.pot)
	}
	if t.inHand && t.round != nil {
		view.ToCall = min(max(t.round.CurrentBet-p.CurrentBet, 0), p.Stack)
		view.MinRaiseTo = t.round.MinRaiseTo()
		view.MaxRaiseTo = p.CurrentBet + p.Stack
		view.LegalActions = t.round.ValidActions(p)
	}
	return view
}
