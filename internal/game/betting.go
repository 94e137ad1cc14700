package game

import (
	"errors"
	"fmt"
	"strings"
)

// Street represents the betting round
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

var streetNames = [...]string{"preflop", "flop", "turn", "river", "showdown"}

func (s Street) String() string {
	if s < Preflop || s > Showdown {
		return fmt.Sprintf("street(%d)", int(s))
	}
	return streetNames[s]
}

func (s Street) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Street) UnmarshalText(text []byte) error {
	for i, name := range streetNames {
		if name == string(text) {
			*s = Street(i)
			return nil
		}
	}
	return fmt.Errorf("unknown street %q", text)
}

// Action is a decision kind. Calling zero chips is a check.
type Action int

const (
	Fold Action = iota
	Call
	Raise
)

func (a Action) String() string {
	switch a {
	case Fold:
		return "fold"
	case Call:
		return "call"
	case Raise:
		return "raise"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAction accepts fold, call, check (alias of call) and raise.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold":
		return Fold, nil
	case "call", "check":
		return Call, nil
	case "raise", "bet":
		return Raise, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Decision is what a provider or client submits for its turn.
// For Raise, Amount is the total street bet to raise to.
type Decision struct {
	Action Action `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// LegalAction describes an action available to the seat to act. For Call the
// bounds are the chips it costs; for Raise they bound the raise-to total.
type LegalAction struct {
	Action Action `json:"action"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
}

// Rejected actions. None of these mutate state.
var (
	ErrOutOfTurn        = errors.New("action out of turn")
	ErrRaiseTooSmall    = errors.New("raise below minimum")
	ErrRaiseNotAllowed  = errors.New("raise not allowed")
	ErrNoHandInProgress = errors.New("no hand in progress")
	ErrUnknownAction    = errors.New("unknown action")
)

// Applied describes the effect of an accepted action.
type Applied struct {
	Seat     int       `json:"seat"`
	Type     EventType `json:"type"`
	Paid     int       `json:"paid"`
	RaiseTo  int       `json:"raise_to,omitempty"`
	Reopened bool      `json:"reopened,omitempty"`
}

// BettingRound drives a single street.
type BettingRound struct {
	Street     Street
	CurrentBet int
	BigBlind   int
	LastRaiser int
	ToAct      int

	players []*Player
}

// NewBettingRound starts a street. The first seat to act is the first player
// needing action clockwise from start (inclusive).
func NewBettingRound(street Street, players []*Player, start, currentBet, bigBlind int) *BettingRound {
	br := &BettingRound{
		Street:     street,
		CurrentBet: currentBet,
		BigBlind:   bigBlind,
		LastRaiser: -1,
		ToAct:      -1,
		players:    players,
	}
	if !br.IsComplete() {
		br.ToAct = br.nextFrom(start)
	}
	return br
}

// MinRaiseTo is the smallest legal raise-to total that is not an all-in.
func (br *BettingRound) MinRaiseTo() int {
	return br.CurrentBet + br.BigBlind
}

func (br *BettingRound) needsAction(p *Player) bool {
	return p.CanAct() && (!p.HasActed || p.CurrentBet < br.CurrentBet)
}

// nextFrom returns the first seat needing action clockwise from start, or -1.
func (br *BettingRound) nextFrom(start int) int {
	n := len(br.players)
	for i := range n {
		seat := ((start+i)%n + n) % n
		if br.needsAction(br.players[seat]) {
			return seat
		}
	}
	return -1
}

// IsComplete reports whether the street is over: at most one player is still
// contesting, nobody needs to act, or the only player able to act has already
// matched the bet with nobody left to bet against.
func (br *BettingRound) IsComplete() bool {
	active, canAct := 0, 0
	var lone *Player
	pending := false
	for _, p := range br.players {
		if p.IsActive {
			active++
		}
		if p.CanAct() {
			canAct++
			lone = p
		}
		if br.needsAction(p) {
			pending = true
		}
	}
	if active <= 1 || !pending {
		return true
	}
	return canAct == 1 && lone.CurrentBet >= br.CurrentBet
}

// ValidActions lists what p may do. It is empty unless p is the seat to act.
func (br *BettingRound) ValidActions(p *Player) []LegalAction {
	if p == nil || p.Seat != br.ToAct || !p.CanAct() {
		return nil
	}

	toCall := min(br.CurrentBet-p.CurrentBet, p.Stack)
	actions := []LegalAction{
		{Action: Fold},
		{Action: Call, Min: toCall, Max: toCall},
	}

	reach := p.CurrentBet + p.Stack
	if !p.HasActed && reach > br.CurrentBet {
		actions = append(actions, LegalAction{
			Action: Raise,
			Min:    min(br.MinRaiseTo(), reach),
			Max:    reach,
		})
	}
	return actions
}

// Apply validates and applies a decision for seat. On error nothing changes.
func (br *BettingRound) Apply(seat int, d Decision) (Applied, error) {
	if br.ToAct < 0 {
		return Applied{}, fmt.Errorf("%s betting complete: %w", br.Street, ErrOutOfTurn)
	}
	if seat != br.ToAct {
		return Applied{}, fmt.Errorf("seat %d acted, seat %d to act: %w", seat, br.ToAct, ErrOutOfTurn)
	}
	p := br.players[seat]

	var applied Applied
	switch d.Action {
	case Fold:
		p.IsActive = false
		applied = Applied{Seat: seat, Type: EventFold}

	case Call:
		toCall := br.CurrentBet - p.CurrentBet
		paid := p.pay(toCall)
		applied = Applied{Seat: seat, Type: EventCall, Paid: paid}
		switch {
		case paid == 0:
			applied.Type = EventCheck
		case p.AllIn:
			applied.Type = EventAllIn
		}

	case Raise:
		reach := p.CurrentBet + p.Stack
		if p.HasActed {
			return Applied{}, fmt.Errorf("seat %d has not been reopened: %w", seat, ErrRaiseNotAllowed)
		}
		if reach <= br.CurrentBet {
			return Applied{}, fmt.Errorf("seat %d cannot exceed %d: %w", seat, br.CurrentBet, ErrRaiseNotAllowed)
		}
		to := min(d.Amount, reach)
		if to < br.MinRaiseTo() && to != reach {
			return Applied{}, fmt.Errorf("raise to %d, minimum %d: %w", d.Amount, br.MinRaiseTo(), ErrRaiseTooSmall)
		}

		full := to >= br.MinRaiseTo()
		paid := p.pay(to - p.CurrentBet)
		applied = Applied{Seat: seat, Type: EventRaise, Paid: paid, RaiseTo: to, Reopened: full}
		if p.AllIn {
			applied.Type = EventAllIn
		}

		br.CurrentBet = to
		if full {
			br.LastRaiser = seat
			for _, other := range br.players {
				if other != p && other.CanAct() {
					other.HasActed = false
				}
			}
		}

	default:
		return Applied{}, fmt.Errorf("%w: %d", ErrUnknownAction, int(d.Action))
	}

	p.HasActed = true
	if br.IsComplete() {
		br.ToAct = -1
	} else {
		br.ToAct = br.nextFrom(seat + 1)
	}
	return applied, nil
}
