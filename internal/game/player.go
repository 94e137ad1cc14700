package game

import (
	"fmt"

	"github.com/lox/pokertable/poker"
)

// Kind distinguishes who drives a seat.
type Kind int

const (
	Human Kind = iota
	AI
)

func (k Kind) String() string {
	switch k {
	case Human:
		return "human"
	case AI:
		return "ai"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind as its name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses "human" or "ai".
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "human":
		*k = Human
	case "ai":
		*k = AI
	default:
		return fmt.Errorf("unknown player kind %q", text)
	}
	return nil
}

// Seat describes a player joining the table.
type Seat struct {
	Name        string
	Kind        Kind
	Personality string
	// Stack overrides Config.StartingStack when positive.
	Stack    int
	Provider DecisionProvider
}

// Player is a seat's state. It is owned by the Table and mutated only by the
// betting round and the hand lifecycle.
type Player struct {
	Seat        int
	Name        string
	Kind        Kind
	Personality string
	Provider    DecisionProvider

	Stack         int
	HoleCards     []poker.Card
	CurrentBet    int
	TotalInvested int

	// IsActive is false once the player folds or when they start a hand with no chips.
	// An all-in player stays active.
	IsActive bool
	AllIn    bool
	HasActed bool
}

// CanAct reports whether the player may still make betting decisions this hand.
func (p *Player) CanAct() bool {
	return p.IsActive && !p.AllIn && p.Stack > 0
}

// Funded reports whether the player has chips to start a hand with.
func (p *Player) Funded() bool {
	return p.Stack > 0
}

func (p *Player) pay(amount int) int {
	if amount > p.Stack {
		amount = p.Stack
	}
	p.Stack -= amount
	p.CurrentBet += amount
	p.TotalInvested += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
	return amount
}

func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.TotalInvested = 0
	p.AllIn = false
	p.HasActed = false
	p.IsActive = p.Stack > 0
}

func (p *Player) String() string {
	return fmt.Sprintf("%s(seat %d, %d chips)", p.Name, p.Seat, p.Stack)
}
