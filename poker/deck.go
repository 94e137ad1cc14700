package poker

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// ErrInsufficientCards is returned when a deal cannot be satisfied by the cards left in the deck.
var ErrInsufficientCards = errors.New("insufficient cards in deck")

// Deck is a 52-card dealing shoe. It tracks which cards have been dealt and
// which have been burnt so no card can surface twice within a hand.
type Deck struct {
	cards [DeckSize]Card
	next  int
	rng   *rand.Rand

	// fixed holds a pinned order used instead of shuffling.
	fixed []Card

	dealt Hand
	burnt Hand
}

// NewDeck creates a new shuffled deck. A nil rng falls back to the global source.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.Reset()
	return d
}

// NewDeckFromOrder creates a deck that deals exactly the given order, top first.
// The order is restored on every Reset.
func NewDeckFromOrder(order []Card) (*Deck, error) {
	if len(order) != DeckSize {
		return nil, fmt.Errorf("deck order has %d cards, want %d", len(order), DeckSize)
	}
	var seen Hand
	for i, c := range order {
		if !c.Valid() {
			return nil, fmt.Errorf("invalid card at position %d", i)
		}
		if seen.HasCard(c) {
			return nil, fmt.Errorf("duplicate card %s at position %d", c, i)
		}
		seen.AddCard(c)
	}

	d := &Deck{fixed: append([]Card(nil), order...)}
	d.Reset()
	return d, nil
}

// StackedOrder builds a full deck order beginning with top, followed by every
// remaining card in a stable order. Useful for pinning hole and board cards.
func StackedOrder(top ...Card) ([]Card, error) {
	var used Hand
	order := make([]Card, 0, DeckSize)
	for _, c := range top {
		if !c.Valid() || used.HasCard(c) {
			return nil, fmt.Errorf("invalid or duplicate card %s", c)
		}
		used.AddCard(c)
		order = append(order, c)
	}
	for _, c := range used.Complement().Cards() {
		order = append(order, c)
	}
	return order, nil
}

// Reset rebuilds the deck, reshuffles it and clears burn and dealt tracking.
func (d *Deck) Reset() {
	d.next = 0
	d.dealt = 0
	d.burnt = 0

	if d.fixed != nil {
		copy(d.cards[:], d.fixed)
		return
	}

	i := 0
	for suit := range uint8(4) {
		for rank := range uint8(13) {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	d.shuffle()
}

// shuffle is Fisher-Yates over the whole deck.
func (d *Deck) shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// CardsRemaining returns the number of cards left in the deck.
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}

// Remaining returns a copy of the undealt cards in deal order.
func (d *Deck) Remaining() []Card {
	return append([]Card(nil), d.cards[d.next:]...)
}

// Dealt returns every card handed out to players or the board since the last Reset.
func (d *Deck) Dealt() Hand {
	return d.dealt
}

// Burnt returns the burnt cards since the last Reset.
func (d *Deck) Burnt() Hand {
	return d.burnt
}

func (d *Deck) pop() Card {
	c := d.cards[d.next]
	d.next++
	return c
}

// DealHoleCards deals two cards to each of n players, one card at a time
// round-robin. Nothing is consumed on failure.
func (d *Deck) DealHoleCards(n int) ([][2]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid player count %d", n)
	}
	if d.CardsRemaining() < 2*n {
		return nil, fmt.Errorf("deal %d hole cards: %w", 2*n, ErrInsufficientCards)
	}

	holes := make([][2]Card, n)
	for round := range 2 {
		for p := range n {
			c := d.pop()
			d.dealt.AddCard(c)
			holes[p][round] = c
		}
	}
	return holes, nil
}

// burnAndDeal burns one card then deals n. Nothing is consumed on failure.
func (d *Deck) burnAndDeal(n int) ([]Card, error) {
	if d.CardsRemaining() < n+1 {
		return nil, fmt.Errorf("burn and deal %d: %w", n, ErrInsufficientCards)
	}
	d.burnt.AddCard(d.pop())

	cards := make([]Card, n)
	for i := range cards {
		cards[i] = d.pop()
		d.dealt.AddCard(cards[i])
	}
	return cards, nil
}

// DealFlop burns one card and deals three.
func (d *Deck) DealFlop() ([3]Card, error) {
	cards, err := d.burnAndDeal(3)
	if err != nil {
		return [3]Card{}, err
	}
	return [3]Card{cards[0], cards[1], cards[2]}, nil
}

// DealTurn burns one card and deals one.
func (d *Deck) DealTurn() (Card, error) {
	cards, err := d.burnAndDeal(1)
	if err != nil {
		return 0, err
	}
	return cards[0], nil
}

// DealRiver burns one card and deals one.
func (d *Deck) DealRiver() (Card, error) {
	return d.DealTurn()
}
