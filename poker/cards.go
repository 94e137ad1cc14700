// Package poker provides card primitives and the dealing deck used by the table engine.
package poker

import (
	"fmt"
	"math/bits"
	"strings"
)

// Card is a single card stored as one bit of a uint64.
// Layout: [13 clubs][13 diamonds][13 hearts][13 spades], deuce lowest.
type Card uint64

// Hand is a set of cards using the same bit layout as Card.
type Hand uint64

// Suits
const (
	Clubs    uint8 = 0
	Diamonds uint8 = 1
	Hearts   uint8 = 2
	Spades   uint8 = 3
)

// Ranks, 0-12 for deuce through ace
const (
	Two   uint8 = 0
	Three uint8 = 1
	Four  uint8 = 2
	Five  uint8 = 3
	Six   uint8 = 4
	Seven uint8 = 5
	Eight uint8 = 6
	Nine  uint8 = 7
	Ten   uint8 = 8
	Jack  uint8 = 9
	Queen uint8 = 10
	King  uint8 = 11
	Ace   uint8 = 12
)

const (
	rankChars = "23456789TJQKA"
	suitChars = "cdhs"

	// DeckSize is the number of cards in a standard deck.
	DeckSize = 52

	fullDeck Hand = (1 << DeckSize) - 1
)

// NewCard creates a card from rank and suit.
func NewCard(rank, suit uint8) Card {
	return Card(1) << (suit*13 + rank)
}

// Index returns the bit position of the card (0-51), or -1 for an invalid card.
func (c Card) Index() int {
	if c == 0 || bits.OnesCount64(uint64(c)) != 1 || c > 1<<(DeckSize-1) {
		return -1
	}
	return bits.TrailingZeros64(uint64(c))
}

// Valid reports whether c is exactly one of the 52 cards.
func (c Card) Valid() bool {
	return c.Index() >= 0
}

// Rank returns the rank of the card (0-12).
func (c Card) Rank() uint8 {
	idx := c.Index()
	if idx < 0 {
		return 255
	}
	return uint8(idx % 13)
}

// Suit returns the suit of the card (0-3).
func (c Card) Suit() uint8 {
	idx := c.Index()
	if idx < 0 {
		return 255
	}
	return uint8(idx / 13)
}

// String returns the two character form, e.g. "As" or "Td".
func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return string(rankChars[c.Rank()]) + string(suitChars[c.Suit()])
}

// MarshalText encodes the card in its two character form.
func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid card: %#x", uint64(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText parses the two character form.
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses a string like "As" into a Card.
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid card string: %q", s)
	}

	rank := strings.IndexByte(rankChars, upper(s[0]))
	if rank < 0 {
		return 0, fmt.Errorf("invalid rank: %c", s[0])
	}
	suit := strings.IndexByte(suitChars, lower(s[1]))
	if suit < 0 {
		return 0, fmt.Errorf("invalid suit: %c", s[1])
	}

	return NewCard(uint8(rank), uint8(suit)), nil
}

// ParseCards parses a list of card strings.
func ParseCards(strs ...string) ([]Card, error) {
	cards := make([]Card, 0, len(strs))
	for _, s := range strs {
		c, err := ParseCard(s)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards is ParseCards for fixtures; it panics on malformed input.
func MustParseCards(strs ...string) []Card {
	cards, err := ParseCards(strs...)
	if err != nil {
		panic(err)
	}
	return cards
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}

// NewHand creates a hand from multiple cards.
func NewHand(cards ...Card) Hand {
	var h Hand
	for _, c := range cards {
		h |= Hand(c)
	}
	return h
}

// AddCard adds a card to the hand.
func (h *Hand) AddCard(c Card) {
	*h |= Hand(c)
}

// HasCard checks if the hand contains a specific card.
func (h Hand) HasCard(c Card) bool {
	return h&Hand(c) != 0
}

// CountCards returns the number of cards in the hand.
func (h Hand) CountCards() int {
	return bits.OnesCount64(uint64(h))
}

// Cards returns the cards of the hand in bit order.
func (h Hand) Cards() []Card {
	cards := make([]Card, 0, h.CountCards())
	for rest := uint64(h); rest != 0; rest &= rest - 1 {
		cards = append(cards, Card(rest&-rest))
	}
	return cards
}

// Complement returns every card of the deck that is not in h.
func (h Hand) Complement() Hand {
	return fullDeck &^ h
}

func (h Hand) String() string {
	cards := h.Cards()
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// FormatCards renders cards separated by spaces, keeping their order.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
