package poker

import (
	"testing"
)

func TestCardCreation(t *testing.T) {
	t.Parallel()
	aceSpades := NewCard(Ace, Spades)
	if aceSpades.Rank() != Ace {
		t.Errorf("Expected rank Ace, got %d", aceSpades.Rank())
	}
	if aceSpades.Suit() != Spades {
		t.Errorf("Expected suit Spades, got %d", aceSpades.Suit())
	}
	if aceSpades.String() != "As" {
		t.Errorf("Expected 'As', got %s", aceSpades.String())
	}

	twoClubs := NewCard(Two, Clubs)
	if twoClubs.String() != "2c" {
		t.Errorf("Expected '2c', got %s", twoClubs.String())
	}
	if twoClubs.Index() != 0 {
		t.Errorf("Expected index 0, got %d", twoClubs.Index())
	}
	if aceSpades.Index() != 51 {
		t.Errorf("Expected index 51, got %d", aceSpades.Index())
	}
}

func TestInvalidCard(t *testing.T) {
	t.Parallel()
	for _, c := range []Card{0, Card(3), Card(1) << 52} {
		if c.Valid() {
			t.Errorf("Expected %#x to be invalid", uint64(c))
		}
		if c.String() != "??" {
			t.Errorf("Expected '??' for invalid card, got %s", c.String())
		}
	}
}

func TestParseCard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		wantCard Card
		wantErr  bool
	}{
		{name: "ace of spades", input: "As", wantCard: NewCard(Ace, Spades)},
		{name: "two of hearts", input: "2h", wantCard: NewCard(Two, Hearts)},
		{name: "king of diamonds", input: "Kd", wantCard: NewCard(King, Diamonds)},
		{name: "ten of clubs", input: "Tc", wantCard: NewCard(Ten, Clubs)},
		{name: "lower case rank", input: "qs", wantCard: NewCard(Queen, Spades)},
		{name: "upper case suit", input: "7H", wantCard: NewCard(Seven, Hearts)},
		{name: "invalid rank", input: "Xs", wantErr: true},
		{name: "invalid suit", input: "Ax", wantErr: true},
		{name: "too long", input: "10s", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCard(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ParseCard(%q) expected error, got %s", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCard(%q) unexpected error: %v", tc.input, err)
			}
			if got != tc.wantCard {
				t.Errorf("ParseCard(%q) = %s, want %s", tc.input, got, tc.wantCard)
			}
		})
	}
}

func TestAll52Cards(t *testing.T) {
	t.Parallel()
	var all Hand
	for suit := range uint8(4) {
		for rank := range uint8(13) {
			c := NewCard(rank, suit)
			parsed, err := ParseCard(c.String())
			if err != nil {
				t.Fatalf("round trip of %s failed: %v", c, err)
			}
			if parsed != c {
				t.Errorf("Expected %s, got %s", c, parsed)
			}
			if all.HasCard(c) {
				t.Errorf("Card %s generated twice", c)
			}
			all.AddCard(c)
		}
	}
	if all.CountCards() != DeckSize {
		t.Errorf("Expected %d cards, got %d", DeckSize, all.CountCards())
	}
	if all.Complement() != 0 {
		t.Errorf("Expected empty complement, got %s", all.Complement())
	}
}

func TestHandOperations(t *testing.T) {
	t.Parallel()
	cards := MustParseCards("As", "Kh", "2c")
	h := NewHand(cards...)

	if h.CountCards() != 3 {
		t.Errorf("Expected 3 cards, got %d", h.CountCards())
	}
	for _, c := range cards {
		if !h.HasCard(c) {
			t.Errorf("Expected hand to contain %s", c)
		}
	}
	if h.HasCard(NewCard(Queen, Hearts)) {
		t.Error("Hand should not contain Qh")
	}

	// Cards comes back in bit order: clubs first, spades last.
	got := h.Cards()
	if FormatCards(got) != "2c Kh As" {
		t.Errorf("Expected '2c Kh As', got %q", FormatCards(got))
	}
	if h.Complement().CountCards() != DeckSize-3 {
		t.Errorf("Expected %d cards in complement, got %d", DeckSize-3, h.Complement().CountCards())
	}
}

func TestCardText(t *testing.T) {
	t.Parallel()
	c := NewCard(Jack, Diamonds)
	text, err := c.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "Jd" {
		t.Errorf("Expected 'Jd', got %q", text)
	}

	var back Card
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != c {
		t.Errorf("Expected %s, got %s", c, back)
	}

	if _, err := Card(0).MarshalText(); err == nil {
		t.Error("Expected error marshalling an invalid card")
	}
}
