package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/poker"
)

const (
	MinSeats = 2
	MaxSeats = 10
)

// Config holds the rules of a table.
type Config struct {
	SmallBlind    int
	BigBlind      int
	StartingStack int

	// HandsPerLevel is the number of hands between blind increases; 0 disables escalation.
	HandsPerLevel   int
	BlindMultiplier float64

	// ButtonSeat is where the button starts; it moves to the next funded seat if empty.
	ButtonSeat int

	// SkipInvariantChecks disables the guard for bulk simulation.
	SkipInvariantChecks bool
}

// DefaultConfig returns 5/10 blinds, 1000 chip stacks and blinds that grow by
// half every ten hands.
func DefaultConfig() Config {
	return Config{
		SmallBlind:      5,
		BigBlind:        10,
		StartingStack:   1000,
		HandsPerLevel:   10,
		BlindMultiplier: 1.5,
	}
}

// Validate checks the config against a seat count.
func (c Config) Validate(seats int) error {
	var errs []error
	if c.SmallBlind <= 0 {
		errs = append(errs, fmt.Errorf("small blind must be positive, got %d", c.SmallBlind))
	}
	if c.BigBlind < c.SmallBlind {
		errs = append(errs, fmt.Errorf("big blind %d is smaller than small blind %d", c.BigBlind, c.SmallBlind))
	}
	if c.StartingStack <= 0 {
		errs = append(errs, fmt.Errorf("starting stack must be positive, got %d", c.StartingStack))
	}
	if c.HandsPerLevel < 0 {
		errs = append(errs, fmt.Errorf("hands per level cannot be negative, got %d", c.HandsPerLevel))
	}
	if c.HandsPerLevel > 0 && c.BlindMultiplier < 1 {
		errs = append(errs, fmt.Errorf("blind multiplier must be at least 1, got %g", c.BlindMultiplier))
	}
	if seats < MinSeats || seats > MaxSeats {
		errs = append(errs, fmt.Errorf("table needs %d-%d seats, got %d", MinSeats, MaxSeats, seats))
	}
	if c.ButtonSeat < 0 || (seats > 0 && c.ButtonSeat >= seats) {
		errs = append(errs, fmt.Errorf("button seat %d out of range", c.ButtonSeat))
	}
	return errors.Join(errs...)
}

// Option configures a Table during creation.
type Option func(*Table)

// WithLogger sets the table logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithEvaluator sets the showdown evaluator.
func WithEvaluator(e evaluator.HandEvaluator) Option {
	return func(t *Table) {
		if e != nil {
			t.evaluator = e
		}
	}
}

// WithRecorder receives a HandRecord after every completed hand.
func WithRecorder(r Recorder) Option {
	return func(t *Table) {
		t.recorder = r
	}
}

// WithRNG shuffles with rng. Ignored when WithDeck is also given.
func WithRNG(rng *rand.Rand) Option {
	return func(t *Table) {
		t.rng = rng
	}
}

// WithDeck deals from d, typically a fixed order from poker.NewDeckFromOrder.
func WithDeck(d *poker.Deck) Option {
	return func(t *Table) {
		t.deck = d
	}
}

// WithInvariantChecks toggles the invariant guard.
func WithInvariantChecks(enabled bool) Option {
	return func(t *Table) {
		t.checks = enabled
	}
}

// WithID sets the table id instead of a generated uuid.
func WithID(id string) Option {
	return func(t *Table) {
		if id != "" {
			t.id = id
		}
	}
}
