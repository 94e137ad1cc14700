// Package ai provides computer opponents that decide from hand strength.
//
// Each personality is a set of strength thresholds. A Player estimates the
// strength of its hand with an evaluator.HandEvaluator, then raises, calls or
// folds depending on where that estimate falls.
package ai

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"strings"
	"sync"

	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/internal/randutil"
)

// Personality names a playing style.
type Personality string

const (
	Tight          Personality = "tight"
	Loose          Personality = "loose"
	Aggressive     Personality = "aggressive"
	CallingStation Personality = "calling-station"
	Random         Personality = "random"
)

var ErrUnknownPersonality = errors.New("unknown personality")

// Personalities returns every supported personality in a stable order.
func Personalities() []Personality {
	return []Personality{Tight, Loose, Aggressive, CallingStation, Random}
}

// ParsePersonality accepts a personality name, ignoring case. "station" and
// "callingstation" are accepted for CallingStation.
func ParsePersonality(s string) (Personality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tight":
		return Tight, nil
	case "loose":
		return Loose, nil
	case "aggressive", "aggro":
		return Aggressive, nil
	case "calling-station", "callingstation", "station":
		return CallingStation, nil
	case "random":
		return Random, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPersonality, s)
}

func (p Personality) String() string { return string(p) }

// UnmarshalText allows personalities in config files and flags.
func (p *Personality) UnmarshalText(text []byte) error {
	v, err := ParsePersonality(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Profile holds the thresholds behind a personality. Strengths are on the
// evaluator.Strength scale where 1 is a royal flush.
type Profile struct {
	// CallAbove is the strength needed to call a bet.
	CallAbove float64
	// CheapCall is the largest price, as a share of the pot after calling,
	// that is called with any hand.
	CheapCall float64
	// RaiseAbove is the strength needed to raise.
	RaiseAbove float64
	// RaiseSize is the raise on top of the current bet as a share of the pot.
	RaiseSize float64
	// Bluff is the chance of raising with any hand.
	Bluff float64
	// ShoveSPR moves all in with a calling hand once the stack to pot ratio drops below it.
	ShoveSPR float64
}

var profiles = map[Personality]Profile{
	Tight:      {CallAbove: 0.55, CheapCall: 0.10, RaiseAbove: 0.68, RaiseSize: 0.75, Bluff: 0.02, ShoveSPR: 1},
	Loose:      {CallAbove: 0.35, CheapCall: 0.25, RaiseAbove: 0.62, RaiseSize: 0.5, Bluff: 0.08, ShoveSPR: 0.5},
	Aggressive: {CallAbove: 0.42, CheapCall: 0.20, RaiseAbove: 0.50, RaiseSize: 1.0, Bluff: 0.20, ShoveSPR: 1.5},
}

// ProfileFor returns the thresholds of a threshold-based personality.
func ProfileFor(p Personality) (Profile, bool) {
	prof, ok := profiles[p]
	return prof, ok
}

// Player is a game.DecisionProvider for one seat. It is safe for concurrent
// use, though a table only ever asks one seat at a time.
type Player struct {
	personality Personality
	profile     Profile
	eval        evaluator.HandEvaluator

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Player.
type Option func(*Player)

// WithEvaluator sets the evaluator used to judge hand strength.
func WithEvaluator(e evaluator.HandEvaluator) Option {
	return func(p *Player) {
		p.eval = e
	}
}

// WithRNG sets the source for bluffs and random play.
func WithRNG(rng *rand.Rand) Option {
	return func(p *Player) {
		p.rng = rng
	}
}

// WithSeed seeds the source for bluffs and random play.
func WithSeed(seed int64) Option {
	return func(p *Player) {
		p.rng = randutil.New(seed)
	}
}

// WithProfile overrides the thresholds of the personality.
func WithProfile(prof Profile) Option {
	return func(p *Player) {
		p.profile = prof
	}
}

// New creates a player with the named personality.
func New(name string, opts ...Option) (*Player, error) {
	personality, err := ParsePersonality(name)
	if err != nil {
		return nil, err
	}
	p := &Player{
		personality: personality,
		profile:     profiles[personality],
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng, _ = randutil.NewOrTime(0)
	}
	if p.eval == nil {
		p.eval = evaluator.New()
	}
	return p, nil
}

// Personality returns the style the player was created with.
func (p *Player) Personality() Personality {
	return p.personality
}

// Decide implements game.DecisionProvider.
func (p *Player) Decide(view game.DecisionView) game.Decision {
	switch p.personality {
	case CallingStation:
		return game.Decision{Action: game.Call}
	case Random:
		return p.random(view)
	}
	return p.byStrength(view, p.strength(view))
}

func (p *Player) strength(view game.DecisionView) float64 {
	if len(view.HoleCards) == 0 {
		return 0
	}
	res := p.eval.Evaluate(view.HoleCards, view.Community(), nil)
	return evaluator.Strength(res.Score)
}

func (p *Player) byStrength(view game.DecisionView, s float64) game.Decision {
	prof := p.profile

	if view.CanRaise() {
		if s >= prof.CallAbove && view.SPR > 0 && view.SPR < prof.ShoveSPR {
			return game.Decision{Action: game.Raise, Amount: view.MaxRaiseTo}
		}
		if s >= prof.RaiseAbove || p.chance(prof.Bluff) {
			return game.Decision{Action: game.Raise, Amount: raiseAmount(view, prof.RaiseSize)}
		}
	}

	if view.ToCall == 0 {
		return game.Decision{Action: game.Call}
	}
	price := float64(view.ToCall) / float64(view.Pot+view.ToCall)
	if s >= prof.CallAbove || price <= prof.CheapCall {
		return game.Decision{Action: game.Call}
	}
	return game.Decision{Action: game.Fold}
}

// raiseAmount sizes a raise as a share of the pot on top of the current bet,
// kept within the legal range.
func raiseAmount(view game.DecisionView, size float64) int {
	target := view.Public.CurrentBet + int(float64(view.Pot)*size)
	return min(max(target, view.MinRaiseTo), view.MaxRaiseTo)
}

func (p *Player) chance(prob float64) bool {
	if prob <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < prob
}

// random picks uniformly among the legal actions, and a uniform raise size.
func (p *Player) random(view game.DecisionView) game.Decision {
	if len(view.LegalActions) == 0 {
		return game.Decision{Action: game.Fold}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	la := view.LegalActions[p.rng.IntN(len(view.LegalActions))]
	switch la.Action {
	case game.Raise:
		amount := la.Min
		if la.Max > la.Min {
			amount += p.rng.IntN(la.Max - la.Min + 1)
		}
		return game.Decision{Action: game.Raise, Amount: amount}
	case game.Fold:
		// Folding when checking is free only throws the hand away.
		if view.ToCall == 0 {
			return game.Decision{Action: game.Call}
		}
	}
	return game.Decision{Action: la.Action}
}

var _ game.DecisionProvider = (*Player)(nil)
