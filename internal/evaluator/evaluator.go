// Package evaluator scores Hold'em hands for showdown and for decision making.
//
// Scores follow the convention "lower is stronger": a royal flush scores 0 and
// the weakest possible five-card hand scores MaxScore. Exact evaluation is used
// once five or more cards are known; with fewer, the evaluator estimates the
// final score by sampling board completions from the unseen cards.
package evaluator

import (
	"fmt"
	rand "math/rand/v2"
	"sync"

	ph "github.com/paulhankin/poker"

	"github.com/lox/pokertable/internal/randutil"
	"github.com/lox/pokertable/poker"
)

const (
	// DefaultTrials is the Monte Carlo sample size used when none is configured.
	DefaultTrials = 50

	defaultParallelThreshold = 2000
	defaultWorkers           = 4
)

// Result is the outcome of a single evaluation.
type Result struct {
	Score  int    `json:"score"`
	Label  string `json:"label"`
	Exact  bool   `json:"exact"`
	Trials int    `json:"trials,omitempty"`
}

// HandEvaluator scores a player's holding. remaining lists the cards that may
// still appear on the board; nil means every card not already visible.
type HandEvaluator interface {
	Evaluate(hole, community, remaining []poker.Card) Result
}

var (
	// phCards maps our card index (0-51) to the paulhankin representation.
	phCards [poker.DeckSize]ph.Card

	bestEval  int16
	worstEval int16

	// MaxScore is the score of the weakest five-card hand (7-5-4-3-2 offsuit).
	MaxScore int
)

func init() {
	suits := [4]ph.Suit{ph.Club, ph.Diamond, ph.Heart, ph.Spade}
	for suit := range uint8(4) {
		for rank := range uint8(13) {
			c := poker.NewCard(rank, suit)
			// paulhankin ranks run ace=1, deuce=2 ... king=13.
			r := ph.Rank(rank + 2)
			if rank == poker.Ace {
				r = 1
			}
			pc, err := ph.MakeCard(suits[suit], r)
			if err != nil {
				panic(fmt.Sprintf("evaluator: cannot map card %s: %v", c, err))
			}
			phCards[c.Index()] = pc
		}
	}

	bestEval = eval5(poker.MustParseCards("As", "Ks", "Qs", "Js", "Ts"))
	worstEval = eval5(poker.MustParseCards("7c", "5d", "4h", "3s", "2c"))
	MaxScore = int(bestEval) - int(worstEval)
}

func toPH(c poker.Card) ph.Card {
	return phCards[c.Index()]
}

func eval5(cards []poker.Card) int16 {
	var h [5]ph.Card
	for i := range h {
		h[i] = toPH(cards[i])
	}
	return ph.Eval5(&h)
}

func eval7(cards []poker.Card) int16 {
	var h [7]ph.Card
	for i := range h {
		h[i] = toPH(cards[i])
	}
	return ph.Eval7(&h)
}

// evalBest returns the strongest paulhankin evaluation for 5 to 7 cards along
// with the five or seven cards that produced it.
func evalBest(cards []poker.Card) (int16, []poker.Card) {
	switch len(cards) {
	case 5:
		return eval5(cards), cards
	case 6:
		var best int16 = -1 << 15
		var bestHand []poker.Card
		for skip := range cards {
			sub := make([]poker.Card, 0, 5)
			for i, c := range cards {
				if i != skip {
					sub = append(sub, c)
				}
			}
			if v := eval5(sub); v > best {
				best, bestHand = v, sub
			}
		}
		return best, bestHand
	default:
		return eval7(cards[:7]), cards[:7]
	}
}

func describe(cards []poker.Card) string {
	h := make([]ph.Card, len(cards))
	for i, c := range cards {
		h[i] = toPH(c)
	}
	label, err := ph.Describe(h)
	if err != nil {
		return "unknown"
	}
	return label
}

// ScoreCards evaluates five to seven known cards exactly.
func ScoreCards(cards []poker.Card) (Result, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Result{}, fmt.Errorf("exact evaluation needs 5-7 cards, got %d", len(cards))
	}
	if poker.NewHand(cards...).CountCards() != len(cards) {
		return Result{}, fmt.Errorf("duplicate or invalid cards: %s", poker.FormatCards(cards))
	}
	v, used := evalBest(cards)
	return Result{
		Score: int(bestEval) - int(v),
		Label: describe(used),
		Exact: true,
	}, nil
}

// Strength maps a score onto [0,1] where 1 is a royal flush.
func Strength(score int) float64 {
	if score <= 0 {
		return 1
	}
	if score >= MaxScore {
		return 0
	}
	return 1 - float64(score)/float64(MaxScore)
}

// Evaluator is the default HandEvaluator. It is safe for concurrent use.
type Evaluator struct {
	trials            int
	parallelThreshold int
	workers           int

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTrials sets the Monte Carlo sample size.
func WithTrials(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.trials = n
		}
	}
}

// WithSeed seeds the sampling RNG for reproducible estimates.
func WithSeed(seed int64) Option {
	return func(e *Evaluator) {
		e.rng = randutil.New(seed)
	}
}

// WithRNG uses rng for sampling.
func WithRNG(rng *rand.Rand) Option {
	return func(e *Evaluator) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithParallelism fans trial counts at or above threshold out across workers.
func WithParallelism(workers, threshold int) Option {
	return func(e *Evaluator) {
		if workers > 0 {
			e.workers = workers
		}
		if threshold > 0 {
			e.parallelThreshold = threshold
		}
	}
}

// New creates an evaluator. Without WithSeed or WithRNG sampling is seeded from the clock.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		trials:            DefaultTrials,
		parallelThreshold: defaultParallelThreshold,
		workers:           defaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng, _ = randutil.NewOrTime(0)
	}
	return e
}

// Trials returns the configured Monte Carlo sample size.
func (e *Evaluator) Trials() int {
	return e.trials
}

// Evaluate implements HandEvaluator.
func (e *Evaluator) Evaluate(hole, community, remaining []poker.Card) Result {
	if len(community) > 5 {
		community = community[:5]
	}
	known := make([]poker.Card, 0, len(hole)+len(community))
	known = append(known, hole...)
	known = append(known, community...)

	if len(known) >= 5 {
		if r, err := ScoreCards(known); err == nil {
			return r
		}
		return Result{Score: MaxScore, Label: "invalid hand", Exact: true}
	}

	return e.estimate(known, 5-len(community), remaining)
}

func (e *Evaluator) estimate(known []poker.Card, need int, remaining []poker.Card) Result {
	knownSet := poker.NewHand(known...)
	var unseen []poker.Card
	if remaining == nil {
		unseen = knownSet.Complement().Cards()
	} else {
		unseen = make([]poker.Card, 0, len(remaining))
		for _, c := range remaining {
			if !knownSet.HasCard(c) {
				unseen = append(unseen, c)
			}
		}
	}

	if len(known)+need != 7 || len(unseen) < need {
		return Result{Score: MaxScore, Label: "insufficient cards", Trials: 0}
	}

	var total int64
	parallel := e.trials >= e.parallelThreshold && e.workers > 1
	if parallel {
		var err error
		if total, err = e.sampleParallel(known, unseen, need); err != nil {
			parallel = false
		}
	}
	if !parallel {
		e.mu.Lock()
		total = sample(known, unseen, need, e.trials, e.rng)
		e.mu.Unlock()
	}

	mean := int((total + int64(e.trials)/2) / int64(e.trials))
	return Result{
		Score:  mean,
		Label:  fmt.Sprintf("estimate over %d trials", e.trials),
		Exact:  false,
		Trials: e.trials,
	}
}

// sample returns the summed score of n random board completions.
func sample(known, unseen []poker.Card, need, n int, rng *rand.Rand) int64 {
	pool := append([]poker.Card(nil), unseen...)
	hand := make([]poker.Card, 7)
	copy(hand, known)

	var total int64
	for range n {
		// Partial Fisher-Yates: the last need cards of pool form the sample.
		for i := range need {
			last := len(pool) - 1 - i
			j := rng.IntN(last + 1)
			pool[last], pool[j] = pool[j], pool[last]
			hand[len(known)+i] = pool[last]
		}
		total += int64(bestEval) - int64(eval7(hand))
	}
	return total
}
