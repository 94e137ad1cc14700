package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/poker"
)

var (
	ErrGameOver       = errors.New("fewer than two players have chips")
	ErrHandInProgress = errors.New("hand already in progress")
	ErrUnknownSeat    = errors.New("unknown seat")
)

// Table is the single-writer state machine for one Hold'em table.
type Table struct {
	mu sync.Mutex

	id        string
	cfg       Config
	logger    zerolog.Logger
	evaluator evaluator.HandEvaluator
	recorder  Recorder
	rng       *rand.Rand
	deck      *poker.Deck
	checks    bool

	players []*Player

	street          Street
	pot             int
	dealerIndex     int
	smallBlindIndex int
	bigBlindIndex   int
	community       []poker.Card
	handCount       int
	smallBlind      int
	bigBlind        int
	totalChips      int

	round       *BettingRound
	inHand      bool
	turnID      uint64
	handID      string
	startStacks []int
	events      []Event
	lastResult  *HandResult
	broken      *InvariantError
}

// NewTable seats players and validates the rules. Seats keep their slice order.
func NewTable(cfg Config, seats []Seat, opts ...Option) (*Table, error) {
	if err := cfg.Validate(len(seats)); err != nil {
		return nil, fmt.Errorf("invalid table config: %w", err)
	}

	t := &Table{
		id:              uuid.NewString(),
		cfg:             cfg,
		logger:          zerolog.Nop(),
		checks:          !cfg.SkipInvariantChecks,
		dealerIndex:     -1,
		smallBlindIndex: -1,
		bigBlindIndex:   -1,
		smallBlind:      cfg.SmallBlind,
		bigBlind:        cfg.BigBlind,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With().Str("component", "table").Str("table_id", t.id).Logger()

	if t.evaluator == nil {
		t.evaluator = evaluator.New()
	}
	if t.deck == nil {
		t.deck = poker.NewDeck(t.rng)
	}

	for i, s := range seats {
		stack := s.Stack
		if stack <= 0 {
			stack = cfg.StartingStack
		}
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("seat-%d", i)
		}
		t.players = append(t.players, &Player{
			Seat:        i,
			Name:        name,
			Kind:        s.Kind,
			Personality: s.Personality,
			Provider:    s.Provider,
			Stack:       stack,
			IsActive:    true,
		})
		t.totalChips += stack
	}
	return t, nil
}

// ID returns the table id.
func (t *Table) ID() string {
	return t.id
}

// Config returns the rules the table was created with.
func (t *Table) Config() Config {
	return t.cfg
}

func (t *Table) usable() error {
	if t.broken != nil {
		return fmt.Errorf("%w: %w", ErrTableBroken, t.broken)
	}
	return nil
}

func (t *Table) fundedCount() int {
	n := 0
	for _, p := range t.players {
		if p.Funded() {
			n++
		}
	}
	return n
}

// nextFunded returns the first funded seat strictly clockwise of from.
func (t *Table) nextFunded(from int) int {
	n := len(t.players)
	for i := 1; i <= n; i++ {
		seat := ((from+i)%n + n) % n
		if t.players[seat].Funded() {
			return seat
		}
	}
	return -1
}

// StartHand begins the next hand. It returns ErrGameOver without touching any
// state when fewer than two players have chips. If the blinds leave nobody
// able to act, the hand runs out to showdown before StartHand returns.
func (t *Table) StartHand() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startHand()
}

func (t *Table) startHand() error {
	if err := t.usable(); err != nil {
		return err
	}
	if t.inHand {
		return ErrHandInProgress
	}
	if t.fundedCount() < 2 {
		return ErrGameOver
	}

	err := t.guarded(opStartHand, func() error {
		t.handCount++
		t.events = nil
		t.community = nil
		t.pot = 0
		t.round = nil
		t.street = Preflop
		t.handID = uuid.NewString()
		t.recordTable(EventHandStart, 0, fmt.Sprintf("hand %d", t.handCount))
		t.escalateBlinds()

		t.startStacks = make([]int, len(t.players))
		for i, p := range t.players {
			p.resetForHand()
			t.startStacks[i] = p.Stack
		}

		t.rotateButton()
		return t.dealHoleCards()
	})
	if err != nil {
		return err
	}

	t.logger.Debug().
		Int("hand", t.handCount).
		Int("dealer", t.dealerIndex).
		Int("small_blind", t.smallBlind).
		Int("big_blind", t.bigBlind).
		Msg("Hand started")

	if err := t.postBlind(t.smallBlindIndex, t.smallBlind, "small"); err != nil {
		return err
	}
	if err := t.postBlind(t.bigBlindIndex, t.bigBlind, "big"); err != nil {
		return err
	}

	t.inHand = true
	t.turnID++
	first := t.nextFunded(t.bigBlindIndex)
	t.round = NewBettingRound(Preflop, t.players, first, t.bigBlind, t.bigBlind)
	if t.round.IsComplete() {
		return t.advance()
	}
	return nil
}

// escalateBlinds multiplies the blinds at the start of each new level,
// truncating to whole chips.
func (t *Table) escalateBlinds() {
	per := t.cfg.HandsPerLevel
	if per <= 0 || t.handCount <= 1 || (t.handCount-1)%per != 0 {
		return
	}
	sb := max(int(float64(t.smallBlind)*t.cfg.BlindMultiplier), 1)
	bb := max(int(float64(t.bigBlind)*t.cfg.BlindMultiplier), sb)
	if sb == t.smallBlind && bb == t.bigBlind {
		return
	}
	t.logger.Info().
		Int("hand", t.handCount).
		Int("small_blind", sb).
		Int("big_blind", bb).
		Msg("Blinds increased")
	t.smallBlind, t.bigBlind = sb, bb
	t.recordTable(EventBlindsIncreased, bb, fmt.Sprintf("%d/%d", sb, bb))
}

// rotateButton moves the button to the next funded seat and assigns blinds.
// Heads-up the dealer posts the small blind.
func (t *Table) rotateButton() {
	if t.dealerIndex < 0 {
		start := t.cfg.ButtonSeat
		if t.players[start].Funded() {
			t.dealerIndex = start
		} else {
			t.dealerIndex = t.nextFunded(start)
		}
	} else {
		t.dealerIndex = t.nextFunded(t.dealerIndex)
	}

	if t.fundedCount() == 2 {
		t.smallBlindIndex = t.dealerIndex
	} else {
		t.smallBlindIndex = t.nextFunded(t.dealerIndex)
	}
	t.bigBlindIndex = t.nextFunded(t.smallBlindIndex)
}

func (t *Table) dealHoleCards() error {
	t.deck.Reset()

	order := make([]*Player, 0, len(t.players))
	for seat := t.nextFunded(t.dealerIndex); len(order) < t.fundedCount(); seat = t.nextFunded(seat) {
		order = append(order, t.players[seat])
	}

	holes, err := t.deck.DealHoleCards(len(order))
	if err != nil {
		return err
	}
	for i, p := range order {
		p.HoleCards = []poker.Card{holes[i][0], holes[i][1]}
		t.record(Event{Type: EventDealHole, Street: Preflop, Seat: p.Seat})
	}
	return nil
}

func (t *Table) postBlind(seat, amount int, which string) error {
	return t.guarded(opPostBlind, func() error {
		p := t.players[seat]
		paid := p.pay(amount)
		t.pot += paid
		t.record(Event{Type: EventPostBlind, Street: Preflop, Seat: seat, Amount: paid, Detail: which})
		return nil
	})
}

// Projection returns the public view of the table.
func (t *Table) Projection() TableView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.projection()
}

// DecisionView returns what the provider for seat may see, including its hole cards.
func (t *Table) DecisionView(seat int) (DecisionView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seat < 0 || seat >= len(t.players) {
		return DecisionView{}, fmt.Errorf("%w: %d", ErrUnknownSeat, seat)
	}
	return t.decisionView(seat), nil
}

// LastResult returns the result of the most recently completed hand, or nil.
func (t *Table) LastResult() *HandResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastResult
}

// Events returns a copy of the current (or just completed) hand's event log.
func (t *Table) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Turn identifies the pending decision. Seat is -1 between hands.
func (t *Table) Turn() ActionTurn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ActionTurn{ID: t.turnID, HandNumber: t.handCount, Seat: t.actionSeat(), Street: t.street}
}

// InHand reports whether a hand is being played.
func (t *Table) InHand() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inHand
}

// HandCount returns the number of hands started.
func (t *Table) HandCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handCount
}

// Blinds returns the current small and big blind.
func (t *Table) Blinds() (small, big int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.smallBlind, t.bigBlind
}

// TotalChips returns the chip count captured when the table was created.
func (t *Table) TotalChips() int {
	return t.totalChips
}

// Player returns a copy of the player in seat.
func (t *Table) Player(seat int) (Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seat < 0 || seat >= len(t.players) {
		return Player{}, fmt.Errorf("%w: %d", ErrUnknownSeat, seat)
	}
	p := *t.players[seat]
	p.HoleCards = append([]poker.Card(nil), p.HoleCards...)
	return p, nil
}

// NumSeats returns the number of seats.
func (t *Table) NumSeats() int {
	return len(t.players)
}

// FundedSeats returns the seats that still hold chips.
func (t *Table) FundedSeats() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var seats []int
	for _, p := range t.players {
		if p.Funded() {
			seats = append(seats, p.Seat)
		}
	}
	return seats
}

// Err returns the invariant violation that halted the table, if any.
func (t *Table) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken == nil {
		return nil
	}
	return t.broken
}
