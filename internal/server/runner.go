package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/pokertable/internal/game"
)

var (
	ErrSeatTaken      = errors.New("seat already taken")
	ErrNotHumanSeat   = errors.New("seat is played by the computer")
	ErrNotSeated      = errors.New("not seated at this table")
	ErrRunnerBusy     = errors.New("too many pending actions")
	ErrSubscriberGone = errors.New("subscriber is closed")
)

// Subscriber receives table messages. Send must not block.
type Subscriber interface {
	Send(msg *Message) error
}

type request struct {
	sub      Subscriber
	seat     int
	decision game.Decision
	turnID   *uint64
}

// TableRunner drives one table. Computer seats are played with Step, human
// seats wait for a submitted action or a turn timeout. Every action goes
// through the table's own Act path, so the table stays the single writer.
type TableRunner struct {
	table     *game.Table
	logger    zerolog.Logger
	clock     quartz.Clock
	timeout   time.Duration
	aiDelay   time.Duration
	handDelay time.Duration

	requests chan request
	wake     chan struct{}

	mu    sync.Mutex
	subs  map[Subscriber]int
	seats map[int]Subscriber
}

// RunnerOption configures a TableRunner.
type RunnerOption func(*TableRunner)

// WithClock sets the clock used for turn timeouts and delays.
func WithClock(clock quartz.Clock) RunnerOption {
	return func(r *TableRunner) {
		r.clock = clock
	}
}

// WithTurnTimeout sets how long a human seat has to act before it folds.
func WithTurnTimeout(d time.Duration) RunnerOption {
	return func(r *TableRunner) {
		r.timeout = d
	}
}

// WithAIDelay pauses before each computer action and between hands.
func WithAIDelay(d time.Duration) RunnerOption {
	return func(r *TableRunner) {
		r.aiDelay = d
		r.handDelay = d
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger zerolog.Logger) RunnerOption {
	return func(r *TableRunner) {
		r.logger = logger
	}
}

// NewTableRunner wraps a table. Call Run to start play.
func NewTableRunner(table *game.Table, opts ...RunnerOption) *TableRunner {
	r := &TableRunner{
		table:    table,
		logger:   zerolog.Nop(),
		clock:    quartz.NewReal(),
		timeout:  30 * time.Second,
		requests: make(chan request, 16),
		wake:     make(chan struct{}, 1),
		subs:     make(map[Subscriber]int),
		seats:    make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "runner").Str("table_id", table.ID()).Logger()
	return r
}

// Table returns the table being run.
func (r *TableRunner) Table() *game.Table {
	return r.table
}

// Join subscribes sub to the table. A seat of -1 watches without playing;
// otherwise the seat must be a human seat nobody else holds.
func (r *TableRunner) Join(sub Subscriber, seat int) error {
	if seat >= 0 {
		p, err := r.table.Player(seat)
		if err != nil {
			return err
		}
		if p.Provider != nil || p.Kind != game.Human {
			return fmt.Errorf("seat %d: %w", seat, ErrNotHumanSeat)
		}
	}

	r.mu.Lock()
	if seat >= 0 {
		if holder, ok := r.seats[seat]; ok && holder != sub {
			r.mu.Unlock()
			return fmt.Errorf("seat %d: %w", seat, ErrSeatTaken)
		}
	}
	if old, ok := r.subs[sub]; ok && old >= 0 && old != seat {
		delete(r.seats, old)
	}
	r.subs[sub] = seat
	if seat >= 0 {
		r.seats[seat] = sub
	}
	r.mu.Unlock()

	r.logger.Info().Int("seat", seat).Msg("Subscriber joined")
	r.send(sub, MessageTypeJoined, JoinedData{TableID: r.table.ID(), Seat: seat})
	r.sendState(sub, seat)

	// A player joining on their own turn needs the pending request.
	if turn := r.table.Turn(); seat >= 0 && turn.Seat == seat {
		r.requestAction(turn)
	}
	return nil
}

// Leave detaches sub. The seat stays in the game and times out when it is to act.
func (r *TableRunner) Leave(sub Subscriber) {
	r.mu.Lock()
	seat, ok := r.subs[sub]
	if ok {
		delete(r.subs, sub)
		if r.seats[seat] == sub {
			delete(r.seats, seat)
		}
	}
	r.mu.Unlock()

	if ok {
		r.logger.Info().Int("seat", seat).Msg("Subscriber left")
	}
}

// Submit queues an action from a seated subscriber. When turnID is set the
// action only applies to that turn.
func (r *TableRunner) Submit(sub Subscriber, d game.Decision, turnID *uint64) error {
	r.mu.Lock()
	seat, ok := r.subs[sub]
	r.mu.Unlock()
	if !ok || seat < 0 {
		return ErrNotSeated
	}

	select {
	case r.requests <- request{sub: sub, seat: seat, decision: d, turnID: turnID}:
		return nil
	default:
		return ErrRunnerBusy
	}
}

// Run plays hands until the game is over, the table breaks or ctx is done.
func (r *TableRunner) Run(ctx context.Context) error {
	r.logger.Info().Msg("Table runner started")
	defer r.logger.Info().Msg("Table runner stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if !r.table.InHand() {
			if r.table.HandCount() > 0 && !r.pause(ctx, r.handDelay) {
				return nil
			}
			done, err := r.startHand()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			continue
		}

		turn := r.table.Turn()
		p, err := r.table.Player(turn.Seat)
		if err != nil {
			return err
		}

		if p.Provider != nil {
			r.drain()
			if !r.pause(ctx, r.aiDelay) {
				return nil
			}
			res, err := r.table.Step()
			if err != nil {
				return err
			}
			r.applied(res)
			continue
		}

		if err := r.awaitHuman(ctx, turn); err != nil {
			return err
		}
	}
}

func (r *TableRunner) startHand() (gameOver bool, err error) {
	err = r.table.StartHand()
	if errors.Is(err, game.ErrGameOver) {
		r.logger.Info().Ints("funded", r.table.FundedSeats()).Msg("Game over")
		r.broadcast(MessageTypeTableClosed, r.table.Projection())
		return true, nil
	}
	if err != nil {
		return false, err
	}

	r.broadcastState()
	if !r.table.InHand() {
		// The blinds put everyone all in and the hand ran out immediately.
		r.broadcast(MessageTypeHandResult, r.table.LastResult())
	}
	return false, nil
}

// awaitHuman waits for the seat in turn to act. The timeout timer captures the
// turn id, so it can fold this turn at most once and never a later one.
func (r *TableRunner) awaitHuman(ctx context.Context, turn game.ActionTurn) error {
	timer := r.clock.AfterFunc(r.timeout, func() { r.expire(turn) }, "runner", "turn")
	defer timer.Stop()

	r.requestAction(turn)

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-r.requests:
			r.handle(req)
		case <-r.wake:
		}

		if err := r.table.Err(); err != nil {
			return err
		}
		if r.table.Turn().ID != turn.ID {
			return nil
		}
	}
}

func (r *TableRunner) expire(turn game.ActionTurn) {
	defer r.poke()

	res, err := r.table.ActOnTurn(turn.ID, turn.Seat, game.Decision{Action: game.Fold})
	if err != nil {
		if !errors.Is(err, game.ErrStaleTurn) {
			r.logger.Error().Err(err).Int("seat", turn.Seat).Msg("Timeout fold failed")
		}
		return
	}

	r.logger.Warn().
		Int("seat", turn.Seat).
		Int("hand", turn.HandNumber).
		Dur("timeout", r.timeout).
		Msg("Turn timed out, folding")
	r.broadcast(MessageTypeTimeout, TimeoutData{TableID: r.table.ID(), TurnID: turn.ID, Seat: turn.Seat})
	r.applied(res)
}

func (r *TableRunner) handle(req request) {
	var (
		res game.ActionResult
		err error
	)
	if req.turnID != nil {
		res, err = r.table.ActOnTurn(*req.turnID, req.seat, req.decision)
	} else {
		res, err = r.table.Act(req.seat, req.decision)
	}
	if err != nil {
		r.logger.Debug().Err(err).Int("seat", req.seat).Msg("Action rejected")
		_ = req.sub.Send(errorMessage("action_rejected", err))
		return
	}
	r.applied(res)
}

// drain rejects queued actions while a computer seat is to act.
func (r *TableRunner) drain() {
	for {
		select {
		case req := <-r.requests:
			r.handle(req)
		default:
			return
		}
	}
}

func (r *TableRunner) poke() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *TableRunner) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := r.clock.NewTimer(d, "runner", "pause")
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (r *TableRunner) applied(res game.ActionResult) {
	r.broadcast(MessageTypeActionApplied, ActionAppliedData{
		TableID: r.table.ID(),
		TurnID:  res.TurnID,
		Street:  res.Street,
		Seat:    res.Seat,
		Type:    res.Type,
		Paid:    res.Paid,
		RaiseTo: res.RaiseTo,
	})
	r.broadcastState()
	if res.HandComplete {
		r.broadcast(MessageTypeHandResult, res.Result)
	}
}

func (r *TableRunner) requestAction(turn game.ActionTurn) {
	r.mu.Lock()
	sub, ok := r.seats[turn.Seat]
	r.mu.Unlock()
	if !ok {
		return
	}

	view, err := r.table.DecisionView(turn.Seat)
	if err != nil {
		return
	}
	r.send(sub, MessageTypeActionRequest, ActionRequestData{
		TurnID:    turn.ID,
		TimeoutMs: r.timeout.Milliseconds(),
		View:      view,
	})
}

func (r *TableRunner) subscribers() map[Subscriber]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Subscriber]int, len(r.subs))
	for sub, seat := range r.subs {
		out[sub] = seat
	}
	return out
}

func (r *TableRunner) broadcast(t MessageType, data any) {
	msg, err := NewMessage(t, data)
	if err != nil {
		r.logger.Error().Err(err).Str("type", string(t)).Msg("Failed to encode message")
		return
	}
	for sub := range r.subscribers() {
		_ = sub.Send(msg)
	}
}

func (r *TableRunner) broadcastState() {
	for sub, seat := range r.subscribers() {
		r.sendState(sub, seat)
	}
}

func (r *TableRunner) sendState(sub Subscriber, seat int) {
	state := StateData{Table: r.table.Projection(), Seat: seat}
	if seat >= 0 {
		if view, err := r.table.DecisionView(seat); err == nil {
			state.HoleCards = view.HoleCards
		}
	}
	r.send(sub, MessageTypeState, state)
}

func (r *TableRunner) send(sub Subscriber, t MessageType, data any) {
	msg, err := NewMessage(t, data)
	if err != nil {
		r.logger.Error().Err(err).Str("type", string(t)).Msg("Failed to encode message")
		return
	}
	if err := sub.Send(msg); err != nil {
		r.logger.Debug().Err(err).Str("type", string(t)).Msg("Dropped message")
	}
}
