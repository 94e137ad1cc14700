// Package simulator plays many computer-only tables in parallel and reports
// what happened: hands, showdowns, eliminations, broken tables and whether
// every table kept its chips.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokertable/internal/ai"
	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/internal/randutil"
	"github.com/lox/pokertable/internal/statistics"
)

// Config holds the parameters of a simulation run.
type Config struct {
	Tables int
	// Hands is the most hands played per table; a table stops earlier when
	// one player holds every chip.
	Hands int
	Seats int
	// Personalities are dealt to seats in rotation, shifted by one per table.
	Personalities []ai.Personality
	// Seed makes the run reproducible; 0 seeds from the clock.
	Seed   int64
	Game   game.Config
	Trials int
	// Concurrency limits the tables in flight; 0 uses GOMAXPROCS.
	Concurrency int
	// Recorder receives every completed hand when set.
	Recorder game.Recorder
	Logger   zerolog.Logger
}

// DefaultConfig returns ten six-handed tables of a hundred hands.
func DefaultConfig() Config {
	return Config{
		Tables:        10,
		Hands:         100,
		Seats:         6,
		Personalities: ai.Personalities(),
		Game:          game.DefaultConfig(),
		Trials:        50,
		Logger:        zerolog.Nop(),
	}
}

// Validate checks the run parameters and the table rules.
func (c Config) Validate() error {
	var errs []error
	if c.Tables <= 0 {
		errs = append(errs, fmt.Errorf("tables must be positive, got %d", c.Tables))
	}
	if c.Hands <= 0 {
		errs = append(errs, fmt.Errorf("hands must be positive, got %d", c.Hands))
	}
	if len(c.Personalities) == 0 {
		errs = append(errs, errors.New("at least one personality is required"))
	}
	if c.Trials < 0 {
		errs = append(errs, fmt.Errorf("trials cannot be negative, got %d", c.Trials))
	}
	if err := c.Game.Validate(c.Seats); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TableReport is the outcome of one table.
type TableReport struct {
	Index        int
	ID           string
	Seed         int64
	Hands        int
	Showdowns    int
	Eliminations int
	// GameOver is set when one player won every chip.
	GameOver bool
	Winner   int
	// Conserved is false if the stacks ever stopped adding up to the chips
	// the table started with.
	Conserved  bool
	TotalChips int
	Blinds     [2]int
	// Err is the invariant violation that broke the table, if any.
	Err error

	stats map[ai.Personality]*statistics.Statistics
}

// Report sums every table of a run.
type Report struct {
	Seed         int64
	Tables       []TableReport
	Hands        int
	Showdowns    int
	Eliminations int
	Finished     int
	Broken       int
	Conserved    bool
	Duration     time.Duration
	// Personalities holds results per personality in big blinds per hand.
	Personalities map[ai.Personality]*statistics.Statistics
}

// Simulator runs the tables of a Config.
type Simulator struct {
	cfg    Config
	logger zerolog.Logger
}

// New validates cfg and creates a simulator.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Simulator{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "simulator").Logger(),
	}, nil
}

// Run plays every table. A table that breaks is reported, not returned as an
// error; Run fails only when ctx is done or a table cannot be built.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	rng, seed := randutil.NewOrTime(s.cfg.Seed)

	// Table seeds are drawn up front so the run does not depend on scheduling.
	seeds := make([]int64, s.cfg.Tables)
	for i := range seeds {
		seeds[i] = rng.Int64()
	}

	s.logger.Info().
		Int64("seed", seed).
		Int("tables", s.cfg.Tables).
		Int("hands", s.cfg.Hands).
		Int("concurrency", s.cfg.Concurrency).
		Msg("Starting simulation")

	reports := make([]TableReport, s.cfg.Tables)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range reports {
		g.Go(func() error {
			rep, err := s.playTable(ctx, i, seeds[i])
			if err != nil {
				return fmt.Errorf("table %d: %w", i, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Seed:          seed,
		Tables:        reports,
		Conserved:     true,
		Personalities: make(map[ai.Personality]*statistics.Statistics),
	}
	for _, tr := range reports {
		report.Hands += tr.Hands
		report.Showdowns += tr.Showdowns
		report.Eliminations += tr.Eliminations
		if tr.GameOver {
			report.Finished++
		}
		if tr.Err != nil {
			report.Broken++
		}
		report.Conserved = report.Conserved && tr.Conserved
		for p, st := range tr.stats {
			agg, ok := report.Personalities[p]
			if !ok {
				agg = &statistics.Statistics{}
				report.Personalities[p] = agg
			}
			agg.Merge(st)
		}
	}
	report.Duration = time.Since(start)

	s.logger.Info().
		Int("hands", report.Hands).
		Int("showdowns", report.Showdowns).
		Int("broken", report.Broken).
		Bool("conserved", report.Conserved).
		Dur("duration", report.Duration).
		Msg("Simulation complete")
	return report, nil
}

// Seating returns the personality of each seat at table index.
func (s *Simulator) Seating(index int) []ai.Personality {
	out := make([]ai.Personality, s.cfg.Seats)
	for seat := range out {
		out[seat] = s.cfg.Personalities[(index+seat)%len(s.cfg.Personalities)]
	}
	return out
}

func (s *Simulator) newTable(index int, seed int64) (*game.Table, []ai.Personality, error) {
	rng := randutil.New(seed)
	eval := evaluator.New(evaluator.WithTrials(s.cfg.Trials), evaluator.WithRNG(randutil.Child(rng)))

	seating := s.Seating(index)
	seats := make([]game.Seat, len(seating))
	for i, p := range seating {
		player, err := ai.New(string(p), ai.WithEvaluator(eval), ai.WithRNG(randutil.Child(rng)))
		if err != nil {
			return nil, nil, err
		}
		seats[i] = game.Seat{
			Name:        fmt.Sprintf("%s-%d", p, i),
			Kind:        game.AI,
			Personality: string(p),
			Provider:    player,
		}
	}

	opts := []game.Option{
		game.WithID(fmt.Sprintf("sim-%04d", index)),
		game.WithRNG(randutil.Child(rng)),
		game.WithEvaluator(eval),
		game.WithLogger(s.cfg.Logger),
	}
	if s.cfg.Recorder != nil {
		opts = append(opts, game.WithRecorder(s.cfg.Recorder))
	}
	tbl, err := game.NewTable(s.cfg.Game, seats, opts...)
	if err != nil {
		return nil, nil, err
	}
	return tbl, seating, nil
}

func (s *Simulator) playTable(ctx context.Context, index int, seed int64) (TableReport, error) {
	tbl, seating, err := s.newTable(index, seed)
	if err != nil {
		return TableReport{}, err
	}

	rep := TableReport{
		Index:      index,
		ID:         tbl.ID(),
		Seed:       seed,
		Winner:     -1,
		Conserved:  true,
		TotalChips: tbl.TotalChips(),
		stats:      make(map[ai.Personality]*statistics.Statistics),
	}
	logger := s.logger.With().Str("table_id", rep.ID).Logger()

	for range s.cfg.Hands {
		before := stacks(tbl)

		res, err := tbl.PlayHand(ctx)
		if errors.Is(err, game.ErrGameOver) {
			rep.GameOver = true
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			if tbl.Err() == nil {
				return rep, err
			}
			rep.Err = tbl.Err()
			logger.Error().Err(err).Int("hand", tbl.HandCount()).Msg("Table broken")
			break
		}

		rep.Hands++
		if res.Showdown {
			rep.Showdowns++
		}
		rep.Eliminations += len(res.Eliminated)

		after := stacks(tbl)
		if sum(after) != rep.TotalChips {
			rep.Conserved = false
			logger.Error().Int("hand", res.HandNumber).Int("chips", sum(after)).
				Int("expected", rep.TotalChips).Msg("Chips not conserved")
		}
		s.score(&rep, tbl, seating, res, before, after)
	}

	if funded := tbl.FundedSeats(); len(funded) == 1 {
		rep.GameOver = true
		rep.Winner = funded[0]
	}
	rep.Blinds[0], rep.Blinds[1] = tbl.Blinds()

	logger.Debug().
		Int("hands", rep.Hands).
		Int("showdowns", rep.Showdowns).
		Int("winner", rep.Winner).
		Msg("Table finished")
	return rep, nil
}

// score adds every seat that played the hand to its personality's statistics.
func (s *Simulator) score(rep *TableReport, tbl *game.Table, seating []ai.Personality, res *game.HandResult, before, after []int) {
	view := tbl.Projection()
	bb := float64(view.BigBlind)
	n := len(seating)
	for seat, p := range seating {
		if before[seat] == 0 {
			continue
		}
		st, ok := rep.stats[p]
		if !ok {
			st = &statistics.Statistics{}
			rep.stats[p] = st
		}
		st.Add(statistics.SeatResult{
			NetBB:    float64(after[seat]-before[seat]) / bb,
			Position: (seat - view.DealerSeat + n) % n,
			Showdown: res.Showdown,
			PotBB:    float64(res.Pot) / bb,
		})
	}
}

func stacks(tbl *game.Table) []int {
	out := make([]int, tbl.NumSeats())
	for seat := range out {
		if p, err := tbl.Player(seat); err == nil {
			out[seat] = p.Stack
		}
	}
	return out
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
