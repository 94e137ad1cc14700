package server

import (
	"fmt"

	"github.com/lox/pokertable/internal/ai"
	"github.com/lox/pokertable/internal/config"
	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/internal/randutil"
	"github.com/lox/pokertable/internal/registry"
)

// CreateTables registers a table for each configured table block and gives
// every computer seat its personality. Extra options apply to every table.
func CreateTables(reg *registry.Registry, tables []config.Table, opts ...game.Option) ([]*registry.Entry, error) {
	var entries []*registry.Entry
	for _, tc := range tables {
		rng, _ := randutil.NewOrTime(tc.Seed)

		evalOpts := []evaluator.Option{evaluator.WithRNG(randutil.Child(rng))}
		if tc.Trials > 0 {
			evalOpts = append(evalOpts, evaluator.WithTrials(tc.Trials))
		}
		eval := evaluator.New(evalOpts...)

		seats := tc.GameSeats()
		for i := range seats {
			if seats[i].Kind != game.AI {
				continue
			}
			player, err := ai.New(seats[i].Personality, ai.WithEvaluator(eval), ai.WithRNG(randutil.Child(rng)))
			if err != nil {
				return entries, fmt.Errorf("table %q seat %q: %w", tc.Name, seats[i].Name, err)
			}
			seats[i].Provider = player
		}

		tableOpts := append([]game.Option{
			game.WithRNG(randutil.Child(rng)),
			game.WithEvaluator(eval),
		}, opts...)
		e, err := reg.Create(tc.Name, tc.GameConfig(), seats, tableOpts...)
		if err != nil {
			return entries, fmt.Errorf("table %q: %w", tc.Name, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
