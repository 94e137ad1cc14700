// Package game implements the rules engine for a single Texas Hold'em table.
//
// The main type is Table, which owns the authoritative state of one hand at a
// time: dealer and blind rotation, the betting round of the current street,
// pot settlement and chip bookkeeping. Every exported Table method takes the
// table mutex, so a table can be driven from several goroutines (an AI
// auto-play loop, a websocket session, a turn timer) without interleaving.
//
// # Basic Usage
//
//	t, err := game.NewTable(game.DefaultConfig(), []game.Seat{
//	    {Name: "alice", Kind: game.AI, Provider: bot1},
//	    {Name: "bob", Kind: game.AI, Provider: bot2},
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := t.PlayHand(ctx)
//
// Seats without a provider are driven externally through Act or ActOnTurn.
//
// # Deterministic Testing
//
// Pass WithRNG(randutil.New(seed)) for reproducible shuffles, or WithDeck with a
// deck built by poker.NewDeckFromOrder to pin every card.
//
// # Components
//   - BettingRound: turn order, action validation and street completion
//   - CalculatePots / DistributePots: main and side pots, odd chips
//   - guard: chip conservation and card uniqueness checks at each transition
package game
