package evaluator

import (
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokertable/internal/randutil"
	"github.com/lox/pokertable/poker"
)

// sampleParallel splits the trial budget across workers. Worker seeds are drawn
// from the evaluator RNG in a fixed order so results stay reproducible.
func (e *Evaluator) sampleParallel(known, unseen []poker.Card, need int) (int64, error) {
	workers := min(e.workers, e.trials)
	perWorker := e.trials / workers
	remainder := e.trials % workers

	seeds := make([]int64, workers)
	e.mu.Lock()
	for i := range seeds {
		seeds[i] = e.rng.Int64()
	}
	e.mu.Unlock()

	sums := make([]int64, workers)
	var g errgroup.Group
	for w := range workers {
		n := perWorker
		if w < remainder {
			n++
		}
		g.Go(func() error {
			sums[w] = sample(known, unseen, need, n, randutil.New(seeds[w]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, s := range sums {
		total += s
	}
	return total, nil
}
