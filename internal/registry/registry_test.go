package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/game"
)

func seats(n int) []game.Seat {
	out := make([]game.Seat, n)
	for i := range out {
		out[i] = game.Seat{Kind: game.AI}
	}
	return out
}

func newRegistry() *Registry {
	r := New(zerolog.Nop())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	r.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return r
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	r := newRegistry()

	e, err := r.Create("main", game.DefaultConfig(), seats(3))
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, e.ID, e.Table.ID(), "table carries the registry id")

	byID, err := r.Get(e.ID)
	require.NoError(t, err)
	assert.Same(t, e, byID)

	byLabel, err := r.Get("main")
	require.NoError(t, err)
	assert.Same(t, e, byLabel)

	_, err = r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRejectsDuplicateLabelAndBadConfig(t *testing.T) {
	t.Parallel()
	r := newRegistry()

	_, err := r.Create("main", game.DefaultConfig(), seats(2))
	require.NoError(t, err)
	_, err = r.Create("main", game.DefaultConfig(), seats(2))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = r.Create("solo", game.DefaultConfig(), seats(1))
	assert.Error(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestUnlabelledTablesAreDistinct(t *testing.T) {
	t.Parallel()
	r := newRegistry()

	a, err := r.Create("", game.DefaultConfig(), seats(2))
	require.NoError(t, err)
	b, err := r.Create("", game.DefaultConfig(), seats(2))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, r.Len())
}

func TestListIsOldestFirst(t *testing.T) {
	t.Parallel()
	r := newRegistry()

	for _, label := range []string{"a", "b", "c"} {
		_, err := r.Create(label, game.DefaultConfig(), seats(4))
		require.NoError(t, err)
	}

	list := r.List()
	require.Len(t, list, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, list[i].Label)
		assert.Equal(t, 4, list[i].Seats)
		assert.Equal(t, 4, list[i].Funded)
		assert.Equal(t, 5, list[i].SmallBlind)
		assert.Equal(t, 10, list[i].BigBlind)
		assert.False(t, list[i].Broken)
	}
}

func TestSummaryTracksPlay(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	e, err := r.Create("", game.DefaultConfig(), seats(2))
	require.NoError(t, err)

	require.NoError(t, e.Table.StartHand())
	s := e.Summary()
	assert.Equal(t, 1, s.HandsPlayed)
	assert.True(t, s.InHand)
}

func TestRemove(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	e, err := r.Create("gone", game.DefaultConfig(), seats(2))
	require.NoError(t, err)

	removed, err := r.Remove("gone")
	require.NoError(t, err)
	assert.Same(t, e, removed)
	assert.Zero(t, r.Len())

	_, err = r.Get(e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Remove(e.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The label is free again.
	_, err = r.Create("gone", game.DefaultConfig(), seats(2))
	assert.NoError(t, err)
}

func TestConcurrentCreate(t *testing.T) {
	t.Parallel()
	r := newRegistry()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create("", game.DefaultConfig(), seats(2))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, r.Len())
	assert.Len(t, r.List(), 20)
}
