package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/randutil"
)

func contributors(invested []int, active []bool) []*Player {
	players := make([]*Player, len(invested))
	for i := range invested {
		players[i] = &Player{Seat: i, TotalInvested: invested[i], IsActive: active[i]}
	}
	return players
}

func TestCalculatePotsMainAndSide(t *testing.T) {
	t.Parallel()
	// P0 raises to 100, P1 calls, P2 all-in for 80, P3 folds without investing.
	players := contributors([]int{100, 100, 80, 0}, []bool{true, true, true, false})
	players[2].AllIn = true

	pots, err := CalculatePots(players)
	require.NoError(t, err)
	require.Len(t, pots, 2)
	assert.Equal(t, Pot{Amount: 240, Eligible: []int{0, 1, 2}}, pots[0])
	assert.Equal(t, Pot{Amount: 40, Eligible: []int{0, 1}}, pots[1])
}

func TestCalculatePotsFoldedPlayersFundButCannotWin(t *testing.T) {
	t.Parallel()
	players := contributors([]int{100, 100, 80, 10}, []bool{true, true, true, false})

	pots, err := CalculatePots(players)
	require.NoError(t, err)
	require.Len(t, pots, 2)
	assert.Equal(t, 250, pots[0].Amount)
	assert.Equal(t, []int{0, 1, 2}, pots[0].Eligible)
	assert.Equal(t, 40, pots[1].Amount)
}

func TestCalculatePotsDeadMoneyMergesDown(t *testing.T) {
	t.Parallel()
	// B folded after putting in more than anyone still contesting.
	players := contributors([]int{50, 200, 50}, []bool{true, false, true})

	pots, err := CalculatePots(players)
	require.NoError(t, err)
	require.Len(t, pots, 1)
	assert.Equal(t, Pot{Amount: 300, Eligible: []int{0, 2}}, pots[0])
}

func TestCalculatePotsThreeTiers(t *testing.T) {
	t.Parallel()
	players := contributors([]int{300, 50, 150, 300}, []bool{true, true, true, true})

	pots, err := CalculatePots(players)
	require.NoError(t, err)
	require.Len(t, pots, 3)
	assert.Equal(t, Pot{Amount: 200, Eligible: []int{0, 1, 2, 3}}, pots[0])
	assert.Equal(t, Pot{Amount: 300, Eligible: []int{0, 2, 3}}, pots[1])
	assert.Equal(t, Pot{Amount: 300, Eligible: []int{0, 3}}, pots[2])
}

func TestCalculatePotsSumIdentity(t *testing.T) {
	t.Parallel()
	rng := randutil.New(17)
	for i := range 500 {
		n := 2 + rng.IntN(8)
		invested := make([]int, n)
		active := make([]bool, n)
		anyActive := false
		for j := range n {
			invested[j] = rng.IntN(400)
			active[j] = rng.IntN(3) > 0
			anyActive = anyActive || (active[j] && invested[j] > 0)
		}
		if !anyActive {
			continue
		}

		players := contributors(invested, active)
		pots, err := CalculatePots(players)
		require.NoError(t, err, "case %d: %v %v", i, invested, active)

		want, got := 0, 0
		for _, v := range invested {
			want += v
		}
		for _, p := range pots {
			got += p.Amount
			assert.NotEmpty(t, p.Eligible)
		}
		assert.Equal(t, want, got, "case %d", i)
	}
}

func TestCalculatePotsNoContender(t *testing.T) {
	t.Parallel()
	players := contributors([]int{10, 20}, []bool{false, false})
	_, err := CalculatePots(players)

	var ierr *InvariantError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "calculate_pots", ierr.Op)
}

func TestDistributePotsOddChip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		dealer  int
		winners []int
		want    map[int]int
	}{
		{"seat after dealer gets the odd chip", 1, []int{0, 2}, map[int]int{2: 51, 0: 50}},
		{"dealer seat is last", 2, []int{0, 2}, map[int]int{0: 51, 2: 50}},
		{"wraps around the table", 0, []int{0, 2}, map[int]int{2: 51, 0: 50}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			scores := map[int]int{}
			for _, s := range tc.winners {
				scores[s] = 1000
			}
			scores[1] = 2000
			pots := []Pot{{Amount: 101, Eligible: []int{0, 1, 2}}}

			awards, err := DistributePots(pots, scores, tc.dealer, 3)
			require.NoError(t, err)
			assert.Equal(t, tc.want, TotalAwarded(awards))
		})
	}
}

func TestDistributePotsThreeWaySplit(t *testing.T) {
	t.Parallel()
	pots := []Pot{{Amount: 101, Eligible: []int{0, 1, 2, 3}}}
	scores := map[int]int{0: 7, 1: 7, 2: 9, 3: 7}

	// Dealer 3: clockwise order of winners is 0, 1, 3.
	awards, err := DistributePots(pots, scores, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 34, 1: 34, 3: 33}, TotalAwarded(awards))
}

func TestDistributePotsSideAndMain(t *testing.T) {
	t.Parallel()
	pots := []Pot{
		{Amount: 240, Eligible: []int{0, 1, 2}},
		{Amount: 40, Eligible: []int{0, 1}},
	}
	// P2 holds the best hand but is only eligible for the main pot.
	scores := map[int]int{0: 500, 1: 900, 2: 100}

	awards, err := DistributePots(pots, scores, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []Award{{Pot: 0, Seat: 2, Amount: 240}, {Pot: 1, Seat: 0, Amount: 40}}, awards)
}

func TestDistributePotsMissingScore(t *testing.T) {
	t.Parallel()
	_, err := DistributePots([]Pot{{Amount: 10, Eligible: []int{0, 1}}}, map[int]int{0: 1}, 0, 2)
	assert.Error(t, err)
}

func TestAwardUncontested(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []Award{{Seat: 3, Amount: 75}}, AwardUncontested(75, 3))
	assert.Nil(t, AwardUncontested(0, 3))
}
