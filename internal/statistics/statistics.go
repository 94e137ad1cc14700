// Package statistics accumulates per-seat results over many simulated hands.
package statistics

import (
	"fmt"
	"math"
	"sort"
)

// MaxPositions bounds the position index; position 0 is the dealer button.
const MaxPositions = 10

// BigPotBB is the pot size, in big blinds, counted as a big pot.
const BigPotBB = 50

// SeatResult is one seat's outcome in one hand.
type SeatResult struct {
	NetBB    float64 // chips won or lost, in big blinds of that hand
	Position int     // seats clockwise from the button
	Showdown bool
	PotBB    float64
}

// PositionStats tracks results for one table position.
type PositionStats struct {
	Hands  int
	SumBB  float64
	SumBB2 float64
}

// Statistics tracks a group of seats, usually one personality.
type Statistics struct {
	Hands  int
	SumBB  float64
	SumBB2 float64
	Values []float64

	ShowdownWins    int
	NonShowdownWins int
	ShowdownBB      float64
	NonShowdownBB   float64

	Positions [MaxPositions]PositionStats

	MaxPotBB  float64
	BigPots   int
	BigPotsBB float64
}

// Mean returns big blinds won per hand.
func (s *Statistics) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.SumBB / float64(s.Hands)
}

// Variance returns the sample variance.
func (s *Statistics) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumBB2 - float64(s.Hands)*mean*mean) / float64(s.Hands-1)
}

func (s *Statistics) StdDev() float64 {
	return math.Sqrt(math.Max(s.Variance(), 0))
}

func (s *Statistics) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean.
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Add records one seat's hand.
func (s *Statistics) Add(r SeatResult) {
	s.Hands++
	s.SumBB += r.NetBB
	s.SumBB2 += r.NetBB * r.NetBB
	s.Values = append(s.Values, r.NetBB)

	if r.Showdown {
		s.ShowdownBB += r.NetBB
		if r.NetBB > 0 {
			s.ShowdownWins++
		}
	} else {
		s.NonShowdownBB += r.NetBB
		if r.NetBB > 0 {
			s.NonShowdownWins++
		}
	}

	if r.Position >= 0 && r.Position < MaxPositions {
		ps := &s.Positions[r.Position]
		ps.Hands++
		ps.SumBB += r.NetBB
		ps.SumBB2 += r.NetBB * r.NetBB
	}

	s.MaxPotBB = math.Max(s.MaxPotBB, r.PotBB)
	if r.PotBB >= BigPotBB {
		s.BigPots++
		s.BigPotsBB += r.NetBB
	}
}

// Merge folds other into s.
func (s *Statistics) Merge(other *Statistics) {
	if other == nil {
		return
	}
	s.Hands += other.Hands
	s.SumBB += other.SumBB
	s.SumBB2 += other.SumBB2
	s.Values = append(s.Values, other.Values...)
	s.ShowdownWins += other.ShowdownWins
	s.NonShowdownWins += other.NonShowdownWins
	s.ShowdownBB += other.ShowdownBB
	s.NonShowdownBB += other.NonShowdownBB
	for i := range s.Positions {
		s.Positions[i].Hands += other.Positions[i].Hands
		s.Positions[i].SumBB += other.Positions[i].SumBB
		s.Positions[i].SumBB2 += other.Positions[i].SumBB2
	}
	s.MaxPotBB = math.Max(s.MaxPotBB, other.MaxPotBB)
	s.BigPots += other.BigPots
	s.BigPotsBB += other.BigPotsBB
}

// Median returns the median result.
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the interpolated value at p, between 0 and 1.
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// PositionMean returns the mean result at a position.
func (s *Statistics) PositionMean(position int) float64 {
	if position < 0 || position >= MaxPositions {
		return 0
	}
	ps := s.Positions[position]
	if ps.Hands == 0 {
		return 0
	}
	return ps.SumBB / float64(ps.Hands)
}

// Validate checks that the counters agree with each other.
func (s *Statistics) Validate() error {
	if math.Abs(s.SumBB-s.ShowdownBB-s.NonShowdownBB) > 1e-6 {
		return fmt.Errorf("ledger mismatch: total %.6f, showdown %.6f, non-showdown %.6f",
			s.SumBB, s.ShowdownBB, s.NonShowdownBB)
	}
	if len(s.Values) != s.Hands {
		return fmt.Errorf("values length %d does not match hands %d", len(s.Values), s.Hands)
	}
	if wins := s.ShowdownWins + s.NonShowdownWins; wins > s.Hands {
		return fmt.Errorf("wins %d exceed hands %d", wins, s.Hands)
	}
	positioned := 0
	for _, ps := range s.Positions {
		positioned += ps.Hands
	}
	if positioned != s.Hands {
		return fmt.Errorf("position hands %d do not match hands %d", positioned, s.Hands)
	}
	return nil
}
