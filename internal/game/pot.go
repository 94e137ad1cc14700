package game

import (
	"fmt"
	"slices"
)

// Pot is a main or side pot built at showdown.
type Pot struct {
	Amount   int   `json:"amount" toml:"amount"`
	Eligible []int `json:"eligible" toml:"eligible"` // seats that may win it
}

// Award is a payout of (part of) one pot to one seat.
type Award struct {
	Pot    int `json:"pot" toml:"pot"`
	Seat   int `json:"seat" toml:"seat"`
	Amount int `json:"amount" toml:"amount"`
}

// CalculatePots splits the chips invested this hand into a main pot and side
// pots. Folded players fund pots but are never eligible. A tier nobody still
// contesting reached (a folded player's over-contribution) is folded into the
// pot below it.
func CalculatePots(players []*Player) ([]Pot, error) {
	invested := 0
	top := 0
	var tiers []int
	for _, p := range players {
		if p.TotalInvested <= 0 {
			continue
		}
		invested += p.TotalInvested
		top = max(top, p.TotalInvested)
		if p.IsActive && !slices.Contains(tiers, p.TotalInvested) {
			tiers = append(tiers, p.TotalInvested)
		}
	}
	if invested == 0 {
		return nil, nil
	}
	if len(tiers) == 0 {
		return nil, &InvariantError{Op: "calculate_pots", Detail: "chips invested but no player contesting"}
	}
	slices.Sort(tiers)
	if top > tiers[len(tiers)-1] {
		tiers = append(tiers, top)
	}

	var pots []Pot
	prev := 0
	for _, tier := range tiers {
		amount := 0
		var eligible []int
		for _, p := range players {
			amount += min(p.TotalInvested, tier) - min(p.TotalInvested, prev)
			if p.IsActive && p.TotalInvested >= tier {
				eligible = append(eligible, p.Seat)
			}
		}
		prev = tier

		if len(eligible) == 0 {
			pots[len(pots)-1].Amount += amount
			continue
		}
		pots = append(pots, Pot{Amount: amount, Eligible: eligible})
	}

	sum := 0
	for _, pot := range pots {
		sum += pot.Amount
	}
	if sum != invested {
		return nil, &InvariantError{
			Op:     "calculate_pots",
			Detail: fmt.Sprintf("pots total %d, players invested %d", sum, invested),
		}
	}
	return pots, nil
}

// clockwiseFrom orders seats by distance clockwise from the dealer, starting
// with the seat immediately after it. The dealer seat itself sorts last.
func clockwiseFrom(seats []int, dealer, numSeats int) []int {
	ordered := slices.Clone(seats)
	dist := func(s int) int { return ((s-dealer-1)%numSeats + numSeats) % numSeats }
	slices.SortFunc(ordered, func(a, b int) int { return dist(a) - dist(b) })
	return ordered
}

// DistributePots awards each pot, in order, to the eligible seats holding the
// lowest score. Split pots give odd chips one at a time starting from the
// winner nearest clockwise of the dealer.
func DistributePots(pots []Pot, scores map[int]int, dealer, numSeats int) ([]Award, error) {
	var awards []Award
	for i, pot := range pots {
		if pot.Amount == 0 {
			continue
		}
		best := 0
		var winners []int
		for _, seat := range pot.Eligible {
			score, ok := scores[seat]
			if !ok {
				return nil, fmt.Errorf("pot %d: no score for eligible seat %d", i, seat)
			}
			switch {
			case len(winners) == 0 || score < best:
				best = score
				winners = []int{seat}
			case score == best:
				winners = append(winners, seat)
			}
		}
		if len(winners) == 0 {
			return nil, &InvariantError{Op: "distribute_pot", Detail: fmt.Sprintf("pot %d has no eligible seat", i)}
		}

		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for j, seat := range clockwiseFrom(winners, dealer, numSeats) {
			amount := share
			if j < remainder {
				amount++
			}
			awards = append(awards, Award{Pot: i, Seat: seat, Amount: amount})
		}
	}
	return awards, nil
}

// AwardUncontested gives the whole pot to the last player standing.
func AwardUncontested(pot, seat int) []Award {
	if pot == 0 {
		return nil
	}
	return []Award{{Pot: 0, Seat: seat, Amount: pot}}
}

// TotalAwarded sums a set of awards per seat.
func TotalAwarded(awards []Award) map[int]int {
	totals := make(map[int]int, len(awards))
	for _, a := range awards {
		totals[a.Seat] += a.Amount
	}
	return totals
}
