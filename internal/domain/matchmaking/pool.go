package matchmaking

import (
	"math/rand"
	"sort"
)

// GroupSize is how many candidates form one match.
const GroupSize = 10

// OrderPool builds the retained pool for a scheduled pass from candidates
// already ordered by join time, oldest first:
//
//  1. the oldest GroupSize candidates are protected from exclusion,
//  2. the remainder is shuffled,
//  3. the pool is truncated to a multiple of GroupSize from the tail, so the
//     shuffled (never the protected) candidates absorb the cut,
//  4. the retained pool is ordered by rating descending for team balancing.
func OrderPool(candidates []Candidate, rng *rand.Rand) []Candidate {
	if len(candidates) < GroupSize {
		return nil
	}

	protected := make([]Candidate, GroupSize)
	copy(protected, candidates[:GroupSize])

	rest := make([]Candidate, len(candidates)-GroupSize)
	copy(rest, candidates[GroupSize:])
	rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	pool := append(protected, rest...)
	pool = pool[:len(pool)-len(pool)%GroupSize]

	return OrderByRating(pool)
}

// OrderByRating returns a copy sorted by rating descending. Equal ratings
// keep their relative order so the result is a pure function of input order.
func OrderByRating(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}

// Groups splits a rating-ordered pool into consecutive groups of GroupSize.
// A trailing partial group is dropped.
func Groups(pool []Candidate) [][]Candidate {
	groups := make([][]Candidate, 0, len(pool)/GroupSize)
	for len(pool) >= GroupSize {
		groups = append(groups, pool[:GroupSize])
		pool = pool[GroupSize:]
	}
	return groups
}
