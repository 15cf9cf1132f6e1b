package matchmaking

import "time"

// Candidate is the matchmaking view of a waiting player.
type Candidate struct {
	PlayerID string
	JoinedAt time.Time
	Rating   int
}

// ShouldRun decides whether a matchmaking pass runs at all. Fewer than one
// full group can never match. A full minQueueSize runs immediately;
// otherwise the pass runs only once the oldest candidate has waited past
// maxWait, so throughput never starves fairness.
func ShouldRun(candidates []Candidate, minQueueSize int, maxWait time.Duration, now time.Time) bool {
	if len(candidates) < GroupSize {
		return false
	}
	if len(candidates) >= minQueueSize {
		return true
	}

	oldest := candidates[0].JoinedAt
	for _, c := range candidates[1:] {
		if c.JoinedAt.Before(oldest) {
			oldest = c.JoinedAt
		}
	}
	return now.Sub(oldest) >= maxWait
}
