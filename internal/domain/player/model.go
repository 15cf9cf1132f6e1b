package player

import "time"

// DefaultRating seeds every new competitor.
const DefaultRating = 1600

// RecentResultLimit bounds the per-player result history.
const RecentResultLimit = 20

// QueueStatus tracks where a player stands in matchmaking.
type QueueStatus string

const (
	QueueNone    QueueStatus = ""
	QueueWaiting QueueStatus = "waiting"
	QueueMatched QueueStatus = "matched"
)

// Result is the per-player outcome recorded into history.
type Result string

const (
	ResultWin     Result = "win"
	ResultLoss    Result = "loss"
	ResultInvalid Result = "invalid"
)

// RecentResult is one bounded history entry.
type RecentResult struct {
	MatchID     string
	Result      Result
	RatingDelta int
	DecidedAt   time.Time
}

// Player is a registered competitor. Queue fields are owned by the batch
// matchmaker, rating and counters by the result finalizer, and the ban
// window by the penalty engine.
type Player struct {
	ID             string
	DisplayName    string
	QueueStatus    QueueStatus
	QueueJoinedAt  *time.Time
	MatchedMatchID string
	Rating         int
	TotalMatches   int
	TotalWins      int
	RecentResults  []RecentResult
	BannedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BannedAt reports whether the player is still serving a penalty.
func (p Player) BannedAt(now time.Time) bool {
	return p.BannedUntil != nil && p.BannedUntil.After(now)
}

// HasResultFor reports whether the match already appears in the bounded
// history; the finalizer uses this as its re-entry guard.
func (p Player) HasResultFor(matchID string) bool {
	for _, r := range p.RecentResults {
		if r.MatchID == matchID {
			return true
		}
	}
	return false
}
