// Package rating computes Elo-style deltas for finalized matches. Pure
// functions only; persistence and idempotence guards live with the caller.
package rating

import (
	"math"
	"sort"

	"github.com/playarc/matchqueue/internal/domain/match"
	"github.com/playarc/matchqueue/internal/domain/player"
)

// DefaultKFactor bounds how far one match moves a rating.
const DefaultKFactor = 32

// Participant is the rating view of one match member.
type Participant struct {
	PlayerID string
	Team     match.Team
	Rating   int
}

// ExpectedScore is the logistic win expectation of a over b on the 400-point
// scale.
func ExpectedScore(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}

// Deltas computes the per-player rating movement for one outcome. Teams are
// sorted by rating descending and same-rank opponents are paired across
// teams; the pair count is the smaller team size, so degenerate non-5v5 data
// degrades to zero deltas for the unpaired. An invalid outcome zeroes every
// delta.
func Deltas(participants []Participant, outcome match.Outcome, kFactor int) map[string]int {
	deltas := make(map[string]int, len(participants))
	for _, p := range participants {
		deltas[p.PlayerID] = 0
	}
	if outcome == match.OutcomeInvalid {
		return deltas
	}

	first := teamByRating(participants, match.TeamFirst)
	second := teamByRating(participants, match.TeamSecond)

	firstScore := 0.0
	if outcome == match.OutcomeFirstWin {
		firstScore = 1.0
	}
	secondScore := 1.0 - firstScore

	pairs := len(first)
	if len(second) < pairs {
		pairs = len(second)
	}
	for i := 0; i < pairs; i++ {
		expectedFirst := ExpectedScore(first[i].Rating, second[i].Rating)
		expectedSecond := 1.0 - expectedFirst
		deltas[first[i].PlayerID] = int(math.Round(float64(kFactor) * (firstScore - expectedFirst)))
		deltas[second[i].PlayerID] = int(math.Round(float64(kFactor) * (secondScore - expectedSecond)))
	}

	return deltas
}

// MemberResult translates the match-level outcome into one member's own
// win/loss view.
func MemberResult(team match.Team, outcome match.Outcome) player.Result {
	switch outcome {
	case match.OutcomeInvalid:
		return player.ResultInvalid
	case match.OutcomeFirstWin:
		if team == match.TeamFirst {
			return player.ResultWin
		}
		return player.ResultLoss
	case match.OutcomeSecondWin:
		if team == match.TeamSecond {
			return player.ResultWin
		}
		return player.ResultLoss
	}
	return player.ResultInvalid
}

func teamByRating(participants []Participant, team match.Team) []Participant {
	out := make([]Participant, 0, match.TeamSize)
	for _, p := range participants {
		if p.Team == team {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}
