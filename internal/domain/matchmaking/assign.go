package matchmaking

import "github.com/playarc/matchqueue/internal/domain/match"

// Assignment places one candidate on a team and seat.
type Assignment struct {
	PlayerID string
	Team     match.Team
	SeatNo   int
}

// pickOrder interleaves teams over rank positions (1st best to first, next
// two to second, and so on) so skill spreads evenly instead of a naive
// top-5/bottom-5 split.
var pickOrder = [GroupSize]match.Team{
	match.TeamFirst,
	match.TeamSecond,
	match.TeamSecond,
	match.TeamFirst,
	match.TeamFirst,
	match.TeamSecond,
	match.TeamSecond,
	match.TeamFirst,
	match.TeamFirst,
	match.TeamSecond,
}

// AssignTeams partitions one group of GroupSize candidates into two teams of
// five with seats 1..5 assigned sequentially per team. The group is ordered
// by rating descending first, so the function is deterministic for a given
// input order.
func AssignTeams(group []Candidate) []Assignment {
	if len(group) != GroupSize {
		return nil
	}

	ordered := OrderByRating(group)
	seats := map[match.Team]int{}
	out := make([]Assignment, 0, GroupSize)
	for i, c := range ordered {
		team := pickOrder[i]
		seats[team]++
		out = append(out, Assignment{
			PlayerID: c.PlayerID,
			Team:     team,
			SeatNo:   seats[team],
		})
	}
	return out
}
