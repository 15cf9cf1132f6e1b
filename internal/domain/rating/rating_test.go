package rating

import (
	"testing"

	"github.com/playarc/matchqueue/internal/domain/match"
	"github.com/playarc/matchqueue/internal/domain/player"
	"github.com/stretchr/testify/assert"
)

func fullRoster(firstRatings, secondRatings [5]int) []Participant {
	out := make([]Participant, 0, 10)
	for i, r := range firstRatings {
		out = append(out, Participant{PlayerID: teamID(match.TeamFirst, i), Team: match.TeamFirst, Rating: r})
	}
	for i, r := range secondRatings {
		out = append(out, Participant{PlayerID: teamID(match.TeamSecond, i), Team: match.TeamSecond, Rating: r})
	}
	return out
}

func teamID(team match.Team, i int) string {
	return string(team) + "-" + string(rune('a'+i))
}

func TestExpectedScore(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedScore(1600, 1600), 1e-9)
	assert.InDelta(t, 0.909, ExpectedScore(2000, 1600), 0.001)
	assert.InDelta(t, 1.0, ExpectedScore(1600, 1600)+ExpectedScore(1600, 1600), 1e-9)
}

func TestDeltas_EqualRatings(t *testing.T) {
	roster := fullRoster(
		[5]int{1600, 1600, 1600, 1600, 1600},
		[5]int{1600, 1600, 1600, 1600, 1600},
	)

	deltas := Deltas(roster, match.OutcomeFirstWin, 32)

	for _, p := range roster {
		want := 16
		if p.Team == match.TeamSecond {
			want = -16
		}
		assert.Equal(t, want, deltas[p.PlayerID], "player %s", p.PlayerID)
	}
}

func TestDeltas_InvalidOutcomeZeroesEveryone(t *testing.T) {
	roster := fullRoster(
		[5]int{2100, 1900, 1700, 1500, 1300},
		[5]int{2000, 1800, 1600, 1400, 1200},
	)

	deltas := Deltas(roster, match.OutcomeInvalid, 32)

	assert.Len(t, deltas, 10)
	for id, d := range deltas {
		assert.Zero(t, d, "player %s", id)
	}
}

func TestDeltas_RankPairing(t *testing.T) {
	// Intentionally shuffled input order: pairing must go by rating rank,
	// not slice position.
	roster := []Participant{
		{PlayerID: "f-low", Team: match.TeamFirst, Rating: 1400},
		{PlayerID: "s-high", Team: match.TeamSecond, Rating: 1800},
		{PlayerID: "f-high", Team: match.TeamFirst, Rating: 1800},
		{PlayerID: "s-low", Team: match.TeamSecond, Rating: 1400},
	}

	deltas := Deltas(roster, match.OutcomeFirstWin, 32)

	// Both pairs are equal-rated after rank sorting, so each winner gains 16.
	assert.Equal(t, 16, deltas["f-high"])
	assert.Equal(t, 16, deltas["f-low"])
	assert.Equal(t, -16, deltas["s-high"])
	assert.Equal(t, -16, deltas["s-low"])
}

func TestDeltas_UnpairedMembersGetZero(t *testing.T) {
	roster := []Participant{
		{PlayerID: "f1", Team: match.TeamFirst, Rating: 1600},
		{PlayerID: "f2", Team: match.TeamFirst, Rating: 1500},
		{PlayerID: "s1", Team: match.TeamSecond, Rating: 1600},
	}

	deltas := Deltas(roster, match.OutcomeSecondWin, 32)

	assert.Equal(t, -16, deltas["f1"])
	assert.Equal(t, 16, deltas["s1"])
	assert.Zero(t, deltas["f2"], "unpaired member must not move")
}

func TestDeltas_UpsetMovesMoreThanExpectedWin(t *testing.T) {
	roster := []Participant{
		{PlayerID: "underdog", Team: match.TeamFirst, Rating: 1400},
		{PlayerID: "favorite", Team: match.TeamSecond, Rating: 1800},
	}

	upset := Deltas(roster, match.OutcomeFirstWin, 32)
	expected := Deltas(roster, match.OutcomeSecondWin, 32)

	assert.Greater(t, upset["underdog"], -expected["underdog"])
	assert.Greater(t, upset["underdog"], 16)
	assert.Equal(t, -upset["favorite"], upset["underdog"])
}

func TestMemberResult(t *testing.T) {
	tests := []struct {
		team    match.Team
		outcome match.Outcome
		want    player.Result
	}{
		{match.TeamFirst, match.OutcomeFirstWin, player.ResultWin},
		{match.TeamFirst, match.OutcomeSecondWin, player.ResultLoss},
		{match.TeamSecond, match.OutcomeSecondWin, player.ResultWin},
		{match.TeamSecond, match.OutcomeFirstWin, player.ResultLoss},
		{match.TeamFirst, match.OutcomeInvalid, player.ResultInvalid},
		{match.TeamSecond, match.OutcomeInvalid, player.ResultInvalid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MemberResult(tt.team, tt.outcome), "%s/%s", tt.team, tt.outcome)
	}
}
