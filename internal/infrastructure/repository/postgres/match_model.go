package postgres

import (
	"time"

	"github.com/playarc/matchqueue/internal/domain/match"
)

type matchTableModel struct {
	ID             int64      `db:"id"`
	PublicID       string     `db:"public_id"`
	Status         string     `db:"status"`
	Capacity       int        `db:"capacity"`
	FirstTeam      string     `db:"first_team"`
	LobbyCode      string     `db:"lobby_code"`
	Outcome        string     `db:"outcome"`
	FinalizeReason string     `db:"finalize_reason"`
	FinalizedAt    *time.Time `db:"finalized_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

type matchMemberTableModel struct {
	ID       int64      `db:"id"`
	MatchID  string     `db:"match_public_id"`
	PlayerID string     `db:"player_public_id"`
	Role     string     `db:"role"`
	Team     string     `db:"team"`
	SeatNo   int        `db:"seat_no"`
	JoinedAt time.Time  `db:"joined_at"`
	SeatedAt *time.Time `db:"seated_at"`
	Stuck    bool       `db:"stuck"`
	Vote     *string    `db:"vote"`
	VotedAt  *time.Time `db:"voted_at"`
}

func (m matchTableModel) toDomain() match.Match {
	return match.Match{
		ID:             m.PublicID,
		Status:         match.Status(m.Status),
		Capacity:       m.Capacity,
		FirstTeam:      match.Team(m.FirstTeam),
		LobbyCode:      m.LobbyCode,
		Outcome:        match.Outcome(m.Outcome),
		FinalizeReason: match.FinalizeReason(m.FinalizeReason),
		FinalizedAt:    m.FinalizedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (m matchMemberTableModel) toDomain() match.Member {
	member := match.Member{
		MatchID:  m.MatchID,
		PlayerID: m.PlayerID,
		Role:     match.Role(m.Role),
		Team:     match.Team(m.Team),
		SeatNo:   m.SeatNo,
		JoinedAt: m.JoinedAt,
		SeatedAt: m.SeatedAt,
		Stuck:    m.Stuck,
		VotedAt:  m.VotedAt,
	}
	if m.Vote != nil {
		v := match.Vote(*m.Vote)
		member.Vote = &v
	}
	return member
}
