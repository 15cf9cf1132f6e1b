package postgres

import (
	"time"

	"github.com/playarc/matchqueue/internal/domain/player"
)

type playerTableModel struct {
	ID             int64      `db:"id"`
	PublicID       string     `db:"public_id"`
	DisplayName    string     `db:"display_name"`
	QueueStatus    string     `db:"queue_status"`
	QueueJoinedAt  *time.Time `db:"queue_joined_at"`
	MatchedMatchID string     `db:"matched_match_id"`
	Rating         int        `db:"rating"`
	TotalMatches   int        `db:"total_matches"`
	TotalWins      int        `db:"total_wins"`
	BannedUntil    *time.Time `db:"banned_until"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

type playerResultTableModel struct {
	ID            int64     `db:"id"`
	PlayerID      string    `db:"player_public_id"`
	MatchID       string    `db:"match_public_id"`
	Result        string    `db:"result"`
	RatingDelta   int       `db:"rating_delta"`
	DecidedAt     time.Time `db:"decided_at"`
	CreatedAtUnix time.Time `db:"created_at"`
}

func (m playerTableModel) toDomain() player.Player {
	return player.Player{
		ID:             m.PublicID,
		DisplayName:    m.DisplayName,
		QueueStatus:    player.QueueStatus(m.QueueStatus),
		QueueJoinedAt:  m.QueueJoinedAt,
		MatchedMatchID: m.MatchedMatchID,
		Rating:         m.Rating,
		TotalMatches:   m.TotalMatches,
		TotalWins:      m.TotalWins,
		BannedUntil:    m.BannedUntil,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (m playerResultTableModel) toDomain() player.RecentResult {
	return player.RecentResult{
		MatchID:     m.MatchID,
		Result:      player.Result(m.Result),
		RatingDelta: m.RatingDelta,
		DecidedAt:   m.DecidedAt,
	}
}
