package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playarc/matchqueue/internal/domain/penalty"
)

type PenaltyRepository struct {
	db *sqlx.DB
}

type penaltyTableModel struct {
	ID              int64     `db:"id"`
	PublicID        string    `db:"public_id"`
	PlayerID        string    `db:"player_public_id"`
	MatchID         string    `db:"match_public_id"`
	Reason          string    `db:"reason"`
	DurationSeconds int64     `db:"duration_seconds"`
	AppliedAt       time.Time `db:"applied_at"`
	BannedUntil     time.Time `db:"banned_until"`
}

func (m penaltyTableModel) toDomain() penalty.Penalty {
	return penalty.Penalty{
		ID:          m.PublicID,
		PlayerID:    m.PlayerID,
		MatchID:     m.MatchID,
		Reason:      m.Reason,
		Duration:    time.Duration(m.DurationSeconds) * time.Second,
		AppliedAt:   m.AppliedAt,
		BannedUntil: m.BannedUntil,
	}
}

func NewPenaltyRepository(db *sqlx.DB) *PenaltyRepository {
	return &PenaltyRepository{db: db}
}

// Apply bans the player inside one transaction: the player row is locked, a
// prior penalty for the same (player, match) short-circuits, and the ban
// window only ever moves forward.
func (r *PenaltyRepository) Apply(ctx context.Context, p penalty.Penalty) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx for penalty: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `
SELECT banned_until
FROM players
WHERE public_id = $1
FOR UPDATE`
	var bannedUntil *time.Time
	if err := tx.GetContext(ctx, &bannedUntil, lockQuery, p.PlayerID); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lock player for penalty: %w", err)
	}

	const existsQuery = `
SELECT EXISTS (
    SELECT 1
    FROM penalties
    WHERE player_public_id = $1
      AND match_public_id = $2
)`
	var exists bool
	if err := tx.GetContext(ctx, &exists, existsQuery, p.PlayerID, p.MatchID); err != nil {
		return false, fmt.Errorf("check existing penalty: %w", err)
	}
	if exists {
		return false, nil
	}

	if bannedUntil == nil || p.BannedUntil.After(*bannedUntil) {
		const banQuery = `
UPDATE players
SET banned_until = $2,
    updated_at = $3
WHERE public_id = $1`
		if _, err := tx.ExecContext(ctx, banQuery, p.PlayerID, p.BannedUntil, p.AppliedAt); err != nil {
			return false, fmt.Errorf("extend ban window: %w", err)
		}
	}

	const insertQuery = `
INSERT INTO penalties (public_id, player_public_id, match_public_id, reason, duration_seconds, applied_at, banned_until)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insertQuery,
		p.ID, p.PlayerID, p.MatchID, p.Reason, int64(p.Duration/time.Second), p.AppliedAt, p.BannedUntil,
	); err != nil {
		return false, fmt.Errorf("insert penalty: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit penalty tx: %w", err)
	}
	return true, nil
}

func (r *PenaltyRepository) ListByPlayer(ctx context.Context, playerID string) ([]penalty.Penalty, error) {
	const query = `
SELECT id, public_id, player_public_id, match_public_id, reason, duration_seconds, applied_at, banned_until
FROM penalties
WHERE player_public_id = $1
ORDER BY applied_at DESC, id DESC`

	var rows []penaltyTableModel
	if err := r.db.SelectContext(ctx, &rows, query, playerID); err != nil {
		return nil, fmt.Errorf("select penalties: %w", err)
	}

	out := make([]penalty.Penalty, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
