package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playarc/matchqueue/internal/domain/player"
	qb "github.com/playarc/matchqueue/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

var playerSelectColumns = []string{
	"id",
	"public_id",
	"display_name",
	"queue_status",
	"queue_joined_at",
	"matched_match_id",
	"rating",
	"total_matches",
	"total_wins",
	"banned_until",
	"created_at",
	"updated_at",
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) GetByID(ctx context.Context, playerID string) (player.Player, bool, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(qb.Eq("public_id", playerID)).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select player: %w", err)
	}

	resultsQuery, resultsArgs, err := qb.Select(
		"id", "player_public_id", "match_public_id", "result", "rating_delta", "decided_at", "created_at",
	).From("player_results").
		Where(qb.Eq("player_public_id", playerID)).
		OrderBy("decided_at DESC", "id DESC").
		Limit(player.RecentResultLimit).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player results query: %w", err)
	}

	var resultRows []playerResultTableModel
	if err := r.db.SelectContext(ctx, &resultRows, resultsQuery, resultsArgs...); err != nil {
		return player.Player{}, false, fmt.Errorf("select player results: %w", err)
	}

	p := row.toDomain()
	p.RecentResults = make([]player.RecentResult, 0, len(resultRows))
	for _, rr := range resultRows {
		p.RecentResults = append(p.RecentResults, rr.toDomain())
	}
	return p, true, nil
}

func (r *PlayerRepository) ListWaiting(ctx context.Context, limit int) ([]player.Player, error) {
	builder := qb.Select(playerSelectColumns...).From("players").
		Where(qb.EqLiteral("queue_status", string(player.QueueWaiting))).
		OrderBy("queue_joined_at", "public_id")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select waiting players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select waiting players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PlayerRepository) CountWaiting(ctx context.Context, cap int) (int, error) {
	const query = `
SELECT COUNT(*) FROM (
    SELECT 1
    FROM players
    WHERE queue_status = $1
    LIMIT $2
) capped`

	var count int
	if err := r.db.GetContext(ctx, &count, query, string(player.QueueWaiting), cap); err != nil {
		return 0, fmt.Errorf("count waiting players: %w", err)
	}
	return count, nil
}

// Enqueue locks the player's row, re-checks the ban window and queue slot,
// and flips them to waiting. All three checks live inside the transaction.
func (r *PlayerRepository) Enqueue(ctx context.Context, playerID string, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for enqueue: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `
SELECT queue_status, banned_until
FROM players
WHERE public_id = $1
FOR UPDATE`

	var row struct {
		QueueStatus string     `db:"queue_status"`
		BannedUntil *time.Time `db:"banned_until"`
	}
	if err := tx.GetContext(ctx, &row, lockQuery, playerID); err != nil {
		if isNotFound(err) {
			return player.ErrNotFound
		}
		return fmt.Errorf("lock player for enqueue: %w", err)
	}
	if row.BannedUntil != nil && row.BannedUntil.After(now) {
		return player.ErrBanned
	}
	if player.QueueStatus(row.QueueStatus) != player.QueueNone {
		return player.ErrQueueActive
	}

	const updateQuery = `
UPDATE players
SET queue_status = $2,
    queue_joined_at = $3,
    matched_match_id = '',
    updated_at = $3
WHERE public_id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, playerID, string(player.QueueWaiting), now); err != nil {
		return fmt.Errorf("enqueue player: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enqueue tx: %w", err)
	}
	return nil
}

// CancelQueue releases the slot only while the player is still waiting; a
// player already committed into a match keeps their assignment.
func (r *PlayerRepository) CancelQueue(ctx context.Context, playerID string, now time.Time) (bool, error) {
	const query = `
UPDATE players
SET queue_status = '',
    queue_joined_at = NULL,
    matched_match_id = '',
    updated_at = $2
WHERE public_id = $1
  AND queue_status = $3`

	res, err := r.db.ExecContext(ctx, query, playerID, now, string(player.QueueWaiting))
	if err != nil {
		return false, fmt.Errorf("cancel queue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel queue rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.exists(ctx, playerID)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, player.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func (r *PlayerRepository) ResetAllWaiting(ctx context.Context, now time.Time) (int, error) {
	const query = `
UPDATE players
SET queue_status = '',
    queue_joined_at = NULL,
    matched_match_id = '',
    updated_at = $1
WHERE queue_status = $2`

	res, err := r.db.ExecContext(ctx, query, now, string(player.QueueWaiting))
	if err != nil {
		return 0, fmt.Errorf("reset waiting players: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset waiting rows affected: %w", err)
	}
	return int(affected), nil
}

// ApplyResult writes ratings, counters, and the per-player history rows in
// one transaction. An existing history row for the match means a concurrent
// finalizer got here first; the whole application backs off as a no-op.
func (r *PlayerRepository) ApplyResult(ctx context.Context, app player.ResultApplication) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx for result application: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	lockQuery, lockArgs, err := qb.Select("public_id", "rating").From("players").
		Where(qb.In("public_id", stringSliceToAny(app.PlayerIDs))).
		OrderBy("public_id").
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build lock players query: %w", err)
	}
	lockQuery += " FOR UPDATE"

	var ratingRows []struct {
		PublicID string `db:"public_id"`
		Rating   int    `db:"rating"`
	}
	if err := tx.SelectContext(ctx, &ratingRows, lockQuery, lockArgs...); err != nil {
		return false, fmt.Errorf("lock players for result: %w", err)
	}

	const guardQuery = `
SELECT EXISTS (
    SELECT 1
    FROM player_results
    WHERE match_public_id = $1
)`
	var alreadyApplied bool
	if err := tx.GetContext(ctx, &alreadyApplied, guardQuery, app.MatchID); err != nil {
		return false, fmt.Errorf("check existing result rows: %w", err)
	}
	if alreadyApplied {
		return false, nil
	}

	ratings := make(map[string]int, len(ratingRows))
	for _, row := range ratingRows {
		ratings[row.PublicID] = row.Rating
	}

	const updateQuery = `
UPDATE players
SET rating = rating + $2,
    total_matches = total_matches + $3,
    total_wins = total_wins + $4,
    queue_status = CASE WHEN matched_match_id = $5 THEN '' ELSE queue_status END,
    queue_joined_at = CASE WHEN matched_match_id = $5 THEN NULL ELSE queue_joined_at END,
    matched_match_id = CASE WHEN matched_match_id = $5 THEN '' ELSE matched_match_id END,
    updated_at = $6
WHERE public_id = $1`

	const historyQuery = `
INSERT INTO player_results (player_public_id, match_public_id, result, rating_delta, decided_at)
VALUES ($1, $2, $3, $4, $5)`
	annotateQuery(ctx, updateQuery)

	for _, update := range app.Deltas(ratings) {
		matchIncrement := 0
		if update.CountsGame {
			matchIncrement = 1
		}
		winIncrement := 0
		if update.Result == player.ResultWin {
			winIncrement = 1
		}
		if _, err := tx.ExecContext(ctx, updateQuery,
			update.PlayerID, update.RatingDelta, matchIncrement, winIncrement, app.MatchID, app.DecidedAt,
		); err != nil {
			return false, fmt.Errorf("apply result to player=%s: %w", update.PlayerID, err)
		}
		if _, err := tx.ExecContext(ctx, historyQuery,
			update.PlayerID, app.MatchID, string(update.Result), update.RatingDelta, app.DecidedAt,
		); err != nil {
			return false, fmt.Errorf("insert result row player=%s: %w", update.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit result application tx: %w", err)
	}
	return true, nil
}

func (r *PlayerRepository) exists(ctx context.Context, playerID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM players WHERE public_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, playerID); err != nil {
		return false, fmt.Errorf("check player exists: %w", err)
	}
	return exists, nil
}
