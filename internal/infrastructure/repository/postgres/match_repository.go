package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playarc/matchqueue/internal/domain/match"
	"github.com/playarc/matchqueue/internal/domain/player"
	qb "github.com/playarc/matchqueue/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

var matchSelectColumns = []string{
	"id",
	"public_id",
	"status",
	"capacity",
	"first_team",
	"lobby_code",
	"outcome",
	"finalize_reason",
	"finalized_at",
	"created_at",
	"updated_at",
}

var matchMemberSelectColumns = []string{
	"id",
	"match_public_id",
	"player_public_id",
	"role",
	"team",
	"seat_no",
	"joined_at",
	"seated_at",
	"stuck",
	"vote",
	"voted_at",
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create commits one formed match. The selected players are locked and
// re-checked to still be waiting inside the transaction; any drift since the
// matchmaker's read aborts the whole commit with ErrCandidatesChanged.
func (r *MatchRepository) Create(ctx context.Context, matchID string, firstTeam match.Team, members []match.NewMember, now time.Time) (match.Match, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return match.Match{}, fmt.Errorf("begin tx for match create: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	playerIDs := make([]string, 0, len(members))
	for _, m := range members {
		playerIDs = append(playerIDs, m.PlayerID)
	}

	lockQuery, lockArgs, err := qb.Select("public_id", "queue_status").From("players").
		Where(qb.In("public_id", stringSliceToAny(playerIDs))).
		OrderBy("public_id").
		ToSQL()
	if err != nil {
		return match.Match{}, fmt.Errorf("build lock candidates query: %w", err)
	}
	lockQuery += " FOR UPDATE"

	var candidateRows []struct {
		PublicID    string `db:"public_id"`
		QueueStatus string `db:"queue_status"`
	}
	if err := tx.SelectContext(ctx, &candidateRows, lockQuery, lockArgs...); err != nil {
		return match.Match{}, fmt.Errorf("lock candidates: %w", err)
	}
	if len(candidateRows) != len(playerIDs) {
		return match.Match{}, match.ErrCandidatesChanged
	}
	for _, row := range candidateRows {
		if player.QueueStatus(row.QueueStatus) != player.QueueWaiting {
			return match.Match{}, match.ErrCandidatesChanged
		}
	}

	const insertMatchQuery = `
INSERT INTO matches (public_id, status, capacity, first_team, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`
	annotateQuery(ctx, insertMatchQuery)
	if _, err := tx.ExecContext(ctx, insertMatchQuery,
		matchID, string(match.StatusLobbyPending), match.Capacity, string(firstTeam), now,
	); err != nil {
		return match.Match{}, fmt.Errorf("insert match: %w", err)
	}

	const insertMemberQuery = `
INSERT INTO match_members (match_public_id, player_public_id, role, team, seat_no, joined_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, insertMemberQuery,
			matchID, m.PlayerID, string(m.Role), string(m.Team), m.SeatNo, now,
		); err != nil {
			return match.Match{}, fmt.Errorf("insert match member player=%s: %w", m.PlayerID, err)
		}
	}

	const matchPlayersQuery = `
UPDATE players
SET queue_status = $2,
    queue_joined_at = NULL,
    matched_match_id = $3,
    updated_at = $4
WHERE public_id = $1`
	for _, id := range playerIDs {
		if _, err := tx.ExecContext(ctx, matchPlayersQuery,
			id, string(player.QueueMatched), matchID, now,
		); err != nil {
			return match.Match{}, fmt.Errorf("mark player=%s matched: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return match.Match{}, fmt.Errorf("commit match create tx: %w", err)
	}

	return match.Match{
		ID:        matchID,
		Status:    match.StatusLobbyPending,
		Capacity:  match.Capacity,
		FirstTeam: firstTeam,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	query, args, err := qb.Select(matchSelectColumns...).From("matches").
		Where(qb.Eq("public_id", matchID)).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select match: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *MatchRepository) GetMember(ctx context.Context, matchID, playerID string) (match.Member, bool, error) {
	query, args, err := qb.Select(matchMemberSelectColumns...).From("match_members").
		Where(
			qb.Eq("match_public_id", matchID),
			qb.Eq("player_public_id", playerID),
		).
		ToSQL()
	if err != nil {
		return match.Member{}, false, fmt.Errorf("build select member query: %w", err)
	}

	var row matchMemberTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Member{}, false, nil
		}
		return match.Member{}, false, fmt.Errorf("select member: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *MatchRepository) ListMembers(ctx context.Context, matchID string) ([]match.Member, error) {
	query, args, err := qb.Select(matchMemberSelectColumns...).From("match_members").
		Where(qb.Eq("match_public_id", matchID)).
		OrderBy("team", "seat_no", "player_public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list members query: %w", err)
	}

	var rows []matchMemberTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	out := make([]match.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *MatchRepository) SetLobbyCode(ctx context.Context, matchID, code string, now time.Time) (match.Status, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx for lobby code: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	status, err := lockOpenMatch(ctx, tx, matchID)
	if err != nil {
		return status, err
	}

	const updateQuery = `
UPDATE matches
SET lobby_code = $2,
    updated_at = $3
WHERE public_id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, matchID, code, now); err != nil {
		return "", fmt.Errorf("set lobby code: %w", err)
	}

	status, err = advanceIfAllSeated(ctx, tx, matchID, status, now)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit lobby code tx: %w", err)
	}
	return status, nil
}

func (r *MatchRepository) SetSeated(ctx context.Context, matchID, playerID string, now time.Time) (match.Status, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx for seating: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	status, err := lockOpenMatch(ctx, tx, matchID)
	if err != nil {
		return status, err
	}

	const updateQuery = `
UPDATE match_members
SET seated_at = COALESCE(seated_at, $3)
WHERE match_public_id = $1
  AND player_public_id = $2`
	res, err := tx.ExecContext(ctx, updateQuery, matchID, playerID, now)
	if err != nil {
		return "", fmt.Errorf("set seated: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("set seated rows affected: %w", err)
	}
	if affected == 0 {
		return status, match.ErrStatusClosed
	}

	status, err = advanceIfAllSeated(ctx, tx, matchID, status, now)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit seating tx: %w", err)
	}
	return status, nil
}

func (r *MatchRepository) UnsetSeated(ctx context.Context, matchID, playerID string, now time.Time) error {
	return r.updateOpenMember(ctx, matchID, now, `
UPDATE match_members
SET seated_at = NULL
WHERE match_public_id = $1
  AND player_public_id = $2`, matchID, playerID)
}

func (r *MatchRepository) SetStuck(ctx context.Context, matchID, playerID string, stuck bool, now time.Time) error {
	return r.updateOpenMember(ctx, matchID, now, `
UPDATE match_members
SET stuck = $3
WHERE match_public_id = $1
  AND player_public_id = $2`, matchID, playerID, stuck)
}

func (r *MatchRepository) RecordVote(ctx context.Context, matchID, playerID string, vote match.Vote, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for vote: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	status, err := lockOpenMatch(ctx, tx, matchID)
	if err != nil {
		return err
	}
	if !status.Finalizable() {
		return match.ErrStatusClosed
	}

	const updateQuery = `
UPDATE match_members
SET vote = $3,
    voted_at = $4
WHERE match_public_id = $1
  AND player_public_id = $2`
	res, err := tx.ExecContext(ctx, updateQuery, matchID, playerID, string(vote), now)
	if err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record vote rows affected: %w", err)
	}
	if affected == 0 {
		return match.ErrStatusClosed
	}

	const touchQuery = `UPDATE matches SET updated_at = $2 WHERE public_id = $1`
	if _, err := tx.ExecContext(ctx, touchQuery, matchID, now); err != nil {
		return fmt.Errorf("touch match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vote tx: %w", err)
	}
	return nil
}

// Finalize writes the terminal outcome exactly once. The row lock plus the
// finalizable re-check decide the race between the threshold trigger and the
// timeout sweep; the loser gets ErrAlreadyFinalized and walks away.
func (r *MatchRepository) Finalize(ctx context.Context, matchID string, outcome match.Outcome, reason match.FinalizeReason, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for finalize: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `
SELECT status
FROM matches
WHERE public_id = $1
FOR UPDATE`
	var status string
	if err := tx.GetContext(ctx, &status, lockQuery, matchID); err != nil {
		if isNotFound(err) {
			return match.ErrAlreadyFinalized
		}
		return fmt.Errorf("lock match for finalize: %w", err)
	}
	if !match.Status(status).Finalizable() {
		return match.ErrAlreadyFinalized
	}

	const updateQuery = `
UPDATE matches
SET status = $2,
    outcome = $3,
    finalize_reason = $4,
    finalized_at = $5,
    updated_at = $5
WHERE public_id = $1`
	annotateQuery(ctx, updateQuery)
	if _, err := tx.ExecContext(ctx, updateQuery,
		matchID, string(outcome.FinalStatus()), string(outcome), string(reason), now,
	); err != nil {
		return fmt.Errorf("finalize match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finalize tx: %w", err)
	}
	return nil
}

func (r *MatchRepository) ListFinalizable(ctx context.Context, cutoff time.Time, limit int) ([]match.Match, error) {
	builder := qb.Select(matchSelectColumns...).From("matches").
		Where(
			qb.In("status", []any{string(match.StatusLobbyPending), string(match.StatusInGame)}),
			qb.Expr("created_at <= ?", cutoff),
		).
		OrderBy("created_at", "public_id")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list finalizable query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list finalizable matches: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *MatchRepository) updateOpenMember(ctx context.Context, matchID string, now time.Time, query string, args ...any) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for member update: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := lockOpenMatch(ctx, tx, matchID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update member: %w", err)
	}

	const touchQuery = `UPDATE matches SET updated_at = $2 WHERE public_id = $1`
	if _, err := tx.ExecContext(ctx, touchQuery, matchID, now); err != nil {
		return fmt.Errorf("touch match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit member update tx: %w", err)
	}
	return nil
}

// lockOpenMatch locks the match row and rejects terminal statuses.
func lockOpenMatch(ctx context.Context, tx *sqlx.Tx, matchID string) (match.Status, error) {
	const query = `
SELECT status
FROM matches
WHERE public_id = $1
FOR UPDATE`

	var status string
	if err := tx.GetContext(ctx, &status, query, matchID); err != nil {
		if isNotFound(err) {
			return "", match.ErrStatusClosed
		}
		return "", fmt.Errorf("lock match: %w", err)
	}
	if match.Status(status).Terminal() {
		return match.Status(status), match.ErrStatusClosed
	}
	return match.Status(status), nil
}

// advanceIfAllSeated flips lobby_pending to in_game once no participant is
// missing a seated timestamp. Runs inside the caller's transaction so the
// caller's own seating write is already visible.
func advanceIfAllSeated(ctx context.Context, tx *sqlx.Tx, matchID string, current match.Status, now time.Time) (match.Status, error) {
	if current != match.StatusLobbyPending {
		return current, nil
	}

	const pendingQuery = `
SELECT
    COUNT(*) FILTER (WHERE role = $2) AS participants,
    COUNT(*) FILTER (WHERE role = $2 AND seated_at IS NULL) AS unseated
FROM match_members
WHERE match_public_id = $1`

	var counts struct {
		Participants int `db:"participants"`
		Unseated     int `db:"unseated"`
	}
	if err := tx.GetContext(ctx, &counts, pendingQuery, matchID, string(match.RoleParticipant)); err != nil {
		return current, fmt.Errorf("count unseated participants: %w", err)
	}
	if counts.Participants == 0 || counts.Unseated > 0 {
		return current, nil
	}

	const advanceQuery = `
UPDATE matches
SET status = $2,
    updated_at = $3
WHERE public_id = $1`
	if _, err := tx.ExecContext(ctx, advanceQuery, matchID, string(match.StatusInGame), now); err != nil {
		return current, fmt.Errorf("advance match to in_game: %w", err)
	}
	return match.StatusInGame, nil
}
