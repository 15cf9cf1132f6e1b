package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/playarc/matchqueue/internal/infrastructure/repository/memory"
)

// BootstrapSeed inserts a starter roster into an empty players table so a
// fresh environment can form matches without an account pipeline.
func BootstrapSeed(ctx context.Context, db *sqlx.DB, players int) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM players`); err != nil {
		return fmt.Errorf("count players for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range memory.SeedPlayers(players) {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO players (public_id, display_name, rating, created_at, updated_at)
VALUES (:public_id, :display_name, :rating, :created_at, :updated_at)
ON CONFLICT (public_id) DO NOTHING`, map[string]any{
			"public_id":    p.ID,
			"display_name": p.DisplayName,
			"rating":       p.Rating,
			"created_at":   p.CreatedAt,
			"updated_at":   p.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("bind seed player %s query: %w", p.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed player %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
