package memory

import (
	"fmt"
	"time"

	"github.com/playarc/matchqueue/internal/domain/player"
)

// SeedPlayers returns n idle players with the default rating, ids p-001..n.
// Tests enqueue them as needed.
func SeedPlayers(n int) []player.Player {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]player.Player, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, player.Player{
			ID:          fmt.Sprintf("p-%03d", i),
			DisplayName: fmt.Sprintf("Player %03d", i),
			Rating:      player.DefaultRating,
			CreatedAt:   created,
			UpdatedAt:   created,
		})
	}
	return out
}
