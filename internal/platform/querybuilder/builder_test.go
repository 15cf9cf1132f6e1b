package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("public_id", "rating").
		From("players").
		Where(EqLiteral("queue_status", "waiting")).
		OrderBy("queue_joined_at", "public_id").
		Limit(500).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT public_id, rating FROM players WHERE queue_status = 'waiting' ORDER BY queue_joined_at, public_id LIMIT 500"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilderNumbersMixedConditions(t *testing.T) {
	query, args, err := Select("public_id").
		From("matches").
		Where(
			In("status", []any{"lobby_pending", "in_game"}),
			Expr("created_at <= ?", "2026-03-01T20:00:00Z"),
		).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT public_id FROM matches WHERE status IN ($1, $2) AND created_at <= $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "lobby_pending" || args[1] != "in_game" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilderEmptyInNeverMatches(t *testing.T) {
	query, args, err := Select("public_id").
		From("players").
		Where(In("public_id", nil)).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT public_id FROM players WHERE 1=0"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}
