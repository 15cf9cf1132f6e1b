package postgres

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(sql.ErrNoRows) {
		t.Fatalf("expected true for sql.ErrNoRows")
	}
	if isNotFound(errors.New("pq: relation players does not exist")) {
		t.Fatalf("expected false for unrelated error")
	}
}

func TestFormatQueryForTrace(t *testing.T) {
	got := formatQueryForTrace(" SELECT   *\nFROM matches \t WHERE public_id = $1 ")
	want := "SELECT * FROM matches WHERE public_id = $1"
	if got != want {
		t.Fatalf("unexpected formatted query: %q", got)
	}

	long := "SELECT " + strings.Repeat("x", 600)
	if got := formatQueryForTrace(long); len(got) != maxTracedQueryLength+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected capped query, got %d chars", len(got))
	}
}

func TestStringSliceToAny(t *testing.T) {
	got := stringSliceToAny([]string{"a", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected conversion: %v", got)
	}
	if got := stringSliceToAny(nil); len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
}
