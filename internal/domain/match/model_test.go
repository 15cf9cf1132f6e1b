package match

import (
	"testing"
	"time"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusWaiting, StatusLobbyPending, true},
		{StatusLobbyPending, StatusInGame, true},
		{StatusLobbyPending, StatusCompleted, true},
		{StatusInGame, StatusCompleted, true},
		{StatusInGame, StatusInvalid, true},
		{StatusLobbyPending, StatusLobbyPending, true},
		{StatusInGame, StatusLobbyPending, false},
		{StatusCompleted, StatusInGame, false},
		{StatusCompleted, StatusLobbyPending, false},
		{Status("bogus"), StatusCompleted, false},
		{StatusWaiting, Status("bogus"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %t, want %t", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusFinalizable(t *testing.T) {
	if !StatusLobbyPending.Finalizable() || !StatusInGame.Finalizable() {
		t.Fatal("pre-terminal states must be finalizable")
	}
	if StatusCompleted.Finalizable() || StatusInvalid.Finalizable() || StatusWaiting.Finalizable() {
		t.Fatal("waiting and terminal states must not be finalizable")
	}
}

func TestOutcomeFinalStatus(t *testing.T) {
	if OutcomeFirstWin.FinalStatus() != StatusCompleted || OutcomeSecondWin.FinalStatus() != StatusCompleted {
		t.Fatal("decided outcomes must settle as completed")
	}
	if OutcomeInvalid.FinalStatus() != StatusInvalid {
		t.Fatal("invalid outcome must settle as invalid")
	}
}

func TestValidateLobbyCode(t *testing.T) {
	valid := []string{"12345678", "00000000", "99999999"}
	for _, code := range valid {
		if err := ValidateLobbyCode(code); err != nil {
			t.Errorf("ValidateLobbyCode(%q) = %v, want nil", code, err)
		}
	}

	invalid := []string{"", "1234567", "123456789", "1234567a", "１２３４５６７８", "12 45678"}
	for _, code := range invalid {
		if err := ValidateLobbyCode(code); err == nil {
			t.Errorf("ValidateLobbyCode(%q) = nil, want error", code)
		}
	}
}

func TestAllSeated(t *testing.T) {
	now := time.Now()
	seated := func(id string) Member {
		return Member{PlayerID: id, Role: RoleParticipant, SeatedAt: &now}
	}
	unseated := func(id string) Member {
		return Member{PlayerID: id, Role: RoleParticipant}
	}

	if AllSeated(nil) {
		t.Fatal("no participants must not count as all seated")
	}
	if AllSeated([]Member{{PlayerID: "spec", Role: RoleSpectator}}) {
		t.Fatal("spectator-only rosters must not count as all seated")
	}
	if !AllSeated([]Member{seated("a"), seated("b")}) {
		t.Fatal("all seated participants should pass")
	}
	if AllSeated([]Member{seated("a"), unseated("b")}) {
		t.Fatal("one missing seat must fail")
	}
	// Unseated spectators do not block.
	if !AllSeated([]Member{seated("a"), {PlayerID: "spec", Role: RoleSpectator}}) {
		t.Fatal("spectators must be ignored")
	}
}

func TestParseVote(t *testing.T) {
	for _, raw := range []string{"win", "loss", "invalid"} {
		if _, err := ParseVote(raw); err != nil {
			t.Errorf("ParseVote(%q) = %v, want nil", raw, err)
		}
	}
	for _, raw := range []string{"", "draw", "WIN", "victory"} {
		if _, err := ParseVote(raw); err == nil {
			t.Errorf("ParseVote(%q) = nil, want error", raw)
		}
	}
}
