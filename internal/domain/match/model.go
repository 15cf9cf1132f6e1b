package match

import (
	"fmt"
	"time"
)

// Capacity is the fixed participant count of a formed match (5v5).
const Capacity = 10

// TeamSize is the participant count per team.
const TeamSize = 5

// Status is the match lifecycle state. Transitions are monotonic.
type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusLobbyPending Status = "lobby_pending"
	StatusInGame       Status = "in_game"
	StatusCompleted    Status = "completed"
	StatusInvalid      Status = "invalid"
)

var statusRank = map[Status]int{
	StatusWaiting:      0,
	StatusLobbyPending: 1,
	StatusInGame:       2,
	StatusCompleted:    3,
	StatusInvalid:      3,
}

// CanTransition reports whether moving from s to next keeps the lifecycle
// monotonic. Equal states are allowed so idempotent writes stay legal.
func (s Status) CanTransition(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// Terminal reports whether the match can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusInvalid
}

// Finalizable reports whether the match is still awaiting an outcome.
// Both pre-game and live matches finalize; only terminal states do not.
func (s Status) Finalizable() bool {
	return s == StatusLobbyPending || s == StatusInGame
}

// Team identifies one side of a match. The "first" team is decided by coin
// flip at formation and carries the pick-order asymmetry.
type Team string

const (
	TeamFirst  Team = "first"
	TeamSecond Team = "second"
)

func (t Team) Valid() bool {
	return t == TeamFirst || t == TeamSecond
}

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamFirst {
		return TeamSecond
	}
	return TeamFirst
}

// Vote is a participant's view of the result, relative to their own team.
type Vote string

const (
	VoteWin     Vote = "win"
	VoteLoss    Vote = "loss"
	VoteInvalid Vote = "invalid"
)

func ParseVote(raw string) (Vote, error) {
	switch Vote(raw) {
	case VoteWin, VoteLoss, VoteInvalid:
		return Vote(raw), nil
	}
	return "", fmt.Errorf("unrecognized vote value: %q", raw)
}

// Outcome is the authoritative match-level result.
type Outcome string

const (
	OutcomeFirstWin  Outcome = "first_win"
	OutcomeSecondWin Outcome = "second_win"
	OutcomeInvalid   Outcome = "invalid"
)

// FinalStatus returns the terminal lifecycle state the outcome settles into.
func (o Outcome) FinalStatus() Status {
	if o == OutcomeInvalid {
		return StatusInvalid
	}
	return StatusCompleted
}

// FinalizeReason records which trigger won the finalization race.
type FinalizeReason string

const (
	ReasonThreshold FinalizeReason = "threshold"
	ReasonTimeout   FinalizeReason = "timeout"
)

// Role distinguishes seated players from onlookers.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleSpectator   Role = "spectator"
)

// Match is one formed 10-player game instance. Matches are never deleted;
// terminal rows stay behind for audit and rating replay.
type Match struct {
	ID             string
	Status         Status
	Capacity       int
	FirstTeam      Team
	LobbyCode      string
	Outcome        Outcome
	FinalizeReason FinalizeReason
	CreatedAt      time.Time
	UpdatedAt      time.Time
	FinalizedAt    *time.Time
}

// Member is one player's participation record inside a match. Immutable once
// the match reaches a terminal status.
type Member struct {
	MatchID  string
	PlayerID string
	Role     Role
	Team     Team
	SeatNo   int
	JoinedAt time.Time
	SeatedAt *time.Time
	Stuck    bool
	Vote     *Vote
	VotedAt  *time.Time
}

// Participant reports whether the member plays (spectators never seat, vote,
// or rate).
func (m Member) Participant() bool {
	return m.Role == RoleParticipant
}

// ValidateLobbyCode checks the externally-generated game session identifier:
// exactly eight ASCII digits.
func ValidateLobbyCode(code string) error {
	if len(code) != 8 {
		return fmt.Errorf("lobby code must be 8 digits, got %d characters", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("lobby code must be numeric")
		}
	}
	return nil
}

// AllSeated reports whether every participant shows a seated timestamp.
// Non-participants are ignored; an empty participant list is not "all seated".
func AllSeated(members []Member) bool {
	participants := 0
	for _, m := range members {
		if !m.Participant() {
			continue
		}
		participants++
		if m.SeatedAt == nil {
			return false
		}
	}
	return participants > 0
}
