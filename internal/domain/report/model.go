package report

import (
	"context"
	"time"
)

// ReasonNoShow is the only crowd-sourced accusation today.
const ReasonNoShow = "no_show"

// Report is one player's accusation against a match member. Append-only.
type Report struct {
	ID          string
	MatchID     string
	ReporterID  string
	AccusedID   string
	Reason      string
	EvidenceRef string
	CreatedAt   time.Time
}

// Repository stores reports per match.
type Repository interface {
	Create(ctx context.Context, r Report) (Report, error)

	// DistinctReporters returns the de-duplicated reporter ids that accused
	// one player within one match. Multiple reports from one reporter count
	// once.
	DistinctReporters(ctx context.Context, matchID, accusedID string) ([]string, error)
}
