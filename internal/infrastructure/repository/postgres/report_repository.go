package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/playarc/matchqueue/internal/domain/report"
)

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep report.Report) (report.Report, error) {
	const query = `
INSERT INTO reports (public_id, match_public_id, reporter_public_id, accused_public_id, reason, evidence_ref, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.db.ExecContext(ctx, query,
		rep.ID, rep.MatchID, rep.ReporterID, rep.AccusedID, rep.Reason, rep.EvidenceRef, rep.CreatedAt,
	); err != nil {
		return report.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return rep, nil
}

func (r *ReportRepository) DistinctReporters(ctx context.Context, matchID, accusedID string) ([]string, error) {
	const query = `
SELECT DISTINCT reporter_public_id
FROM reports
WHERE match_public_id = $1
  AND accused_public_id = $2
ORDER BY reporter_public_id`

	reporters := make([]string, 0)
	if err := r.db.SelectContext(ctx, &reporters, query, matchID, accusedID); err != nil {
		return nil, fmt.Errorf("select distinct reporters: %w", err)
	}
	return reporters, nil
}
