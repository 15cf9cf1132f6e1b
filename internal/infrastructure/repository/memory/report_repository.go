package memory

import (
	"context"
	"sync"

	"github.com/playarc/matchqueue/internal/domain/report"
)

type ReportRepository struct {
	mu    sync.Mutex
	items []report.Report
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{}
}

func (r *ReportRepository) Create(_ context.Context, rep report.Report) (report.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, rep)
	return rep, nil
}

func (r *ReportRepository) DistinctReporters(_ context.Context, matchID, accusedID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, rep := range r.items {
		if rep.MatchID != matchID || rep.AccusedID != accusedID {
			continue
		}
		if _, dup := seen[rep.ReporterID]; dup {
			continue
		}
		seen[rep.ReporterID] = struct{}{}
		out = append(out, rep.ReporterID)
	}
	return out, nil
}
