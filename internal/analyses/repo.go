package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analysis results.
//
// Save is the write path and propagates failures. The find operations are the
// read path; callers treat their failures as best-effort (log and continue
// with empty results).
type Repo interface {
	Save(ctx context.Context, result AnalysisResult) error
	FindByID(ctx context.Context, id string) (AnalysisResult, error)
	// FindBySourceRecord is the idempotency lookup: at most one stored result
	// exists per source page.
	FindBySourceRecord(ctx context.Context, sourceRecordID string) (AnalysisResult, error)
	// FindByDateRange returns results whose effective time (capture time when
	// present, else creation time) falls within [from, to] inclusive.
	FindByDateRange(ctx context.Context, from, to time.Time) ([]AnalysisResult, error)
	// FindAll returns results sorted newest-created-first.
	FindAll(ctx context.Context, offset, limit int) ([]AnalysisResult, error)
}
