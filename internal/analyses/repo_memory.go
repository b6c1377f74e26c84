package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analysis results in memory and is safe for concurrent use.
// It owns both the primary map and the source-record index; one mutex guards
// both so a saved result and its index entry become visible together.
type MemoryRepo struct {
	mu       sync.RWMutex
	byID     map[string]AnalysisResult
	bySource map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]AnalysisResult),
		bySource: make(map[string]string),
	}
}

// Save stores the result by ID and, when a source record is set, indexes it.
func (r *MemoryRepo) Save(ctx context.Context, result AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if result.SourceRecordID != "" {
		if existing, ok := r.bySource[result.SourceRecordID]; ok && existing != result.ID {
			return ErrDuplicate
		}
	}
	r.byID[result.ID] = result
	if result.SourceRecordID != "" {
		r.bySource[result.SourceRecordID] = result.ID
	}
	return nil
}

// FindByID returns a result by its ID.
func (r *MemoryRepo) FindByID(ctx context.Context, id string) (AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.byID[id]
	if !ok {
		return AnalysisResult{}, ErrNotFound
	}
	return result, nil
}

// FindBySourceRecord returns the result for a source page via the secondary index.
func (r *MemoryRepo) FindBySourceRecord(ctx context.Context, sourceRecordID string) (AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySource[sourceRecordID]
	if !ok {
		return AnalysisResult{}, ErrNotFound
	}
	result, ok := r.byID[id]
	if !ok {
		return AnalysisResult{}, ErrNotFound
	}
	return result, nil
}

// FindByDateRange returns results whose effective time lies in [from, to] inclusive.
func (r *MemoryRepo) FindByDateRange(ctx context.Context, from, to time.Time) ([]AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]AnalysisResult, 0)
	for _, result := range r.byID {
		at := result.EffectiveTime()
		if at.Before(from) || at.After(to) {
			continue
		}
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].EffectiveTime().Before(results[j].EffectiveTime())
	})
	return results, nil
}

// FindAll returns stored results newest-created-first with offset/limit.
func (r *MemoryRepo) FindAll(ctx context.Context, offset, limit int) ([]AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	results := make([]AnalysisResult, 0, len(r.byID))
	for _, result := range r.byID {
		results = append(results, result)
	}
	r.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if offset >= len(results) {
		return []AnalysisResult{}, nil
	}
	end := len(results)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return results[offset:end], nil
}
