package reconcile

import (
	"context"
	"errors"
	"fmt"

	"mealsnap-backend/internal/analyses"
	"mealsnap-backend/internal/extract"
	"mealsnap-backend/internal/fields"
	"mealsnap-backend/internal/records"
	"mealsnap-backend/internal/shared/telemetry"
	"mealsnap-backend/internal/vision"
	"mealsnap-backend/internal/writeback"
)

// DefaultLimit caps pending-page discovery when no explicit limit is given.
const DefaultLimit = 5

// Reconciler drives the pipeline: discover pending pages, extract, analyze,
// persist, write back. Pages are processed strictly sequentially; a failure in
// one page never aborts the batch.
type Reconciler struct {
	Records   records.Client
	Extractor *extract.Extractor
	Requestor *vision.Requestor
	Repo      analyses.Repo
	Updater   *writeback.Updater
}

// Run processes pending pages of a database and returns the results of the
// pages that completed, in processing order. An explicit page ID bypasses the
// pending filter so an already-stamped page can be reprocessed. Pages that
// errored or had no images are omitted; already-analyzed pages contribute
// their stored result unchanged.
func (r *Reconciler) Run(ctx context.Context, databaseID, explicitPageID string, limit int) ([]analyses.AnalysisResult, error) {
	var pageIDs []string
	if explicitPageID != "" {
		pageIDs = []string{explicitPageID}
	} else {
		if limit <= 0 {
			limit = DefaultLimit
		}
		mealTimeProperty := fields.Candidates[fields.MealTime][0]
		ids, err := r.Records.QueryPendingPages(ctx, databaseID, mealTimeProperty, limit)
		if err != nil {
			return nil, fmt.Errorf("discover pending pages: %w", err)
		}
		pageIDs = ids
	}

	telemetry.Info("reconcile.start", map[string]any{
		"database": databaseID,
		"pages":    len(pageIDs),
		"explicit": explicitPageID != "",
	})

	results := make([]analyses.AnalysisResult, 0, len(pageIDs))
	for _, pageID := range pageIDs {
		result, ok := r.processPage(ctx, pageID)
		if ok {
			results = append(results, result)
		}
	}

	telemetry.Info("reconcile.done", map[string]any{
		"database":  databaseID,
		"pages":     len(pageIDs),
		"completed": len(results),
	})
	return results, nil
}

// processPage runs one page through the per-record state machine. The second
// return is false for every skip outcome (existing results still return true
// since skip-because-analyzed is a success).
func (r *Reconciler) processPage(ctx context.Context, pageID string) (analyses.AnalysisResult, bool) {
	// Idempotency gate. Lookup failures other than not-found are swallowed:
	// the read path is best-effort and must not block the batch.
	existing, err := r.Repo.FindBySourceRecord(ctx, pageID)
	if err == nil {
		telemetry.Info("reconcile.skip_existing", map[string]any{
			"page":     pageID,
			"analysis": existing.ID,
		})
		return existing, true
	}
	if !errors.Is(err, analyses.ErrNotFound) {
		telemetry.Warn("reconcile.existence_check_failed", map[string]any{
			"page": pageID,
			"err":  err.Error(),
		})
	}

	bundle, err := r.Extractor.Extract(ctx, pageID)
	if err != nil {
		telemetry.Error("reconcile.extract_failed", map[string]any{
			"page": pageID,
			"err":  err.Error(),
		})
		return analyses.AnalysisResult{}, false
	}
	if bundle == nil {
		telemetry.Info("reconcile.skip_no_images", map[string]any{"page": pageID})
		return analyses.AnalysisResult{}, false
	}

	visionImages := make([]vision.Image, 0, len(bundle.Images))
	for _, img := range bundle.Images {
		visionImages = append(visionImages, vision.Image{Data: img.Data, SourceURL: img.SourceURL})
	}

	// One model call per page regardless of image count; internal failures
	// already degraded to the fallback assessment.
	assessment := r.Requestor.Analyze(ctx, visionImages, bundle.CapturedAt, bundle.Context)

	result := analyses.NewResult(
		bundle.Images[0].SourceURL,
		bundle.CapturedAt,
		assessment.Calories,
		assessment.Categories,
		assessment.Notes,
		bundle.SourceRecordID,
	)

	if err := r.Repo.Save(ctx, result); err != nil {
		telemetry.Error("reconcile.persist_failed", map[string]any{
			"page": pageID,
			"err":  err.Error(),
		})
		return analyses.AnalysisResult{}, false
	}

	labels := writeback.CategoryOptions(result.NutritionalCategories)
	if !r.Updater.WriteBack(ctx, pageID, result.Calories.TotalCalories, labels, result.AnalysisNotes, result.ExtractedDateTime) {
		telemetry.Error("reconcile.writeback_failed", map[string]any{"page": pageID})
		return analyses.AnalysisResult{}, false
	}

	telemetry.Info("reconcile.page_done", map[string]any{
		"page":     pageID,
		"analysis": result.ID,
		"images":   len(bundle.Images),
		"calories": result.Calories.TotalCalories,
	})
	return result, true
}
