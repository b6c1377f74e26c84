package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, image_url, extracted_datetime, calories, nutritional_categories, analysis_notes, source_record_id, created_at, updated_at`

// Save inserts the result. The partial unique index on source_record_id backs
// up the caller-side existence check.
func (r *PGRepo) Save(ctx context.Context, result AnalysisResult) error {
	caloriesJSON, err := json.Marshal(result.Calories)
	if err != nil {
		return fmt.Errorf("marshal calories: %w", err)
	}
	categoriesJSON, err := json.Marshal(result.NutritionalCategories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	var sourceID sql.NullString
	if result.SourceRecordID != "" {
		sourceID = sql.NullString{String: result.SourceRecordID, Valid: true}
	}
	var extractedAt sql.NullTime
	if result.ExtractedDateTime != nil {
		extractedAt = sql.NullTime{Time: result.ExtractedDateTime.UTC(), Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID,
		result.ImageURL,
		extractedAt,
		caloriesJSON,
		categoriesJSON,
		result.AnalysisNotes,
		sourceID,
		result.CreatedAt.UTC(),
		result.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// FindByID returns a result by its ID.
func (r *PGRepo) FindByID(ctx context.Context, id string) (AnalysisResult, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id)
	return scanAnalysis(row)
}

// FindBySourceRecord returns the result for a source page.
func (r *PGRepo) FindBySourceRecord(ctx context.Context, sourceRecordID string) (AnalysisResult, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE source_record_id = $1`, sourceRecordID)
	return scanAnalysis(row)
}

// FindByDateRange returns results whose effective time lies in [from, to] inclusive.
func (r *PGRepo) FindByDateRange(ctx context.Context, from, to time.Time) ([]AnalysisResult, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+analysisColumns+` FROM analyses
		WHERE COALESCE(extracted_datetime, created_at) >= $1
		  AND COALESCE(extracted_datetime, created_at) <= $2
		ORDER BY COALESCE(extracted_datetime, created_at) ASC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query analyses by date range: %w", err)
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

// FindAll returns stored results newest-created-first with offset/limit.
func (r *PGRepo) FindAll(ctx context.Context, offset, limit int) ([]AnalysisResult, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+analysisColumns+` FROM analyses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (AnalysisResult, error) {
	var (
		result         AnalysisResult
		extractedAt    sql.NullTime
		caloriesJSON   []byte
		categoriesJSON []byte
		sourceID       sql.NullString
	)
	err := row.Scan(
		&result.ID,
		&result.ImageURL,
		&extractedAt,
		&caloriesJSON,
		&categoriesJSON,
		&result.AnalysisNotes,
		&sourceID,
		&result.CreatedAt,
		&result.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return AnalysisResult{}, ErrNotFound
	}
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("scan analysis: %w", err)
	}
	if extractedAt.Valid {
		t := extractedAt.Time
		result.ExtractedDateTime = &t
	}
	if sourceID.Valid {
		result.SourceRecordID = sourceID.String
	}
	if err := json.Unmarshal(caloriesJSON, &result.Calories); err != nil {
		return AnalysisResult{}, fmt.Errorf("unmarshal calories: %w", err)
	}
	if err := json.Unmarshal(categoriesJSON, &result.NutritionalCategories); err != nil {
		return AnalysisResult{}, fmt.Errorf("unmarshal categories: %w", err)
	}
	return result, nil
}

func scanAnalyses(rows *sql.Rows) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, 0)
	for rows.Next() {
		result, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return results, nil
}

func isUniqueViolation(err error) bool {
	// SQLSTATE 23505; matched on text to stay driver-agnostic for tests.
	return err != nil && strings.Contains(err.Error(), "23505")
}
