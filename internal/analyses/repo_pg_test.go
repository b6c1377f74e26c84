package analyses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var pgColumns = []string{"id", "image_url", "extracted_datetime", "calories", "nutritional_categories", "analysis_notes", "source_record_id", "created_at", "updated_at"}

func TestPGRepoSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	result := sampleResult("page-1", time.Now().UTC())
	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(
			result.ID,
			result.ImageURL,
			sqlmock.AnyArg(), // extracted_datetime
			sqlmock.AnyArg(), // calories json
			sqlmock.AnyArg(), // categories json
			result.AnalysisNotes,
			sqlmock.AnyArg(), // source_record_id
			sqlmock.AnyArg(), // created_at
			sqlmock.AnyArg(), // updated_at
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), result); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPGRepoSaveDuplicateSource(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	mock.ExpectExec("INSERT INTO analyses").
		WillReturnError(errors.New(`duplicate key value violates unique constraint "idx_analyses_source_record_id" (SQLSTATE 23505)`))

	err = repo.Save(context.Background(), sampleResult("page-1", time.Now().UTC()))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Save err = %v, want ErrDuplicate", err)
	}
}

func TestPGRepoFindBySourceRecordRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	captured := created.Add(-2 * time.Hour)
	rows := sqlmock.NewRows(pgColumns).AddRow(
		"id-1",
		"https://example.com/meal.jpg",
		captured,
		[]byte(`{"totalCalories":450,"caloriesRange":{"min":400,"max":500},"confidence":0.8}`),
		[]byte(`{"vegetables":{"present":true,"portion":"high","confidence":0.9},"fruits":{"present":false,"portion":"low","confidence":0.5},"proteins":{"present":true,"portion":"medium","confidence":0.8},"sugars":{"present":false,"portion":"low","confidence":0.5},"processedFoods":{"present":false,"portion":"low","confidence":0.5}}`),
		"tasty",
		"page-1",
		created,
		created,
	)
	mock.ExpectQuery("SELECT .+ FROM analyses WHERE source_record_id").
		WithArgs("page-1").
		WillReturnRows(rows)

	got, err := repo.FindBySourceRecord(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("FindBySourceRecord: %v", err)
	}
	if got.ID != "id-1" || got.SourceRecordID != "page-1" {
		t.Errorf("result = %+v", got)
	}
	if got.Calories.TotalCalories != 450 || got.Calories.CaloriesRange.Max != 500 {
		t.Errorf("calories = %+v", got.Calories)
	}
	if !got.NutritionalCategories.Vegetables.Present || got.NutritionalCategories.Vegetables.Portion != PortionHigh {
		t.Errorf("vegetables = %+v", got.NutritionalCategories.Vegetables)
	}
	if got.ExtractedDateTime == nil || !got.ExtractedDateTime.Equal(captured) {
		t.Errorf("extractedDateTime = %v, want %v", got.ExtractedDateTime, captured)
	}
}

func TestPGRepoFindByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT .+ FROM analyses WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(pgColumns))

	if _, err := repo.FindByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoFindAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(pgColumns).
		AddRow("id-2", "u2", nil, []byte(`{}`), []byte(`{}`), "", nil, created.Add(time.Hour), created.Add(time.Hour)).
		AddRow("id-1", "u1", nil, []byte(`{}`), []byte(`{}`), "", nil, created, created)
	mock.ExpectQuery("SELECT .+ FROM analyses").
		WithArgs(2, 0).
		WillReturnRows(rows)

	got, err := repo.FindAll(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(got) != 2 || got[0].ID != "id-2" {
		t.Errorf("FindAll = %+v", got)
	}
	if got[0].SourceRecordID != "" || got[0].ExtractedDateTime != nil {
		t.Errorf("null columns should map to zero values: %+v", got[0])
	}
}
