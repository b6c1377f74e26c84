package analyses

import (
	"time"

	"github.com/google/uuid"
)

// Portion is the estimated serving size of a category.
type Portion string

const (
	PortionHigh   Portion = "high"
	PortionMedium Portion = "medium"
	PortionLow    Portion = "low"
)

// Category is the model's verdict for one nutritional bucket.
type Category struct {
	Present    bool    `json:"present"`
	Portion    Portion `json:"portion"`
	Confidence float64 `json:"confidence"`
}

// CaloriesRange bounds the calorie estimate.
type CaloriesRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Calories is the aggregate calorie estimate for one meal.
type Calories struct {
	TotalCalories float64       `json:"totalCalories"`
	CaloriesRange CaloriesRange `json:"caloriesRange"`
	Confidence    float64       `json:"confidence"`
}

// NutritionalCategories holds the five fixed buckets tracked per analysis.
type NutritionalCategories struct {
	Vegetables     Category `json:"vegetables"`
	Fruits         Category `json:"fruits"`
	Proteins       Category `json:"proteins"`
	Sugars         Category `json:"sugars"`
	ProcessedFoods Category `json:"processedFoods"`
}

// AnalysisResult is the structured nutritional verdict for one meal page.
// Immutable once persisted; re-running the pipeline for an already-analyzed
// page returns the stored instance unchanged.
type AnalysisResult struct {
	ID                    string                `json:"id"`
	ImageURL              string                `json:"imageUrl"`
	ExtractedDateTime     *time.Time            `json:"extractedDateTime"`
	Calories              Calories              `json:"calories"`
	NutritionalCategories NutritionalCategories `json:"nutritionalCategories"`
	AnalysisNotes         string                `json:"analysisNotes"`
	SourceRecordID        string                `json:"sourceRecordId,omitempty"`
	CreatedAt             time.Time             `json:"createdAt"`
	UpdatedAt             time.Time             `json:"updatedAt"`
}

// NewResult assigns a fresh ID and creation timestamps.
func NewResult(imageURL string, extractedAt *time.Time, calories Calories, categories NutritionalCategories, notes, sourceRecordID string) AnalysisResult {
	now := time.Now().UTC()
	return AnalysisResult{
		ID:                    uuid.NewString(),
		ImageURL:              imageURL,
		ExtractedDateTime:     extractedAt,
		Calories:              calories,
		NutritionalCategories: categories,
		AnalysisNotes:         notes,
		SourceRecordID:        sourceRecordID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// EffectiveTime is the capture timestamp when present, else the creation time.
// Date-range queries use it as the record's position on the timeline.
func (r AnalysisResult) EffectiveTime() time.Time {
	if r.ExtractedDateTime != nil {
		return *r.ExtractedDateTime
	}
	return r.CreatedAt
}

// LabeledCategory pairs a category verdict with its display label.
type LabeledCategory struct {
	Label    string
	Category Category
}

// Labeled returns all five category verdicts with display labels, in schema order.
func (c NutritionalCategories) Labeled() []LabeledCategory {
	return []LabeledCategory{
		{"Vegetables", c.Vegetables},
		{"Fruits", c.Fruits},
		{"Proteins", c.Proteins},
		{"Sugars", c.Sugars},
		{"Processed Foods", c.ProcessedFoods},
	}
}
