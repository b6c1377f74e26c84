package vision

import (
	"context"
	"time"

	"mealsnap-backend/internal/analyses"
	"mealsnap-backend/internal/shared/telemetry"
)

// Image is one prepared meal photo ready for transmission.
type Image struct {
	Data      []byte
	SourceURL string
}

// Assessment is the coerced nutritional verdict for one meal.
type Assessment struct {
	Calories   analyses.Calories
	Categories analyses.NutritionalCategories
	Notes      string
}

// Client abstracts the vision model provider. A single call carries the
// instruction plus every image of the meal.
type Client interface {
	Complete(ctx context.Context, instruction string, images [][]byte) (string, error)
}

// Requestor turns an attachment bundle into an Assessment. It never fails:
// any provider or parse error degrades to the fixed fallback so one bad model
// response cannot block a batch.
type Requestor struct {
	Client Client
}

// NewRequestor constructs a Requestor.
func NewRequestor(client Client) *Requestor {
	return &Requestor{Client: client}
}

// Analyze invokes the model once with all images of the meal and coerces the
// response into a well-formed Assessment.
func (r *Requestor) Analyze(ctx context.Context, images []Image, capturedAt *time.Time, contextText string) Assessment {
	instruction := BuildInstruction(len(images), capturedAt, contextText)

	payloads := make([][]byte, 0, len(images))
	for _, img := range images {
		payloads = append(payloads, img.Data)
	}

	raw, err := r.Client.Complete(ctx, instruction, payloads)
	if err != nil {
		telemetry.Warn("vision.analyze_failed", map[string]any{
			"images": len(images),
			"err":    err.Error(),
		})
		return Fallback()
	}

	assessment, err := Coerce(raw)
	if err != nil {
		telemetry.Warn("vision.response_malformed", map[string]any{
			"images": len(images),
			"err":    err.Error(),
		})
		return Fallback()
	}
	return assessment
}

// fallbackNotes is the fixed note attached when analysis degrades.
const fallbackNotes = "Analysis could not be completed. The meal was recorded without nutritional details."

const fallbackConfidence = 0.1

// Fallback is the documented degraded result: zero calories, every category
// absent at low portion with confidence 0.1.
func Fallback() Assessment {
	absent := analyses.Category{Present: false, Portion: analyses.PortionLow, Confidence: fallbackConfidence}
	return Assessment{
		Calories: analyses.Calories{
			TotalCalories: 0,
			CaloriesRange: analyses.CaloriesRange{Min: 0, Max: 0},
			Confidence:    fallbackConfidence,
		},
		Categories: analyses.NutritionalCategories{
			Vegetables:     absent,
			Fruits:         absent,
			Proteins:       absent,
			Sugars:         absent,
			ProcessedFoods: absent,
		},
		Notes: fallbackNotes,
	}
}
