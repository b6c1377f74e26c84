package writeback

import (
	"context"
	"strings"
	"time"

	"mealsnap-backend/internal/analyses"
	"mealsnap-backend/internal/fields"
	"mealsnap-backend/internal/records"
	"mealsnap-backend/internal/shared/telemetry"
)

const (
	maxCategoryOptions = 10
	maxNotesLength     = 2000
)

// Updater maps an analysis verdict back onto a page's existing property
// schema. The schema is discovered per page; properties the page does not
// have are simply omitted and nothing is ever created.
type Updater struct {
	Records records.Client
}

// NewUpdater constructs an Updater.
func NewUpdater(rc records.Client) *Updater {
	return &Updater{Records: rc}
}

// WriteBack patches the analysis summary onto the page. The meal-time
// property is always stamped: capture time when extracted, else now, so the
// page stops matching the pending filter. Returns false (after logging)
// instead of an error; write-back failure must not fail the record.
func (u *Updater) WriteBack(ctx context.Context, pageID string, calories float64, categoryLabels []string, notes string, capturedAt *time.Time) bool {
	page, err := u.Records.GetPage(ctx, pageID)
	if err != nil {
		telemetry.Warn("writeback.page_fetch_failed", map[string]any{
			"page": pageID,
			"err":  err.Error(),
		})
		return false
	}

	patches := make(map[string]records.PropertyPatch)

	if name, ok := resolve(page, fields.Calories); ok {
		patches[name] = records.NumberPatch(calories)
	}
	if name, ok := resolve(page, fields.Categories); ok {
		patches[name] = records.PropertyPatch{MultiSelect: boundOptions(categoryLabels)}
	}
	if name, ok := resolve(page, fields.Notes); ok {
		patches[name] = records.TextPatch(truncate(notes, maxNotesLength))
	}
	if name, ok := resolve(page, fields.Analyzed); ok {
		patches[name] = records.CheckboxPatch(true)
	}
	if name, ok := resolve(page, fields.MealTime); ok {
		at := time.Now()
		if capturedAt != nil {
			at = *capturedAt
		}
		patches[name] = records.DatePatch(at.Format(time.RFC3339))
	}
	// The user-context property is input, never a write target.

	if len(patches) == 0 {
		return true
	}
	if err := u.Records.UpdatePage(ctx, pageID, patches); err != nil {
		telemetry.Warn("writeback.update_failed", map[string]any{
			"page": pageID,
			"err":  err.Error(),
		})
		return false
	}
	return true
}

// CategoryOptions renders present categories as "Label (portion)" strings in
// schema order.
func CategoryOptions(categories analyses.NutritionalCategories) []string {
	var options []string
	for _, lc := range categories.Labeled() {
		if !lc.Category.Present {
			continue
		}
		options = append(options, lc.Label+" ("+string(lc.Category.Portion)+")")
	}
	return options
}

// resolve picks the first candidate property name for a concept that exists
// on the page.
func resolve(page records.Page, concept fields.Concept) (string, bool) {
	for _, name := range fields.Candidates[concept] {
		if _, ok := page.Properties[name]; ok {
			return name, true
		}
	}
	return "", false
}

// boundOptions caps the option list and strips commas, which constrained
// choice fields treat as separators.
func boundOptions(labels []string) []string {
	options := make([]string, 0, len(labels))
	for _, label := range labels {
		if len(options) == maxCategoryOptions {
			break
		}
		clean := strings.TrimSpace(strings.ReplaceAll(label, ",", ""))
		if clean == "" {
			continue
		}
		options = append(options, clean)
	}
	return options
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
