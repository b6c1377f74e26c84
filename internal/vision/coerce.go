package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mealsnap-backend/internal/analyses"
)

const defaultConfidence = 0.5

// Coerce extracts the first JSON object from the model response and forces it
// into a well-formed Assessment. Every field is coerced totally: out-of-range
// confidences clamp, unknown portions fall back to low, missing booleans to
// false, missing numbers to zero. It only errors when no parsable object with
// the three required top-level keys exists.
func Coerce(raw string) (Assessment, error) {
	obj, ok := firstJSONObject(raw)
	if !ok {
		return Assessment{}, errors.New("no JSON object in model response")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &top); err != nil {
		return Assessment{}, fmt.Errorf("unmarshal model response: %w", err)
	}
	for _, key := range []string{"calories", "nutritionalCategories", "analysisNotes"} {
		if _, ok := top[key]; !ok {
			return Assessment{}, fmt.Errorf("model response missing %q", key)
		}
	}

	var loose struct {
		Calories              map[string]any            `json:"calories"`
		NutritionalCategories map[string]map[string]any `json:"nutritionalCategories"`
		AnalysisNotes         any                       `json:"analysisNotes"`
	}
	if err := json.Unmarshal([]byte(obj), &loose); err != nil {
		return Assessment{}, fmt.Errorf("unmarshal model response: %w", err)
	}

	return Assessment{
		Calories:   coerceCalories(loose.Calories),
		Categories: coerceCategories(loose.NutritionalCategories),
		Notes:      coerceString(loose.AnalysisNotes),
	}, nil
}

func coerceCalories(raw map[string]any) analyses.Calories {
	total := coerceNumber(raw["totalCalories"], 0)
	if total < 0 {
		total = 0
	}
	var rangeRaw map[string]any
	if m, ok := raw["caloriesRange"].(map[string]any); ok {
		rangeRaw = m
	}
	return analyses.Calories{
		TotalCalories: total,
		CaloriesRange: analyses.CaloriesRange{
			Min: coerceNumber(rangeRaw["min"], 0),
			Max: coerceNumber(rangeRaw["max"], 0),
		},
		Confidence: coerceConfidence(raw["confidence"]),
	}
}

func coerceCategories(raw map[string]map[string]any) analyses.NutritionalCategories {
	return analyses.NutritionalCategories{
		Vegetables:     CoerceCategory(raw["vegetables"]),
		Fruits:         CoerceCategory(raw["fruits"]),
		Proteins:       CoerceCategory(raw["proteins"]),
		Sugars:         CoerceCategory(raw["sugars"]),
		ProcessedFoods: CoerceCategory(raw["processedFoods"]),
	}
}

// CoerceCategory forces one category payload into a valid verdict. A nil or
// malformed payload yields {absent, low, 0.5}, never an error.
func CoerceCategory(raw map[string]any) analyses.Category {
	present, _ := raw["present"].(bool)
	return analyses.Category{
		Present:    present,
		Portion:    coercePortion(raw["portion"]),
		Confidence: coerceConfidence(raw["confidence"]),
	}
}

func coercePortion(v any) analyses.Portion {
	s, _ := v.(string)
	switch analyses.Portion(strings.ToLower(strings.TrimSpace(s))) {
	case analyses.PortionHigh:
		return analyses.PortionHigh
	case analyses.PortionMedium:
		return analyses.PortionMedium
	default:
		return analyses.PortionLow
	}
}

func coerceConfidence(v any) float64 {
	n, ok := v.(float64)
	if !ok {
		return defaultConfidence
	}
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

func coerceNumber(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return def
}

func coerceString(v any) string {
	s, _ := v.(string)
	return s
}
