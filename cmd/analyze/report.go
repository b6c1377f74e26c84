package main

import (
	"fmt"
	"io"
	"time"

	"mealsnap-backend/internal/analyses"
)

// printReport writes the human-readable per-page summary. This is a reporting
// convenience, not a machine-readable contract.
func printReport(w io.Writer, results []analyses.AnalysisResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No pages analyzed.")
		return
	}
	fmt.Fprintf(w, "Analyzed %d page(s)\n", len(results))
	for _, result := range results {
		fmt.Fprintln(w, "----------------------------------------")
		fmt.Fprintf(w, "Page:       %s\n", result.SourceRecordID)
		fmt.Fprintf(w, "Image:      %s\n", result.ImageURL)
		fmt.Fprintf(w, "Captured:   %s\n", formatCaptured(result.ExtractedDateTime))
		fmt.Fprintf(w, "Calories:   %.0f kcal (%.0f-%.0f, %.0f%% confidence)\n",
			result.Calories.TotalCalories,
			result.Calories.CaloriesRange.Min,
			result.Calories.CaloriesRange.Max,
			result.Calories.Confidence*100,
		)
		for _, lc := range result.NutritionalCategories.Labeled() {
			fmt.Fprintf(w, "  %-16s %s\n", lc.Label+":", formatCategory(lc.Category))
		}
		if result.AnalysisNotes != "" {
			fmt.Fprintf(w, "Notes:      %s\n", result.AnalysisNotes)
		}
		fmt.Fprintf(w, "Processed:  %s\n", result.CreatedAt.Format(time.RFC3339))
	}
}

func formatCaptured(at *time.Time) string {
	if at == nil {
		return "unavailable"
	}
	return at.Format(time.RFC3339)
}

func formatCategory(c analyses.Category) string {
	if !c.Present {
		return fmt.Sprintf("absent (%.0f%% confidence)", c.Confidence*100)
	}
	return fmt.Sprintf("present, %s portion (%.0f%% confidence)", c.Portion, c.Confidence*100)
}
