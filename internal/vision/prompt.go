package vision

import (
	_ "embed"
	"fmt"
	"strings"
	"time"
)

//go:embed prompts/nutrition.txt
var nutritionPrompt string

const multiImagePreface = "All of the attached images show components of the SAME single meal. Analyze them jointly as one meal, not as separate meals."

// SystemPrompt returns the fixed system instruction describing the response schema.
func SystemPrompt() string {
	return nutritionPrompt
}

// BuildInstruction renders the per-request user instruction. When the meal has
// more than one image the joint-analysis preface is prepended; capture time and
// page context are appended when available.
func BuildInstruction(imageCount int, capturedAt *time.Time, contextText string) string {
	var b strings.Builder
	if imageCount > 1 {
		b.WriteString(multiImagePreface)
		b.WriteString("\n\n")
	}
	b.WriteString("Analyze the attached meal photo")
	if imageCount > 1 {
		fmt.Fprintf(&b, "s (%d images)", imageCount)
	}
	b.WriteString(" and estimate its nutritional content.")
	if capturedAt != nil {
		fmt.Fprintf(&b, "\nThe photo was taken on %s; consider typical meals for that time of day.", capturedAt.Format("Monday, January 2, 2006 at 15:04"))
	}
	if trimmed := strings.TrimSpace(contextText); trimmed != "" {
		fmt.Fprintf(&b, "\nAdditional context from the meal record: %s", trimmed)
	}
	b.WriteString("\nRespond with JSON only.")
	return b.String()
}
