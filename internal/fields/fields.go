// Package fields is the declarative table of canonical meal-page concepts and
// the property names that may carry them. The updater resolves write targets
// against it per page; the extractor uses it to keep analysis-owned properties
// out of the prompt context. Field presence is probed per record, never assumed.
package fields

// Concept identifies one canonical meal-page field.
type Concept string

const (
	MealPhoto   Concept = "meal_photo"
	MealTime    Concept = "meal_time"
	Calories    Concept = "calories"
	Categories  Concept = "categories"
	Notes       Concept = "notes"
	Analyzed    Concept = "analyzed"
	UserContext Concept = "user_context"
)

// Candidates maps each concept to acceptable property names, preferred first.
// The second entry of each pair is a legacy label kept for older databases.
var Candidates = map[Concept][]string{
	MealPhoto:   {"Meal Photo", "Photo"},
	MealTime:    {"Meal Time", "Eaten At"},
	Calories:    {"Calories", "Estimated Calories"},
	Categories:  {"Nutrition Categories", "Categories"},
	Notes:       {"Analysis Notes", "AI Notes"},
	Analyzed:    {"Analyzed", "AI Analyzed"},
	UserContext: {"Context", "Meal Context"},
}

// reservedConcepts are excluded from prompt-context building: the photo field
// itself and every analysis-owned output field. UserContext is deliberately
// not reserved since user-supplied context is exactly what the prompt wants.
var reservedConcepts = []Concept{MealPhoto, MealTime, Calories, Categories, Notes, Analyzed}

// Reserved returns the set of property names excluded from context building.
func Reserved() map[string]bool {
	reserved := make(map[string]bool)
	for _, concept := range reservedConcepts {
		for _, name := range Candidates[concept] {
			reserved[name] = true
		}
	}
	return reserved
}
