package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Client abstracts the hosted record store holding meal pages. The extractor,
// updater, and reconciler depend on this interface only; the Notion adapter
// lives below it.
type Client interface {
	// QueryPendingPages returns up to limit page IDs whose meal-time property
	// is still empty, in store order.
	QueryPendingPages(ctx context.Context, databaseID, mealTimeProperty string, limit int) ([]string, error)
	// GetPage returns the page with its full property set.
	GetPage(ctx context.Context, pageID string) (Page, error)
	// GetBlocks returns all content blocks of a page, following pagination.
	GetBlocks(ctx context.Context, pageID string) ([]Block, error)
	// UpdatePage patches the given properties on a page.
	UpdatePage(ctx context.Context, pageID string, properties map[string]PropertyPatch) error
}

// ErrPageNotFound reports a page ID the store does not know.
var ErrPageNotFound = errors.New("page not found")

// Page is one record with its property set, keyed by property name.
type Page struct {
	ID         string
	Properties map[string]Property
}

// Property is a single typed page property value. Type discriminates which of
// the value fields is populated.
type Property struct {
	ID          string
	Type        string
	Title       []RichText
	RichText    []RichText
	Number      *float64
	Select      *SelectOption
	MultiSelect []SelectOption
	Date        *DateValue
	Files       []FileRef
	Checkbox    *bool
}

// RichText is one fragment of formatted text; only the plain rendering matters here.
type RichText struct {
	PlainText string
}

// SelectOption is one choice value of a select or multi-select property.
type SelectOption struct {
	Name string
}

// DateValue is a date or date range in the store's ISO representation.
type DateValue struct {
	Start string
	End   string
}

// FileRef is one file attachment with a resolvable URL (hosted or external).
type FileRef struct {
	Name string
	URL  string
}

// Block is one content block embedded in a page body. Image blocks carry
// ImageURL; generic file blocks carry FileURL and FileName.
type Block struct {
	ID       string
	Type     string
	ImageURL string
	FileURL  string
	FileName string
}

// PropertyPatch is a write-back value for one property. Exactly one field
// should be set; the adapter renders it into the store's wire shape.
type PropertyPatch struct {
	Number      *float64
	RichText    *string
	MultiSelect []string
	Date        *DateValue
	Checkbox    *bool
}

// PlainText joins the plain renderings of a title or rich-text property.
func (p Property) PlainText() string {
	var parts []RichText
	switch p.Type {
	case "title":
		parts = p.Title
	case "rich_text":
		parts = p.RichText
	default:
		return ""
	}
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

// RenderValue renders a property as human-readable text for prompt context.
// The second return is false for empty values and for types that carry no
// renderable text (files, dates, checkboxes).
func (p Property) RenderValue() (string, bool) {
	switch p.Type {
	case "title", "rich_text":
		text := strings.TrimSpace(p.PlainText())
		return text, text != ""
	case "number":
		if p.Number == nil {
			return "", false
		}
		return strconv.FormatFloat(*p.Number, 'f', -1, 64), true
	case "select":
		if p.Select == nil || p.Select.Name == "" {
			return "", false
		}
		return p.Select.Name, true
	case "multi_select":
		if len(p.MultiSelect) == 0 {
			return "", false
		}
		names := make([]string, 0, len(p.MultiSelect))
		for _, opt := range p.MultiSelect {
			if opt.Name != "" {
				names = append(names, opt.Name)
			}
		}
		if len(names) == 0 {
			return "", false
		}
		return strings.Join(names, ", "), true
	default:
		return "", false
	}
}

// NumberPatch builds a number write-back value.
func NumberPatch(v float64) PropertyPatch {
	return PropertyPatch{Number: &v}
}

// TextPatch builds a rich-text write-back value.
func TextPatch(text string) PropertyPatch {
	return PropertyPatch{RichText: &text}
}

// DatePatch builds a date write-back value from an ISO 8601 start.
func DatePatch(start string) PropertyPatch {
	return PropertyPatch{Date: &DateValue{Start: start}}
}

// CheckboxPatch builds a checkbox write-back value.
func CheckboxPatch(v bool) PropertyPatch {
	return PropertyPatch{Checkbox: &v}
}

// Validate rejects patches with zero or multiple value fields set.
func (p PropertyPatch) Validate() error {
	set := 0
	if p.Number != nil {
		set++
	}
	if p.RichText != nil {
		set++
	}
	if p.MultiSelect != nil {
		set++
	}
	if p.Date != nil {
		set++
	}
	if p.Checkbox != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("property patch must set exactly one value, got %d", set)
	}
	return nil
}
