package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mealsnap-backend/internal/fields"
	"mealsnap-backend/internal/images"
	"mealsnap-backend/internal/records"
	"mealsnap-backend/internal/shared/telemetry"
)

// Image is one downloaded and transmission-ready meal photo.
type Image struct {
	Data      []byte
	SourceURL string
}

// Bundle is the normalized extraction result for one page: every usable image
// in discovery order, a best-effort capture time, and the rendered context
// string. Built fresh per reconciliation pass, never persisted.
type Bundle struct {
	Images         []Image
	CapturedAt     *time.Time
	Context        string
	SourceRecordID string
}

// Extractor collects image attachments and context from a meal page. It
// depends on the record-store and fetcher ports only.
type Extractor struct {
	Records records.Client
	Fetcher images.Fetcher
}

// NewExtractor constructs an Extractor.
func NewExtractor(rc records.Client, fetcher images.Fetcher) *Extractor {
	return &Extractor{Records: rc, Fetcher: fetcher}
}

// Extract builds the attachment bundle for a page. A page with zero usable
// images returns (nil, nil); failures fetching the page itself or its blocks
// are hard errors for the caller to isolate. Individual image download or
// decode failures skip that image only.
func (e *Extractor) Extract(ctx context.Context, pageID string) (*Bundle, error) {
	page, err := e.Records.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("extract page %s: %w", pageID, err)
	}

	bundle := &Bundle{SourceRecordID: page.ID}
	seen := make(map[string]bool)

	// Primary photo property first; its images lead the discovery order.
	primary := resolvePrimaryPhotoProperty(page)
	if primary != "" {
		e.addFiles(ctx, bundle, page.Properties[primary].Files, seen)
	}

	// Then any other file-typed property, in name order for determinism.
	for _, name := range sortedPropertyNames(page) {
		if name == primary {
			continue
		}
		prop := page.Properties[name]
		if prop.Type != "files" {
			continue
		}
		e.addFiles(ctx, bundle, prop.Files, seen)
	}

	// Then embedded content blocks: image blocks always, generic file blocks
	// only when the URL carries a recognized image extension.
	blocks, err := e.Records.GetBlocks(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("extract blocks for page %s: %w", pageID, err)
	}
	for _, block := range blocks {
		switch block.Type {
		case "image":
			if block.ImageURL != "" {
				e.addImage(ctx, bundle, block.ImageURL, seen)
			}
		case "file":
			if block.FileURL != "" && images.HasImageExtension(block.FileURL) {
				e.addImage(ctx, bundle, block.FileURL, seen)
			}
		}
	}

	bundle.Context = buildContext(page)

	if len(bundle.Images) == 0 {
		return nil, nil
	}
	return bundle, nil
}

func (e *Extractor) addFiles(ctx context.Context, bundle *Bundle, files []records.FileRef, seen map[string]bool) {
	for _, f := range files {
		if f.URL == "" {
			continue
		}
		e.addImage(ctx, bundle, f.URL, seen)
	}
}

// addImage downloads, derives the capture time from the first successful
// download, and resizes. Failures log and skip; they never fail the bundle.
func (e *Extractor) addImage(ctx context.Context, bundle *Bundle, url string, seen map[string]bool) {
	if seen[url] {
		return
	}
	seen[url] = true

	raw, err := e.Fetcher.Fetch(ctx, url)
	if err != nil {
		telemetry.Warn("extract.image_download_failed", map[string]any{
			"page": bundle.SourceRecordID,
			"url":  url,
			"err":  err.Error(),
		})
		return
	}

	// EXIF is read from the original bytes before resizing strips it, and
	// only for the first image that made it down.
	if len(bundle.Images) == 0 && bundle.CapturedAt == nil {
		if captured, ok := images.CaptureTime(raw); ok {
			bundle.CapturedAt = &captured
		}
	}

	prepared, err := images.Prepare(raw)
	if err != nil {
		telemetry.Warn("extract.image_prepare_failed", map[string]any{
			"page": bundle.SourceRecordID,
			"url":  url,
			"err":  err.Error(),
		})
		return
	}

	bundle.Images = append(bundle.Images, Image{Data: prepared, SourceURL: url})
}

func resolvePrimaryPhotoProperty(page records.Page) string {
	for _, name := range fields.Candidates[fields.MealPhoto] {
		if prop, ok := page.Properties[name]; ok && prop.Type == "files" {
			return name
		}
	}
	return ""
}

func sortedPropertyNames(page records.Page) []string {
	names := make([]string, 0, len(page.Properties))
	for name := range page.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildContext renders every non-reserved property with a present value as
// "Name: value", joined by "; ".
func buildContext(page records.Page) string {
	reserved := fields.Reserved()
	var parts []string
	for _, name := range sortedPropertyNames(page) {
		if reserved[name] {
			continue
		}
		value, ok := page.Properties[name].RenderValue()
		if !ok {
			continue
		}
		parts = append(parts, name+": "+value)
	}
	return strings.Join(parts, "; ")
}
