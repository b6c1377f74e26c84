package images

import (
	"bytes"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// exifTimeLayout is the EXIF datetime representation ("YYYY:MM:DD HH:MM:SS").
const exifTimeLayout = "2006:01:02 15:04:05"

// Capture-time tag precedence: the original exposure wins over digitization
// and file-modification times.
var captureTimeTags = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.DateTime,
	exif.DateTimeDigitized,
	"ModifyDate",
}

// CaptureTime extracts the embedded capture timestamp from raw image bytes.
// Missing or unparsable metadata returns ok=false, never an error.
func CaptureTime(raw []byte) (time.Time, bool) {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil || x == nil {
		return time.Time{}, false
	}
	return captureTimeFromTags(func(name exif.FieldName) (string, bool) {
		tag, err := x.Get(name)
		if err != nil {
			return "", false
		}
		val, err := tag.StringVal()
		if err != nil {
			return "", false
		}
		return val, true
	})
}

func captureTimeFromTags(get func(exif.FieldName) (string, bool)) (time.Time, bool) {
	for _, name := range captureTimeTags {
		raw, ok := get(name)
		if !ok {
			continue
		}
		if t, ok := parseExifTime(raw); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseExifTime(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(strings.Trim(raw, "\x00"))
	if trimmed == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(exifTimeLayout, trimmed, time.Local); err == nil {
		return t, true
	}
	// Some encoders write ISO 8601 instead of the EXIF layout.
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, true
	}
	return time.Time{}, false
}
