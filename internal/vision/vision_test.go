package vision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeClient struct {
	resp  string
	err   error
	calls int

	lastInstruction string
	lastImages      [][]byte
}

func (f *fakeClient) Complete(ctx context.Context, instruction string, images [][]byte) (string, error) {
	f.calls++
	f.lastInstruction = instruction
	f.lastImages = images
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}

const validResponse = `{"calories": {"totalCalories": 300, "caloriesRange": {"min": 250, "max": 350}, "confidence": 0.7}, "nutritionalCategories": {"proteins": {"present": true, "portion": "medium", "confidence": 0.8}}, "analysisNotes": "Omelette."}`

func TestAnalyzeSingleModelCallForMultipleImages(t *testing.T) {
	client := &fakeClient{resp: validResponse}
	requestor := NewRequestor(client)

	images := []Image{
		{Data: []byte("img-1"), SourceURL: "https://example.com/1.jpg"},
		{Data: []byte("img-2"), SourceURL: "https://example.com/2.jpg"},
		{Data: []byte("img-3"), SourceURL: "https://example.com/3.jpg"},
	}
	got := requestor.Analyze(context.Background(), images, nil, "")

	if client.calls != 1 {
		t.Fatalf("model calls = %d, want 1", client.calls)
	}
	if len(client.lastImages) != 3 {
		t.Fatalf("images sent = %d, want 3", len(client.lastImages))
	}
	if !strings.Contains(client.lastInstruction, "SAME single meal") {
		t.Errorf("multi-image instruction missing joint-analysis preface: %q", client.lastInstruction)
	}
	if got.Calories.TotalCalories != 300 {
		t.Errorf("totalCalories = %v, want 300", got.Calories.TotalCalories)
	}
}

func TestAnalyzeSingleImageOmitsPreface(t *testing.T) {
	client := &fakeClient{resp: validResponse}
	requestor := NewRequestor(client)

	requestor.Analyze(context.Background(), []Image{{Data: []byte("img")}}, nil, "")

	if strings.Contains(client.lastInstruction, "SAME single meal") {
		t.Errorf("single-image instruction should not carry the joint-analysis preface: %q", client.lastInstruction)
	}
}

func TestAnalyzeFallbackOnClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	requestor := NewRequestor(client)

	got := requestor.Analyze(context.Background(), []Image{{Data: []byte("img")}}, nil, "")

	if got != Fallback() {
		t.Errorf("Analyze on client error = %+v, want exact fallback %+v", got, Fallback())
	}
}

func TestAnalyzeFallbackOnMalformedResponse(t *testing.T) {
	client := &fakeClient{resp: "I could not see any food in the photo."}
	requestor := NewRequestor(client)

	got := requestor.Analyze(context.Background(), []Image{{Data: []byte("img")}}, nil, "")

	if got != Fallback() {
		t.Errorf("Analyze on malformed response = %+v, want exact fallback", got)
	}
}

func TestFallbackShape(t *testing.T) {
	fb := Fallback()
	if fb.Calories.TotalCalories != 0 || fb.Calories.CaloriesRange.Min != 0 || fb.Calories.CaloriesRange.Max != 0 {
		t.Errorf("fallback calories = %+v, want zeroes", fb.Calories)
	}
	if fb.Calories.Confidence != 0.1 {
		t.Errorf("fallback calorie confidence = %v, want 0.1", fb.Calories.Confidence)
	}
	for _, lc := range fb.Categories.Labeled() {
		if lc.Category.Present {
			t.Errorf("%s present in fallback", lc.Label)
		}
		if lc.Category.Confidence != 0.1 {
			t.Errorf("%s confidence = %v, want 0.1", lc.Label, lc.Category.Confidence)
		}
	}
	if fb.Notes == "" {
		t.Error("fallback notes empty")
	}
}

func TestBuildInstructionAppendsCaptureTimeAndContext(t *testing.T) {
	at := time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)
	got := BuildInstruction(1, &at, "Meal: lunch; Mood: hungry")

	if !strings.Contains(got, "Saturday, March 9, 2024 at 12:30") {
		t.Errorf("instruction missing capture time: %q", got)
	}
	if !strings.Contains(got, "Meal: lunch; Mood: hungry") {
		t.Errorf("instruction missing context: %q", got)
	}
}

func TestBuildInstructionSkipsEmptyContext(t *testing.T) {
	got := BuildInstruction(1, nil, "   ")
	if strings.Contains(got, "Additional context") {
		t.Errorf("instruction should not mention context when empty: %q", got)
	}
	if strings.Contains(got, "taken on") {
		t.Errorf("instruction should not mention capture time when absent: %q", got)
	}
}
