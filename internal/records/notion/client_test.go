package notion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"mealsnap-backend/internal/records"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient("secret-test-key")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	httpmock.ActivateNonDefault(client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestNewClientRejectsBlankKey(t *testing.T) {
	if _, err := NewClient("   "); err == nil {
		t.Error("expected error for blank API key")
	}
}

func TestQueryPendingPagesFilter(t *testing.T) {
	client := newTestClient(t)

	var gotBody queryRequest
	httpmock.RegisterResponder("POST", apiBase+"/databases/db-1/query",
		func(req *http.Request) (*http.Response, error) {
			if auth := req.Header.Get("Authorization"); auth != "Bearer secret-test-key" {
				t.Errorf("Authorization = %q", auth)
			}
			if v := req.Header.Get("Notion-Version"); v != apiVersion {
				t.Errorf("Notion-Version = %q", v)
			}
			raw, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(raw, &gotBody); err != nil {
				return nil, err
			}
			return httpmock.NewJsonResponse(200, map[string]any{
				"results": []map[string]string{{"id": "page-1"}, {"id": "page-2"}},
			})
		})

	ids, err := client.QueryPendingPages(context.Background(), "db-1", "Meal Time", 10)
	if err != nil {
		t.Fatalf("QueryPendingPages: %v", err)
	}
	if len(ids) != 2 || ids[0] != "page-1" || ids[1] != "page-2" {
		t.Errorf("ids = %v", ids)
	}
	if gotBody.Filter == nil || gotBody.Filter.Property != "Meal Time" {
		t.Fatalf("filter = %+v, want Meal Time property filter", gotBody.Filter)
	}
	if gotBody.Filter.Date == nil || !gotBody.Filter.Date.IsEmpty {
		t.Errorf("date filter = %+v, want is_empty", gotBody.Filter.Date)
	}
	if gotBody.PageSize != 10 {
		t.Errorf("page_size = %d, want 10", gotBody.PageSize)
	}
}

func TestGetPageDecodesProperties(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", apiBase+"/pages/page-1",
		httpmock.NewStringResponder(200, `{
			"id": "page-1",
			"properties": {
				"Name": {"type": "title", "title": [{"plain_text": "Lunch"}]},
				"Calories": {"type": "number", "number": 450},
				"Meal Photo": {"type": "files", "files": [
					{"name": "hosted.jpg", "type": "file", "file": {"url": "https://files.notion/hosted.jpg"}},
					{"name": "ext.jpg", "type": "external", "external": {"url": "https://cdn.example/ext.jpg"}}
				]},
				"Analyzed": {"type": "checkbox", "checkbox": true}
			}
		}`))

	page, err := client.GetPage(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.ID != "page-1" {
		t.Errorf("page ID = %s", page.ID)
	}
	if got := page.Properties["Name"].PlainText(); got != "Lunch" {
		t.Errorf("title = %q", got)
	}
	if num := page.Properties["Calories"].Number; num == nil || *num != 450 {
		t.Errorf("number = %v", num)
	}
	files := page.Properties["Meal Photo"].Files
	if len(files) != 2 {
		t.Fatalf("files = %+v", files)
	}
	if files[0].URL != "https://files.notion/hosted.jpg" || files[1].URL != "https://cdn.example/ext.jpg" {
		t.Errorf("file URLs = %s, %s; hosted and external must both resolve", files[0].URL, files[1].URL)
	}
	if cb := page.Properties["Analyzed"].Checkbox; cb == nil || !*cb {
		t.Errorf("checkbox = %v", cb)
	}
}

func TestGetPageNotFound(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", apiBase+"/pages/missing",
		httpmock.NewStringResponder(404, `{"status": 404, "code": "object_not_found", "message": "Could not find page."}`))

	_, err := client.GetPage(context.Background(), "missing")
	if !errors.Is(err, records.ErrPageNotFound) {
		t.Errorf("err = %v, want ErrPageNotFound", err)
	}
}

func TestGetBlocksFollowsPagination(t *testing.T) {
	client := newTestClient(t)

	calls := 0
	httpmock.RegisterResponder("GET", apiBase+"/blocks/page-1/children",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if req.URL.Query().Get("start_cursor") == "" {
				return httpmock.NewStringResponse(200, `{
					"results": [{"id": "b1", "type": "image", "image": {"type": "file", "file": {"url": "https://files.notion/a.jpg"}}}],
					"has_more": true,
					"next_cursor": "cursor-2"
				}`), nil
			}
			return httpmock.NewStringResponse(200, `{
				"results": [{"id": "b2", "type": "file", "file": {"name": "side.png", "type": "external", "external": {"url": "https://cdn.example/side.png"}}}],
				"has_more": false,
				"next_cursor": ""
			}`), nil
		})

	blocks, err := client.GetBlocks(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("GetBlocks: %v", err)
	}
	if calls != 2 {
		t.Errorf("requests = %d, want 2", calls)
	}
	if len(blocks) != 2 {
		t.Fatalf("blocks = %+v", blocks)
	}
	if blocks[0].Type != "image" || blocks[0].ImageURL != "https://files.notion/a.jpg" {
		t.Errorf("block[0] = %+v", blocks[0])
	}
	if blocks[1].Type != "file" || blocks[1].FileURL != "https://cdn.example/side.png" || blocks[1].FileName != "side.png" {
		t.Errorf("block[1] = %+v", blocks[1])
	}
}

func TestUpdatePageWireShapes(t *testing.T) {
	client := newTestClient(t)

	var gotBody struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	httpmock.RegisterResponder("PATCH", apiBase+"/pages/page-1",
		func(req *http.Request) (*http.Response, error) {
			raw, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(raw, &gotBody); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(200, `{"id": "page-1"}`), nil
		})

	patches := map[string]records.PropertyPatch{
		"Calories":             records.NumberPatch(450),
		"Analysis Notes":       records.TextPatch("balanced meal"),
		"Nutrition Categories": {MultiSelect: []string{"Vegetables (high)"}},
		"Analyzed":             records.CheckboxPatch(true),
		"Meal Time":            records.DatePatch("2024-03-15T12:30:00Z"),
	}
	if err := client.UpdatePage(context.Background(), "page-1", patches); err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}

	want := map[string]string{
		"Calories":             `{"number":450}`,
		"Analysis Notes":       `{"rich_text":[{"text":{"content":"balanced meal"}}]}`,
		"Nutrition Categories": `{"multi_select":[{"name":"Vegetables (high)"}]}`,
		"Analyzed":             `{"checkbox":true}`,
		"Meal Time":            `{"date":{"start":"2024-03-15T12:30:00Z"}}`,
	}
	for name, wantJSON := range want {
		raw, ok := gotBody.Properties[name]
		if !ok {
			t.Errorf("property %s missing from request", name)
			continue
		}
		if string(raw) != wantJSON {
			t.Errorf("property %s = %s, want %s", name, raw, wantJSON)
		}
	}
}

func TestUpdatePageRejectsInvalidPatch(t *testing.T) {
	client := newTestClient(t)

	err := client.UpdatePage(context.Background(), "page-1", map[string]records.PropertyPatch{
		"Broken": {},
	})
	if err == nil {
		t.Error("expected validation error for empty patch")
	}
	if httpmock.GetTotalCallCount() != 0 {
		t.Error("invalid patch must not reach the API")
	}
}

func TestDoSurfacesAPIErrors(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", apiBase+"/pages/page-1",
		httpmock.NewStringResponder(429, `{"status": 429, "code": "rate_limited", "message": "Too many requests."}`))

	_, err := client.GetPage(context.Background(), "page-1")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, fragment := range []string{"429", "rate_limited", "Too many requests."} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q missing %q", err, fragment)
		}
	}
}
