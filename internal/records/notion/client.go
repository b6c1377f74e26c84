package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"mealsnap-backend/internal/records"
)

const (
	apiBase    = "https://api.notion.com/v1"
	apiVersion = "2022-06-28"

	blockPageSize = 100
)

// Client implements records.Client against the Notion REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Notion client.
func NewClient(apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("NOTION_API_KEY is required")
	}
	timeout := 30 * time.Second
	if raw := strings.TrimSpace(os.Getenv("NOTION_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: apiBase,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type queryRequest struct {
	Filter   *propertyFilter `json:"filter,omitempty"`
	PageSize int             `json:"page_size,omitempty"`
}

type propertyFilter struct {
	Property string      `json:"property"`
	Date     *dateFilter `json:"date,omitempty"`
}

type dateFilter struct {
	IsEmpty bool `json:"is_empty,omitempty"`
}

type queryResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

type wireRichText struct {
	PlainText string        `json:"plain_text,omitempty"`
	Text      *wireTextBody `json:"text,omitempty"`
}

type wireTextBody struct {
	Content string `json:"content"`
}

type wireSelect struct {
	Name string `json:"name"`
}

type wireDate struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

type wireFileObject struct {
	URL string `json:"url"`
}

type wireFile struct {
	Name     string          `json:"name,omitempty"`
	Type     string          `json:"type,omitempty"`
	File     *wireFileObject `json:"file,omitempty"`
	External *wireFileObject `json:"external,omitempty"`
}

func (f wireFile) resolvedURL() string {
	if f.File != nil {
		return f.File.URL
	}
	if f.External != nil {
		return f.External.URL
	}
	return ""
}

type wireProperty struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type,omitempty"`
	Title       []wireRichText `json:"title,omitempty"`
	RichText    []wireRichText `json:"rich_text,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Select      *wireSelect    `json:"select,omitempty"`
	MultiSelect []wireSelect   `json:"multi_select,omitempty"`
	Date        *wireDate      `json:"date,omitempty"`
	Files       []wireFile     `json:"files,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
}

type pageResponse struct {
	ID         string                  `json:"id"`
	Properties map[string]wireProperty `json:"properties"`
}

type blockChildrenResponse struct {
	Results    []wireBlock `json:"results"`
	HasMore    bool        `json:"has_more"`
	NextCursor string      `json:"next_cursor"`
}

type wireBlock struct {
	ID    string    `json:"id"`
	Type  string    `json:"type"`
	Image *wireFile `json:"image,omitempty"`
	File  *wireFile `json:"file,omitempty"`
}

// QueryPendingPages lists up to limit page IDs whose meal-time date property is empty.
func (c *Client) QueryPendingPages(ctx context.Context, databaseID, mealTimeProperty string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	reqBody := queryRequest{
		Filter: &propertyFilter{
			Property: mealTimeProperty,
			Date:     &dateFilter{IsEmpty: true},
		},
		PageSize: limit,
	}
	var resp queryResponse
	if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}
	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// GetPage retrieves a page with its full property set.
func (c *Client) GetPage(ctx context.Context, pageID string) (records.Page, error) {
	var resp pageResponse
	if err := c.do(ctx, http.MethodGet, "/pages/"+pageID, nil, &resp); err != nil {
		return records.Page{}, fmt.Errorf("get page %s: %w", pageID, err)
	}
	page := records.Page{
		ID:         resp.ID,
		Properties: make(map[string]records.Property, len(resp.Properties)),
	}
	for name, prop := range resp.Properties {
		page.Properties[name] = toProperty(prop)
	}
	return page, nil
}

// GetBlocks retrieves all content blocks of a page, following pagination.
func (c *Client) GetBlocks(ctx context.Context, pageID string) ([]records.Block, error) {
	var blocks []records.Block
	cursor := ""
	for {
		path := fmt.Sprintf("/blocks/%s/children?page_size=%d", pageID, blockPageSize)
		if cursor != "" {
			path += "&start_cursor=" + cursor
		}
		var resp blockChildrenResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("get blocks for page %s: %w", pageID, err)
		}
		for _, b := range resp.Results {
			block := records.Block{ID: b.ID, Type: b.Type}
			switch b.Type {
			case "image":
				if b.Image != nil {
					block.ImageURL = b.Image.resolvedURL()
				}
			case "file":
				if b.File != nil {
					block.FileURL = b.File.resolvedURL()
					block.FileName = b.File.Name
				}
			}
			blocks = append(blocks, block)
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return blocks, nil
}

// UpdatePage patches the given properties on a page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties map[string]records.PropertyPatch) error {
	if len(properties) == 0 {
		return nil
	}
	wire := make(map[string]wireProperty, len(properties))
	for name, patch := range properties {
		if err := patch.Validate(); err != nil {
			return fmt.Errorf("update page %s property %q: %w", pageID, name, err)
		}
		wire[name] = toWirePatch(patch)
	}
	body := struct {
		Properties map[string]wireProperty `json:"properties"`
	}{Properties: wire}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, body, nil); err != nil {
		return fmt.Errorf("update page %s: %w", pageID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call notion api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return records.ErrPageNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("notion api status %d code=%s: %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("notion api status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func toProperty(w wireProperty) records.Property {
	prop := records.Property{
		ID:       w.ID,
		Type:     w.Type,
		Number:   w.Number,
		Checkbox: w.Checkbox,
	}
	for _, rt := range w.Title {
		prop.Title = append(prop.Title, records.RichText{PlainText: rt.PlainText})
	}
	for _, rt := range w.RichText {
		prop.RichText = append(prop.RichText, records.RichText{PlainText: rt.PlainText})
	}
	if w.Select != nil {
		prop.Select = &records.SelectOption{Name: w.Select.Name}
	}
	for _, opt := range w.MultiSelect {
		prop.MultiSelect = append(prop.MultiSelect, records.SelectOption{Name: opt.Name})
	}
	if w.Date != nil {
		prop.Date = &records.DateValue{Start: w.Date.Start, End: w.Date.End}
	}
	for _, f := range w.Files {
		prop.Files = append(prop.Files, records.FileRef{Name: f.Name, URL: f.resolvedURL()})
	}
	return prop
}

func toWirePatch(p records.PropertyPatch) wireProperty {
	var w wireProperty
	switch {
	case p.Number != nil:
		w.Number = p.Number
	case p.RichText != nil:
		w.RichText = []wireRichText{{Text: &wireTextBody{Content: *p.RichText}}}
	case p.MultiSelect != nil:
		w.MultiSelect = make([]wireSelect, 0, len(p.MultiSelect))
		for _, name := range p.MultiSelect {
			w.MultiSelect = append(w.MultiSelect, wireSelect{Name: name})
		}
	case p.Date != nil:
		w.Date = &wireDate{Start: p.Date.Start, End: p.Date.End}
	case p.Checkbox != nil:
		w.Checkbox = p.Checkbox
	}
	return w
}
