package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// --- Response types (mirrors of the API payloads, the CLI talks HTTP only) ---

// PostResponse is a post from the API
type PostResponse struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Category        string   `json:"category"`
	Status          string   `json:"status"`
	Platforms       []string `json:"platforms"`
	ScheduledAt     string   `json:"scheduled_at,omitempty"`
	PublishedAt     string   `json:"published_at,omitempty"`
	Delivery        string   `json:"delivery,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	AIGenerated     bool     `json:"ai_generated"`
	CreatedAt       string   `json:"created_at"`
}

// PublicationResponse is one delivery attempt
type PublicationResponse struct {
	Platform     string `json:"platform"`
	Status       string `json:"status"`
	ExternalURL  string `json:"external_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	PublishedAt  string `json:"published_at"`
}

// PostDetailResponse is a post with its publications
type PostDetailResponse struct {
	Post         PostResponse          `json:"post"`
	Publications []PublicationResponse `json:"publications"`
}

// PostListResponse is a page of posts
type PostListResponse struct {
	Posts  []PostResponse `json:"posts"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ResultResponse is the outcome on one platform
type ResultResponse struct {
	Platform    string `json:"platform"`
	Success     bool   `json:"success"`
	ExternalURL string `json:"external_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// PublishResponse is the outcome of a publish request
type PublishResponse struct {
	Success bool             `json:"success"`
	Post    PostResponse     `json:"post"`
	Results []ResultResponse `json:"results"`
}

// PlatformStatusResponse is the state of one platform
type PlatformStatusResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	IsActive    bool   `json:"is_active"`
	Connected   bool   `json:"connected"`
}

// JobResponse is a registered scheduler job
type JobResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NextRunTime string `json:"next_run_time"`
	Trigger     string `json:"trigger"`
}

// SchedulerStatusResponse is the scheduler state
type SchedulerStatusResponse struct {
	Running  bool          `json:"running"`
	Timezone string        `json:"timezone"`
	Jobs     []JobResponse `json:"jobs"`
}

// GenerateResponse is generated content
type GenerateResponse struct {
	Text     string `json:"text"`
	AIUsed   bool   `json:"ai_used"`
	Category string `json:"category"`
}

// ListPostsOpts filters the post list
type ListPostsOpts struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

type errorResponse struct {
	Error string `json:"error"`
}

// APIError is a non-2xx answer of the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// --- Client ---

// Client is the HTTP client of the pipeline API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client. token may be empty when the API has auth disabled.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			// publishing waits for every platform
			Timeout: 2 * time.Minute,
		},
	}
}

// --- Posts ---

// ListPosts returns a page of posts
func (c *Client) ListPosts(ctx context.Context, opts ListPostsOpts) (*PostListResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Category != "" {
		params.Set("category", opts.Category)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/api/v1/posts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out PostListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return &out, err
}

// GetPost returns a post with its publications
func (c *Client) GetPost(ctx context.Context, id string) (*PostDetailResponse, error) {
	var out PostDetailResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/posts/"+url.PathEscape(id), nil, &out)
	return &out, err
}

// ApprovePost approves a pending post
func (c *Client) ApprovePost(ctx context.Context, id string) (*PostResponse, error) {
	var out PostResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(id)+"/approve", nil, &out)
	return &out, err
}

// SchedulePost sets the publication time of an approved post. at is RFC3339
// or a local "YYYY-MM-DD HH:MM" interpreted in the server timezone.
func (c *Client) SchedulePost(ctx context.Context, id, at string) (*PostResponse, error) {
	body := map[string]string{"scheduled_at": at}
	var out PostResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(id)+"/schedule", body, &out)
	return &out, err
}

// PublishPost publishes a post now. A failed delivery is not an error.
func (c *Client) PublishPost(ctx context.Context, id string) (*PublishResponse, error) {
	var out PublishResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(id)+"/publish", nil, &out)
	return &out, err
}

// --- Platforms and scheduler ---

// PlatformStatus returns the state of every platform
func (c *Client) PlatformStatus(ctx context.Context) ([]PlatformStatusResponse, error) {
	var out []PlatformStatusResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/platforms/status", nil, &out)
	return out, err
}

// SchedulerStatus returns the scheduler state and its jobs
func (c *Client) SchedulerStatus(ctx context.Context) (*SchedulerStatusResponse, error) {
	var out SchedulerStatusResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/scheduler/status", nil, &out)
	return &out, err
}

// --- Generation ---

// Generate produces content for a category
func (c *Client) Generate(ctx context.Context, category string, useAI bool, fields map[string]string) (*GenerateResponse, error) {
	body := map[string]any{"category": category, "use_ai": useAI, "fields": fields}
	var out GenerateResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/generate", body, &out)
	return &out, err
}

// --- HTTP helpers ---

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
