package vk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://api.vk.com/method/"
	defaultAPIVersion = "5.131"
	defaultTimeout    = 30 * time.Second
)

// Client is a VK API client for community wall posting
type Client struct {
	baseURL     string
	apiVersion  string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithAPIVersion sets the API version
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit overrides the default of 3 requests per second
func WithRateLimit(l *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// New creates a new VK API client
func New(accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		apiVersion:  defaultAPIVersion,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second/3), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error from the VK API
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk API error %d: %s", e.Code, e.Message)
}

type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// callMethod invokes an API method and decodes the response field into out
func (c *Client) callMethod(ctx context.Context, method string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	params.Set("access_token", c.accessToken)
	params.Set("v", c.apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: unexpected status %d: %s", method, resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if env.Error != nil {
		return env.Error
	}
	if out != nil {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", method, err)
		}
	}

	return nil
}

// Group is the subset of groups.getById we use
type Group struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
}

// GetGroup returns community info, used as a connection check
func (c *Client) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	params := url.Values{}
	params.Set("group_id", groupID)

	var groups []Group
	if err := c.callMethod(ctx, "groups.getById", params, &groups); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("group %s not found", groupID)
	}
	return &groups[0], nil
}

// WallPostInput represents input for wall.post
type WallPostInput struct {
	GroupID     string
	Message     string
	Attachments []string
}

// WallPost publishes on the community wall on behalf of the community and returns the post id
func (c *Client) WallPost(ctx context.Context, in WallPostInput) (int64, error) {
	params := url.Values{}
	params.Set("owner_id", "-"+in.GroupID)
	params.Set("from_group", "1")
	params.Set("message", in.Message)
	if len(in.Attachments) > 0 {
		params.Set("attachments", strings.Join(in.Attachments, ","))
	}

	var out struct {
		PostID int64 `json:"post_id"`
	}
	if err := c.callMethod(ctx, "wall.post", params, &out); err != nil {
		return 0, err
	}
	return out.PostID, nil
}

// UploadWallPhoto runs the three step upload and returns an attachment like photo-1_2
func (c *Client) UploadWallPhoto(ctx context.Context, groupID, filename string, data io.Reader) (string, error) {
	params := url.Values{}
	params.Set("group_id", groupID)

	var server struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.callMethod(ctx, "photos.getWallUploadServer", params, &server); err != nil {
		return "", fmt.Errorf("getting upload server: %w", err)
	}

	uploaded, err := c.uploadFile(ctx, server.UploadURL, filename, data)
	if err != nil {
		return "", err
	}

	save := url.Values{}
	save.Set("group_id", groupID)
	save.Set("server", strconv.FormatInt(uploaded.Server, 10))
	save.Set("photo", uploaded.Photo)
	save.Set("hash", uploaded.Hash)

	var photos []struct {
		ID      int64 `json:"id"`
		OwnerID int64 `json:"owner_id"`
	}
	if err := c.callMethod(ctx, "photos.saveWallPhoto", save, &photos); err != nil {
		return "", fmt.Errorf("saving wall photo: %w", err)
	}
	if len(photos) == 0 {
		return "", fmt.Errorf("saving wall photo: empty response")
	}

	return fmt.Sprintf("photo%d_%d", photos[0].OwnerID, photos[0].ID), nil
}

type uploadResult struct {
	Server int64  `json:"server"`
	Photo  string `json:"photo"`
	Hash   string `json:"hash"`
}

func (c *Client) uploadFile(ctx context.Context, uploadURL, filename string, data io.Reader) (*uploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("copying photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading photo: %w", err)
	}
	defer resp.Body.Close()

	var out uploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if out.Photo == "" || out.Photo == "[]" {
		return nil, fmt.Errorf("upload server returned no photo")
	}
	return &out, nil
}

// Download fetches a remote image for re-upload
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 50<<20))
}
