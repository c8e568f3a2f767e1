package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Provider presets for OpenAI compatible APIs
const (
	ProviderMistral  = "mistral"
	ProviderDeepSeek = "deepseek"

	mistralBaseURL  = "https://api.mistral.ai/v1"
	mistralModel    = "mistral-small-latest"
	deepseekBaseURL = "https://api.deepseek.com/v1"
	deepseekModel   = "deepseek-chat"

	defaultTimeout = 60 * time.Second
)

var (
	// ErrNotConfigured is returned without a network call when no API key is set
	ErrNotConfigured = errors.New("ai provider is not configured")
	// ErrEmptyCompletion is returned when the provider answered without text
	ErrEmptyCompletion = errors.New("ai provider returned empty completion")
)

// Client is a chat completions client
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithModel sets the model name
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit overrides the default of one request per second
func WithRateLimit(l *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// New creates a client for the provider preset ("mistral" or "deepseek")
func New(provider, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: mistralBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   mistralModel,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
	if strings.EqualFold(provider, ProviderDeepSeek) {
		c.baseURL = deepseekBaseURL
		c.model = deepseekModel
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// TextRequest is a single prompt completion
type TextRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// APIError represents an error response from the provider
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai API error (status %d): %s", e.StatusCode, e.Message)
}

// GenerateText returns the completion for the prompt
func (c *Client) GenerateText(ctx context.Context, in TextRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	messages := make([]chatMessage, 0, 2)
	if in.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: in.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: in.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	return text, nil
}
