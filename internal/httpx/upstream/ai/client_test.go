package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestGenerateText_NotConfigured(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(ProviderMistral, "", WithBaseURL(srv.URL))
	_, err := c.GenerateText(context.Background(), TextRequest{Prompt: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if called {
		t.Error("no request expected without API key")
	}
}

func TestGenerateText(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  🏊 Готово!  "}}]}`)
	}))
	defer srv.Close()

	c := New(ProviderDeepSeek, "key", WithBaseURL(srv.URL+"/"), WithRateLimit(rate.NewLimiter(rate.Inf, 1)))
	text, err := c.GenerateText(context.Background(), TextRequest{
		Prompt:       "пост",
		SystemPrompt: "smm",
		MaxTokens:    500,
		Temperature:  0.7,
	})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "🏊 Готово!" {
		t.Errorf("text = %q", text)
	}
	if got.Model != deepseekModel {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "пост" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.MaxTokens != 500 || got.Temperature != 0.7 {
		t.Errorf("params = %d %v", got.MaxTokens, got.Temperature)
	}
}

func TestGenerateText_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"empty choices", 200, `{"choices":[]}`, func(err error) bool { return errors.Is(err, ErrEmptyCompletion) }},
		{"blank content", 200, `{"choices":[{"message":{"content":"   "}}]}`, func(err error) bool { return errors.Is(err, ErrEmptyCompletion) }},
		{"api error", 429, `{"message":"rate limited"}`, func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode == 429
		}},
		{"bad json", 200, `not json`, func(err error) bool { return err != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := New(ProviderMistral, "key", WithBaseURL(srv.URL), WithRateLimit(rate.NewLimiter(rate.Inf, 1)))
			_, err := c.GenerateText(context.Background(), TextRequest{Prompt: "x"})
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
