package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/time/rate"
)

var testToken = "123456789:" + strings.Repeat("A", 35)

type fakeBotAPI struct {
	mu      sync.Mutex
	methods []string
	fail    bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot is not a member of the channel chat"}`)
		return
	}
	switch method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"pools","username":"pools_bot"}}`)
	default:
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":-1001234567890,"type":"channel"}}}`)
	}
}

func newTestPublisher(t *testing.T, api *fakeBotAPI, channel string) *Publisher {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	p, err := NewPublisher(testToken, channel, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithAPIServer(srv.URL),
		WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
	)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	return p
}

func TestPublisher_PublishText(t *testing.T) {
	api := &fakeBotAPI{}
	p := newTestPublisher(t, api, "@pools_channel")

	res := p.Publish(context.Background(), "<b>Новый проект</b>", "")
	if !res.Success {
		t.Fatalf("publish failed: %s", res.Error)
	}
	if res.ExternalID != "77" || res.ExternalURL != "https://t.me/pools_channel/77" {
		t.Errorf("result = %+v", res)
	}
	if len(api.methods) != 1 || api.methods[0] != "sendMessage" {
		t.Errorf("methods = %v", api.methods)
	}
}

func TestPublisher_PublishPhotoByURL(t *testing.T) {
	api := &fakeBotAPI{}
	p := newTestPublisher(t, api, "-1001234567890")

	res := p.Publish(context.Background(), "caption", "https://cdn.example.com/pool.jpg")
	if !res.Success {
		t.Fatalf("publish failed: %s", res.Error)
	}
	if api.methods[0] != "sendPhoto" {
		t.Errorf("methods = %v", api.methods)
	}
	if res.ExternalURL != "https://t.me/c/1234567890/77" {
		t.Errorf("url = %q", res.ExternalURL)
	}
}

func TestPublisher_MissingLocalImageSendsText(t *testing.T) {
	api := &fakeBotAPI{}
	p := newTestPublisher(t, api, "@pools_channel")

	res := p.Publish(context.Background(), "text", "/does/not/exist.jpg")
	if !res.Success {
		t.Fatalf("publish failed: %s", res.Error)
	}
	if api.methods[0] != "sendMessage" {
		t.Errorf("methods = %v", api.methods)
	}
}

func TestPublisher_APIErrorBecomesResult(t *testing.T) {
	api := &fakeBotAPI{fail: true}
	p := newTestPublisher(t, api, "@pools_channel")

	res := p.Publish(context.Background(), "text", "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Platform != "telegram" || res.Error == "" {
		t.Errorf("result = %+v", res)
	}
	if p.TestConnection(context.Background()) {
		t.Error("connection test should fail")
	}
}

func TestPublisher_TestConnection(t *testing.T) {
	p := newTestPublisher(t, &fakeBotAPI{}, "@pools_channel")
	if !p.TestConnection(context.Background()) {
		t.Error("expected connected")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want int
	}{
		{"short", "привет", MaxCaptionLength, 6},
		{"exact", strings.Repeat("я", MaxCaptionLength), MaxCaptionLength, MaxCaptionLength},
		{"long caption", strings.Repeat("я", 2000), MaxCaptionLength, MaxCaptionLength},
		{"long message", strings.Repeat("x", 5000), MaxMessageLength, MaxMessageLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.max)
			if n := len([]rune(got)); n != tt.want {
				t.Errorf("rune length = %d, want %d", n, tt.want)
			}
			if len([]rune(tt.in)) > tt.max && !strings.HasSuffix(got, "...") {
				t.Error("missing ellipsis")
			}
		})
	}
}

func TestMessageURL(t *testing.T) {
	tests := []struct {
		channel string
		want    string
	}{
		{"@pools", "https://t.me/pools/5"},
		{"pools", "https://t.me/pools/5"},
		{"-1009876", "https://t.me/c/9876/5"},
		{"12345", ""},
	}
	for _, tt := range tests {
		if got := MessageURL(tt.channel, 5); got != tt.want {
			t.Errorf("MessageURL(%q) = %q, want %q", tt.channel, got, tt.want)
		}
	}
}
