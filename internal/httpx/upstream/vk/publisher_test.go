package vk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/time/rate"
)

type fakeVK struct {
	mu       sync.Mutex
	calls    []string
	forms    map[string]map[string]string
	failWall bool
	srv      *httptest.Server
}

func newFakeVK(t *testing.T) *fakeVK {
	t.Helper()
	f := &fakeVK{forms: make(map[string]map[string]string)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeVK) handle(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/method/")

	f.mu.Lock()
	f.calls = append(f.calls, method)
	if method != "upload" {
		_ = r.ParseForm()
		form := make(map[string]string)
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.forms[method] = form
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "groups.getById":
		fmt.Fprint(w, `{"response":[{"id":42,"name":"Бассейны"}]}`)
	case "photos.getWallUploadServer":
		fmt.Fprintf(w, `{"response":{"upload_url":"%s/method/upload"}}`, f.srv.URL)
	case "upload":
		if _, _, err := r.FormFile("photo"); err != nil {
			http.Error(w, "no photo", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"server":7,"photo":"[{\"x\":1}]","hash":"h"}`)
	case "photos.saveWallPhoto":
		fmt.Fprint(w, `{"response":[{"id":555,"owner_id":-42}]}`)
	case "wall.post":
		if f.failWall {
			fmt.Fprint(w, `{"error":{"error_code":15,"error_msg":"Access denied"}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"post_id":99}}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeVK) publisher() *Publisher {
	client := New("token",
		WithBaseURL(f.srv.URL+"/method"),
		WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
	)
	return NewPublisher(client, "-42", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublisher_PublishText(t *testing.T) {
	f := newFakeVK(t)

	res := f.publisher().Publish(context.Background(), "Новый бассейн", "")
	if !res.Success {
		t.Fatalf("publish failed: %s", res.Error)
	}
	if res.ExternalID != "99" || res.ExternalURL != "https://vk.com/wall-42_99" {
		t.Errorf("result = %+v", res)
	}

	form := f.forms["wall.post"]
	if form["owner_id"] != "-42" || form["from_group"] != "1" || form["v"] != defaultAPIVersion {
		t.Errorf("wall.post form = %v", form)
	}
	if form["access_token"] != "token" {
		t.Errorf("access token not sent")
	}
	if _, ok := form["attachments"]; ok {
		t.Errorf("text post should carry no attachments")
	}
}

func TestPublisher_PublishWithLocalImage(t *testing.T) {
	f := newFakeVK(t)
	img := filepath.Join(t.TempDir(), "pool.jpg")
	if err := os.WriteFile(img, []byte("jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}

	res := f.publisher().Publish(context.Background(), "text", img)
	if !res.Success {
		t.Fatalf("publish failed: %s", res.Error)
	}
	if got := f.forms["wall.post"]["attachments"]; got != "photo-42_555" {
		t.Errorf("attachments = %q", got)
	}
	want := []string{"photos.getWallUploadServer", "upload", "photos.saveWallPhoto", "wall.post"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v", f.calls)
	}
}

func TestPublisher_MissingImageDegradesToText(t *testing.T) {
	f := newFakeVK(t)

	res := f.publisher().Publish(context.Background(), "text", "/nonexistent/pool.jpg")
	if !res.Success {
		t.Fatalf("publish failed: %s", res.Error)
	}
	if _, ok := f.forms["wall.post"]["attachments"]; ok {
		t.Error("expected text only post")
	}
}

func TestPublisher_APIError(t *testing.T) {
	f := newFakeVK(t)
	f.failWall = true

	res := f.publisher().Publish(context.Background(), "text", "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "vk API error 15: Access denied" {
		t.Errorf("error = %q", res.Error)
	}
	if res.Platform != "vk" {
		t.Errorf("platform = %q", res.Platform)
	}
}

func TestPublisher_TestConnection(t *testing.T) {
	f := newFakeVK(t)
	if !f.publisher().TestConnection(context.Background()) {
		t.Error("expected connected")
	}
	if f.forms["groups.getById"]["group_id"] != "42" {
		t.Errorf("group id = %v", f.forms["groups.getById"])
	}
}

func TestFormatText(t *testing.T) {
	short := "коротко"
	if FormatText(short) != short {
		t.Error("short text changed")
	}

	long := strings.Repeat("б", MaxTextLength+10)
	got := FormatText(long)
	if n := len([]rune(got)); n != MaxTextLength {
		t.Errorf("rune length = %d, want %d", n, MaxTextLength)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("missing ellipsis")
	}
}
