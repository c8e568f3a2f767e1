//go:build e2e

// Package e2e runs against a started API (go test -tags e2e ./tests/e2e).
// SMM_API_URL and SMM_API_TOKEN point the tests at it.
package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

type Post struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Platforms   []string `json:"platforms"`
	ScheduledAt *string  `json:"scheduled_at,omitempty"`
}

type ListResponse struct {
	Posts  []Post `json:"posts"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func baseURL() string {
	if v := os.Getenv("SMM_API_URL"); v != "" {
		return v + "/api/v1"
	}
	return "http://localhost:8080/api/v1"
}

func call(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, baseURL()+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := os.Getenv("SMM_API_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(respBody, out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, respBody, err)
		}
	}
	if resp.StatusCode >= 300 {
		t.Logf("%s %s -> %d %s", method, path, resp.StatusCode, respBody)
	}
	return resp.StatusCode
}

func createPost(t *testing.T, submit bool) Post {
	t.Helper()

	var post Post
	code := call(t, http.MethodPost, "/posts", map[string]any{
		"title":     "E2E " + time.Now().Format(time.RFC3339Nano),
		"content":   "Проверочный пост #e2e",
		"category":  "news",
		"platforms": []string{"telegram"},
		"submit":    submit,
	}, &post)
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", code)
	}
	t.Cleanup(func() { call(t, http.MethodDelete, "/posts/"+post.ID, nil, nil) })
	return post
}

func TestPostWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	post := createPost(t, true)
	if post.Status != "pending" {
		t.Fatalf("expected pending, got %s", post.Status)
	}

	var approved Post
	if code := call(t, http.MethodPost, "/posts/"+post.ID+"/approve", nil, &approved); code != http.StatusOK || approved.Status != "approved" {
		t.Fatalf("approve: %d %+v", code, approved)
	}

	at := time.Now().Add(48 * time.Hour).Format(time.RFC3339)
	var scheduled Post
	if code := call(t, http.MethodPost, "/posts/"+post.ID+"/schedule", map[string]string{"scheduled_at": at}, &scheduled); code != http.StatusOK || scheduled.Status != "scheduled" {
		t.Fatalf("schedule: %d %+v", code, scheduled)
	}

	var status struct {
		Jobs []struct {
			ID string `json:"id"`
		} `json:"jobs"`
	}
	if code := call(t, http.MethodGet, "/scheduler/status", nil, &status); code != http.StatusOK {
		t.Fatalf("scheduler status: %d", code)
	}
	found := false
	for _, j := range status.Jobs {
		found = found || j.ID == "publish_post_"+post.ID
	}
	if !found {
		t.Errorf("no deferred job for %s in %+v", post.ID, status.Jobs)
	}

	var unscheduled Post
	if code := call(t, http.MethodDelete, "/posts/"+post.ID+"/schedule", nil, &unscheduled); code != http.StatusOK || unscheduled.Status != "approved" {
		t.Errorf("unschedule: %d %+v", code, unscheduled)
	}
}

func TestPostValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty title", map[string]any{"content": "x", "platforms": []string{"telegram"}}},
		{"unknown platform", map[string]any{"title": "x", "content": "x", "platforms": []string{"myspace"}}},
		{"no platforms", map[string]any{"title": "x", "content": "x", "platforms": []string{}}},
		{"unknown category", map[string]any{"title": "x", "content": "x", "category": "spam", "platforms": []string{"vk"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := call(t, http.MethodPost, "/posts", tt.body, nil); code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", code)
			}
		})
	}

	draft := createPost(t, false)
	if code := call(t, http.MethodPost, "/posts/"+draft.ID+"/publish", nil, nil); code != http.StatusConflict {
		t.Errorf("publishing a draft: expected 409, got %d", code)
	}
	if code := call(t, http.MethodGet, "/posts/00000000-0000-0000-0000-000000000000", nil, nil); code != http.StatusNotFound {
		t.Errorf("missing post: expected 404, got %d", code)
	}
}

func TestListPagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	createPost(t, false)
	createPost(t, false)

	var page ListResponse
	if code := call(t, http.MethodGet, "/posts?status=draft&limit=1", nil, &page); code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	if len(page.Posts) != 1 || page.Total < 2 || page.Limit != 1 {
		t.Errorf("page = %+v", page)
	}
}
