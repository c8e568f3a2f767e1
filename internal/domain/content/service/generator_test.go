package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/vadim/poolsmm/internal/domain/content/template"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/httpx/upstream/ai"
)

type fakeAI struct {
	text       string
	err        error
	configured bool
	requests   []ai.TextRequest
}

func (f *fakeAI) GenerateText(_ context.Context, in ai.TextRequest) (string, error) {
	f.requests = append(f.requests, in)
	if !f.configured {
		return "", ai.ErrNotConfigured
	}
	return f.text, f.err
}

func (f *fakeAI) Configured() bool { return f.configured }

type countingMetrics struct{ bySource map[string]int }

func (m *countingMetrics) ContentGenerated(source string) { m.bySource[source]++ }

func newTestGenerator(textGen TextGenerator) (*Generator, *countingMetrics) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := template.New(logger, template.WithRand(rand.New(rand.NewSource(7))))
	m := &countingMetrics{bySource: map[string]int{}}
	return New(textGen, engine, m, logger), m
}

func TestGeneratePostContent_AIFirst(t *testing.T) {
	fake := &fakeAI{configured: true, text: "🏊 AI пост #бассейн"}
	g, m := newTestGenerator(fake)

	res := g.GeneratePostContent(context.Background(), entity.CategoryProject, map[string]string{
		"pool_type": "Композитный", "size": "8x4", "features": "подсветка",
	}, true)

	if !res.AIUsed || res.Text != fake.text {
		t.Errorf("result = %+v", res)
	}
	req := fake.requests[0]
	if req.MaxTokens != 500 || req.Temperature != 0.7 || req.SystemPrompt != smmSystemPrompt {
		t.Errorf("request params = %+v", req)
	}
	if !strings.Contains(req.Prompt, "Композитный") || !strings.Contains(req.Prompt, "8x4") {
		t.Errorf("prompt = %q", req.Prompt)
	}
	if m.bySource[SourceAI] != 1 {
		t.Errorf("metrics = %v", m.bySource)
	}
}

func TestGeneratePostContent_Fallback(t *testing.T) {
	tests := []struct {
		name  string
		gen   TextGenerator
		useAI bool
	}{
		{"nil client", nil, true},
		{"not configured", &fakeAI{}, true},
		{"provider error", &fakeAI{configured: true, err: errors.New("502")}, true},
		{"empty completion", &fakeAI{configured: true, text: "  "}, true},
		{"ai disabled", &fakeAI{configured: true, text: "ai"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, m := newTestGenerator(tt.gen)
			res := g.GeneratePostContent(context.Background(), entity.CategoryTip, nil, tt.useAI)
			if res.AIUsed {
				t.Error("expected template fallback")
			}
			if strings.TrimSpace(res.Text) == "" {
				t.Error("fallback text is empty")
			}
			if m.bySource[SourceTemplate] != 1 {
				t.Errorf("metrics = %v", m.bySource)
			}
		})
	}
}

func TestGeneratePostContent_InvalidCategory(t *testing.T) {
	g, _ := newTestGenerator(nil)
	res := g.GeneratePostContent(context.Background(), entity.Category("weather"), nil, false)
	if res.Category != string(entity.CategoryProject) {
		t.Errorf("category = %q", res.Category)
	}
}

func TestGenerateAI_NotConfigured(t *testing.T) {
	g, _ := newTestGenerator(&fakeAI{})
	if _, err := g.GenerateAI(context.Background(), entity.CategoryPromo, nil); !IsFallbackError(err) {
		t.Errorf("err = %v, want fallback error", err)
	}
}

func TestImproveText(t *testing.T) {
	fake := &fakeAI{configured: true, text: "лучше"}
	g, _ := newTestGenerator(fake)

	got, err := g.ImproveText(context.Background(), "текст")
	if err != nil || got != "лучше" {
		t.Fatalf("got %q, %v", got, err)
	}
	if fake.requests[0].MaxTokens != 400 || fake.requests[0].SystemPrompt != editorSystemPrompt {
		t.Errorf("request = %+v", fake.requests[0])
	}

	if _, err := g.ImproveText(context.Background(), "  "); !errors.Is(err, entity.ErrEmptyContent) {
		t.Errorf("err = %v", err)
	}
}

func TestGenerateHashtags(t *testing.T) {
	fake := &fakeAI{configured: true, text: "Вот: #бассейн #вода\n#лето бассейн #дача"}
	g, _ := newTestGenerator(fake)

	got, err := g.GenerateHashtags(context.Background(), "пост", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"#бассейн", "#вода", "#лето"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if fake.requests[0].MaxTokens != 100 || fake.requests[0].Temperature != 0.5 {
		t.Errorf("request = %+v", fake.requests[0])
	}
}

func TestGenerateTipsBatch(t *testing.T) {
	g, _ := newTestGenerator(&fakeAI{})

	tips := g.GenerateTipsBatch(context.Background(), 4, true)
	if len(tips) != 4 {
		t.Fatalf("got %d tips", len(tips))
	}
	for _, tip := range tips {
		if tip.AIUsed || tip.Text == "" {
			t.Errorf("tip = %+v", tip)
		}
	}
}
