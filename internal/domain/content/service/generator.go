package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/vadim/poolsmm/internal/domain/content/template"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/httpx/upstream/ai"
)

// TextGenerator is the AI capability used by the generator
type TextGenerator interface {
	GenerateText(ctx context.Context, in ai.TextRequest) (string, error)
	Configured() bool
}

// MetricsRecorder counts generated texts by source
type MetricsRecorder interface {
	ContentGenerated(source string)
}

// Content sources
const (
	SourceAI       = "ai"
	SourceTemplate = "template"
)

// Generator produces post texts, AI first with a template fallback
type Generator struct {
	ai      TextGenerator
	engine  *template.Engine
	metrics MetricsRecorder
	logger  *slog.Logger
}

// New creates a generator. textGen may be nil.
func New(textGen TextGenerator, engine *template.Engine, metrics MetricsRecorder, logger *slog.Logger) *Generator {
	return &Generator{
		ai:      textGen,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
}

// Result is a generated text and where it came from
type Result struct {
	Text     string `json:"text"`
	AIUsed   bool   `json:"ai_used"`
	Prompt   string `json:"prompt,omitempty"`
	Category string `json:"category"`
}

// AIConfigured reports whether an AI provider can be called
func (g *Generator) AIConfigured() bool {
	return g.ai != nil && g.ai.Configured()
}

// GeneratePostContent never returns an empty text: any AI failure falls back to templates
func (g *Generator) GeneratePostContent(ctx context.Context, category entity.Category, fields map[string]string, useAI bool) Result {
	if !category.IsValid() {
		category = entity.CategoryProject
	}

	if useAI {
		prompt := g.promptFor(category, fields)
		text, err := g.complete(ctx, ai.TextRequest{
			Prompt:       prompt,
			SystemPrompt: smmSystemPrompt,
			MaxTokens:    500,
			Temperature:  0.7,
		})
		if err == nil {
			g.count(SourceAI)
			return Result{Text: text, AIUsed: true, Prompt: prompt, Category: string(category)}
		}
		g.logger.Warn("ai generation failed, using templates", "category", category, "error", err)
	}

	g.count(SourceTemplate)
	return Result{
		Text:     g.engine.Generate(category, fields, template.DefaultHashtagCount),
		Category: string(category),
	}
}

// GenerateAI asks the AI provider only. An error means the caller must fall back.
func (g *Generator) GenerateAI(ctx context.Context, category entity.Category, fields map[string]string) (string, error) {
	return g.complete(ctx, ai.TextRequest{
		Prompt:       g.promptFor(category, fields),
		SystemPrompt: smmSystemPrompt,
		MaxTokens:    500,
		Temperature:  0.7,
	})
}

// ImproveText rewrites text with the editor prompt
func (g *Generator) ImproveText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", entity.ErrEmptyContent
	}
	return g.complete(ctx, ai.TextRequest{
		Prompt:       improvePrompt(text),
		SystemPrompt: editorSystemPrompt,
		MaxTokens:    400,
		Temperature:  0.7,
	})
}

// GenerateHashtags returns at most count tokens of the completion that start with '#'
func (g *Generator) GenerateHashtags(ctx context.Context, text string, count int) ([]string, error) {
	if count <= 0 {
		count = template.DefaultHashtagCount
	}
	out, err := g.complete(ctx, ai.TextRequest{
		Prompt:      hashtagsPrompt(text, count),
		MaxTokens:   100,
		Temperature: 0.5,
	})
	if err != nil {
		return nil, err
	}
	return ParseHashtags(out, count), nil
}

// GenerateTipsBatch returns count distinct care tips, rewritten by AI when configured
func (g *Generator) GenerateTipsBatch(ctx context.Context, count int, useAI bool) []Result {
	tips := g.engine.PickTips(count)
	out := make([]Result, 0, len(tips))
	for _, tip := range tips {
		fields := map[string]string{"title": tip.Title, "content": tip.Content}
		if useAI {
			prompt := tipPrompt(tip.Title, tip.Content)
			text, err := g.complete(ctx, ai.TextRequest{
				Prompt:       prompt,
				SystemPrompt: smmSystemPrompt,
				MaxTokens:    500,
				Temperature:  0.7,
			})
			if err == nil {
				g.count(SourceAI)
				out = append(out, Result{Text: text, AIUsed: true, Prompt: prompt, Category: string(entity.CategoryTip)})
				continue
			}
			g.logger.Warn("ai tip generation failed, using templates", "tip", tip.Title, "error", err)
		}
		g.count(SourceTemplate)
		out = append(out, Result{
			Text:     g.engine.Generate(entity.CategoryTip, fields, template.DefaultHashtagCount),
			Category: string(entity.CategoryTip),
		})
	}
	return out
}

func (g *Generator) promptFor(category entity.Category, fields map[string]string) string {
	poolType := fields["pool_type"]
	if strings.TrimSpace(poolType) == "" {
		poolType = "бассейн"
	}
	return postPrompt(category, poolType, fields["size"], fields["features"])
}

func (g *Generator) complete(ctx context.Context, req ai.TextRequest) (string, error) {
	if g.ai == nil {
		return "", ai.ErrNotConfigured
	}
	text, err := g.ai.GenerateText(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ai.ErrEmptyCompletion
	}
	return text, nil
}

func (g *Generator) count(source string) {
	if g.metrics != nil {
		g.metrics.ContentGenerated(source)
	}
}

// ParseHashtags keeps whitespace separated tokens starting with '#', at most count
func ParseHashtags(s string, count int) []string {
	var tags []string
	for _, f := range strings.Fields(s) {
		if !strings.HasPrefix(f, "#") {
			continue
		}
		tags = append(tags, f)
		if len(tags) == count {
			break
		}
	}
	return tags
}

// IsFallbackError reports whether err means the AI provider is unavailable
func IsFallbackError(err error) bool {
	return errors.Is(err, ai.ErrNotConfigured) || errors.Is(err, ai.ErrEmptyCompletion)
}
