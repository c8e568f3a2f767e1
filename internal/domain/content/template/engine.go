package template

import (
	"bytes"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	gotemplate "text/template"
	"time"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// DefaultHashtagCount is used when the caller passes zero
const DefaultHashtagCount = 5

// Engine renders posts from built-in templates. It never fails: a broken
// template yields its raw text.
type Engine struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	templates map[entity.Category][]*gotemplate.Template
	raw       map[entity.Category][]string
	hashtags  map[entity.Category][]string
	logger    *slog.Logger
}

// Option configures the engine
type Option func(*Engine)

// WithRand sets the random source, for deterministic tests
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rnd = r
	}
}

// WithTemplates replaces the templates of a category. Blank texts are
// dropped, and a list with nothing left keeps the current templates.
func WithTemplates(category entity.Category, texts ...string) Option {
	return func(e *Engine) {
		kept := make([]string, 0, len(texts))
		for _, text := range texts {
			if strings.TrimSpace(text) != "" {
				kept = append(kept, text)
			}
		}
		if len(kept) > 0 {
			e.raw[category] = kept
		}
	}
}

// WithHashtags replaces the hashtag pool of a category
func WithHashtags(category entity.Category, tags ...string) Option {
	return func(e *Engine) {
		e.hashtags[category] = tags
	}
}

// New creates an engine with the built-in templates
func New(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		templates: make(map[entity.Category][]*gotemplate.Template),
		raw:       make(map[entity.Category][]string, len(builtinTemplates)),
		hashtags:  make(map[entity.Category][]string, len(builtinHashtags)),
		logger:    logger,
	}
	for c, t := range builtinTemplates {
		e.raw[c] = t
	}
	for c, h := range builtinHashtags {
		e.hashtags[c] = h
	}

	for _, opt := range opts {
		opt(e)
	}

	for c, texts := range e.raw {
		parsed := make([]*gotemplate.Template, len(texts))
		for i, text := range texts {
			t, err := gotemplate.New(string(c)).Option("missingkey=error").Parse(text)
			if err != nil {
				e.logger.Error("invalid post template", "category", c, "index", i, "error", err)
			}
			parsed[i] = t
		}
		e.templates[c] = parsed
	}

	return e
}

// Generate renders a random template of the category. Unknown categories use project.
func (e *Engine) Generate(category entity.Category, fields map[string]string, hashtagCount int) string {
	if len(e.raw[category]) == 0 {
		category = entity.CategoryProject
	}
	if hashtagCount <= 0 {
		hashtagCount = DefaultHashtagCount
	}

	e.mu.Lock()
	idx := e.rnd.Intn(len(e.raw[category]))
	tags := e.sampleHashtags(category, hashtagCount)
	e.mu.Unlock()

	data := make(map[string]string, len(defaultFields)+len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	for k, def := range defaultFields {
		if strings.TrimSpace(data[k]) == "" {
			data[k] = def
		}
	}
	data["hashtags"] = strings.Join(tags, " ")

	raw := e.raw[category][idx]
	tmpl := e.templates[category][idx]
	if tmpl == nil {
		return raw
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		e.logger.Error("template execution failed", "category", category, "error", err)
		return raw
	}

	out := collapseBlankLines(buf.String())
	if strings.TrimSpace(out) == "" {
		return raw
	}
	return out
}

// sampleHashtags draws without replacement; callers hold e.mu
func (e *Engine) sampleHashtags(category entity.Category, n int) []string {
	pool := e.hashtags[category]
	if len(pool) == 0 {
		pool = e.hashtags[entity.CategoryProject]
	}
	if n > len(pool) {
		n = len(pool)
	}
	perm := e.rnd.Perm(len(pool))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

// PickTips draws up to count built-in care tips without replacement
func (e *Engine) PickTips(count int) []Tip {
	if count > len(CareTips) {
		count = len(CareTips)
	}
	if count <= 0 {
		return nil
	}

	e.mu.Lock()
	perm := e.rnd.Perm(len(CareTips))
	e.mu.Unlock()

	out := make([]Tip, count)
	for i := 0; i < count; i++ {
		out[i] = CareTips[perm[i]]
	}
	return out
}

// GenerateTipsBatch renders count distinct tips
func (e *Engine) GenerateTipsBatch(count int) []string {
	tips := e.PickTips(count)
	out := make([]string, 0, len(tips))
	for _, tip := range tips {
		out = append(out, e.Generate(entity.CategoryTip, map[string]string{
			"title":   tip.Title,
			"content": tip.Content,
		}, DefaultHashtagCount))
	}
	return out
}

// Hashtags returns the pool of a category
func (e *Engine) Hashtags(category entity.Category) []string {
	return append([]string(nil), e.hashtags[category]...)
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	prevEmpty := false
	for _, line := range lines {
		empty := strings.TrimSpace(line) == ""
		if empty && prevEmpty {
			continue
		}
		out = append(out, line)
		prevEmpty = empty
	}
	return strings.Join(out, "\n")
}
