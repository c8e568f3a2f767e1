package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	contentsvc "github.com/vadim/poolsmm/internal/domain/content/service"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/httpx/response"
)

// ContentGenerator produces post texts
type ContentGenerator interface {
	GeneratePostContent(ctx context.Context, category entity.Category, fields map[string]string, useAI bool) contentsvc.Result
	ImproveText(ctx context.Context, text string) (string, error)
	GenerateHashtags(ctx context.Context, text string, count int) ([]string, error)
	GenerateTipsBatch(ctx context.Context, count int, useAI bool) []contentsvc.Result
}

// GenerateHandler exposes content generation without storing posts
type GenerateHandler struct {
	content ContentGenerator
}

// NewGenerateHandler creates a new generation handler
func NewGenerateHandler(c ContentGenerator) *GenerateHandler {
	return &GenerateHandler{content: c}
}

// RegisterRoutes registers generation routes
func (h *GenerateHandler) RegisterRoutes(r chi.Router) {
	r.Route("/generate", func(r chi.Router) {
		r.Post("/", h.Generate())
		r.Post("/improve", h.Improve())
		r.Post("/hashtags", h.Hashtags())
		r.Post("/tips", h.Tips())
	})
}

// GenerateRequest carries the category and the template fields
type GenerateRequest struct {
	Category string            `json:"category"`
	UseAI    *bool             `json:"use_ai,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Generate handles POST /generate
func (h *GenerateHandler) Generate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ActorFrom(r.Context()).CanCreatePosts() {
			handleDomainError(w, entity.ErrForbidden)
			return
		}

		var req GenerateRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		category := entity.Category(req.Category)
		if category == "" {
			category = entity.CategoryProject
		}
		if !category.IsValid() {
			response.BadRequest(w, entity.ErrInvalidCategory.Error())
			return
		}
		fields := req.Fields
		if fields == nil {
			fields = map[string]string{}
		}

		response.OK(w, h.content.GeneratePostContent(r.Context(), category, fields, req.UseAI == nil || *req.UseAI))
	}
}

// TextRequest carries a text to work on
type TextRequest struct {
	Text  string `json:"text"`
	Count int    `json:"count,omitempty"`
}

// Improve handles POST /generate/improve
func (h *GenerateHandler) Improve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.decodeText(w, r)
		if !ok {
			return
		}

		text, err := h.content.ImproveText(r.Context(), req.Text)
		if err != nil {
			aiError(w, err)
			return
		}
		response.OK(w, map[string]string{"text": text})
	}
}

// Hashtags handles POST /generate/hashtags
func (h *GenerateHandler) Hashtags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.decodeText(w, r)
		if !ok {
			return
		}

		tags, err := h.content.GenerateHashtags(r.Context(), req.Text, req.Count)
		if err != nil {
			aiError(w, err)
			return
		}
		response.OK(w, map[string][]string{"hashtags": tags})
	}
}

// TipsRequest asks for a batch of care tips
type TipsRequest struct {
	Count int   `json:"count,omitempty"`
	UseAI *bool `json:"use_ai,omitempty"`
}

// Tips handles POST /generate/tips
func (h *GenerateHandler) Tips() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ActorFrom(r.Context()).CanCreatePosts() {
			handleDomainError(w, entity.ErrForbidden)
			return
		}

		var req TipsRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		count := req.Count
		if count <= 0 {
			count = 5
		}
		count = min(count, 20)

		response.OK(w, h.content.GenerateTipsBatch(r.Context(), count, req.UseAI == nil || *req.UseAI))
	}
}

func (h *GenerateHandler) decodeText(w http.ResponseWriter, r *http.Request) (TextRequest, bool) {
	var req TextRequest
	if !ActorFrom(r.Context()).CanCreatePosts() {
		handleDomainError(w, entity.ErrForbidden)
		return req, false
	}
	if err := response.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		response.BadRequest(w, "text is required")
		return req, false
	}
	return req, true
}

// aiError reports a failed AI helper call; there is no template fallback for these
func aiError(w http.ResponseWriter, err error) {
	if contentsvc.IsFallbackError(err) {
		response.ServiceUnavailable(w, err.Error())
		return
	}
	response.Error(w, http.StatusBadGateway, "ai provider error")
}
