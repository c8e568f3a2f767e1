package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/policy"
	"github.com/vadim/poolsmm/internal/httpx/response"
)

// PostPolicy defines the post operations the handler needs
// Interface is defined by consumer (handler), not provider (policy)
type PostPolicy interface {
	CreatePost(ctx context.Context, actor entity.Actor, in policy.CreatePostInput) (*entity.Post, error)
	UpdatePost(ctx context.Context, actor entity.Actor, in policy.UpdatePostInput) (*entity.Post, error)
	DeletePost(ctx context.Context, actor entity.Actor, id string) error
	GetPost(ctx context.Context, id string) (*policy.PostDetail, error)
	ListPosts(ctx context.Context, in policy.ListPostsInput) (*policy.ListPostsOutput, error)
	SubmitForReview(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error)
	Approve(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error)
	Reject(ctx context.Context, actor entity.Actor, id, reason string) (*entity.Post, error)
	ReturnToDraft(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error)
	Schedule(ctx context.Context, actor entity.Actor, id string, at time.Time) (*entity.Post, error)
	Unschedule(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error)
	PublishNow(ctx context.Context, actor entity.Actor, id string) (*policy.PublishOutcome, error)
	Location() *time.Location
}

// PostHandler handles HTTP requests for posts
type PostHandler struct {
	policy PostPolicy
}

// NewPostHandler creates a new post handler
func NewPostHandler(p PostPolicy) *PostHandler {
	return &PostHandler{policy: p}
}

// RegisterRoutes registers post routes
func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", h.List())
		r.Post("/", h.Create())
		r.Get("/{id}", h.Get())
		r.Put("/{id}", h.Update())
		r.Delete("/{id}", h.Delete())
		r.Get("/{id}/publications", h.Publications())
		r.Post("/{id}/submit", h.Submit())
		r.Post("/{id}/approve", h.Approve())
		r.Post("/{id}/reject", h.Reject())
		r.Post("/{id}/draft", h.ReturnToDraft())
		r.Post("/{id}/schedule", h.Schedule())
		r.Delete("/{id}/schedule", h.Unschedule())
		r.Post("/{id}/publish", h.Publish())
	})
}

// CreatePostRequest represents the request body for creating a post
type CreatePostRequest struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	ContentTelegram string   `json:"content_telegram,omitempty"`
	ContentVK       string   `json:"content_vk,omitempty"`
	Image           string   `json:"image,omitempty"`
	Category        string   `json:"category,omitempty"`
	Platforms       []string `json:"platforms"`
	AIGenerated     bool     `json:"ai_generated,omitempty"`
	AIPromptUsed    string   `json:"ai_prompt_used,omitempty"`
	Submit          bool     `json:"submit,omitempty"`
}

// Create handles POST /posts
func (h *PostHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePostRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		post, err := h.policy.CreatePost(r.Context(), ActorFrom(r.Context()), policy.CreatePostInput{
			Title:           req.Title,
			Content:         req.Content,
			ContentTelegram: req.ContentTelegram,
			ContentVK:       req.ContentVK,
			Image:           req.Image,
			Category:        entity.Category(req.Category),
			Platforms:       req.Platforms,
			AIGenerated:     req.AIGenerated,
			AIPromptUsed:    req.AIPromptUsed,
			Submit:          req.Submit,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.Created(w, post)
	}
}

// Get handles GET /posts/{id}
func (h *PostHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := h.policy.GetPost(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, detail)
	}
}

// Publications handles GET /posts/{id}/publications
func (h *PostHandler) Publications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := h.policy.GetPost(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, detail.Publications)
	}
}

// UpdatePostRequest represents the request body for updating a post
type UpdatePostRequest struct {
	Title           *string  `json:"title,omitempty"`
	Content         *string  `json:"content,omitempty"`
	ContentTelegram *string  `json:"content_telegram,omitempty"`
	ContentVK       *string  `json:"content_vk,omitempty"`
	Image           *string  `json:"image,omitempty"`
	Category        *string  `json:"category,omitempty"`
	Platforms       []string `json:"platforms,omitempty"`
	ScheduledAt     *string  `json:"scheduled_at,omitempty"`
	ClearSchedule   bool     `json:"clear_schedule,omitempty"`
}

// Update handles PUT /posts/{id}
func (h *PostHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdatePostRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		in := policy.UpdatePostInput{
			ID:              chi.URLParam(r, "id"),
			Title:           req.Title,
			Content:         req.Content,
			ContentTelegram: req.ContentTelegram,
			ContentVK:       req.ContentVK,
			Image:           req.Image,
			Platforms:       req.Platforms,
			ClearSchedule:   req.ClearSchedule,
		}
		if req.Category != nil {
			c := entity.Category(*req.Category)
			in.Category = &c
		}
		if req.ScheduledAt != nil && *req.ScheduledAt != "" {
			at, err := parseTime(*req.ScheduledAt, h.policy.Location())
			if err != nil {
				response.BadRequest(w, "invalid scheduled_at format, use RFC3339")
				return
			}
			in.ScheduledAt = &at
		}

		post, err := h.policy.UpdatePost(r.Context(), ActorFrom(r.Context()), in)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, post)
	}
}

// Delete handles DELETE /posts/{id}
func (h *PostHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.policy.DeletePost(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			handleDomainError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// ListPostsResponse represents the response for listing posts
type ListPostsResponse struct {
	Posts  []entity.Post `json:"posts"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// List handles GET /posts
func (h *PostHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var in policy.ListPostsInput

		if s := q.Get("status"); s != "" {
			status, err := entity.ParsePostStatus(s)
			if err != nil {
				response.BadRequest(w, err.Error())
				return
			}
			in.Status = &status
		}
		if c := q.Get("category"); c != "" {
			category := entity.Category(c)
			if !category.IsValid() {
				response.BadRequest(w, entity.ErrInvalidCategory.Error())
				return
			}
			in.Category = &category
		}

		var err error
		if in.Limit, err = intParam(q.Get("limit"), 50); err != nil {
			response.BadRequest(w, "invalid limit")
			return
		}
		if in.Offset, err = intParam(q.Get("offset"), 0); err != nil {
			response.BadRequest(w, "invalid offset")
			return
		}
		in.Limit = min(max(in.Limit, 1), 100)
		in.Offset = max(in.Offset, 0)

		out, err := h.policy.ListPosts(r.Context(), in)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, ListPostsResponse{
			Posts:  out.Posts,
			Total:  out.Total,
			Limit:  in.Limit,
			Offset: in.Offset,
		})
	}
}

// Submit handles POST /posts/{id}/submit
func (h *PostHandler) Submit() http.HandlerFunc {
	return h.workflow(h.policy.SubmitForReview)
}

// Approve handles POST /posts/{id}/approve
func (h *PostHandler) Approve() http.HandlerFunc {
	return h.workflow(h.policy.Approve)
}

// ReturnToDraft handles POST /posts/{id}/draft
func (h *PostHandler) ReturnToDraft() http.HandlerFunc {
	return h.workflow(h.policy.ReturnToDraft)
}

// Unschedule handles DELETE /posts/{id}/schedule
func (h *PostHandler) Unschedule() http.HandlerFunc {
	return h.workflow(h.policy.Unschedule)
}

func (h *PostHandler) workflow(op func(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := op(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, post)
	}
}

// RejectRequest represents the request body for rejecting a post
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /posts/{id}/reject
func (h *PostHandler) Reject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RejectRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		post, err := h.policy.Reject(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, post)
	}
}

// ScheduleRequest represents the request body for scheduling a post
type ScheduleRequest struct {
	ScheduledAt string `json:"scheduled_at"` // RFC3339, or local time in the scheduler timezone
}

// Schedule handles POST /posts/{id}/schedule
func (h *PostHandler) Schedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScheduleRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		if req.ScheduledAt == "" {
			response.BadRequest(w, "scheduled_at is required")
			return
		}

		at, err := parseTime(req.ScheduledAt, h.policy.Location())
		if err != nil {
			response.BadRequest(w, "invalid scheduled_at format, use RFC3339")
			return
		}

		post, err := h.policy.Schedule(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), at)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, post)
	}
}

// PublishResponse is the outcome of an immediate publication
type PublishResponse struct {
	Success bool `json:"success"`
	*policy.PublishOutcome
}

// Publish handles POST /posts/{id}/publish
func (h *PostHandler) Publish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := h.policy.PublishNow(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, PublishResponse{Success: outcome.Success(), PublishOutcome: outcome})
	}
}

// parseTime accepts RFC3339 or a zone-less local time in loc
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
