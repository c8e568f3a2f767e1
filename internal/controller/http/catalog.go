package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/policy"
	"github.com/vadim/poolsmm/internal/domain/post/service"
	"github.com/vadim/poolsmm/internal/httpx/response"
)

// CatalogPolicy defines platform, project and slot operations
type CatalogPolicy interface {
	ListPlatforms(ctx context.Context) ([]entity.Platform, error)
	CreatePlatform(ctx context.Context, actor entity.Actor, in service.PlatformInput) (*entity.Platform, error)
	UpdatePlatform(ctx context.Context, actor entity.Actor, in service.PlatformUpdate) (*entity.Platform, error)
	PlatformStatuses(ctx context.Context) ([]policy.PlatformStatus, error)

	CreateProject(ctx context.Context, actor entity.Actor, in service.ProjectInput) (*entity.ProjectData, error)
	GetProject(ctx context.Context, id string) (*entity.ProjectData, error)
	ListProjects(ctx context.Context, onlyUnpublished bool, limit, offset int) ([]entity.ProjectData, error)
	CreatePostFromProject(ctx context.Context, actor entity.Actor, projectID string, useAI bool) (*entity.Post, error)

	CreateSlot(ctx context.Context, actor entity.Actor, in service.SlotInput) (*entity.ScheduleSlot, error)
	DeleteSlot(ctx context.Context, actor entity.Actor, id string) error
	ListSlots(ctx context.Context) ([]entity.ScheduleSlot, error)
	NextSlots(ctx context.Context, n int) ([]entity.SlotTime, error)
}

// CatalogHandler handles platforms, projects and schedule slots
type CatalogHandler struct {
	policy CatalogPolicy
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(p CatalogPolicy) *CatalogHandler {
	return &CatalogHandler{policy: p}
}

// RegisterRoutes registers catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/platforms", func(r chi.Router) {
		r.Get("/", h.ListPlatforms())
		r.Post("/", h.CreatePlatform())
		r.Get("/status", h.PlatformStatus())
		r.Put("/{id}", h.UpdatePlatform())
	})
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects())
		r.Post("/", h.CreateProject())
		r.Get("/{id}", h.GetProject())
		r.Post("/{id}/post", h.PostFromProject())
	})
	r.Route("/slots", func(r chi.Router) {
		r.Get("/", h.ListSlots())
		r.Post("/", h.CreateSlot())
		r.Get("/next", h.NextSlots())
		r.Delete("/{id}", h.DeleteSlot())
	})
}

// ListPlatforms handles GET /platforms
func (h *CatalogHandler) ListPlatforms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		platforms, err := h.policy.ListPlatforms(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, platforms)
	}
}

// PlatformRequest represents the request body for creating a platform
type PlatformRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
	APIToken    string `json:"api_token"`
	ChannelID   string `json:"channel_id"`
}

// CreatePlatform handles POST /platforms
func (h *CatalogHandler) CreatePlatform() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlatformRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}

		platform, err := h.policy.CreatePlatform(r.Context(), ActorFrom(r.Context()), service.PlatformInput{
			Name:        req.Name,
			DisplayName: req.DisplayName,
			IsActive:    active,
			APIToken:    req.APIToken,
			ChannelID:   req.ChannelID,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.Created(w, platform)
	}
}

// UpdatePlatformRequest represents a partial platform update
type UpdatePlatformRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	APIToken    *string `json:"api_token,omitempty"`
	ChannelID   *string `json:"channel_id,omitempty"`
}

// UpdatePlatform handles PUT /platforms/{id}
func (h *CatalogHandler) UpdatePlatform() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdatePlatformRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		platform, err := h.policy.UpdatePlatform(r.Context(), ActorFrom(r.Context()), service.PlatformUpdate{
			ID:          chi.URLParam(r, "id"),
			DisplayName: req.DisplayName,
			IsActive:    req.IsActive,
			APIToken:    req.APIToken,
			ChannelID:   req.ChannelID,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, platform)
	}
}

// PlatformStatus handles GET /platforms/status
func (h *CatalogHandler) PlatformStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses, err := h.policy.PlatformStatuses(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, statuses)
	}
}

// ListProjects handles GET /projects?unpublished=true
func (h *CatalogHandler) ListProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		onlyUnpublished, _ := strconv.ParseBool(q.Get("unpublished"))

		limit, err := intParam(q.Get("limit"), 50)
		if err != nil {
			response.BadRequest(w, "invalid limit")
			return
		}
		offset, err := intParam(q.Get("offset"), 0)
		if err != nil {
			response.BadRequest(w, "invalid offset")
			return
		}

		projects, err := h.policy.ListProjects(r.Context(), onlyUnpublished, limit, max(offset, 0))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, projects)
	}
}

// ProjectRequest represents the request body for creating a project
type ProjectRequest struct {
	Title       string   `json:"title"`
	PoolType    string   `json:"pool_type"`
	Size        string   `json:"size,omitempty"`
	Features    string   `json:"features,omitempty"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
	MainImage   string   `json:"main_image,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
}

// CreateProject handles POST /projects
func (h *CatalogHandler) CreateProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProjectRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		project, err := h.policy.CreateProject(r.Context(), ActorFrom(r.Context()), service.ProjectInput{
			Title:       req.Title,
			PoolType:    entity.PoolType(req.PoolType),
			Size:        req.Size,
			Features:    req.Features,
			Location:    req.Location,
			Description: req.Description,
			Images:      req.Images,
			MainImage:   req.MainImage,
			SourceURL:   req.SourceURL,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.Created(w, project)
	}
}

// GetProject handles GET /projects/{id}
func (h *CatalogHandler) GetProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := h.policy.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, project)
	}
}

// PostFromProjectRequest controls generation of a project post
type PostFromProjectRequest struct {
	UseAI *bool `json:"use_ai,omitempty"`
}

// PostFromProject handles POST /projects/{id}/post
func (h *CatalogHandler) PostFromProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PostFromProjectRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		useAI := req.UseAI == nil || *req.UseAI

		post, err := h.policy.CreatePostFromProject(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), useAI)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.Created(w, post)
	}
}

// ListSlots handles GET /slots
func (h *CatalogHandler) ListSlots() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := h.policy.ListSlots(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, slots)
	}
}

// SlotRequest represents the request body for creating a slot
type SlotRequest struct {
	DayOfWeek         int      `json:"day_of_week"` // 0 = Monday
	TimeOfDay         string   `json:"time_of_day"`
	Platforms         []string `json:"platforms"`
	PreferredCategory string   `json:"preferred_category,omitempty"`
}

// CreateSlot handles POST /slots
func (h *CatalogHandler) CreateSlot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SlotRequest
		if err := response.Decode(r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		slot, err := h.policy.CreateSlot(r.Context(), ActorFrom(r.Context()), service.SlotInput{
			DayOfWeek:         req.DayOfWeek,
			TimeOfDay:         req.TimeOfDay,
			Platforms:         req.Platforms,
			PreferredCategory: entity.Category(req.PreferredCategory),
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.Created(w, slot)
	}
}

// DeleteSlot handles DELETE /slots/{id}
func (h *CatalogHandler) DeleteSlot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.policy.DeleteSlot(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			handleDomainError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NextSlots handles GET /slots/next?count=
func (h *CatalogHandler) NextSlots() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := intParam(r.URL.Query().Get("count"), 3)
		if err != nil {
			response.BadRequest(w, "invalid count")
			return
		}

		next, err := h.policy.NextSlots(r.Context(), count)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, next)
	}
}
