package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/policy"
	"github.com/vadim/poolsmm/internal/domain/post/scheduler"
	"github.com/vadim/poolsmm/internal/httpx/response"
)

// DashboardPolicy defines the read models of the web UI
type DashboardPolicy interface {
	Dashboard(ctx context.Context) (*policy.Dashboard, error)
	Calendar(ctx context.Context, year int, month time.Month) ([]entity.Post, error)
	Location() *time.Location
}

// JobLister reports the jobs of the scheduler
type JobLister interface {
	Running() bool
	Jobs() []scheduler.JobInfo
}

// DashboardHandler serves the dashboard, the calendar and scheduler state
type DashboardHandler struct {
	policy DashboardPolicy
	jobs   JobLister
	now    func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(p DashboardPolicy, jobs JobLister) *DashboardHandler {
	return &DashboardHandler{policy: p, jobs: jobs, now: time.Now}
}

// RegisterRoutes registers dashboard routes
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard())
	r.Get("/calendar", h.Calendar())
	r.Get("/scheduler/status", h.SchedulerStatus())
}

// Dashboard handles GET /dashboard
func (h *DashboardHandler) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.policy.Dashboard(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, d)
	}
}

// CalendarResponse lists the posts of one month
type CalendarResponse struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Posts []entity.Post `json:"posts"`
}

// Calendar handles GET /calendar?year=&month=, the current month by default
func (h *DashboardHandler) Calendar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := h.now().In(h.policy.Location())
		q := r.URL.Query()

		year, err := intParam(q.Get("year"), now.Year())
		if err != nil {
			response.BadRequest(w, "invalid year")
			return
		}
		month, err := intParam(q.Get("month"), int(now.Month()))
		if err != nil {
			response.BadRequest(w, "invalid month")
			return
		}

		posts, err := h.policy.Calendar(r.Context(), year, time.Month(month))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, CalendarResponse{Year: year, Month: month, Posts: posts})
	}
}

// SchedulerStatus is the state of the job scheduler
type SchedulerStatus struct {
	Running  bool                `json:"running"`
	Timezone string              `json:"timezone"`
	Jobs     []scheduler.JobInfo `json:"jobs"`
}

// SchedulerStatus handles GET /scheduler/status
func (h *DashboardHandler) SchedulerStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs := h.jobs.Jobs()
		if jobs == nil {
			jobs = []scheduler.JobInfo{}
		}
		response.OK(w, SchedulerStatus{
			Running:  h.jobs.Running(),
			Timezone: h.policy.Location().String(),
			Jobs:     jobs,
		})
	}
}
