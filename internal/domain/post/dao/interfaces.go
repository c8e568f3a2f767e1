package dao

import (
	"context"
	"time"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// PostFilter contains filters for listing posts
type PostFilter struct {
	Status   *entity.PostStatus
	Category *entity.Category
	// From/To bound COALESCE(scheduled_at, published_at, created_at)
	From *time.Time
	To   *time.Time
}

// ListOptions contains pagination and sorting options
type ListOptions struct {
	Limit  int
	Offset int
	SortBy string // "created_at", "scheduled_at", "updated_at"
	Desc   bool
}

// PostRepository defines data access for posts
type PostRepository interface {
	Create(ctx context.Context, post *entity.Post) error

	// GetByID returns nil, nil when the post does not exist
	GetByID(ctx context.Context, id string) (*entity.Post, error)

	// Update stores editable fields; status fields go through UpdateStatus
	Update(ctx context.Context, post *entity.Post) error

	Delete(ctx context.Context, id string) error

	List(ctx context.Context, filter PostFilter, opts ListOptions) ([]entity.Post, error)

	Count(ctx context.Context, filter PostFilter) (int64, error)

	// ListDue returns scheduled posts with scheduled_at <= now, oldest first
	ListDue(ctx context.Context, now time.Time) ([]entity.Post, error)

	// UpdateStatus writes the status related fields of post only if the
	// stored status still equals from. Returns entity.ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, post *entity.Post, from entity.PostStatus) error

	GetStatistics(ctx context.Context) (*entity.PostStatistics, error)
}

// PublicationRepository defines data access for the delivery log
type PublicationRepository interface {
	Create(ctx context.Context, pub *entity.Publication) error

	ListByPost(ctx context.Context, postID string) ([]entity.Publication, error)

	ListRecent(ctx context.Context, limit int) ([]entity.Publication, error)

	// DeleteOlderThan removes rows published before cutoff and returns how many
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PlatformRepository defines data access for platform configuration
type PlatformRepository interface {
	Create(ctx context.Context, p *entity.Platform) error

	GetByID(ctx context.Context, id string) (*entity.Platform, error)

	// GetByName returns nil, nil when the platform does not exist
	GetByName(ctx context.Context, name string) (*entity.Platform, error)

	Update(ctx context.Context, p *entity.Platform) error

	List(ctx context.Context, activeOnly bool) ([]entity.Platform, error)
}

// ProjectRepository defines data access for project source material
type ProjectRepository interface {
	Create(ctx context.Context, p *entity.ProjectData) error

	GetByID(ctx context.Context, id string) (*entity.ProjectData, error)

	List(ctx context.Context, onlyUnpublished bool, opts ListOptions) ([]entity.ProjectData, error)

	// MarkPublished sets is_published and reports whether it was unset before
	MarkPublished(ctx context.Context, id string) (bool, error)
}

// SlotRepository defines data access for schedule slots
type SlotRepository interface {
	Create(ctx context.Context, s *entity.ScheduleSlot) error

	GetByID(ctx context.Context, id string) (*entity.ScheduleSlot, error)

	List(ctx context.Context, activeOnly bool) ([]entity.ScheduleSlot, error)

	Delete(ctx context.Context, id string) error
}
