package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/poolsmm/internal/domain/post/dao"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// Service handles business logic for posts and their delivery log
type Service struct {
	posts        dao.PostRepository
	publications dao.PublicationRepository
	platforms    dao.PlatformRepository
	projects     dao.ProjectRepository
	slots        dao.SlotRepository
	now          func() time.Time
}

// New creates a new post service
func New(
	posts dao.PostRepository,
	publications dao.PublicationRepository,
	platforms dao.PlatformRepository,
	projects dao.ProjectRepository,
	slots dao.SlotRepository,
) *Service {
	return &Service{
		posts:        posts,
		publications: publications,
		platforms:    platforms,
		projects:     projects,
		slots:        slots,
		now:          time.Now,
	}
}

// NewFromMemory wires a service to an in-memory store
func NewFromMemory(m *dao.Memory) *Service {
	return New(m.Posts, m.Publications, m.Platforms, m.Projects, m.Slots)
}

// CreateInput represents input for creating a post
type CreateInput struct {
	Title           string
	Content         string
	ContentTelegram string
	ContentVK       string
	Image           string
	Category        entity.Category
	Platforms       []string
	ScheduledAt     *time.Time
	AIGenerated     bool
	AIPromptUsed    string
	CreatedBy       string
	Submit          bool // create in pending instead of draft
}

// CreatePost creates a new draft or pending post
func (s *Service) CreatePost(ctx context.Context, in CreateInput) (*entity.Post, error) {
	platforms, err := entity.NormalizePlatforms(in.Platforms)
	if err != nil {
		return nil, err
	}

	status := entity.PostStatusDraft
	if in.Submit {
		status = entity.PostStatusPending
	}

	category := in.Category
	if category == "" {
		category = entity.CategoryProject
	}

	now := s.now()
	post := &entity.Post{
		ID:              uuid.New().String(),
		Title:           strings.TrimSpace(in.Title),
		Content:         in.Content,
		ContentTelegram: in.ContentTelegram,
		ContentVK:       in.ContentVK,
		Image:           strings.TrimSpace(in.Image),
		Category:        category,
		Status:          status,
		Platforms:       platforms,
		ScheduledAt:     in.ScheduledAt,
		AIGenerated:     in.AIGenerated,
		AIPromptUsed:    in.AIPromptUsed,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := post.Validate(); err != nil {
		return nil, err
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// GetPost retrieves a post by ID
func (s *Service) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, entity.ErrPostNotFound
	}
	return post, nil
}

// UpdateInput represents input for updating a post. Nil fields stay unchanged.
type UpdateInput struct {
	ID              string
	Title           *string
	Content         *string
	ContentTelegram *string
	ContentVK       *string
	Image           *string
	Category        *entity.Category
	Platforms       []string
	ScheduledAt     *time.Time
	ClearSchedule   bool
}

// UpdatePost updates the editable fields of a post
func (s *Service) UpdatePost(ctx context.Context, in UpdateInput) (*entity.Post, error) {
	post, err := s.GetPost(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if !post.IsEditable() {
		return nil, entity.ErrPostNotEditable
	}

	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.ContentTelegram != nil {
		post.ContentTelegram = *in.ContentTelegram
	}
	if in.ContentVK != nil {
		post.ContentVK = *in.ContentVK
	}
	if in.Image != nil {
		post.Image = strings.TrimSpace(*in.Image)
	}
	if in.Category != nil {
		post.Category = *in.Category
	}
	if in.Platforms != nil {
		platforms, err := entity.NormalizePlatforms(in.Platforms)
		if err != nil {
			return nil, err
		}
		post.Platforms = platforms
	}

	if in.ClearSchedule {
		post.ScheduledAt = nil
	} else if in.ScheduledAt != nil {
		post.ScheduledAt = in.ScheduledAt
	}

	if err := post.Validate(); err != nil {
		return nil, err
	}

	post.UpdatedAt = s.now()
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// DeletePost deletes a post and its delivery log
func (s *Service) DeletePost(ctx context.Context, id string) error {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if !post.IsDeletable() {
		return entity.ErrPostNotDeletable
	}
	return s.posts.Delete(ctx, id)
}

// ListPosts returns a page of posts and the total matching the filter
func (s *Service) ListPosts(ctx context.Context, filter dao.PostFilter, opts dao.ListOptions) ([]entity.Post, int64, error) {
	posts, err := s.posts.List(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListDue returns scheduled posts whose time has come
func (s *Service) ListDue(ctx context.Context, now time.Time) ([]entity.Post, error) {
	return s.posts.ListDue(ctx, now)
}

// ListByStatus returns posts in the status, oldest scheduled first
func (s *Service) ListByStatus(ctx context.Context, status entity.PostStatus, limit int) ([]entity.Post, error) {
	sortBy := "created_at"
	if status == entity.PostStatusScheduled {
		sortBy = "scheduled_at"
	}
	return s.posts.List(ctx, dao.PostFilter{Status: &status}, dao.ListOptions{Limit: limit, SortBy: sortBy})
}

// Transition moves post to a new status and persists it with a
// compare-and-swap on the current status. On success post is updated in
// place; on failure it is left untouched.
func (s *Service) Transition(ctx context.Context, post *entity.Post, to entity.PostStatus) error {
	next := *post
	if err := next.TransitionTo(to, s.now()); err != nil {
		return err
	}
	if err := s.posts.UpdateStatus(ctx, &next, post.Status); err != nil {
		return err
	}
	*post = next
	return nil
}

// Reject moves a pending post to rejected with a reason
func (s *Service) Reject(ctx context.Context, post *entity.Post, reason string) error {
	next := *post
	if err := next.TransitionTo(entity.PostStatusRejected, s.now()); err != nil {
		return err
	}
	next.RejectionReason = strings.TrimSpace(reason)
	if err := s.posts.UpdateStatus(ctx, &next, post.Status); err != nil {
		return err
	}
	*post = next
	return nil
}

// ScheduleAt sets the publication time and moves the post to scheduled
func (s *Service) ScheduleAt(ctx context.Context, post *entity.Post, at time.Time) error {
	next := *post
	if err := next.TransitionTo(entity.PostStatusScheduled, s.now()); err != nil {
		return err
	}
	next.ScheduledAt = &at
	if err := s.posts.UpdateStatus(ctx, &next, post.Status); err != nil {
		return err
	}
	*post = next
	return nil
}

// Unschedule clears the publication time and returns the post to approved
func (s *Service) Unschedule(ctx context.Context, post *entity.Post) error {
	next := *post
	if err := next.TransitionTo(entity.PostStatusApproved, s.now()); err != nil {
		return err
	}
	next.ScheduledAt = nil
	if err := s.posts.UpdateStatus(ctx, &next, post.Status); err != nil {
		return err
	}
	*post = next
	return nil
}

// CompletePublish finishes a publish attempt of a post in publishing
func (s *Service) CompletePublish(ctx context.Context, post *entity.Post, delivery entity.Delivery) error {
	next := *post
	if err := next.MarkPublished(delivery, s.now()); err != nil {
		return err
	}
	if err := s.posts.UpdateStatus(ctx, &next, post.Status); err != nil {
		return err
	}
	*post = next
	return nil
}

// RecordPublication appends a delivery attempt to the log
func (s *Service) RecordPublication(ctx context.Context, pub *entity.Publication) error {
	if pub.ID == "" {
		pub.ID = uuid.New().String()
	}
	if pub.PublishedAt.IsZero() {
		pub.PublishedAt = s.now()
	}
	return s.publications.Create(ctx, pub)
}

// ListPublications returns the delivery log of a post
func (s *Service) ListPublications(ctx context.Context, postID string) ([]entity.Publication, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.publications.ListByPost(ctx, postID)
}

// RecentPublications returns the latest delivery attempts across posts
func (s *Service) RecentPublications(ctx context.Context, limit int) ([]entity.Publication, error) {
	return s.publications.ListRecent(ctx, limit)
}

// CleanupPublications removes delivery log rows older than retention
func (s *Service) CleanupPublications(ctx context.Context, retention time.Duration) (int64, error) {
	return s.publications.DeleteOlderThan(ctx, s.now().Add(-retention))
}

// GetStatistics returns aggregated post counters
func (s *Service) GetStatistics(ctx context.Context) (*entity.PostStatistics, error) {
	return s.posts.GetStatistics(ctx)
}
