package policy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	contentsvc "github.com/vadim/poolsmm/internal/domain/content/service"
	"github.com/vadim/poolsmm/internal/domain/post/dao"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/scheduler"
	"github.com/vadim/poolsmm/internal/domain/post/service"
	"github.com/vadim/poolsmm/internal/domain/publisher"
)

// Publishers is the fan-out capability used by the publish operation.
// This interface is defined here (consumer) not in the publisher package (provider)
type Publishers interface {
	PublishToAll(ctx context.Context, msg publisher.Message, names []string) []publisher.Result
	TestAllConnections(ctx context.Context) map[string]bool
	Load(platforms []entity.Platform, factory publisher.Factory) []string
	Names() []string
}

// JobScheduler registers deferred publication jobs
type JobScheduler interface {
	ScheduleAt(id, name string, at time.Time, fn scheduler.Job)
	Cancel(id string) bool
}

// ContentGenerator produces post texts
type ContentGenerator interface {
	GeneratePostContent(ctx context.Context, category entity.Category, fields map[string]string, useAI bool) contentsvc.Result
}

// EventEmitter publishes domain events
type EventEmitter interface {
	Emit(ctx context.Context, routingKey string, payload any) error
}

// Metrics records publish outcomes
type Metrics interface {
	PublicationAttempt(platform string, success bool)
	PostPublished(delivery string)
	ObserveSweep(d time.Duration)
	PlatformUp(platform string, up bool)
}

// Event routing keys
const (
	EventPostPublished  = "post.published"
	EventPostFailed     = "post.failed"
	EventPlatformHealth = "platform.health"
)

// Deps holds the collaborators of the policy
type Deps struct {
	Service    *service.Service
	Publishers Publishers
	Jobs       JobScheduler
	Content    ContentGenerator
	Events     EventEmitter
	Metrics    Metrics
	Logger     *slog.Logger

	// Factory builds publishers when platforms are reloaded
	Factory publisher.Factory
	// Fallback platforms are loaded when none are stored
	Fallback []entity.Platform
	// Location is the timezone used for calendars and slot suggestions
	Location *time.Location
}

// Policy orchestrates post use-cases
type Policy struct {
	svc        *service.Service
	publishers Publishers
	jobs       JobScheduler
	content    ContentGenerator
	events     EventEmitter
	metrics    Metrics
	logger     *slog.Logger
	factory    publisher.Factory
	fallback   []entity.Platform
	loc        *time.Location
	now        func() time.Time
}

// New creates a new post policy
func New(d Deps) *Policy {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		svc:        d.Service,
		publishers: d.Publishers,
		jobs:       d.Jobs,
		content:    d.Content,
		events:     d.Events,
		metrics:    d.Metrics,
		logger:     logger,
		factory:    d.Factory,
		fallback:   d.Fallback,
		loc:        loc,
		now:        time.Now,
	}
}

// Location returns the policy timezone
func (p *Policy) Location() *time.Location {
	return p.loc
}

// CreatePostInput represents input for creating a post
type CreatePostInput struct {
	Title           string
	Content         string
	ContentTelegram string
	ContentVK       string
	Image           string
	Category        entity.Category
	Platforms       []string
	AIGenerated     bool
	AIPromptUsed    string
	Submit          bool // send to review right away
}

// CreatePost creates a draft, or a pending post when Submit is set
func (p *Policy) CreatePost(ctx context.Context, actor entity.Actor, in CreatePostInput) (*entity.Post, error) {
	if !actor.CanCreatePosts() {
		return nil, entity.ErrForbidden
	}

	post, err := p.svc.CreatePost(ctx, service.CreateInput{
		Title:           in.Title,
		Content:         in.Content,
		ContentTelegram: in.ContentTelegram,
		ContentVK:       in.ContentVK,
		Image:           in.Image,
		Category:        in.Category,
		Platforms:       in.Platforms,
		AIGenerated:     in.AIGenerated,
		AIPromptUsed:    in.AIPromptUsed,
		CreatedBy:       actor.ID,
		Submit:          in.Submit,
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("post created", "post_id", post.ID, "status", post.Status, "actor", actor.ID)
	return post, nil
}

// UpdatePostInput represents input for updating a post
type UpdatePostInput struct {
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

// UpdatePost updates an editable post. On approved and scheduled posts the
// publication time is a status change, so it goes through Schedule and
// Unschedule and needs publish rights.
func (p *Policy) UpdatePost(ctx context.Context, actor entity.Actor, in UpdatePostInput) (*entity.Post, error) {
	if !actor.CanCreatePosts() {
		return nil, entity.ErrForbidden
	}

	if in.ScheduledAt != nil || in.ClearSchedule {
		post, err := p.svc.GetPost(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		switch post.Status {
		case entity.PostStatusApproved, entity.PostStatusScheduled:
			return p.updateSchedule(ctx, actor, post, in)
		case entity.PostStatusPublishing, entity.PostStatusPublished:
			return nil, entity.ErrInvalidTransition
		}
	}

	return p.svc.UpdatePost(ctx, in.serviceInput(true))
}

func (p *Policy) updateSchedule(ctx context.Context, actor entity.Actor, post *entity.Post, in UpdatePostInput) (*entity.Post, error) {
	if !actor.CanPublish() {
		return nil, entity.ErrForbidden
	}
	if !in.ClearSchedule && !in.ScheduledAt.After(p.now()) {
		return nil, entity.ErrScheduledTimeInPast
	}

	if in.hasContent() {
		if _, err := p.svc.UpdatePost(ctx, in.serviceInput(false)); err != nil {
			return nil, err
		}
	}

	switch {
	case !in.ClearSchedule:
		return p.Schedule(ctx, actor, post.ID, *in.ScheduledAt)
	case post.Status == entity.PostStatusScheduled:
		return p.Unschedule(ctx, actor, post.ID)
	default:
		return p.svc.GetPost(ctx, post.ID)
	}
}

func (in UpdatePostInput) hasContent() bool {
	return in.Title != nil || in.Content != nil || in.ContentTelegram != nil || in.ContentVK != nil ||
		in.Image != nil || in.Category != nil || in.Platforms != nil
}

func (in UpdatePostInput) serviceInput(withSchedule bool) service.UpdateInput {
	out := service.UpdateInput{
		ID:              in.ID,
		Title:           in.Title,
		Content:         in.Content,
		ContentTelegram: in.ContentTelegram,
		ContentVK:       in.ContentVK,
		Image:           in.Image,
		Category:        in.Category,
		Platforms:       in.Platforms,
	}
	if withSchedule {
		out.ScheduledAt = in.ScheduledAt
		out.ClearSchedule = in.ClearSchedule
	}
	return out
}

// DeletePost deletes a post and drops its deferred job
func (p *Policy) DeletePost(ctx context.Context, actor entity.Actor, id string) error {
	if !actor.CanCreatePosts() {
		return entity.ErrForbidden
	}
	if err := p.svc.DeletePost(ctx, id); err != nil {
		return err
	}
	p.cancelJob(id)
	p.logger.Info("post deleted", "post_id", id, "actor", actor.ID)
	return nil
}

// PostDetail is a post with its delivery log
type PostDetail struct {
	Post         *entity.Post         `json:"post"`
	Publications []entity.Publication `json:"publications"`
}

// GetPost returns a post with its publications
func (p *Policy) GetPost(ctx context.Context, id string) (*PostDetail, error) {
	post, err := p.svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	pubs, err := p.svc.ListPublications(ctx, id)
	if err != nil {
		return nil, err
	}
	if pubs == nil {
		pubs = []entity.Publication{}
	}
	return &PostDetail{Post: post, Publications: pubs}, nil
}

// ListPostsInput represents input for listing posts
type ListPostsInput struct {
	Status   *entity.PostStatus
	Category *entity.Category
	Limit    int
	Offset   int
}

// ListPostsOutput represents output from listing posts
type ListPostsOutput struct {
	Posts []entity.Post
	Total int64
}

// ListPosts returns a page of posts, newest first
func (p *Policy) ListPosts(ctx context.Context, in ListPostsInput) (*ListPostsOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	posts, total, err := p.svc.ListPosts(ctx,
		dao.PostFilter{Status: in.Status, Category: in.Category},
		dao.ListOptions{Limit: limit, Offset: in.Offset, SortBy: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []entity.Post{}
	}
	return &ListPostsOutput{Posts: posts, Total: total}, nil
}

// ListByStatus returns posts in a status for the bot queues
func (p *Policy) ListByStatus(ctx context.Context, status entity.PostStatus, limit int) ([]entity.Post, error) {
	return p.svc.ListByStatus(ctx, status, limit)
}

// SubmitForReview sends a draft, rejected or failed post to moderation
func (p *Policy) SubmitForReview(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error) {
	if !actor.CanCreatePosts() {
		return nil, entity.ErrForbidden
	}
	post, err := p.svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.svc.Transition(ctx, post, entity.PostStatusPending); err != nil {
		return nil, err
	}
	p.logger.Info("post submitted for review", "post_id", id, "actor", actor.ID)
	return post, nil
}

// Approve accepts a pending post. A post carrying a future scheduled time
// continues to scheduled and gets its deferred job.
func (p *Policy) Approve(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error) {
	if !actor.CanPublish() {
		return nil, entity.ErrForbidden
	}
	post, err := p.svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != entity.PostStatusPending {
		return nil, entity.ErrInvalidTransition
	}
	if err := p.svc.Transition(ctx, post, entity.PostStatusApproved); err != nil {
		return nil, err
	}
	p.logger.Info("post approved", "post_id", id, "actor", actor.ID)

	if post.ScheduledAt != nil && post.ScheduledAt.After(p.now()) {
		if err := p.svc.ScheduleAt(ctx, post, *post.ScheduledAt); err != nil {
			return nil, err
		}
		p.registerJob(post.ID, *post.ScheduledAt)
	}
	return post, nil
}

// Reject declines a pending post with an optional reason
func (p *Policy) Reject(ctx context.Context, actor entity.Actor, id, reason string) (*entity.Post, error) {
	if !actor.CanPublish() {
		return nil, entity.ErrForbidden
	}
	post, err := p.svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.svc.Reject(ctx, post, reason); err != nil {
		return nil, err
	}
	p.logger.Info("post rejected", "post_id", id, "actor", actor.ID, "reason", post.RejectionReason)
	return post, nil
}

// ReturnToDraft moves a post back to draft for rework
func (p *Policy) ReturnToDraft(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error) {
	if !actor.CanCreatePosts() {
		return nil, entity.ErrForbidden
	}
	post, err := p.svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.svc.Transition(ctx, post, entity.PostStatusDraft); err != nil {
		return nil, err
	}
	return post, nil
}

// Schedule sets a future publication time on an approved or scheduled post
func (p *Policy) Schedule(ctx context.Context, actor entity.Actor, id string, at time.Time) (*entity.Post, error) {
	if !actor.CanPublish() {
		return nil, entity.ErrForbidden
	}
	if !at.After(p.now()) {
		return nil, entity.ErrScheduledTimeInPast
	}
	post, err := p.svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.svc.ScheduleAt(ctx, post, at); err != nil {
		return nil, err
	}
	p.registerJob(post.ID, at)
	p.logger.Info("post scheduled", "post_id", id, "scheduled_at", at, "actor", actor.ID)
	return post, nil
}

// Unschedule returns a scheduled post to approved and drops its job
func (p *Policy) Unschedule(ctx context.Context, actor entity.Actor, id string) (*entity.Post, error) {
	if !actor.CanPublish() {
		return nil, entity.ErrForbidden
	}
	post, err := p.svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.svc.Unschedule(ctx, post); err != nil {
		return nil, err
	}
	p.cancelJob(id)
	return post, nil
}

// PublishNow publishes an approved or scheduled post immediately
func (p *Policy) PublishNow(ctx context.Context, actor entity.Actor, id string) (*PublishOutcome, error) {
	if !actor.CanPublish() {
		return nil, entity.ErrForbidden
	}
	return p.Publish(ctx, id)
}

// CreatePostFromProject generates a project post and sends it to review
func (p *Policy) CreatePostFromProject(ctx context.Context, actor entity.Actor, projectID string, useAI bool) (*entity.Post, error) {
	if !actor.CanCreatePosts() {
		return nil, entity.ErrForbidden
	}
	project, err := p.svc.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.IsPublished {
		return nil, entity.ErrProjectAlreadyUsed
	}

	fields := map[string]string{
		"title":       project.Title,
		"pool_type":   project.PoolType.Label(),
		"size":        project.Size,
		"features":    strings.Join(project.FeaturesList(), ", "),
		"location":    project.Location,
		"description": project.Description,
	}
	generated := p.content.GeneratePostContent(ctx, entity.CategoryProject, fields, useAI)

	platforms, err := p.DefaultPlatforms(ctx)
	if err != nil {
		return nil, err
	}

	post, err := p.svc.CreatePost(ctx, service.CreateInput{
		Title:        "Проект: " + project.Title,
		Content:      generated.Text,
		Image:        project.MainImage,
		Category:     entity.CategoryProject,
		Platforms:    platforms,
		AIGenerated:  generated.AIUsed,
		AIPromptUsed: generated.Prompt,
		CreatedBy:    actor.ID,
		Submit:       true,
	})
	if err != nil {
		return nil, err
	}

	// the project is claimed only once its post exists; a lost claim drops the post
	if err := p.svc.MarkProjectPublished(ctx, project.ID); err != nil {
		if derr := p.svc.DeletePost(context.WithoutCancel(ctx), post.ID); derr != nil {
			p.logger.Error("failed to drop post of a used project", "post_id", post.ID, "project_id", project.ID, "error", derr)
		}
		return nil, err
	}

	p.logger.Info("post created from project", "post_id", post.ID, "project_id", project.ID, "ai", generated.AIUsed)
	return post, nil
}

// DefaultPlatforms returns the usable stored platforms, or the loaded
// publishers when no platform row is usable
func (p *Policy) DefaultPlatforms(ctx context.Context) ([]string, error) {
	platforms, err := p.svc.UsablePlatformNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(platforms) == 0 {
		platforms = p.publishers.Names()
	}
	return platforms, nil
}

// GenerateDraft generates content for a category and stores it as a draft
func (p *Policy) GenerateDraft(ctx context.Context, actor entity.Actor, category entity.Category, details string, useAI bool) (*entity.Post, error) {
	if !actor.CanCreatePosts() {
		return nil, entity.ErrForbidden
	}
	if !category.IsValid() {
		return nil, entity.ErrInvalidCategory
	}

	fields := map[string]string{"features": details, "description": details}
	generated := p.content.GeneratePostContent(ctx, category, fields, useAI)

	platforms, err := p.DefaultPlatforms(ctx)
	if err != nil {
		return nil, err
	}

	return p.svc.CreatePost(ctx, service.CreateInput{
		Title:        category.Label(),
		Content:      generated.Text,
		Category:     category,
		Platforms:    platforms,
		AIGenerated:  generated.AIUsed,
		AIPromptUsed: generated.Prompt,
		CreatedBy:    actor.ID,
	})
}

// Dashboard is the summary shown on the main page
type Dashboard struct {
	Statistics         *entity.PostStatistics `json:"statistics"`
	Upcoming           []entity.Post          `json:"upcoming"`
	RecentPublications []entity.Publication   `json:"recent_publications"`
}

// Dashboard returns status counters, upcoming posts and recent deliveries
func (p *Policy) Dashboard(ctx context.Context) (*Dashboard, error) {
	stats, err := p.svc.GetStatistics(ctx)
	if err != nil {
		return nil, err
	}
	upcoming, err := p.svc.ListByStatus(ctx, entity.PostStatusScheduled, 10)
	if err != nil {
		return nil, err
	}
	recent, err := p.svc.RecentPublications(ctx, 10)
	if err != nil {
		return nil, err
	}
	if upcoming == nil {
		upcoming = []entity.Post{}
	}
	if recent == nil {
		recent = []entity.Publication{}
	}
	return &Dashboard{Statistics: stats, Upcoming: upcoming, RecentPublications: recent}, nil
}

// Calendar returns posts scheduled or published within the month
func (p *Policy) Calendar(ctx context.Context, year int, month time.Month) ([]entity.Post, error) {
	if month < time.January || month > time.December {
		return nil, entity.ErrInvalidMonth
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, p.loc)
	to := from.AddDate(0, 1, 0)

	posts, _, err := p.svc.ListPosts(ctx,
		dao.PostFilter{From: &from, To: &to},
		dao.ListOptions{SortBy: "scheduled_at"},
	)
	if err != nil {
		return nil, err
	}

	out := make([]entity.Post, 0, len(posts))
	for _, post := range posts {
		if post.ScheduledAt != nil || post.PublishedAt != nil {
			out = append(out, post)
		}
	}
	return out, nil
}

func (p *Policy) emit(ctx context.Context, key string, payload any) {
	if p.events == nil {
		return
	}
	if err := p.events.Emit(ctx, key, payload); err != nil {
		p.logger.Warn("failed to emit event", "event", key, "error", err)
	}
}
