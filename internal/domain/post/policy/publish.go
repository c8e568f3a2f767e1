package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/publisher"
)

// JobID returns the deferred publication job key of a post
func JobID(postID string) string {
	return "publish_post_" + postID
}

// PublishOutcome is the result of a publish attempt
type PublishOutcome struct {
	Post    *entity.Post       `json:"post"`
	Results []publisher.Result `json:"results"`
}

// Success reports whether at least one platform received the post
func (o *PublishOutcome) Success() bool {
	return o.Post != nil && o.Post.Status == entity.PostStatusPublished
}

// PostEvent is the payload of post outcome events
type PostEvent struct {
	PostID    string             `json:"post_id"`
	Title     string             `json:"title"`
	Status    entity.PostStatus  `json:"status"`
	Delivery  entity.Delivery    `json:"delivery,omitempty"`
	Results   []publisher.Result `json:"results"`
	Timestamp time.Time          `json:"timestamp"`
}

// Publish delivers an approved or scheduled post to its platforms.
//
// The post is claimed with a compare-and-swap to publishing, so two
// concurrent callers never both deliver it; the loser gets
// entity.ErrStatusConflict. Any successful platform publishes the post, with
// delivery partial when some platform failed.
func (p *Policy) Publish(ctx context.Context, id string) (*PublishOutcome, error) {
	post, err := p.svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.Status.IsPublishable() {
		return nil, entity.ErrPostNotPublishable
	}
	if len(post.Platforms) == 0 {
		return nil, entity.ErrNoPlatforms
	}

	if err := p.svc.Transition(ctx, post, entity.PostStatusPublishing); err != nil {
		return nil, err
	}
	p.logger.Info("publishing post", "post_id", post.ID, "platforms", post.Platforms)

	results := p.publishers.PublishToAll(ctx, publisher.Message{
		Text:      post.Content,
		Overrides: post.Overrides(),
		Image:     post.Image,
	}, post.Platforms)

	// the outcome must be stored even when the caller went away mid-flight
	finalCtx := context.WithoutCancel(ctx)

	succeeded := 0
	for _, r := range results {
		pub := &entity.Publication{
			PostID:       post.ID,
			Platform:     r.Platform,
			Status:       entity.PublicationStatusFailed,
			ExternalID:   r.ExternalID,
			ExternalURL:  r.ExternalURL,
			ErrorMessage: r.Error,
		}
		if r.Success {
			pub.Status = entity.PublicationStatusSuccess
			succeeded++
		} else {
			p.logger.Warn("platform delivery failed", "post_id", post.ID, "platform", r.Platform, "error", r.Error)
		}
		if err := p.svc.RecordPublication(finalCtx, pub); err != nil {
			p.logger.Error("failed to record publication", "post_id", post.ID, "platform", r.Platform, "error", err)
		}
		if p.metrics != nil {
			p.metrics.PublicationAttempt(r.Platform, r.Success)
		}
	}

	switch {
	case succeeded == 0:
		err = p.svc.Transition(finalCtx, post, entity.PostStatusFailed)
	case succeeded < len(results):
		err = p.svc.CompletePublish(finalCtx, post, entity.DeliveryPartial)
	default:
		err = p.svc.CompletePublish(finalCtx, post, entity.DeliveryFull)
	}
	if err != nil {
		return nil, fmt.Errorf("storing publish outcome: %w", err)
	}

	p.cancelJob(post.ID)

	event := EventPostPublished
	if post.Status == entity.PostStatusFailed {
		event = EventPostFailed
	}
	if p.metrics != nil {
		delivery := string(post.Delivery)
		if delivery == "" {
			delivery = "failed"
		}
		p.metrics.PostPublished(delivery)
	}
	p.emit(finalCtx, event, PostEvent{
		PostID:    post.ID,
		Title:     post.Title,
		Status:    post.Status,
		Delivery:  post.Delivery,
		Results:   results,
		Timestamp: p.now(),
	})

	p.logger.Info("post publish finished",
		"post_id", post.ID,
		"status", post.Status,
		"delivery", post.Delivery,
		"succeeded", succeeded,
		"attempted", len(results),
	)

	return &PublishOutcome{Post: post, Results: results}, nil
}

// SweepSummary counts what a sweep did
type SweepSummary struct {
	Due       int `json:"due"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// ProcessScheduledPosts publishes every scheduled post whose time has come,
// oldest first. A post that is no longer publishable or is claimed by another
// worker is skipped. Any other error marks the post failed and the sweep
// continues.
func (p *Policy) ProcessScheduledPosts(ctx context.Context) (SweepSummary, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.ObserveSweep(time.Since(start))
		}
	}()

	due, err := p.svc.ListDue(ctx, p.now())
	if err != nil {
		return SweepSummary{}, fmt.Errorf("listing due posts: %w", err)
	}

	summary := SweepSummary{Due: len(due)}
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		post := &due[i]

		outcome, err := p.Publish(ctx, post.ID)
		switch {
		case err == nil && outcome.Success():
			summary.Published++
		case err == nil:
			summary.Failed++
		case isSkip(err):
			p.logger.Info("skipping due post", "post_id", post.ID, "reason", err)
			summary.Skipped++
		default:
			p.logger.Error("scheduled publish failed", "post_id", post.ID, "error", err)
			p.forceFailed(ctx, post.ID)
			summary.Failed++
		}
	}

	if summary.Due > 0 {
		p.logger.Info("scheduled posts processed",
			"due", summary.Due,
			"published", summary.Published,
			"failed", summary.Failed,
			"skipped", summary.Skipped,
		)
	}
	return summary, nil
}

func isSkip(err error) bool {
	return errors.Is(err, entity.ErrPostNotPublishable) ||
		errors.Is(err, entity.ErrStatusConflict) ||
		errors.Is(err, entity.ErrPostNotFound)
}

// forceFailed moves a post to failed on a best-effort basis
func (p *Policy) forceFailed(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	post, err := p.svc.GetPost(ctx, id)
	if err != nil {
		return
	}
	if !entity.CanTransition(post.Status, entity.PostStatusFailed) {
		return
	}
	if err := p.svc.Transition(ctx, post, entity.PostStatusFailed); err != nil {
		p.logger.Warn("could not mark post failed", "post_id", id, "error", err)
		return
	}
	p.cancelJob(id)
	p.emit(ctx, EventPostFailed, PostEvent{PostID: post.ID, Title: post.Title, Status: post.Status, Timestamp: p.now()})
}

// ResyncScheduled registers deferred jobs for every scheduled post. It is
// run at startup so jobs survive restarts.
func (p *Policy) ResyncScheduled(ctx context.Context) (int, error) {
	posts, err := p.svc.ListByStatus(ctx, entity.PostStatusScheduled, 0)
	if err != nil {
		return 0, fmt.Errorf("listing scheduled posts: %w", err)
	}
	n := 0
	for _, post := range posts {
		if post.ScheduledAt == nil {
			continue
		}
		p.registerJob(post.ID, *post.ScheduledAt)
		n++
	}
	p.logger.Info("scheduled posts resynced", "count", n)
	return n, nil
}

func (p *Policy) registerJob(postID string, at time.Time) {
	if p.jobs == nil {
		return
	}
	p.jobs.ScheduleAt(JobID(postID), "publish post "+postID, at, func(ctx context.Context) {
		if _, err := p.Publish(ctx, postID); err != nil {
			if isSkip(err) {
				p.logger.Info("deferred publish skipped", "post_id", postID, "reason", err)
				return
			}
			p.logger.Error("deferred publish failed", "post_id", postID, "error", err)
			p.forceFailed(ctx, postID)
		}
	})
}

func (p *Policy) cancelJob(postID string) {
	if p.jobs != nil {
		p.jobs.Cancel(JobID(postID))
	}
}
