package policy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	contentsvc "github.com/vadim/poolsmm/internal/domain/content/service"
	"github.com/vadim/poolsmm/internal/domain/post/dao"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/scheduler"
	"github.com/vadim/poolsmm/internal/domain/post/service"
	"github.com/vadim/poolsmm/internal/domain/publisher"
)

type fakePublishers struct {
	mu     sync.Mutex
	fail   map[string]bool
	health map[string]bool
	calls  int
	gate   chan struct{}
	msgs   []publisher.Message
	loaded []entity.Platform
}

func (f *fakePublishers) PublishToAll(_ context.Context, msg publisher.Message, names []string) []publisher.Result {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.msgs = append(f.msgs, msg)

	out := make([]publisher.Result, 0, len(names))
	for _, n := range names {
		if f.fail[n] {
			out = append(out, publisher.Result{Platform: n, Error: n + " is down"})
			continue
		}
		out = append(out, publisher.Result{Platform: n, Success: true, ExternalID: "1", ExternalURL: "https://example/" + n})
	}
	return out
}

func (f *fakePublishers) TestAllConnections(context.Context) map[string]bool { return f.health }

func (f *fakePublishers) Load(platforms []entity.Platform, _ publisher.Factory) []string {
	f.loaded = platforms
	return f.Names()
}

func (f *fakePublishers) Names() []string { return []string{"telegram", "vk"} }

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]scheduler.Job
	at   map[string]time.Time
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]scheduler.Job{}, at: map[string]time.Time{}}
}

func (f *fakeJobs) ScheduleAt(id, _ string, at time.Time, fn scheduler.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[id] = fn
	f.at[id] = at
}

func (f *fakeJobs) Cancel(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[id]
	delete(f.jobs, id)
	delete(f.at, id)
	return ok
}

func (f *fakeJobs) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[id]
	return ok
}

type fakeContent struct{ fields map[string]string }

func (f *fakeContent) GeneratePostContent(_ context.Context, category entity.Category, fields map[string]string, _ bool) contentsvc.Result {
	f.fields = fields
	return contentsvc.Result{Text: "generated " + fields["pool_type"], Category: string(category)}
}

type fakeEvents struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeEvents) Emit(_ context.Context, key string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

type fakeMetrics struct {
	mu        sync.Mutex
	attempts  map[string]int
	delivery  map[string]int
	sweeps    int
	platforms map[string]bool
}

func (f *fakeMetrics) PublicationAttempt(platform string, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if success {
		f.attempts[platform+":ok"]++
	} else {
		f.attempts[platform+":fail"]++
	}
}

func (f *fakeMetrics) PostPublished(delivery string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivery[delivery]++
}

func (f *fakeMetrics) ObserveSweep(time.Duration) { f.sweeps++ }

func (f *fakeMetrics) PlatformUp(platform string, up bool) { f.platforms[platform] = up }

type fixture struct {
	policy  *Policy
	svc     *service.Service
	pubs    *fakePublishers
	jobs    *fakeJobs
	content *fakeContent
	events  *fakeEvents
	metrics *fakeMetrics
}

var (
	admin  = entity.Actor{ID: "admin", Role: entity.RoleAdmin}
	editor = entity.Actor{ID: "editor", Role: entity.RoleEditor}
	viewer = entity.Actor{ID: "viewer", Role: entity.RoleViewer}
)

func newFixture() *fixture {
	return newFixtureWith(service.NewFromMemory(dao.NewMemory()))
}

// newFixtureWith builds the policy over a preconfigured service
func newFixtureWith(svc *service.Service) *fixture {
	f := &fixture{
		svc:     svc,
		pubs:    &fakePublishers{fail: map[string]bool{}},
		jobs:    newFakeJobs(),
		content: &fakeContent{},
		events:  &fakeEvents{},
		metrics: &fakeMetrics{attempts: map[string]int{}, delivery: map[string]int{}, platforms: map[string]bool{}},
	}
	f.policy = New(Deps{
		Service:    f.svc,
		Publishers: f.pubs,
		Jobs:       f.jobs,
		Content:    f.content,
		Events:     f.events,
		Metrics:    f.metrics,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Factory: func(entity.Platform) (publisher.Publisher, error) {
			return nil, errors.New("unused")
		},
		Fallback: []entity.Platform{{Name: "telegram", DisplayName: "Telegram", IsActive: true}},
	})
	return f
}

// approvedPost creates a post and walks it to approved
func (f *fixture) approvedPost(t *testing.T, platforms ...string) *entity.Post {
	t.Helper()
	ctx := context.Background()
	post, err := f.policy.CreatePost(ctx, editor, CreatePostInput{
		Title:     "Бассейн",
		Content:   "База",
		ContentVK: "Для VK",
		Category:  entity.CategoryProject,
		Platforms: platforms,
		Submit:    true,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	post, err = f.policy.Approve(ctx, admin, post.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	return post
}

func (f *fixture) storedPost(t *testing.T, id string) *entity.Post {
	t.Helper()
	post, err := f.svc.GetPost(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return post
}

func TestPublish_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		fail       []string
		wantStatus entity.PostStatus
		wantDeliv  entity.Delivery
		wantEvent  string
	}{
		{"all succeed", nil, entity.PostStatusPublished, entity.DeliveryFull, EventPostPublished},
		{"partial", []string{"vk"}, entity.PostStatusPublished, entity.DeliveryPartial, EventPostPublished},
		{"all fail", []string{"vk", "telegram"}, entity.PostStatusFailed, entity.DeliveryNone, EventPostFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			for _, n := range tt.fail {
				f.pubs.fail[n] = true
			}
			post := f.approvedPost(t, "telegram", "vk")

			out, err := f.policy.PublishNow(context.Background(), admin, post.ID)
			if err != nil {
				t.Fatalf("PublishNow: %v", err)
			}
			if len(out.Results) != 2 {
				t.Fatalf("results = %+v", out.Results)
			}

			stored := f.storedPost(t, post.ID)
			if stored.Status != tt.wantStatus || stored.Delivery != tt.wantDeliv {
				t.Errorf("stored status = %s/%q, want %s/%q", stored.Status, stored.Delivery, tt.wantStatus, tt.wantDeliv)
			}
			if (stored.PublishedAt != nil) != (tt.wantStatus == entity.PostStatusPublished) {
				t.Errorf("published_at = %v for status %s", stored.PublishedAt, stored.Status)
			}

			detail, err := f.policy.GetPost(context.Background(), post.ID)
			if err != nil {
				t.Fatal(err)
			}
			if len(detail.Publications) != 2 {
				t.Errorf("publications = %d, want 2", len(detail.Publications))
			}
			if len(f.events.keys) != 1 || f.events.keys[0] != tt.wantEvent {
				t.Errorf("events = %v", f.events.keys)
			}
			if f.pubs.msgs[0].TextFor("vk") != "Для VK" || f.pubs.msgs[0].TextFor("telegram") != "База" {
				t.Errorf("message = %+v", f.pubs.msgs[0])
			}
		})
	}
}

func TestPublish_Preconditions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	draft, err := f.policy.CreatePost(ctx, editor, CreatePostInput{Title: "t", Content: "c", Platforms: []string{"vk"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.policy.PublishNow(ctx, admin, draft.ID); !errors.Is(err, entity.ErrPostNotPublishable) {
		t.Errorf("draft: err = %v", err)
	}

	noPlatforms := f.approvedPost(t)
	if _, err := f.policy.PublishNow(ctx, admin, noPlatforms.ID); !errors.Is(err, entity.ErrNoPlatforms) {
		t.Errorf("no platforms: err = %v", err)
	}
	if f.storedPost(t, noPlatforms.ID).Status != entity.PostStatusApproved {
		t.Error("rejected publish must not change status")
	}

	if _, err := f.policy.PublishNow(ctx, editor, noPlatforms.ID); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("editor: err = %v", err)
	}
	if _, err := f.policy.PublishNow(ctx, admin, "missing"); !errors.Is(err, entity.ErrPostNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if f.pubs.calls != 0 {
		t.Errorf("fan-out calls = %d", f.pubs.calls)
	}
}

func TestPublish_ConcurrentCallersDeliverOnce(t *testing.T) {
	f := newFixture()
	f.pubs.gate = make(chan struct{})
	post := f.approvedPost(t, "telegram")

	const callers = 5
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.policy.Publish(context.Background(), post.ID)
			errs <- err
		}()
	}

	// let the losers fail fast before releasing the winner
	time.Sleep(100 * time.Millisecond)
	close(f.pubs.gate)
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, entity.ErrStatusConflict), errors.Is(err, entity.ErrPostNotPublishable):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || f.pubs.calls != 1 {
		t.Errorf("successful callers = %d, fan-out calls = %d", ok, f.pubs.calls)
	}
}

func TestProcessScheduledPosts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.pubs.fail["vk"] = true

	past := time.Now().Add(-time.Minute)
	schedule := func(post *entity.Post, at time.Time) {
		t.Helper()
		if err := f.svc.ScheduleAt(ctx, post, at); err != nil {
			t.Fatal(err)
		}
	}

	ok := f.approvedPost(t, "telegram")
	schedule(ok, past)
	failing := f.approvedPost(t, "vk")
	schedule(failing, past.Add(time.Second))
	empty := f.approvedPost(t)
	schedule(empty, past.Add(2*time.Second))
	future := f.approvedPost(t, "telegram")
	schedule(future, time.Now().Add(time.Hour))

	summary, err := f.policy.ProcessScheduledPosts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := SweepSummary{Due: 3, Published: 1, Failed: 2}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}

	for id, status := range map[string]entity.PostStatus{
		ok.ID:      entity.PostStatusPublished,
		failing.ID: entity.PostStatusFailed,
		empty.ID:   entity.PostStatusFailed,
		future.ID:  entity.PostStatusScheduled,
	} {
		if got := f.storedPost(t, id).Status; got != status {
			t.Errorf("post %s status = %s, want %s", id, got, status)
		}
	}
	if f.metrics.sweeps != 1 {
		t.Errorf("sweeps = %d", f.metrics.sweeps)
	}

	// nothing is due anymore
	summary, _ = f.policy.ProcessScheduledPosts(ctx)
	if summary != (SweepSummary{}) {
		t.Errorf("second sweep = %+v", summary)
	}
}

// staleDue lists posts as due even after their stored status moved on
type staleDue struct {
	dao.PostRepository
	due []entity.Post
}

func (r *staleDue) ListDue(context.Context, time.Time) ([]entity.Post, error) {
	return r.due, nil
}

func TestProcessScheduledPosts_SkipsPostsThatMovedOn(t *testing.T) {
	m := dao.NewMemory()
	stale := &staleDue{PostRepository: m.Posts}
	f := newFixtureWith(service.New(stale, m.Publications, m.Platforms, m.Projects, m.Slots))
	ctx := context.Background()

	unscheduled, err := f.policy.CreatePost(ctx, editor, CreatePostInput{Title: "t", Content: "c", Platforms: []string{"telegram"}})
	if err != nil {
		t.Fatal(err)
	}
	claimed := f.approvedPost(t, "telegram")
	if err := f.svc.Transition(ctx, claimed, entity.PostStatusPublishing); err != nil {
		t.Fatal(err)
	}

	past := time.Now().Add(-time.Minute)
	for _, post := range []*entity.Post{unscheduled, claimed} {
		listed := *post
		listed.Status = entity.PostStatusScheduled
		listed.ScheduledAt = &past
		stale.due = append(stale.due, listed)
	}

	summary, err := f.policy.ProcessScheduledPosts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := (SweepSummary{Due: 2, Skipped: 2}); summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}

	for id, status := range map[string]entity.PostStatus{
		unscheduled.ID: entity.PostStatusDraft,
		claimed.ID:     entity.PostStatusPublishing,
	} {
		if got := f.storedPost(t, id).Status; got != status {
			t.Errorf("post %s status = %s, want %s", id, got, status)
		}
		pubs, err := f.svc.ListPublications(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if len(pubs) != 0 {
			t.Errorf("post %s publications = %+v", id, pubs)
		}
	}
	if f.pubs.calls != 0 {
		t.Errorf("publishers called %d times", f.pubs.calls)
	}
}

func TestScheduleAndDeferredJob(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	post := f.approvedPost(t, "telegram")

	if _, err := f.policy.Schedule(ctx, admin, post.ID, time.Now().Add(-time.Minute)); !errors.Is(err, entity.ErrScheduledTimeInPast) {
		t.Errorf("err = %v", err)
	}
	if _, err := f.policy.Schedule(ctx, editor, post.ID, time.Now().Add(time.Hour)); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("err = %v", err)
	}

	at := time.Now().Add(time.Hour)
	if _, err := f.policy.Schedule(ctx, admin, post.ID, at); err != nil {
		t.Fatal(err)
	}
	later := at.Add(time.Hour)
	if _, err := f.policy.Schedule(ctx, admin, post.ID, later); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !f.jobs.at[JobID(post.ID)].Equal(later) || len(f.jobs.jobs) != 1 {
		t.Errorf("jobs = %v", f.jobs.at)
	}

	f.jobs.jobs[JobID(post.ID)](ctx)
	if got := f.storedPost(t, post.ID).Status; got != entity.PostStatusPublished {
		t.Errorf("status = %s", got)
	}
	if f.jobs.has(JobID(post.ID)) {
		t.Error("job should be cancelled after publishing")
	}

	// a stale job run after publishing is a skip
	if _, err := f.policy.Publish(ctx, post.ID); !errors.Is(err, entity.ErrPostNotPublishable) {
		t.Errorf("err = %v", err)
	}
}

func TestUnschedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	post := f.approvedPost(t, "telegram")

	if _, err := f.policy.Schedule(ctx, admin, post.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, err := f.policy.Unschedule(ctx, admin, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.PostStatusApproved || got.ScheduledAt != nil || f.jobs.has(JobID(post.ID)) {
		t.Errorf("post = %+v, job = %v", got, f.jobs.has(JobID(post.ID)))
	}
}

func TestUpdatePost_ScheduleFieldOnApprovedPost(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	post := f.approvedPost(t, "telegram")
	at := time.Now().Add(time.Hour)

	if _, err := f.policy.UpdatePost(ctx, editor, UpdatePostInput{ID: post.ID, ScheduledAt: &at}); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("editor: err = %v, want ErrForbidden", err)
	}
	if got := f.storedPost(t, post.ID); got.Status != entity.PostStatusApproved || got.ScheduledAt != nil {
		t.Fatalf("editor changed the post: %+v", got)
	}

	past := time.Now().Add(-time.Minute)
	if _, err := f.policy.UpdatePost(ctx, admin, UpdatePostInput{ID: post.ID, ScheduledAt: &past}); !errors.Is(err, entity.ErrScheduledTimeInPast) {
		t.Errorf("past time: err = %v", err)
	}

	title := "Новый заголовок"
	got, err := f.policy.UpdatePost(ctx, admin, UpdatePostInput{ID: post.ID, Title: &title, ScheduledAt: &at})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.PostStatusScheduled || got.Title != title || !f.jobs.has(JobID(post.ID)) {
		t.Errorf("post = %+v, job = %v", got, f.jobs.has(JobID(post.ID)))
	}

	// the deferred job publishes it
	f.jobs.jobs[JobID(post.ID)](ctx)
	if status := f.storedPost(t, post.ID).Status; status != entity.PostStatusPublished {
		t.Errorf("status after job = %s", status)
	}
}

func TestUpdatePost_ClearScheduleOnScheduledPost(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	post := f.approvedPost(t, "telegram")

	if _, err := f.policy.Schedule(ctx, admin, post.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, err := f.policy.UpdatePost(ctx, admin, UpdatePostInput{ID: post.ID, ClearSchedule: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.PostStatusApproved || got.ScheduledAt != nil || f.jobs.has(JobID(post.ID)) {
		t.Errorf("post = %+v, job = %v", got, f.jobs.has(JobID(post.ID)))
	}

	if _, err := f.policy.PublishNow(ctx, admin, post.ID); err != nil {
		t.Fatal(err)
	}
	at := time.Now().Add(time.Hour)
	if _, err := f.policy.UpdatePost(ctx, admin, UpdatePostInput{ID: post.ID, ScheduledAt: &at}); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Errorf("published: err = %v, want ErrInvalidTransition", err)
	}
}

func TestApprove_WithFutureTimeSchedules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	post, err := f.policy.CreatePost(ctx, editor, CreatePostInput{Title: "t", Content: "c", Platforms: []string{"vk"}, Submit: true})
	if err != nil {
		t.Fatal(err)
	}
	at := time.Now().Add(2 * time.Hour)
	if _, err := f.policy.UpdatePost(ctx, editor, UpdatePostInput{ID: post.ID, ScheduledAt: &at}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.policy.Approve(ctx, editor, post.ID); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("err = %v", err)
	}
	got, err := f.policy.Approve(ctx, admin, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.PostStatusScheduled || !f.jobs.has(JobID(post.ID)) {
		t.Errorf("status = %s, job = %v", got.Status, f.jobs.has(JobID(post.ID)))
	}
	if _, err := f.policy.Approve(ctx, admin, post.ID); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Errorf("second approve: err = %v", err)
	}
}

func TestWorkflow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.policy.CreatePost(ctx, viewer, CreatePostInput{Title: "t", Content: "c"}); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("viewer create: err = %v", err)
	}

	post, err := f.policy.CreatePost(ctx, editor, CreatePostInput{Title: "t", Content: "c"})
	if err != nil {
		t.Fatal(err)
	}
	steps := []struct {
		name string
		do   func() (*entity.Post, error)
		want entity.PostStatus
	}{
		{"submit", func() (*entity.Post, error) { return f.policy.SubmitForReview(ctx, editor, post.ID) }, entity.PostStatusPending},
		{"reject", func() (*entity.Post, error) { return f.policy.Reject(ctx, admin, post.ID, "нет фото") }, entity.PostStatusRejected},
		{"draft", func() (*entity.Post, error) { return f.policy.ReturnToDraft(ctx, editor, post.ID) }, entity.PostStatusDraft},
		{"resubmit", func() (*entity.Post, error) { return f.policy.SubmitForReview(ctx, editor, post.ID) }, entity.PostStatusPending},
		{"approve", func() (*entity.Post, error) { return f.policy.Approve(ctx, admin, post.ID) }, entity.PostStatusApproved},
	}
	for _, s := range steps {
		got, err := s.do()
		if err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if got.Status != s.want {
			t.Fatalf("%s: status = %s, want %s", s.name, got.Status, s.want)
		}
	}
	if f.storedPost(t, post.ID).RejectionReason != "" {
		t.Error("rejection reason should be cleared after leaving rejected")
	}

	if _, err := f.policy.Reject(ctx, admin, post.ID, ""); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Errorf("reject approved: err = %v", err)
	}

	if _, err := f.policy.Schedule(ctx, admin, post.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := f.policy.DeletePost(ctx, editor, post.ID); err != nil {
		t.Fatal(err)
	}
	if f.jobs.has(JobID(post.ID)) {
		t.Error("delete should cancel the deferred job")
	}
}

func TestResyncScheduled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		post := f.approvedPost(t, "telegram")
		if _, err := f.policy.Schedule(ctx, admin, post.ID, time.Now().Add(time.Duration(i+1)*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	f.approvedPost(t, "vk")

	f.jobs = newFakeJobs()
	f.policy.jobs = f.jobs

	n, err := f.policy.ResyncScheduled(ctx)
	if err != nil || n != 3 || len(f.jobs.jobs) != 3 {
		t.Errorf("n = %d, jobs = %d, err = %v", n, len(f.jobs.jobs), err)
	}
}

func TestCreatePostFromProject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	project, err := f.policy.CreateProject(ctx, editor, service.ProjectInput{
		Title:     "Дача в Истре",
		PoolType:  entity.PoolTypeComposite,
		Size:      "8x4",
		Features:  "подсветка, противоток",
		MainImage: "https://img/main.jpg",
	})
	if err != nil {
		t.Fatal(err)
	}

	post, err := f.policy.CreatePostFromProject(ctx, editor, project.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "Проект: Дача в Истре" || post.Status != entity.PostStatusPending || post.Image != "https://img/main.jpg" {
		t.Errorf("post = %+v", post)
	}
	if post.Content != "generated Композитный" || f.content.fields["features"] != "подсветка, противоток" {
		t.Errorf("content = %q, fields = %v", post.Content, f.content.fields)
	}
	if len(post.Platforms) != 2 {
		t.Errorf("platforms = %v", post.Platforms)
	}

	if _, err := f.policy.CreatePostFromProject(ctx, editor, project.ID, false); !errors.Is(err, entity.ErrProjectAlreadyUsed) {
		t.Errorf("err = %v", err)
	}
}

// failingCreate rejects every insert
type failingCreate struct {
	dao.PostRepository
}

func (failingCreate) Create(context.Context, *entity.Post) error {
	return errors.New("insert failed")
}

func TestCreatePostFromProject_FailedInsertKeepsProjectFree(t *testing.T) {
	m := dao.NewMemory()
	f := newFixtureWith(service.New(failingCreate{m.Posts}, m.Publications, m.Platforms, m.Projects, m.Slots))
	ctx := context.Background()

	project, err := f.policy.CreateProject(ctx, editor, service.ProjectInput{Title: "Коттедж", PoolType: entity.PoolTypeComposite})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.policy.CreatePostFromProject(ctx, editor, project.ID, false); err == nil {
		t.Fatal("expected insert error")
	}

	stored, err := f.svc.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.IsPublished {
		t.Error("project should stay available after a failed insert")
	}
}

func TestCheckPlatformHealth(t *testing.T) {
	f := newFixture()
	f.pubs.health = map[string]bool{"telegram": true, "vk": false}

	got := f.policy.CheckPlatformHealth(context.Background())
	if !got["telegram"] || got["vk"] {
		t.Errorf("health = %v", got)
	}
	if f.metrics.platforms["vk"] || !f.metrics.platforms["telegram"] {
		t.Errorf("metrics = %v", f.metrics.platforms)
	}
	if len(f.events.keys) != 1 || f.events.keys[0] != EventPlatformHealth {
		t.Errorf("events = %v", f.events.keys)
	}

	statuses, err := f.policy.PlatformStatuses(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].Name != "telegram" || !statuses[0].Connected {
		t.Errorf("statuses = %+v", statuses)
	}
}

func TestCreatePlatformReloads(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.policy.CreatePlatform(ctx, editor, service.PlatformInput{Name: "vk"}); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("err = %v", err)
	}
	if _, err := f.policy.CreatePlatform(ctx, admin, service.PlatformInput{Name: "vk", IsActive: true, APIToken: "t", ChannelID: "1"}); err != nil {
		t.Fatal(err)
	}
	if len(f.pubs.loaded) != 1 || f.pubs.loaded[0].Name != "vk" {
		t.Errorf("loaded = %+v", f.pubs.loaded)
	}
}

func TestCalendar(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := time.Date(2031, time.March, 10, 12, 0, 0, 0, time.UTC)
	out := time.Date(2031, time.April, 1, 12, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{in, out} {
		post := f.approvedPost(t, "vk")
		if _, err := f.policy.Schedule(ctx, admin, post.ID, at); err != nil {
			t.Fatal(err)
		}
	}
	f.approvedPost(t, "vk")

	posts, err := f.policy.Calendar(ctx, 2031, time.March)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || !posts[0].ScheduledAt.Equal(in) {
		t.Errorf("posts = %+v", posts)
	}
	if _, err := f.policy.Calendar(ctx, 2031, 13); !errors.Is(err, entity.ErrInvalidMonth) {
		t.Errorf("err = %v", err)
	}
}

func TestNextSlots(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.policy.CreateSlot(ctx, admin, service.SlotInput{DayOfWeek: 0, TimeOfDay: "10:00"}); err != nil {
		t.Fatal(err)
	}
	slots, err := f.policy.NextSlots(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots", len(slots))
	}
	for i, s := range slots {
		if s.At.Weekday() != time.Monday || !s.At.After(time.Now()) {
			t.Errorf("slot %d = %v", i, s.At)
		}
	}
}
