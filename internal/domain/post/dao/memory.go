package dao

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// Memory is an in-process store used when no database is configured and in tests
type Memory struct {
	Posts        *PostMemory
	Publications *PublicationMemory
	Platforms    *PlatformMemory
	Projects     *ProjectMemory
	Slots        *SlotMemory
}

type memoryState struct {
	mu           sync.RWMutex
	posts        map[string]entity.Post
	publications []entity.Publication
	platforms    map[string]entity.Platform
	projects     map[string]entity.ProjectData
	slots        map[string]entity.ScheduleSlot
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	st := &memoryState{
		posts:     make(map[string]entity.Post),
		platforms: make(map[string]entity.Platform),
		projects:  make(map[string]entity.ProjectData),
		slots:     make(map[string]entity.ScheduleSlot),
	}
	return &Memory{
		Posts:        &PostMemory{st},
		Publications: &PublicationMemory{st},
		Platforms:    &PlatformMemory{st},
		Projects:     &ProjectMemory{st},
		Slots:        &SlotMemory{st},
	}
}

// PostMemory implements PostRepository in memory
type PostMemory struct{ st *memoryState }

func clonePost(p entity.Post) entity.Post {
	p.Platforms = append([]string(nil), p.Platforms...)
	if p.ScheduledAt != nil {
		t := *p.ScheduledAt
		p.ScheduledAt = &t
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		p.PublishedAt = &t
	}
	return p
}

func (r *PostMemory) Create(_ context.Context, p *entity.Post) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.posts[p.ID] = clonePost(*p)
	return nil
}

func (r *PostMemory) GetByID(_ context.Context, id string) (*entity.Post, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	p, ok := r.st.posts[id]
	if !ok {
		return nil, nil
	}
	c := clonePost(p)
	return &c, nil
}

func (r *PostMemory) Update(_ context.Context, p *entity.Post) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.posts[p.ID]
	if !ok {
		return entity.ErrPostNotFound
	}
	next := clonePost(*p)
	// status fields are owned by UpdateStatus
	next.Status = cur.Status
	next.PublishedAt = cur.PublishedAt
	next.Delivery = cur.Delivery
	next.RejectionReason = cur.RejectionReason
	r.st.posts[p.ID] = next
	return nil
}

func (r *PostMemory) UpdateStatus(_ context.Context, p *entity.Post, from entity.PostStatus) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.posts[p.ID]
	if !ok || cur.Status != from {
		return entity.ErrStatusConflict
	}
	c := clonePost(*p)
	cur.Status = c.Status
	cur.ScheduledAt = c.ScheduledAt
	cur.PublishedAt = c.PublishedAt
	cur.Delivery = c.Delivery
	cur.RejectionReason = c.RejectionReason
	cur.UpdatedAt = c.UpdatedAt
	r.st.posts[p.ID] = cur
	return nil
}

func (r *PostMemory) Delete(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	delete(r.st.posts, id)
	kept := r.st.publications[:0]
	for _, pub := range r.st.publications {
		if pub.PostID != id {
			kept = append(kept, pub)
		}
	}
	r.st.publications = kept
	return nil
}

func (r *PostMemory) matching(filter PostFilter) []entity.Post {
	var out []entity.Post
	for _, p := range r.st.posts {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && p.Category != *filter.Category {
			continue
		}
		at := postAnchor(p)
		if filter.From != nil && at.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !at.Before(*filter.To) {
			continue
		}
		out = append(out, clonePost(p))
	}
	return out
}

func postAnchor(p entity.Post) time.Time {
	switch {
	case p.ScheduledAt != nil:
		return *p.ScheduledAt
	case p.PublishedAt != nil:
		return *p.PublishedAt
	default:
		return p.CreatedAt
	}
}

func (r *PostMemory) List(_ context.Context, filter PostFilter, opts ListOptions) ([]entity.Post, error) {
	r.st.mu.RLock()
	posts := r.matching(filter)
	r.st.mu.RUnlock()

	key := func(p entity.Post) time.Time {
		switch opts.SortBy {
		case "scheduled_at":
			if p.ScheduledAt != nil {
				return *p.ScheduledAt
			}
			return time.Time{}
		case "updated_at":
			return p.UpdatedAt
		case "published_at":
			if p.PublishedAt != nil {
				return *p.PublishedAt
			}
			return time.Time{}
		default:
			return p.CreatedAt
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if opts.Desc {
			return key(posts[i]).After(key(posts[j]))
		}
		return key(posts[i]).Before(key(posts[j]))
	})

	return paginate(posts, opts), nil
}

func (r *PostMemory) Count(_ context.Context, filter PostFilter) (int64, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	return int64(len(r.matching(filter))), nil
}

func (r *PostMemory) ListDue(_ context.Context, now time.Time) ([]entity.Post, error) {
	r.st.mu.RLock()
	var due []entity.Post
	for _, p := range r.st.posts {
		if p.Status == entity.PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now) {
			due = append(due, clonePost(p))
		}
	}
	r.st.mu.RUnlock()

	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(*due[j].ScheduledAt) })
	return due, nil
}

func (r *PostMemory) GetStatistics(_ context.Context) (*entity.PostStatistics, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	stats := &entity.PostStatistics{ByStatus: make(map[entity.PostStatus]int64)}
	for _, p := range r.st.posts {
		stats.ByStatus[p.Status]++
		stats.Total++
		if p.Delivery == entity.DeliveryPartial {
			stats.PartiallySent++
		}
	}
	for _, pub := range r.st.publications {
		stats.Publications++
		if pub.Status == entity.PublicationStatusFailed {
			stats.FailedDelivery++
		}
	}
	return stats, nil
}

// PublicationMemory implements PublicationRepository in memory
type PublicationMemory struct{ st *memoryState }

func (r *PublicationMemory) Create(_ context.Context, pub *entity.Publication) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.publications = append(r.st.publications, *pub)
	return nil
}

func (r *PublicationMemory) ListByPost(_ context.Context, postID string) ([]entity.Publication, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []entity.Publication
	for i := len(r.st.publications) - 1; i >= 0; i-- {
		if r.st.publications[i].PostID == postID {
			out = append(out, r.st.publications[i])
		}
	}
	return out, nil
}

func (r *PublicationMemory) ListRecent(_ context.Context, limit int) ([]entity.Publication, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []entity.Publication
	for i := len(r.st.publications) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.st.publications[i])
	}
	return out, nil
}

func (r *PublicationMemory) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var removed int64
	kept := r.st.publications[:0]
	for _, pub := range r.st.publications {
		if pub.PublishedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, pub)
	}
	r.st.publications = kept
	return removed, nil
}

// PlatformMemory implements PlatformRepository in memory
type PlatformMemory struct{ st *memoryState }

func (r *PlatformMemory) Create(_ context.Context, p *entity.Platform) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.platforms {
		if existing.Name == p.Name {
			return entity.ErrPlatformExists
		}
	}
	r.st.platforms[p.ID] = *p
	return nil
}

func (r *PlatformMemory) GetByID(_ context.Context, id string) (*entity.Platform, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	p, ok := r.st.platforms[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *PlatformMemory) GetByName(_ context.Context, name string) (*entity.Platform, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	for _, p := range r.st.platforms {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *PlatformMemory) Update(_ context.Context, p *entity.Platform) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.platforms[p.ID]; !ok {
		return entity.ErrPlatformNotFound
	}
	r.st.platforms[p.ID] = *p
	return nil
}

func (r *PlatformMemory) List(_ context.Context, activeOnly bool) ([]entity.Platform, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []entity.Platform
	for _, p := range r.st.platforms {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ProjectMemory implements ProjectRepository in memory
type ProjectMemory struct{ st *memoryState }

func (r *ProjectMemory) Create(_ context.Context, p *entity.ProjectData) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.projects[p.ID] = *p
	return nil
}

func (r *ProjectMemory) GetByID(_ context.Context, id string) (*entity.ProjectData, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	p, ok := r.st.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProjectMemory) List(_ context.Context, onlyUnpublished bool, opts ListOptions) ([]entity.ProjectData, error) {
	r.st.mu.RLock()
	var out []entity.ProjectData
	for _, p := range r.st.projects {
		if onlyUnpublished && p.IsPublished {
			continue
		}
		out = append(out, p)
	}
	r.st.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, opts), nil
}

func (r *ProjectMemory) MarkPublished(_ context.Context, id string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.projects[id]
	if !ok || p.IsPublished {
		return false, nil
	}
	p.IsPublished = true
	p.UpdatedAt = time.Now()
	r.st.projects[id] = p
	return true, nil
}

// SlotMemory implements SlotRepository in memory
type SlotMemory struct{ st *memoryState }

func (r *SlotMemory) Create(_ context.Context, s *entity.ScheduleSlot) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.slots {
		if existing.DayOfWeek == s.DayOfWeek && existing.TimeOfDay == s.TimeOfDay {
			return entity.ErrSlotExists
		}
	}
	r.st.slots[s.ID] = *s
	return nil
}

func (r *SlotMemory) GetByID(_ context.Context, id string) (*entity.ScheduleSlot, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	s, ok := r.st.slots[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *SlotMemory) List(_ context.Context, activeOnly bool) ([]entity.ScheduleSlot, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []entity.ScheduleSlot
	for _, s := range r.st.slots {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].TimeOfDay < out[j].TimeOfDay
	})
	return out, nil
}

func (r *SlotMemory) Delete(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.slots[id]; !ok {
		return entity.ErrSlotNotFound
	}
	delete(r.st.slots, id)
	return nil
}

func paginate[T any](items []T, opts ListOptions) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}
