package policy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vadim/poolsmm/internal/domain/post/dao"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/post/service"
)

// CleanupPublications deletes delivery log rows older than retention
func (p *Policy) CleanupPublications(ctx context.Context, retention time.Duration) (int64, error) {
	removed, err := p.svc.CleanupPublications(ctx, retention)
	if err != nil {
		return 0, fmt.Errorf("cleaning up publications: %w", err)
	}
	p.logger.Info("old publications removed", "count", removed, "retention", retention)
	return removed, nil
}

// HealthEvent is the payload of platform health events
type HealthEvent struct {
	Platforms map[string]bool `json:"platforms"`
	Timestamp time.Time       `json:"timestamp"`
}

// CheckPlatformHealth tests every registered publisher
func (p *Policy) CheckPlatformHealth(ctx context.Context) map[string]bool {
	status := p.publishers.TestAllConnections(ctx)
	for name, ok := range status {
		if p.metrics != nil {
			p.metrics.PlatformUp(name, ok)
		}
		if !ok {
			p.logger.Warn("platform unreachable", "platform", name)
		}
	}
	p.emit(ctx, EventPlatformHealth, HealthEvent{Platforms: status, Timestamp: p.now()})
	return status
}

// PlatformStatus is a platform with its live connectivity
type PlatformStatus struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	IsActive    bool   `json:"is_active"`
	Connected   bool   `json:"connected"`
}

// PlatformStatuses reports configured platforms and whether their publishers respond
func (p *Policy) PlatformStatuses(ctx context.Context) ([]PlatformStatus, error) {
	stored, err := p.platformRows(ctx)
	if err != nil {
		return nil, err
	}
	conn := p.publishers.TestAllConnections(ctx)

	out := make([]PlatformStatus, 0, len(stored))
	for _, pl := range stored {
		out = append(out, PlatformStatus{
			Name:        pl.Name,
			DisplayName: pl.DisplayName,
			IsActive:    pl.IsActive,
			Connected:   conn[pl.Name],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// platformRows returns stored platforms, or the fallback when none are stored
func (p *Policy) platformRows(ctx context.Context) ([]entity.Platform, error) {
	stored, err := p.svc.ListPlatforms(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return p.fallback, nil
	}
	return stored, nil
}

// ReloadPublishers rebuilds the publisher set from platform configuration
func (p *Policy) ReloadPublishers(ctx context.Context) ([]string, error) {
	if p.factory == nil {
		return p.publishers.Names(), nil
	}
	rows, err := p.platformRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading platforms: %w", err)
	}
	names := p.publishers.Load(rows, p.factory)
	p.logger.Info("publishers loaded", "platforms", names)
	return names, nil
}

// ListPlatforms returns stored platform configuration
func (p *Policy) ListPlatforms(ctx context.Context) ([]entity.Platform, error) {
	platforms, err := p.svc.ListPlatforms(ctx, false)
	if err != nil {
		return nil, err
	}
	if platforms == nil {
		platforms = []entity.Platform{}
	}
	return platforms, nil
}

// CreatePlatform stores a platform and reloads publishers
func (p *Policy) CreatePlatform(ctx context.Context, actor entity.Actor, in service.PlatformInput) (*entity.Platform, error) {
	if !actor.CanPublish() {
		return nil, entity.ErrForbidden
	}
	pl, err := p.svc.CreatePlatform(ctx, in)
	if err != nil {
		return nil, err
	}
	p.reload(ctx)
	return pl, nil
}

// UpdatePlatform changes a platform and reloads publishers
func (p *Policy) UpdatePlatform(ctx context.Context, actor entity.Actor, in service.PlatformUpdate) (*entity.Platform, error) {
	if !actor.CanPublish() {
		return nil, entity.ErrForbidden
	}
	pl, err := p.svc.UpdatePlatform(ctx, in)
	if err != nil {
		return nil, err
	}
	p.reload(ctx)
	return pl, nil
}

func (p *Policy) reload(ctx context.Context) {
	if _, err := p.ReloadPublishers(ctx); err != nil {
		p.logger.Error("failed to reload publishers", "error", err)
	}
}

// CreateProject stores project source material
func (p *Policy) CreateProject(ctx context.Context, actor entity.Actor, in service.ProjectInput) (*entity.ProjectData, error) {
	if !actor.CanCreatePosts() {
		return nil, entity.ErrForbidden
	}
	return p.svc.CreateProject(ctx, in)
}

// GetProject returns a project
func (p *Policy) GetProject(ctx context.Context, id string) (*entity.ProjectData, error) {
	return p.svc.GetProject(ctx, id)
}

// ListProjects returns projects, optionally only unused ones
func (p *Policy) ListProjects(ctx context.Context, onlyUnpublished bool, limit, offset int) ([]entity.ProjectData, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	projects, err := p.svc.ListProjects(ctx, onlyUnpublished, dao.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []entity.ProjectData{}
	}
	return projects, nil
}

// CreateSlot stores a weekly publication time
func (p *Policy) CreateSlot(ctx context.Context, actor entity.Actor, in service.SlotInput) (*entity.ScheduleSlot, error) {
	if !actor.CanPublish() {
		return nil, entity.ErrForbidden
	}
	return p.svc.CreateSlot(ctx, in)
}

// DeleteSlot removes a weekly publication time
func (p *Policy) DeleteSlot(ctx context.Context, actor entity.Actor, id string) error {
	if !actor.CanPublish() {
		return entity.ErrForbidden
	}
	return p.svc.DeleteSlot(ctx, id)
}

// ListSlots returns all schedule slots
func (p *Policy) ListSlots(ctx context.Context) ([]entity.ScheduleSlot, error) {
	slots, err := p.svc.ListSlots(ctx, false)
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []entity.ScheduleSlot{}
	}
	return slots, nil
}

// NextSlots suggests the next n publication times in the policy timezone
func (p *Policy) NextSlots(ctx context.Context, n int) ([]entity.SlotTime, error) {
	if n <= 0 {
		n = 3
	}
	if n > 50 {
		n = 50
	}
	return p.svc.NextSlots(ctx, p.now().In(p.loc), n)
}
