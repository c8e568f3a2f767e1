package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/poolsmm/internal/domain/post/dao"
	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// PlatformInput represents input for creating a platform
type PlatformInput struct {
	Name        string
	DisplayName string
	IsActive    bool
	APIToken    string
	ChannelID   string
}

// CreatePlatform stores a new platform configuration
func (s *Service) CreatePlatform(ctx context.Context, in PlatformInput) (*entity.Platform, error) {
	name := strings.ToLower(strings.TrimSpace(in.Name))

	existing, err := s.platforms.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, entity.ErrPlatformExists
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName(name)
	}

	now := s.now()
	p := &entity.Platform{
		ID:          uuid.New().String(),
		Name:        name,
		DisplayName: displayName,
		IsActive:    in.IsActive,
		APIToken:    strings.TrimSpace(in.APIToken),
		ChannelID:   strings.TrimSpace(in.ChannelID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.platforms.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func defaultDisplayName(name string) string {
	switch name {
	case entity.PlatformTelegram:
		return "Telegram"
	case entity.PlatformVK:
		return "ВКонтакте"
	default:
		return name
	}
}

// GetPlatform retrieves a platform by ID
func (s *Service) GetPlatform(ctx context.Context, id string) (*entity.Platform, error) {
	p, err := s.platforms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, entity.ErrPlatformNotFound
	}
	return p, nil
}

// PlatformUpdate represents a partial platform update
type PlatformUpdate struct {
	ID          string
	DisplayName *string
	IsActive    *bool
	APIToken    *string
	ChannelID   *string
}

// UpdatePlatform changes a platform configuration
func (s *Service) UpdatePlatform(ctx context.Context, in PlatformUpdate) (*entity.Platform, error) {
	p, err := s.GetPlatform(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.APIToken != nil {
		p.APIToken = strings.TrimSpace(*in.APIToken)
	}
	if in.ChannelID != nil {
		p.ChannelID = strings.TrimSpace(*in.ChannelID)
	}
	p.UpdatedAt = s.now()

	if err := s.platforms.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlatforms returns stored platforms
func (s *Service) ListPlatforms(ctx context.Context, activeOnly bool) ([]entity.Platform, error) {
	return s.platforms.List(ctx, activeOnly)
}

// UsablePlatformNames returns the names of active platforms with credentials
func (s *Service) UsablePlatformNames(ctx context.Context) ([]string, error) {
	platforms, err := s.platforms.List(ctx, true)
	if err != nil {
		return nil, err
	}
	var names []string
	for i := range platforms {
		if platforms[i].Usable() {
			names = append(names, platforms[i].Name)
		}
	}
	return names, nil
}

// ProjectInput represents input for creating a project
type ProjectInput struct {
	Title       string
	PoolType    entity.PoolType
	Size        string
	Features    string
	Location    string
	Description string
	Images      []string
	MainImage   string
	SourceURL   string
}

// CreateProject stores source material for project posts
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (*entity.ProjectData, error) {
	mainImage := strings.TrimSpace(in.MainImage)
	if mainImage == "" && len(in.Images) > 0 {
		mainImage = in.Images[0]
	}

	now := s.now()
	p := &entity.ProjectData{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		PoolType:    in.PoolType,
		Size:        strings.TrimSpace(in.Size),
		Features:    strings.TrimSpace(in.Features),
		Location:    strings.TrimSpace(in.Location),
		Description: strings.TrimSpace(in.Description),
		Images:      in.Images,
		MainImage:   mainImage,
		SourceURL:   strings.TrimSpace(in.SourceURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject retrieves a project by ID
func (s *Service) GetProject(ctx context.Context, id string) (*entity.ProjectData, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, entity.ErrProjectNotFound
	}
	return p, nil
}

// ListProjects returns projects, optionally only those not yet used for a post
func (s *Service) ListProjects(ctx context.Context, onlyUnpublished bool, opts dao.ListOptions) ([]entity.ProjectData, error) {
	return s.projects.List(ctx, onlyUnpublished, opts)
}

// MarkProjectPublished flags the project as used. ErrProjectAlreadyUsed is
// returned when another caller flagged it first.
func (s *Service) MarkProjectPublished(ctx context.Context, id string) error {
	changed, err := s.projects.MarkPublished(ctx, id)
	if err != nil {
		return err
	}
	if !changed {
		return entity.ErrProjectAlreadyUsed
	}
	return nil
}

// SlotInput represents input for creating a schedule slot
type SlotInput struct {
	DayOfWeek         int
	TimeOfDay         string
	Platforms         []string
	PreferredCategory entity.Category
}

// CreateSlot stores a new weekly publication time
func (s *Service) CreateSlot(ctx context.Context, in SlotInput) (*entity.ScheduleSlot, error) {
	platforms, err := entity.NormalizePlatforms(in.Platforms)
	if err != nil {
		return nil, err
	}

	slot := &entity.ScheduleSlot{
		ID:                uuid.New().String(),
		DayOfWeek:         in.DayOfWeek,
		TimeOfDay:         strings.TrimSpace(in.TimeOfDay),
		IsActive:          true,
		Platforms:         platforms,
		PreferredCategory: in.PreferredCategory,
	}
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	// normalize "9:00" to "09:00" so the unique key matches
	hour, minute, _ := slot.Clock()
	slot.TimeOfDay = time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")

	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// ListSlots returns schedule slots
func (s *Service) ListSlots(ctx context.Context, activeOnly bool) ([]entity.ScheduleSlot, error) {
	return s.slots.List(ctx, activeOnly)
}

// DeleteSlot removes a schedule slot
func (s *Service) DeleteSlot(ctx context.Context, id string) error {
	return s.slots.Delete(ctx, id)
}

// NextSlots returns the next n occurrences of active slots after from
func (s *Service) NextSlots(ctx context.Context, from time.Time, n int) ([]entity.SlotTime, error) {
	slots, err := s.slots.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, entity.ErrNoSlots
	}
	return entity.NextSlotTimes(slots, from, n), nil
}
