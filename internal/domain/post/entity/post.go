package entity

import (
	"strings"
	"time"
)

// Category represents the content category of a post
type Category string

const (
	CategoryProject Category = "project"
	CategoryTip     Category = "tip"
	CategoryPromo   Category = "promo"
	CategoryCase    Category = "case"
	CategoryEdu     Category = "edu"
	CategoryNews    Category = "news"
)

// Categories lists all known categories
func Categories() []Category {
	return []Category{CategoryProject, CategoryTip, CategoryPromo, CategoryCase, CategoryEdu, CategoryNews}
}

// IsValid returns true for known categories
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the display name of the category
func (c Category) Label() string {
	switch c {
	case CategoryProject:
		return "🏊 Новый проект"
	case CategoryTip:
		return "💡 Полезный совет"
	case CategoryPromo:
		return "🎁 Акция/Скидка"
	case CategoryCase:
		return "📸 Кейс/Отзыв"
	case CategoryEdu:
		return "📚 Образовательный"
	case CategoryNews:
		return "📰 Новости компании"
	default:
		return string(c)
	}
}

// Post represents a social media post and its workflow state
type Post struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	ContentTelegram string     `json:"content_telegram,omitempty"`
	ContentVK       string     `json:"content_vk,omitempty"`
	Image           string     `json:"image,omitempty"` // local path or http(s) URL
	Category        Category   `json:"category"`
	Status          PostStatus `json:"status"`
	Platforms       []string   `json:"platforms"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	AIGenerated     bool       `json:"ai_generated"`
	AIPromptUsed    string     `json:"ai_prompt_used,omitempty"`
	Delivery        Delivery   `json:"delivery,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedBy       string     `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
}

// ContentFor returns the text to publish on the given platform
func (p *Post) ContentFor(platform string) string {
	switch platform {
	case PlatformTelegram:
		if strings.TrimSpace(p.ContentTelegram) != "" {
			return p.ContentTelegram
		}
	case PlatformVK:
		if strings.TrimSpace(p.ContentVK) != "" {
			return p.ContentVK
		}
	}
	return p.Content
}

// Overrides returns the non-empty per-platform texts
func (p *Post) Overrides() map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(p.ContentTelegram) != "" {
		out[PlatformTelegram] = p.ContentTelegram
	}
	if strings.TrimSpace(p.ContentVK) != "" {
		out[PlatformVK] = p.ContentVK
	}
	return out
}

// IsEditable returns true if the post content can be changed
func (p *Post) IsEditable() bool {
	switch p.Status {
	case PostStatusDraft, PostStatusPending, PostStatusApproved, PostStatusRejected, PostStatusFailed:
		return true
	default:
		return false
	}
}

// IsDeletable returns true if the post can be removed
func (p *Post) IsDeletable() bool {
	return p.Status != PostStatusPublishing
}

// HasPlatform reports whether the post targets the platform
func (p *Post) HasPlatform(name string) bool {
	for _, n := range p.Platforms {
		if n == name {
			return true
		}
	}
	return false
}

// TransitionTo moves the post to a new status, keeping published_at and
// delivery consistent with it.
func (p *Post) TransitionTo(to PostStatus, now time.Time) error {
	if !CanTransition(p.Status, to) {
		return ErrInvalidTransition
	}

	p.Status = to
	p.UpdatedAt = now

	switch to {
	case PostStatusPublished:
		p.PublishedAt = &now
		if p.Delivery == DeliveryNone {
			p.Delivery = DeliveryFull
		}
	default:
		p.PublishedAt = nil
		p.Delivery = DeliveryNone
	}

	if to != PostStatusRejected {
		p.RejectionReason = ""
	}

	return nil
}

// MarkPublished finishes a publish attempt with the given delivery
func (p *Post) MarkPublished(delivery Delivery, now time.Time) error {
	p.Delivery = delivery
	if err := p.TransitionTo(PostStatusPublished, now); err != nil {
		p.Delivery = DeliveryNone
		return err
	}
	return nil
}

// Validate validates the post fields
func (p *Post) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(p.Content) == "" {
		return ErrEmptyContent
	}
	if !p.Category.IsValid() {
		return ErrInvalidCategory
	}
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	for _, name := range p.Platforms {
		if !IsKnownPlatform(name) {
			return ErrInvalidPlatform
		}
	}
	return nil
}

// NormalizePlatforms lowercases, validates and de-duplicates platform names
func NormalizePlatforms(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		if !IsKnownPlatform(n) {
			return nil, ErrInvalidPlatform
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}
