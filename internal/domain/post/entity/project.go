package entity

import (
	"strings"
	"time"
)

// PoolType is the construction type of a pool
type PoolType string

const (
	PoolTypeConcrete   PoolType = "concrete"
	PoolTypeComposite  PoolType = "composite"
	PoolTypeFrame      PoolType = "frame"
	PoolTypeInflatable PoolType = "inflatable"
	PoolTypeIndoor     PoolType = "indoor"
	PoolTypeOutdoor    PoolType = "outdoor"
)

// Label returns the Russian display name of the pool type
func (t PoolType) Label() string {
	switch t {
	case PoolTypeConcrete:
		return "Бетонный"
	case PoolTypeComposite:
		return "Композитный"
	case PoolTypeFrame:
		return "Каркасный"
	case PoolTypeInflatable:
		return "Надувной"
	case PoolTypeIndoor:
		return "Крытый"
	case PoolTypeOutdoor:
		return "Открытый"
	default:
		return string(t)
	}
}

// IsValid returns true for known pool types
func (t PoolType) IsValid() bool {
	return t.Label() != string(t)
}

// ProjectData is source material for generated project posts
type ProjectData struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PoolType    PoolType  `json:"pool_type"`
	Size        string    `json:"size"`
	Features    string    `json:"features"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	MainImage   string    `json:"main_image,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FeaturesList splits the comma separated features
func (p *ProjectData) FeaturesList() []string {
	if strings.TrimSpace(p.Features) == "" {
		return nil
	}
	parts := strings.Split(p.Features, ",")
	out := make([]string, 0, len(parts))
	for _, f := range parts {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate validates the project fields
func (p *ProjectData) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if !p.PoolType.IsValid() {
		return ErrInvalidPoolType
	}
	return nil
}
