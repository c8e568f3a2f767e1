package entity

import (
	"strings"
	"time"
)

// Supported platform names
const (
	PlatformTelegram = "telegram"
	PlatformVK       = "vk"
)

// IsKnownPlatform reports whether the name is a supported platform
func IsKnownPlatform(name string) bool {
	return name == PlatformTelegram || name == PlatformVK
}

// Platform holds the credentials and destination of a social network
type Platform struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	APIToken    string    `json:"-"`
	ChannelID   string    `json:"channel_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasCredentials returns true if both token and destination are set
func (p *Platform) HasCredentials() bool {
	return strings.TrimSpace(p.APIToken) != "" && strings.TrimSpace(p.ChannelID) != ""
}

// Usable returns true if a publisher can be built for the platform
func (p *Platform) Usable() bool {
	return p.IsActive && p.HasCredentials()
}

// Validate validates the platform fields
func (p *Platform) Validate() error {
	if !IsKnownPlatform(p.Name) {
		return ErrInvalidPlatform
	}
	return nil
}

// PublicationStatus is the outcome of a single platform delivery
type PublicationStatus string

const (
	PublicationStatusSuccess PublicationStatus = "success"
	PublicationStatusFailed  PublicationStatus = "failed"
	PublicationStatusPending PublicationStatus = "pending"
)

// Publication is an append-only record of one delivery attempt
type Publication struct {
	ID           string            `json:"id"`
	PostID       string            `json:"post_id"`
	Platform     string            `json:"platform"`
	Status       PublicationStatus `json:"status"`
	ExternalID   string            `json:"external_id,omitempty"`
	ExternalURL  string            `json:"external_url,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	PublishedAt  time.Time         `json:"published_at"`
}
