package entity

import (
	"errors"
	"strconv"
	"strings"
	"time"

	postentity "github.com/vadim/poolsmm/internal/domain/post/entity"
)

// Status is the access state of a bot user
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// Domain errors for users
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidRole   = errors.New("role must be admin, editor or viewer")
	ErrNameTooShort  = errors.New("full name is too short")
	ErrAlreadyActive = errors.New("user is already registered")
	ErrBlocked       = errors.New("user is blocked")
)

// User is a Telegram account allowed to operate the bot
type User struct {
	TelegramID int64           `json:"telegram_id"`
	Username   string          `json:"username"`
	FullName   string          `json:"full_name"`
	Position   string          `json:"position"`
	Role       postentity.Role `json:"role"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ApprovedAt *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy int64           `json:"approved_by,omitempty"`
}

// IsActive returns true for approved, non-blocked users
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// IsAdmin returns true for active administrators
func (u *User) IsAdmin() bool {
	return u.IsActive() && u.Role == postentity.RoleAdmin
}

// CanPublish returns true if the user may approve, schedule and publish
func (u *User) CanPublish() bool {
	return u.IsAdmin()
}

// CanCreatePosts returns true if the user may write posts
func (u *User) CanCreatePosts() bool {
	return u.IsActive() && (u.Role == postentity.RoleAdmin || u.Role == postentity.RoleEditor)
}

// CanView returns true if the user may read posts
func (u *User) CanView() bool {
	return u.IsActive()
}

// DisplayName returns the best available human name
func (u *User) DisplayName() string {
	switch {
	case strings.TrimSpace(u.FullName) != "":
		return u.FullName
	case u.Username != "":
		return "@" + u.Username
	default:
		return strconv.FormatInt(u.TelegramID, 10)
	}
}

// Actor maps the user to a workflow principal. Inactive users get no role.
func (u *User) Actor() postentity.Actor {
	a := postentity.Actor{
		ID:   "tg:" + strconv.FormatInt(u.TelegramID, 10),
		Name: u.DisplayName(),
	}
	if u.IsActive() {
		a.Role = u.Role
	}
	return a
}

// RoleLabel returns the Russian role name
func RoleLabel(r postentity.Role) string {
	switch r {
	case postentity.RoleAdmin:
		return "👑 Администратор"
	case postentity.RoleEditor:
		return "✏️ Редактор"
	case postentity.RoleViewer:
		return "👁️ Наблюдатель"
	default:
		return string(r)
	}
}

// Emoji returns the status marker used in user lists
func (s Status) Emoji() string {
	switch s {
	case StatusPending:
		return "⏳"
	case StatusActive:
		return "✅"
	case StatusBlocked:
		return "🚫"
	default:
		return "❓"
	}
}
