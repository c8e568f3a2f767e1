package entity

import "errors"

// Domain errors for posts
var (
	// Validation errors
	ErrEmptyTitle          = errors.New("title is required")
	ErrEmptyContent        = errors.New("content is required")
	ErrInvalidCategory     = errors.New("invalid post category")
	ErrInvalidStatus       = errors.New("invalid post status")
	ErrInvalidPlatform     = errors.New("invalid platform name")
	ErrNoPlatforms         = errors.New("at least one platform must be selected")
	ErrScheduledTimeInPast = errors.New("scheduled time must be in the future")
	ErrInvalidSlot         = errors.New("invalid schedule slot")
	ErrInvalidPoolType     = errors.New("invalid pool type")
	ErrInvalidMonth        = errors.New("month must be 1..12")

	// Business logic errors
	ErrPostNotFound       = errors.New("post not found")
	ErrPostNotEditable    = errors.New("post cannot be edited in current status")
	ErrPostNotDeletable   = errors.New("post cannot be deleted while publishing")
	ErrPostNotPublishable = errors.New("post is not approved or scheduled")
	ErrInvalidTransition  = errors.New("status transition is not allowed")
	ErrStatusConflict     = errors.New("post status was changed concurrently")
	ErrForbidden          = errors.New("action is not allowed for this user")

	ErrPlatformNotFound   = errors.New("platform not found")
	ErrPlatformExists     = errors.New("platform with this name already exists")
	ErrProjectNotFound    = errors.New("project not found")
	ErrProjectAlreadyUsed = errors.New("a post has already been created from this project")
	ErrSlotNotFound       = errors.New("schedule slot not found")
	ErrSlotExists         = errors.New("schedule slot for this day and time already exists")
	ErrNoSlots            = errors.New("no active schedule slots")
)
