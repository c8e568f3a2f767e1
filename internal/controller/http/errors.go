package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	userentity "github.com/vadim/poolsmm/internal/domain/user/entity"
	"github.com/vadim/poolsmm/internal/httpx/response"
	"github.com/vadim/poolsmm/internal/storage"
)

// handleDomainError maps domain errors to HTTP responses
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrPostNotFound),
		errors.Is(err, entity.ErrPlatformNotFound),
		errors.Is(err, entity.ErrProjectNotFound),
		errors.Is(err, entity.ErrSlotNotFound),
		errors.Is(err, userentity.ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrEmptyTitle),
		errors.Is(err, entity.ErrEmptyContent),
		errors.Is(err, entity.ErrInvalidCategory),
		errors.Is(err, entity.ErrInvalidStatus),
		errors.Is(err, entity.ErrInvalidPlatform),
		errors.Is(err, entity.ErrNoPlatforms),
		errors.Is(err, entity.ErrScheduledTimeInPast),
		errors.Is(err, entity.ErrInvalidSlot),
		errors.Is(err, entity.ErrInvalidPoolType),
		errors.Is(err, entity.ErrInvalidMonth),
		errors.Is(err, entity.ErrNoSlots),
		errors.Is(err, storage.ErrUnsupportedType):
		response.BadRequest(w, err.Error())
	case errors.Is(err, entity.ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, entity.ErrPostNotEditable),
		errors.Is(err, entity.ErrPostNotDeletable),
		errors.Is(err, entity.ErrPostNotPublishable),
		errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrStatusConflict),
		errors.Is(err, entity.ErrPlatformExists),
		errors.Is(err, entity.ErrProjectAlreadyUsed),
		errors.Is(err, entity.ErrSlotExists):
		response.Conflict(w, err.Error())
	default:
		slog.Error("request failed", "error", err)
		response.InternalError(w, "internal server error")
	}
}
