package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/httpx/response"
	"github.com/vadim/poolsmm/internal/storage"
)

// MaxUploadSize is the largest accepted image (10MB, the Telegram photo limit)
const MaxUploadSize = 10 << 20

// ImageUploader stores post images
type ImageUploader interface {
	Upload(ctx context.Context, in storage.UploadInput) (*storage.UploadOutput, error)
}

// MediaHandler handles image uploads
type MediaHandler struct {
	uploader ImageUploader
	logger   *slog.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(uploader ImageUploader, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{uploader: uploader, logger: logger}
}

// RegisterRoutes registers media routes
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/media/upload", h.Upload())
}

// Upload handles POST /media/upload with a multipart "file" field
func (h *MediaHandler) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ActorFrom(r.Context()).CanCreatePosts() {
			handleDomainError(w, entity.ErrForbidden)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			response.BadRequest(w, "file too large or invalid multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.BadRequest(w, "missing file in request")
			return
		}
		defer file.Close()

		result, err := h.uploader.Upload(r.Context(), storage.UploadInput{
			Reader:      file,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Filename:    header.Filename,
		})
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedType) {
				response.BadRequest(w, err.Error())
				return
			}
			h.logger.Error("image upload failed", "filename", header.Filename, "error", err)
			response.InternalError(w, "failed to upload file")
			return
		}

		h.logger.Info("image uploaded", "key", result.Key, "size", result.Size)
		response.Created(w, result)
	}
}
