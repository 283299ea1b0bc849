package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/kozaktomas/school-reports/internal/storage"
	"github.com/rs/zerolog/log"
)

// multipartOverhead is the room left for form boundaries and headers on top
// of the file itself.
const multipartOverhead = 1 << 20

// UploadHandler handles image upload endpoints.
type UploadHandler struct {
	uploader storage.Uploader
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploader storage.Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload accepts a multipart "file" part and returns a URL for it that can be
// used as a report image or template logo.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}

	if r.ContentLength > storage.MaxUploadBytes+multipartOverhead {
		respondError(w, http.StatusRequestEntityTooLarge, storage.ErrTooLarge.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(storage.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, storage.ErrTooLarge.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	filename := filepath.Base(header.Filename)
	url, err := h.uploader.Upload(r.Context(), owner, filename, header.Header.Get("Content-Type"), data)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, storage.ErrUnsupportedType):
		respondError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("filename", sanitizeForLog(filename)).Msg("upload failed")
		respondError(w, http.StatusInternalServerError, "failed to upload file")
		return
	}

	respondJSON(w, http.StatusCreated, uploadResponse{URL: url})
}
