package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/weightlog/internal/domain"
	"github.com/vbonduro/weightlog/internal/imaging"
)

const maxPhotoSize = 20 * 1024 * 1024 // 20 MB

var (
	errUnsupportedPhoto = errors.New("unsupported image format")
	errPhotoTooLarge    = errors.New("photo is too large")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// statusFor maps entry store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrPhotoNotFound),
		errors.Is(err, domain.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseDay parses a "2006-01-02" date at midnight in loc.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// readPhoto returns the optional "photo" upload of a parsed multipart form.
// A missing file yields nil; a file that is not an accepted image yields
// errUnsupportedPhoto.
func (s *Server) readPhoto(r *http.Request) ([]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer closeWithLog(file, "upload file", s.logger)

	if header.Size == 0 {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(file, maxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > maxPhotoSize {
		return nil, errPhotoTooLarge
	}
	if _, ok := imaging.DetectMIME(data); !ok {
		return nil, errUnsupportedPhoto
	}
	return data, nil
}

// photoMessage returns the banner text for an upload rejected by readPhoto.
func photoMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, errUnsupportedPhoto):
		return msgUnsupportedPhoto, true
	case errors.Is(err, errPhotoTooLarge):
		return msgPhotoTooLarge, true
	}
	return "", false
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
