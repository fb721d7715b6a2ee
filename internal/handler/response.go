package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tumapply/internal/auth"
	"tumapply/internal/domain"
)

const maxUploadMemory = 32 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrOperationNotAllowed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", domain.ErrInvalidParameter, name)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidParameter)
	}
	return nil
}

// UploadLimits bounds a multipart upload. Zero values fall back to the
// defaults.
type UploadLimits struct {
	MaxFileSize int64
	MaxFiles    int
}

const (
	defaultMaxFileSize = 25 << 20
	defaultMaxFiles    = 10
	// Room for part headers and boundaries on top of the file bytes.
	formOverhead = 1 << 20
)

func (l UploadLimits) withDefaults() UploadLimits {
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = defaultMaxFileSize
	}
	if l.MaxFiles <= 0 {
		l.MaxFiles = defaultMaxFiles
	}
	return l
}

// readFiles reads every part of the multipart "files" field into memory.
// The body is capped before parsing and each part is checked against the
// size limit before it is opened.
func readFiles(w http.ResponseWriter, r *http.Request, limits UploadLimits) ([]domain.UploadFile, error) {
	limits = limits.withDefaults()
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFileSize*int64(limits.MaxFiles)+formOverhead)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrInvalidParameter, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: failed to parse form", domain.ErrInvalidParameter)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) > limits.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload", domain.ErrInvalidParameter, limits.MaxFiles)
	}
	for _, header := range headers {
		if header.Size > limits.MaxFileSize {
			return nil, fmt.Errorf("%w: %q exceeds %d bytes", domain.ErrInvalidParameter, header.Filename, limits.MaxFileSize)
		}
	}

	files := make([]domain.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot open %q", domain.ErrInvalidParameter, header.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read %q", domain.ErrInvalidParameter, header.Filename)
		}
		files = append(files, domain.UploadFile{
			Name:     header.Filename,
			MIMEType: header.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return files, nil
}

// base carries what every handler needs.
type base struct {
	verifier auth.Verifier
	limits   UploadLimits
	logger   *zap.Logger
}

func (b base) actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, err := auth.ActorFromRequest(r, b.verifier)
	if err != nil {
		writeError(w, b.logger, r, err)
		return domain.Actor{}, false
	}
	return actor, true
}
