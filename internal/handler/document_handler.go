package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tumapply/internal/auth"
	"tumapply/internal/service"
)

type DocumentHandler struct {
	base
	documents *service.DocumentService
}

type renameRequest struct {
	Name string `json:"name"`
}

func NewDocumentHandler(documents *service.DocumentService, verifier auth.Verifier, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		base:      base{verifier: verifier, logger: logger},
		documents: documents,
	}
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	association, data, err := h.documents.Download(r.Context(), id, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	w.Header().Set("Content-Type", association.Document.MIMEType)
	w.Header().Set("Content-Disposition", contentDisposition(association.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// contentDisposition keeps the plain filename ASCII and carries the real
// name in filename*.
func contentDisposition(name string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	encoded := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, ascii, encoded)
}

func (h *DocumentHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	doc, err := h.documents.Rename(r.Context(), id, req.Name, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	if err := h.documents.Delete(r.Context(), id, actor); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
