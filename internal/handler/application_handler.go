package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tumapply/internal/auth"
	"tumapply/internal/domain"
	"tumapply/internal/service"
)

type ApplicationHandler struct {
	base
	applications *service.ApplicationService
}

func NewApplicationHandler(applications *service.ApplicationService, verifier auth.Verifier, limits UploadLimits, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		base:         base{verifier: verifier, limits: limits, logger: logger},
		applications: applications,
	}
}

func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	jobID, err := uuidParam(r, "jobID")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	app, created, err := h.applications.Create(r.Context(), jobID, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, app)
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	app, err := h.applications.Get(r.Context(), id, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	apps, err := h.applications.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if apps == nil {
		apps = []domain.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	var edits domain.ApplicationEdits
	if err := decodeJSON(r, &edits); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	app, err := h.applications.Update(r.Context(), id, edits, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	app, err := h.applications.Withdraw(r.Context(), id, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	if err := h.applications.Delete(r.Context(), id, actor); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ApplicationHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	docs, err := h.applications.ListDocuments(r.Context(), id, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *ApplicationHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	category, err := domain.ParseDocumentCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	files, err := readFiles(w, r, h.limits)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	docs, err := h.applications.UploadDocuments(r.Context(), id, category, files, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *ApplicationHandler) UploadCustomFieldDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	fieldID, err := uuidParam(r, "fieldID")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	files, err := readFiles(w, r, h.limits)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	docs, err := h.applications.UploadCustomFieldDocuments(r.Context(), id, fieldID, files, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}
