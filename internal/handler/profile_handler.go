package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tumapply/internal/auth"
	"tumapply/internal/domain"
	"tumapply/internal/service"
)

type ProfileHandler struct {
	base
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService, verifier auth.Verifier, limits UploadLimits, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		base:     base{verifier: verifier, limits: limits, logger: logger},
		profiles: profiles,
	}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.Get(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var data domain.PersonalData
	if err := decodeJSON(r, &data); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	profile, err := h.profiles.Update(r.Context(), data, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	docs, err := h.profiles.ListDocuments(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *ProfileHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
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

	docs, err := h.profiles.UploadDocuments(r.Context(), category, files, actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}
