package handlers

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type EvidenceService interface {
	Create(ctx context.Context, id, content, sourceURL string) (*domain.Evidence, error)
	Get(ctx context.Context, id string) (*domain.Evidence, error)
	List(ctx context.Context) ([]domain.Evidence, error)
	Update(ctx context.Context, id, content, sourceURL string) (*domain.Evidence, error)
	Links(ctx context.Context, id string) ([]domain.LinkedHypothesis, error)
	Delete(ctx context.Context, id string) ([]domain.RecomputedHypothesis, error)
}

type EvidenceHandler struct {
	svc    EvidenceService
	logger *zap.Logger
}

func NewEvidenceHandler(svc EvidenceService, logger *zap.Logger) *EvidenceHandler {
	return &EvidenceHandler{svc: svc, logger: logger}
}

type createEvidenceRequest struct {
	ID        string `json:"id" validate:"required"`
	Content   string `json:"content" validate:"required"`
	SourceURL string `json:"source_url" validate:"required"`
}

type updateEvidenceRequest struct {
	Content   string `json:"content" validate:"required"`
	SourceURL string `json:"source_url" validate:"required"`
}

func (h *EvidenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEvidenceRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.svc.Create(r.Context(), req.ID, req.Content, req.SourceURL)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EvidenceHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *EvidenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EvidenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateEvidenceRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req.Content, req.SourceURL)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EvidenceHandler) Links(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Links(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *EvidenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recomputed, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id, "recomputed": recomputed})
}
