package handlers

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type LinkService interface {
	Create(ctx context.Context, evidenceID, hypothesisID string, l domain.Likelihoods) (float64, error)
	Get(ctx context.Context, evidenceID, hypothesisID string) (*domain.AffectsLink, error)
	Update(ctx context.Context, evidenceID, hypothesisID string, l domain.Likelihoods) (float64, error)
	Delete(ctx context.Context, evidenceID, hypothesisID string) (float64, error)
}

type LinkHandler struct {
	svc    LinkService
	logger *zap.Logger
}

func NewLinkHandler(svc LinkService, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{svc: svc, logger: logger}
}

type likelihoodsRequest struct {
	PEGivenH    *float64 `json:"p_e_given_h" validate:"required,gte=0,lte=1"`
	PEGivenNotH *float64 `json:"p_e_given_not_h" validate:"required,gte=0,lte=1"`
}

func (l likelihoodsRequest) likelihoods() domain.Likelihoods {
	return domain.Likelihoods{PEGivenH: *l.PEGivenH, PEGivenNotH: *l.PEGivenNotH}
}

type createLinkRequest struct {
	HypothesisID string `json:"hypothesis_id" validate:"required"`
	likelihoodsRequest
}

type linkResponse struct {
	EvidenceID   string              `json:"evidence_id"`
	HypothesisID string              `json:"hypothesis_id"`
	Likelihoods  *domain.Likelihoods `json:"relationship,omitempty"`
	Confidence   float64             `json:"confidence"`
}

func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if !decode(w, r, &req) {
		return
	}
	evidenceID := chi.URLParam(r, "id")
	l := req.likelihoods()
	confidence, err := h.svc.Create(r.Context(), evidenceID, req.HypothesisID, l)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, linkResponse{
		EvidenceID:   evidenceID,
		HypothesisID: req.HypothesisID,
		Likelihoods:  &l,
		Confidence:   confidence,
	})
}

func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "hypothesis_id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req likelihoodsRequest
	if !decode(w, r, &req) {
		return
	}
	evidenceID, hypothesisID := chi.URLParam(r, "id"), chi.URLParam(r, "hypothesis_id")
	l := req.likelihoods()
	confidence, err := h.svc.Update(r.Context(), evidenceID, hypothesisID, l)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{
		EvidenceID:   evidenceID,
		HypothesisID: hypothesisID,
		Likelihoods:  &l,
		Confidence:   confidence,
	})
}

func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	evidenceID, hypothesisID := chi.URLParam(r, "id"), chi.URLParam(r, "hypothesis_id")
	confidence, err := h.svc.Delete(r.Context(), evidenceID, hypothesisID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{
		EvidenceID:   evidenceID,
		HypothesisID: hypothesisID,
		Confidence:   confidence,
	})
}
