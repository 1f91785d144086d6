package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type HypothesisService interface {
	Create(ctx context.Context, id, statement string, confidence float64) (*domain.Hypothesis, error)
	Get(ctx context.Context, id string) (*domain.Hypothesis, error)
	List(ctx context.Context) ([]domain.Hypothesis, error)
	SetConfidence(ctx context.Context, id string, confidence float64) (*domain.Hypothesis, error)
	Delete(ctx context.Context, id string) error
	Links(ctx context.Context, id string) ([]domain.LinkedEvidence, error)
	Verifications(ctx context.Context, id string) ([]domain.Verification, error)
	Relate(ctx context.Context, fromID, toID, relType string, strength float64) (*domain.Relation, error)
	Unrelate(ctx context.Context, fromID, toID, relType string) error
	Relations(ctx context.Context, id string) ([]domain.Relation, error)
}

type Recomputer interface {
	RecomputeFromBase(ctx context.Context, hypothesisID string) (float64, error)
}

type ContradictionFinder interface {
	FindContradictions(ctx context.Context, minConfidence float64) ([]domain.Contradiction, error)
}

type HypothesisHandler struct {
	svc            HypothesisService
	engine         Recomputer
	contradictions ContradictionFinder
	logger         *zap.Logger
}

func NewHypothesisHandler(svc HypothesisService, engine Recomputer, contradictions ContradictionFinder, logger *zap.Logger) *HypothesisHandler {
	return &HypothesisHandler{svc: svc, engine: engine, contradictions: contradictions, logger: logger}
}

type createHypothesisRequest struct {
	ID         string   `json:"id" validate:"required"`
	Statement  string   `json:"statement" validate:"required"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
}

func (h *HypothesisHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createHypothesisRequest
	if !decode(w, r, &req) {
		return
	}
	hyp, err := h.svc.Create(r.Context(), req.ID, req.Statement, *req.Confidence)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, hyp)
}

func (h *HypothesisHandler) List(w http.ResponseWriter, r *http.Request) {
	hs, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (h *HypothesisHandler) Get(w http.ResponseWriter, r *http.Request) {
	hyp, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hyp)
}

type setConfidenceRequest struct {
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
}

func (h *HypothesisHandler) SetConfidence(w http.ResponseWriter, r *http.Request) {
	var req setConfidenceRequest
	if !decode(w, r, &req) {
		return
	}
	hyp, err := h.svc.SetConfidence(r.Context(), chi.URLParam(r, "id"), *req.Confidence)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hyp)
}

func (h *HypothesisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HypothesisHandler) Links(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.Links(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *HypothesisHandler) Verifications(w http.ResponseWriter, r *http.Request) {
	vs, err := h.svc.Verifications(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if vs == nil {
		vs = []domain.Verification{}
	}
	writeJSON(w, http.StatusOK, vs)
}

func (h *HypothesisHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confidence, err := h.engine.RecomputeFromBase(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "confidence": confidence})
}

type relateRequest struct {
	To       string   `json:"to" validate:"required"`
	Type     string   `json:"type" validate:"required,oneof=depends_on contradicts"`
	Strength *float64 `json:"strength" validate:"omitempty,gte=0,lte=1"`
}

func (h *HypothesisHandler) Relate(w http.ResponseWriter, r *http.Request) {
	var req relateRequest
	if !decode(w, r, &req) {
		return
	}
	strength := 1.0
	if req.Strength != nil {
		strength = *req.Strength
	}
	rel, err := h.svc.Relate(r.Context(), chi.URLParam(r, "id"), req.To, req.Type, strength)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

func (h *HypothesisHandler) Relations(w http.ResponseWriter, r *http.Request) {
	rels, err := h.svc.Relations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

// Unrelate removes one relation. The type defaults to depends_on.
func (h *HypothesisHandler) Unrelate(w http.ResponseWriter, r *http.Request) {
	relType := r.URL.Query().Get("type")
	if relType == "" {
		relType = string(domain.RelationDependsOn)
	}
	err := h.svc.Unrelate(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "to"), relType)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HypothesisHandler) Contradictions(w http.ResponseWriter, r *http.Request) {
	minConfidence := service.DefaultContradictionThreshold
	if raw := r.URL.Query().Get("min_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_confidence must be a number")
			return
		}
		minConfidence = v
	}
	out, err := h.contradictions.FindContradictions(r.Context(), minConfidence)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contradictions": out, "count": len(out)})
}
