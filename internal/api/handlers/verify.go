package handlers

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/service"
	"go.uber.org/zap"
)

type VerificationService interface {
	Verify(ctx context.Context, hypothesisID, evidenceID, verificationType string) (*domain.Hypothesis, error)
}

type UpdateService interface {
	Update(ctx context.Context, hypothesisID, evidenceID string, propagate bool, dampening float64) (*service.UpdateResult, error)
}

type AnalyticsService interface {
	Accuracy(ctx context.Context) (*service.AccuracyReport, error)
}

// BeliefHandler serves the verification, manual update and analytics
// endpoints.
type BeliefHandler struct {
	verify    VerificationService
	update    UpdateService
	analytics AnalyticsService
	logger    *zap.Logger
}

func NewBeliefHandler(verify VerificationService, update UpdateService, analytics AnalyticsService, logger *zap.Logger) *BeliefHandler {
	return &BeliefHandler{verify: verify, update: update, analytics: analytics, logger: logger}
}

type verifyRequest struct {
	HypothesisID     string `json:"hypothesis_id" validate:"required"`
	EvidenceID       string `json:"evidence_id" validate:"required"`
	VerificationType string `json:"verification_type" validate:"required,oneof=confirmed refuted"`
}

func (h *BeliefHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decode(w, r, &req) {
		return
	}
	hyp, err := h.verify.Verify(r.Context(), req.HypothesisID, req.EvidenceID, req.VerificationType)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hyp)
}

type updateRequest struct {
	HypothesisID string   `json:"hypothesis_id" validate:"required"`
	EvidenceID   string   `json:"evidence_id" validate:"required"`
	Propagate    bool     `json:"propagate"`
	Dampening    *float64 `json:"dampening" validate:"omitempty,gt=0,lte=1"`
}

func (h *BeliefHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decode(w, r, &req) {
		return
	}
	dampening := service.DefaultDampening
	if req.Dampening != nil {
		dampening = *req.Dampening
	}
	res, err := h.update.Update(r.Context(), req.HypothesisID, req.EvidenceID, req.Propagate, dampening)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if res.Propagation == nil {
		res.Propagation = []domain.PropagationImpact{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BeliefHandler) Accuracy(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.Accuracy(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
