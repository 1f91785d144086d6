package handlers

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/credence/internal/domain"
	"go.uber.org/zap"
)

type AssistService interface {
	Suggest(ctx context.Context, statement string, prior float64, evidence string) (*domain.LikelihoodSuggestion, error)
	Review(ctx context.Context, statement string) (*domain.HypothesisReview, error)
	ExtractText(ctx context.Context, url string) (string, error)
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error)
}

type AssistHandler struct {
	svc    AssistService
	logger *zap.Logger
}

func NewAssistHandler(svc AssistService, logger *zap.Logger) *AssistHandler {
	return &AssistHandler{svc: svc, logger: logger}
}

type suggestRequest struct {
	Hypothesis string   `json:"hypothesis" validate:"required"`
	Prior      *float64 `json:"prior" validate:"omitempty,gte=0,lte=1"`
	Evidence   string   `json:"evidence" validate:"required"`
}

// Suggest always answers 200 once the input is valid; the neutral
// suggestion is returned when no model could be reached.
func (h *AssistHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decode(w, r, &req) {
		return
	}
	prior := 0.5
	if req.Prior != nil {
		prior = *req.Prior
	}
	s, err := h.svc.Suggest(r.Context(), req.Hypothesis, prior, req.Evidence)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type reviewRequest struct {
	Statement string `json:"statement" validate:"required"`
}

func (h *AssistHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decode(w, r, &req) {
		return
	}
	review, err := h.svc.Review(r.Context(), req.Statement)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

type chatRequest struct {
	Hypothesis struct {
		ID        string   `json:"id"`
		Statement string   `json:"statement" validate:"required"`
		Prior     *float64 `json:"prior" validate:"required,gte=0,lte=1"`
	} `json:"hypothesis"`
	Evidence struct {
		Content string `json:"content"`
	} `json:"evidence"`
	Messages []struct {
		Role    string `json:"role" validate:"oneof=user assistant"`
		Content string `json:"content" validate:"required"`
	} `json:"messages" validate:"dive"`
}

func (h *AssistHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	in := domain.ChatRequest{
		HypothesisID: req.Hypothesis.ID,
		Statement:    req.Hypothesis.Statement,
		Prior:        *req.Hypothesis.Prior,
		Evidence:     req.Evidence.Content,
		Messages:     make([]domain.ChatMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		in.Messages = append(in.Messages, domain.ChatMessage{Role: domain.ChatRole(m.Role), Content: m.Content})
	}
	reply, err := h.svc.Chat(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *AssistHandler) ExtractX(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	text, err := h.svc.ExtractText(r.Context(), url)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url, "text": text})
}
