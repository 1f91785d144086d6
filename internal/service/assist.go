package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/extract"
	"github.com/Harshitk-cp/credence/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrAssistantUnavailable = errors.New("assistant unavailable")
	ErrSuggestionInput      = errors.New("statement and evidence are required")
	ErrNotStatusURL         = extract.ErrNotStatusURL
	ErrExtractionFailed     = errors.New("could not extract post text")
	ErrChatRole             = errors.New("message role must be user or assistant")
	ErrChatContent          = errors.New("message content is required")
)

// AssistService wraps the LLM and text extractor. Nothing here touches
// stored confidence.
type AssistService struct {
	llm       domain.LLMClient
	extractor domain.TextExtractor
	logger    *zap.Logger
}

// NewAssistService accepts a nil llm; suggestions then always fall back.
func NewAssistService(llm domain.LLMClient, extractor domain.TextExtractor, logger *zap.Logger) *AssistService {
	return &AssistService{llm: llm, extractor: extractor, logger: logger}
}

// Suggest asks for P(E|H) and P(E|~H). Failures return neutral likelihoods
// flagged as a fallback.
func (s *AssistService) Suggest(ctx context.Context, statement string, prior float64, evidence string) (*domain.LikelihoodSuggestion, error) {
	if strings.TrimSpace(statement) == "" || strings.TrimSpace(evidence) == "" {
		return nil, ErrSuggestionInput
	}
	if !domain.ValidProbability(prior) {
		return nil, ErrInvalidProbability
	}
	if s.llm == nil {
		return domain.NeutralSuggestion(), nil
	}

	suggestion, err := s.llm.SuggestLikelihoods(ctx, domain.LikelihoodRequest{
		Statement: statement,
		Prior:     prior,
		Evidence:  evidence,
	})
	if err != nil {
		metrics.BestEffortFailures.WithLabelValues("llm_suggest").Inc()
		s.logger.Warn("likelihood suggestion failed, using neutral values", zap.Error(err))
		return domain.NeutralSuggestion(), nil
	}
	return suggestion, nil
}

func (s *AssistService) Review(ctx context.Context, statement string) (*domain.HypothesisReview, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, ErrStatementRequired
	}
	if s.llm == nil {
		return nil, ErrAssistantUnavailable
	}
	review, err := s.llm.ReviewHypothesis(ctx, statement)
	if err != nil {
		metrics.BestEffortFailures.WithLabelValues("llm_review").Inc()
		s.logger.Warn("hypothesis review failed", zap.Error(err))
		return nil, ErrAssistantUnavailable
	}
	return review, nil
}

// Chat answers a conversation about a hypothesis. The reply is advisory;
// nothing is written.
func (s *AssistService) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	if strings.TrimSpace(req.Statement) == "" {
		return nil, ErrStatementRequired
	}
	if !domain.ValidProbability(req.Prior) {
		return nil, ErrInvalidProbability
	}
	for _, m := range req.Messages {
		if !m.Role.Valid() {
			return nil, ErrChatRole
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil, ErrChatContent
		}
	}
	if s.llm == nil {
		return nil, ErrAssistantUnavailable
	}

	reply, err := s.llm.Chat(ctx, req)
	if err != nil {
		metrics.BestEffortFailures.WithLabelValues("llm_chat").Inc()
		s.logger.Warn("assistant chat failed",
			zap.String("hypothesis_id", req.HypothesisID),
			zap.Int("messages", len(req.Messages)),
			zap.Error(err),
		)
		return nil, ErrAssistantUnavailable
	}
	return reply, nil
}

// ExtractText returns a post's plain text for use as evidence content.
func (s *AssistService) ExtractText(ctx context.Context, url string) (string, error) {
	if s.extractor == nil {
		return "", ErrExtractionFailed
	}
	text, err := s.extractor.Text(ctx, url)
	if err != nil {
		if errors.Is(err, ErrNotStatusURL) {
			return "", err
		}
		metrics.BestEffortFailures.WithLabelValues("extract").Inc()
		s.logger.Warn("post extraction failed", zap.String("url", url), zap.Error(err))
		return "", ErrExtractionFailed
	}
	return text, nil
}
