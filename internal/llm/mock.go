package llm

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/credence/internal/domain"
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	mu sync.Mutex

	SuggestResponse *domain.LikelihoodSuggestion
	SuggestError    error
	ReviewResponse  *domain.HypothesisReview
	ReviewError     error
	ChatResponse    *domain.ChatReply
	ChatError       error

	// Call tracking for assertions
	SuggestCalls []domain.LikelihoodRequest
	ReviewCalls  []string
	ChatCalls    []domain.ChatRequest
}

func NewMockClient() *MockClient {
	return &MockClient{
		SuggestResponse: &domain.LikelihoodSuggestion{
			Likelihoods: domain.Likelihoods{PEGivenH: 0.7, PEGivenNotH: 0.3},
			Rationale:   "Mock rationale",
			Model:       ProviderMock,
		},
		ReviewResponse: &domain.HypothesisReview{
			ValidBayesian:    true,
			AtomicityScore:   0.9,
			Issues:           []string{},
			Falsifiable:      true,
			Measurable:       true,
			TimeBound:        true,
			SuggestedRewrite: "Mock rewrite",
			EvidenceIdeas:    []string{"Mock evidence idea"},
			Model:            ProviderMock,
		},
		ChatResponse: &domain.ChatReply{Reply: "Mock reply", Model: ProviderMock},
	}
}

func (m *MockClient) SuggestLikelihoods(_ context.Context, req domain.LikelihoodRequest) (*domain.LikelihoodSuggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuggestCalls = append(m.SuggestCalls, req)
	if m.SuggestError != nil {
		return nil, m.SuggestError
	}
	s := *m.SuggestResponse
	return &s, nil
}

func (m *MockClient) ReviewHypothesis(_ context.Context, statement string) (*domain.HypothesisReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReviewCalls = append(m.ReviewCalls, statement)
	if m.ReviewError != nil {
		return nil, m.ReviewError
	}
	r := *m.ReviewResponse
	return &r, nil
}

func (m *MockClient) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCalls = append(m.ChatCalls, req)
	if m.ChatError != nil {
		return nil, m.ChatError
	}
	r := *m.ChatResponse
	return &r, nil
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuggestCalls = nil
	m.ReviewCalls = nil
	m.ChatCalls = nil
}
