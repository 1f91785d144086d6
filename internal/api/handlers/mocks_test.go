package handlers

import (
	"context"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/stretchr/testify/mock"
)

type mockHypotheses struct{ mock.Mock }

func (m *mockHypotheses) Create(ctx context.Context, id, statement string, confidence float64) (*domain.Hypothesis, error) {
	args := m.Called(ctx, id, statement, confidence)
	h, _ := args.Get(0).(*domain.Hypothesis)
	return h, args.Error(1)
}

func (m *mockHypotheses) Get(ctx context.Context, id string) (*domain.Hypothesis, error) {
	args := m.Called(ctx, id)
	h, _ := args.Get(0).(*domain.Hypothesis)
	return h, args.Error(1)
}

func (m *mockHypotheses) List(ctx context.Context) ([]domain.Hypothesis, error) {
	args := m.Called(ctx)
	hs, _ := args.Get(0).([]domain.Hypothesis)
	return hs, args.Error(1)
}

func (m *mockHypotheses) SetConfidence(ctx context.Context, id string, confidence float64) (*domain.Hypothesis, error) {
	args := m.Called(ctx, id, confidence)
	h, _ := args.Get(0).(*domain.Hypothesis)
	return h, args.Error(1)
}

func (m *mockHypotheses) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockHypotheses) Links(ctx context.Context, id string) ([]domain.LinkedEvidence, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).([]domain.LinkedEvidence)
	return out, args.Error(1)
}

func (m *mockHypotheses) Verifications(ctx context.Context, id string) ([]domain.Verification, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).([]domain.Verification)
	return out, args.Error(1)
}

func (m *mockHypotheses) Relate(ctx context.Context, fromID, toID, relType string, strength float64) (*domain.Relation, error) {
	args := m.Called(ctx, fromID, toID, relType, strength)
	r, _ := args.Get(0).(*domain.Relation)
	return r, args.Error(1)
}

func (m *mockHypotheses) Unrelate(ctx context.Context, fromID, toID, relType string) error {
	return m.Called(ctx, fromID, toID, relType).Error(0)
}

func (m *mockHypotheses) Relations(ctx context.Context, id string) ([]domain.Relation, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).([]domain.Relation)
	return out, args.Error(1)
}

type mockEngine struct{ mock.Mock }

func (m *mockEngine) RecomputeFromBase(ctx context.Context, id string) (float64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockEngine) FindContradictions(ctx context.Context, minConfidence float64) ([]domain.Contradiction, error) {
	args := m.Called(ctx, minConfidence)
	out, _ := args.Get(0).([]domain.Contradiction)
	return out, args.Error(1)
}

type mockEvidence struct{ mock.Mock }

func (m *mockEvidence) Create(ctx context.Context, id, content, sourceURL string) (*domain.Evidence, error) {
	args := m.Called(ctx, id, content, sourceURL)
	e, _ := args.Get(0).(*domain.Evidence)
	return e, args.Error(1)
}

func (m *mockEvidence) Get(ctx context.Context, id string) (*domain.Evidence, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*domain.Evidence)
	return e, args.Error(1)
}

func (m *mockEvidence) List(ctx context.Context) ([]domain.Evidence, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]domain.Evidence)
	return out, args.Error(1)
}

func (m *mockEvidence) Update(ctx context.Context, id, content, sourceURL string) (*domain.Evidence, error) {
	args := m.Called(ctx, id, content, sourceURL)
	e, _ := args.Get(0).(*domain.Evidence)
	return e, args.Error(1)
}

func (m *mockEvidence) Links(ctx context.Context, id string) ([]domain.LinkedHypothesis, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).([]domain.LinkedHypothesis)
	return out, args.Error(1)
}

func (m *mockEvidence) Delete(ctx context.Context, id string) ([]domain.RecomputedHypothesis, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).([]domain.RecomputedHypothesis)
	return out, args.Error(1)
}

type mockLinks struct{ mock.Mock }

func (m *mockLinks) Create(ctx context.Context, evidenceID, hypothesisID string, l domain.Likelihoods) (float64, error) {
	args := m.Called(ctx, evidenceID, hypothesisID, l)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockLinks) Get(ctx context.Context, evidenceID, hypothesisID string) (*domain.AffectsLink, error) {
	args := m.Called(ctx, evidenceID, hypothesisID)
	l, _ := args.Get(0).(*domain.AffectsLink)
	return l, args.Error(1)
}

func (m *mockLinks) Update(ctx context.Context, evidenceID, hypothesisID string, l domain.Likelihoods) (float64, error) {
	args := m.Called(ctx, evidenceID, hypothesisID, l)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockLinks) Delete(ctx context.Context, evidenceID, hypothesisID string) (float64, error) {
	args := m.Called(ctx, evidenceID, hypothesisID)
	return args.Get(0).(float64), args.Error(1)
}

type mockBelief struct{ mock.Mock }

func (m *mockBelief) Verify(ctx context.Context, hypothesisID, evidenceID, verificationType string) (*domain.Hypothesis, error) {
	args := m.Called(ctx, hypothesisID, evidenceID, verificationType)
	h, _ := args.Get(0).(*domain.Hypothesis)
	return h, args.Error(1)
}

func (m *mockBelief) Update(ctx context.Context, hypothesisID, evidenceID string, propagate bool, dampening float64) (*service.UpdateResult, error) {
	args := m.Called(ctx, hypothesisID, evidenceID, propagate, dampening)
	r, _ := args.Get(0).(*service.UpdateResult)
	return r, args.Error(1)
}

func (m *mockBelief) Accuracy(ctx context.Context) (*service.AccuracyReport, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*service.AccuracyReport)
	return r, args.Error(1)
}

type mockAssist struct{ mock.Mock }

func (m *mockAssist) Suggest(ctx context.Context, statement string, prior float64, evidence string) (*domain.LikelihoodSuggestion, error) {
	args := m.Called(ctx, statement, prior, evidence)
	s, _ := args.Get(0).(*domain.LikelihoodSuggestion)
	return s, args.Error(1)
}

func (m *mockAssist) Review(ctx context.Context, statement string) (*domain.HypothesisReview, error) {
	args := m.Called(ctx, statement)
	r, _ := args.Get(0).(*domain.HypothesisReview)
	return r, args.Error(1)
}

func (m *mockAssist) ExtractText(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

func (m *mockAssist) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*domain.ChatReply)
	return r, args.Error(1)
}
