package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/store"
	"go.uber.org/zap"
)

var (
	ErrHypothesisIDRequired = errors.New("id is required")
	ErrStatementRequired    = errors.New("statement is required")
	ErrInvalidConfidence    = errors.New("confidence must be within [0, 1]")
	ErrHypothesisExists     = errors.New("hypothesis already exists")
	ErrInvalidRelationType  = errors.New("relation type must be depends_on or contradicts")
	ErrInvalidStrength      = errors.New("strength must be within [0, 1]")
	ErrSelfRelation         = errors.New("a hypothesis cannot relate to itself")
	ErrRelationNotFound     = errors.New("relation not found")
)

type HypothesisService struct {
	hypotheses    domain.HypothesisStore
	links         domain.LinkStore
	verifications domain.VerificationStore
	relations     domain.RelationStore
	engine        *Engine
	logger        *zap.Logger
}

func NewHypothesisService(stores domain.Stores, engine *Engine, logger *zap.Logger) *HypothesisService {
	return &HypothesisService{
		hypotheses:    stores.Hypotheses,
		links:         stores.Links,
		verifications: stores.Verifications,
		relations:     stores.Relations,
		engine:        engine,
		logger:        logger,
	}
}

// Create stores a new hypothesis whose prior is both its confidence and
// its base confidence.
func (s *HypothesisService) Create(ctx context.Context, id, statement string, confidence float64) (*domain.Hypothesis, error) {
	id = strings.TrimSpace(id)
	statement = strings.TrimSpace(statement)
	if id == "" {
		return nil, ErrHypothesisIDRequired
	}
	if statement == "" {
		return nil, ErrStatementRequired
	}
	if !domain.ValidProbability(confidence) {
		return nil, ErrInvalidConfidence
	}

	base := confidence
	h := &domain.Hypothesis{
		ID:             id,
		Statement:      statement,
		Confidence:     confidence,
		BaseConfidence: &base,
	}
	if err := s.hypotheses.Create(ctx, h); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrHypothesisExists
		}
		return nil, err
	}

	s.logger.Info("hypothesis created", zap.String("hypothesis_id", id), zap.Float64("prior", confidence))
	return h, nil
}

func (s *HypothesisService) Get(ctx context.Context, id string) (*domain.Hypothesis, error) {
	h, err := s.hypotheses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrHypothesisNotFound
		}
		return nil, err
	}
	return h, nil
}

func (s *HypothesisService) List(ctx context.Context) ([]domain.Hypothesis, error) {
	hs, err := s.hypotheses.List(ctx)
	if err != nil {
		return nil, err
	}
	if hs == nil {
		hs = []domain.Hypothesis{}
	}
	return hs, nil
}

// SetConfidence overrides confidence directly. The base prior is untouched,
// so the next recompute replaces the override.
func (s *HypothesisService) SetConfidence(ctx context.Context, id string, confidence float64) (*domain.Hypothesis, error) {
	if !domain.ValidProbability(confidence) {
		return nil, ErrInvalidConfidence
	}

	var h *domain.Hypothesis
	err := s.engine.WithLock(ctx, id, func(ctx context.Context) error {
		if err := s.hypotheses.UpdateConfidence(ctx, id, confidence); err != nil {
			switch {
			case errors.Is(err, store.ErrLocked):
				return ErrHypothesisLocked
			case errors.Is(err, store.ErrNotFound):
				return ErrHypothesisNotFound
			}
			return err
		}
		var err error
		h, err = s.hypotheses.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Delete removes the hypothesis with its links, verifications and relations.
func (s *HypothesisService) Delete(ctx context.Context, id string) error {
	return s.engine.WithLock(ctx, id, func(ctx context.Context) error {
		if err := s.hypotheses.Delete(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrHypothesisNotFound
			}
			return err
		}
		s.logger.Info("hypothesis deleted", zap.String("hypothesis_id", id))
		return nil
	})
}

// Links lists the evidence affecting a hypothesis with each link's likelihoods.
func (s *HypothesisService) Links(ctx context.Context, id string) ([]domain.LinkedEvidence, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.links.ListLinkedEvidence(ctx, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.LinkedEvidence{}
	}
	return out, nil
}

func (s *HypothesisService) Verifications(ctx context.Context, id string) ([]domain.Verification, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.verifications.ListByHypothesis(ctx, id)
}

func (s *HypothesisService) Relate(ctx context.Context, fromID, toID, relType string, strength float64) (*domain.Relation, error) {
	if !domain.ValidRelationType(relType) {
		return nil, ErrInvalidRelationType
	}
	if !domain.ValidProbability(strength) {
		return nil, ErrInvalidStrength
	}
	if fromID == toID {
		return nil, ErrSelfRelation
	}
	for _, id := range []string{fromID, toID} {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}

	r := &domain.Relation{FromID: fromID, ToID: toID, Type: domain.RelationType(relType), Strength: strength}
	if err := s.relations.Create(ctx, r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrHypothesisNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *HypothesisService) Unrelate(ctx context.Context, fromID, toID, relType string) error {
	if !domain.ValidRelationType(relType) {
		return ErrInvalidRelationType
	}
	if err := s.relations.Delete(ctx, fromID, toID, domain.RelationType(relType)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRelationNotFound
		}
		return err
	}
	return nil
}

func (s *HypothesisService) Relations(ctx context.Context, id string) ([]domain.Relation, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.relations.ListFrom(ctx, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Relation{}
	}
	return out, nil
}
