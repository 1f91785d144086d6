package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/store"
	"go.uber.org/zap"
)

var (
	ErrEvidenceNotFound   = errors.New("evidence not found")
	ErrLinkNotFound       = errors.New("evidence link not found")
	ErrDuplicateLink      = errors.New("evidence is already linked to this hypothesis")
	ErrInvalidProbability = errors.New("likelihoods must be finite and within [0, 1]")
)

// LinkService mutates AFFECTS links. Every mutation holds the hypothesis
// lock across the guard checks, the base-prior fallback, the write and the
// recompute.
type LinkService struct {
	hypotheses domain.HypothesisStore
	evidence   domain.EvidenceStore
	links      domain.LinkStore
	engine     *Engine
	backfill   *Backfiller
	logger     *zap.Logger
}

func NewLinkService(stores domain.Stores, engine *Engine, backfill *Backfiller, logger *zap.Logger) *LinkService {
	return &LinkService{
		hypotheses: stores.Hypotheses,
		evidence:   stores.Evidence,
		links:      stores.Links,
		engine:     engine,
		backfill:   backfill,
		logger:     logger,
	}
}

// unlockedHypothesis loads the hypothesis and rejects verified ones.
func (s *LinkService) unlockedHypothesis(ctx context.Context, id string) (*domain.Hypothesis, error) {
	h, err := s.hypotheses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrHypothesisNotFound
		}
		return nil, err
	}
	if h.IsVerified() {
		return nil, ErrHypothesisLocked
	}
	return h, nil
}

func linkStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrLocked):
		return ErrHypothesisLocked
	case errors.Is(err, store.ErrConflict):
		return ErrDuplicateLink
	case errors.Is(err, store.ErrNotFound):
		return ErrLinkNotFound
	}
	return err
}

// Create adds the link and returns the recomputed confidence.
func (s *LinkService) Create(ctx context.Context, evidenceID, hypothesisID string, l domain.Likelihoods) (float64, error) {
	if !l.Valid() {
		return 0, ErrInvalidProbability
	}

	var confidence float64
	err := s.engine.WithLock(ctx, hypothesisID, func(ctx context.Context) error {
		h, err := s.unlockedHypothesis(ctx, hypothesisID)
		if err != nil {
			return err
		}
		if _, err := s.evidence.GetByID(ctx, evidenceID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrEvidenceNotFound
			}
			return err
		}
		exists, err := s.links.Exists(ctx, evidenceID, hypothesisID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateLink
		}

		s.backfill.Ensure(ctx, h)

		link := &domain.AffectsLink{EvidenceID: evidenceID, HypothesisID: hypothesisID, Likelihoods: l}
		if err := s.links.Create(ctx, link); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrEvidenceNotFound
			}
			return linkStoreErr(err)
		}

		confidence, err = s.engine.recompute(ctx, hypothesisID, TriggerLinkCreate)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("evidence linked",
		zap.String("evidence_id", evidenceID),
		zap.String("hypothesis_id", hypothesisID),
		zap.Float64("confidence", confidence),
	)
	return confidence, nil
}

// Update replaces the link's likelihoods and returns the recomputed confidence.
func (s *LinkService) Update(ctx context.Context, evidenceID, hypothesisID string, l domain.Likelihoods) (float64, error) {
	if !l.Valid() {
		return 0, ErrInvalidProbability
	}

	var confidence float64
	err := s.engine.WithLock(ctx, hypothesisID, func(ctx context.Context) error {
		h, err := s.requireLink(ctx, evidenceID, hypothesisID)
		if err != nil {
			return err
		}

		s.backfill.Ensure(ctx, h)

		if err := s.links.Update(ctx, evidenceID, hypothesisID, l); err != nil {
			return linkStoreErr(err)
		}
		confidence, err = s.engine.recompute(ctx, hypothesisID, TriggerLinkUpdate)
		return err
	})
	return confidence, err
}

// Delete removes the link and returns the recomputed confidence.
func (s *LinkService) Delete(ctx context.Context, evidenceID, hypothesisID string) (float64, error) {
	var confidence float64
	err := s.engine.WithLock(ctx, hypothesisID, func(ctx context.Context) error {
		h, err := s.requireLink(ctx, evidenceID, hypothesisID)
		if err != nil {
			return err
		}

		s.backfill.Ensure(ctx, h)

		if err := s.links.Delete(ctx, evidenceID, hypothesisID); err != nil {
			return linkStoreErr(err)
		}
		confidence, err = s.engine.recompute(ctx, hypothesisID, TriggerLinkDelete)
		return err
	})
	return confidence, err
}

func (s *LinkService) requireLink(ctx context.Context, evidenceID, hypothesisID string) (*domain.Hypothesis, error) {
	h, err := s.unlockedHypothesis(ctx, hypothesisID)
	if err != nil {
		return nil, err
	}
	exists, err := s.links.Exists(ctx, evidenceID, hypothesisID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrLinkNotFound
	}
	return h, nil
}

func (s *LinkService) Get(ctx context.Context, evidenceID, hypothesisID string) (*domain.AffectsLink, error) {
	l, err := s.links.Get(ctx, evidenceID, hypothesisID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *LinkService) ListByHypothesis(ctx context.Context, hypothesisID string) ([]domain.AffectsLink, error) {
	return s.links.ListByHypothesis(ctx, hypothesisID)
}

func (s *LinkService) ListByEvidence(ctx context.Context, evidenceID string) ([]domain.AffectsLink, error) {
	return s.links.ListByEvidence(ctx, evidenceID)
}
