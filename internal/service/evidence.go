package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEvidenceIDRequired = errors.New("id is required")
	ErrContentRequired    = errors.New("content is required")
	ErrSourceURLRequired  = errors.New("source_url is required")
	ErrEvidenceExists     = errors.New("evidence already exists")
)

// deleteRecomputeLimit bounds concurrent recomputes after an evidence delete.
const deleteRecomputeLimit = 4

type EvidenceService struct {
	evidence domain.EvidenceStore
	links    domain.LinkStore
	engine   *Engine
	backfill *Backfiller
	logger   *zap.Logger
}

func NewEvidenceService(stores domain.Stores, engine *Engine, backfill *Backfiller, logger *zap.Logger) *EvidenceService {
	return &EvidenceService{
		evidence: stores.Evidence,
		links:    stores.Links,
		engine:   engine,
		backfill: backfill,
		logger:   logger,
	}
}

func (s *EvidenceService) Create(ctx context.Context, id, content, sourceURL string) (*domain.Evidence, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEvidenceIDRequired
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	if strings.TrimSpace(sourceURL) == "" {
		return nil, ErrSourceURLRequired
	}

	e := &domain.Evidence{ID: id, Content: content, SourceURL: sourceURL}
	if err := s.evidence.Create(ctx, e); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEvidenceExists
		}
		return nil, err
	}
	return e, nil
}

func (s *EvidenceService) Get(ctx context.Context, id string) (*domain.Evidence, error) {
	e, err := s.evidence.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEvidenceNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EvidenceService) List(ctx context.Context) ([]domain.Evidence, error) {
	out, err := s.evidence.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Evidence{}
	}
	return out, nil
}

// Update edits content and source_url. Likelihoods live on links, so no
// recompute is needed.
func (s *EvidenceService) Update(ctx context.Context, id, content, sourceURL string) (*domain.Evidence, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	if strings.TrimSpace(sourceURL) == "" {
		return nil, ErrSourceURLRequired
	}
	e := &domain.Evidence{ID: id, Content: content, SourceURL: sourceURL}
	if err := s.evidence.Update(ctx, e); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEvidenceNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EvidenceService) Links(ctx context.Context, id string) ([]domain.LinkedHypothesis, error) {
	out, err := s.links.ListLinkedHypotheses(ctx, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.LinkedHypothesis{}
	}
	return out, nil
}

// Delete removes the evidence and its links, then recomputes every
// unverified hypothesis it affected. All affected hypothesis locks are held
// before anything is written, so a lock timeout leaves the evidence intact.
// Recompute failures after the commit are reported per item.
func (s *EvidenceService) Delete(ctx context.Context, id string) ([]domain.RecomputedHypothesis, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	linked, err := s.links.ListLinkedHypotheses(ctx, id)
	if err != nil {
		return nil, err
	}
	lockIDs := make([]string, 0, len(linked))
	held := make(map[string]bool, len(linked))
	for _, lh := range linked {
		lockIDs = append(lockIDs, lh.Hypothesis.ID)
		held[lh.Hypothesis.ID] = true
	}

	var (
		results []domain.RecomputedHypothesis
		late    []int
	)
	err = s.engine.WithLocks(ctx, lockIDs, func(ctx context.Context) error {
		if err := s.ensureBasePriors(ctx, id, held); err != nil {
			return err
		}

		affected, err := s.evidence.Delete(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrEvidenceNotFound
			}
			return err
		}

		results = make([]domain.RecomputedHypothesis, len(affected))
		var g errgroup.Group
		g.SetLimit(deleteRecomputeLimit)
		for i, hid := range affected {
			results[i].HypothesisID = hid
			if !held[hid] {
				late = append(late, i)
				continue
			}
			g.Go(func() error {
				s.recomputeInto(ctx, &results[i])
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	// Links created after the lock set was chosen are recomputed under
	// their own lock.
	for _, i := range late {
		r := &results[i]
		err := s.engine.WithLock(ctx, r.HypothesisID, func(ctx context.Context) error {
			s.recomputeInto(ctx, r)
			return nil
		})
		if err != nil {
			r.Error = err.Error()
		}
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			s.logger.Warn("recompute after evidence delete failed",
				zap.String("evidence_id", id),
				zap.String("hypothesis_id", r.HypothesisID),
				zap.String("error", r.Error),
			)
		}
	}
	s.logger.Info("evidence deleted",
		zap.String("evidence_id", id),
		zap.Int("recomputed", len(results)-failed),
		zap.Int("failed", failed),
	)
	return results, nil
}

// ensureBasePriors reconstructs missing base priors while the links still
// exist, for the hypotheses whose locks the caller holds.
func (s *EvidenceService) ensureBasePriors(ctx context.Context, evidenceID string, held map[string]bool) error {
	linked, err := s.links.ListLinkedHypotheses(ctx, evidenceID)
	if err != nil {
		return err
	}
	for i := range linked {
		h := &linked[i].Hypothesis
		if !held[h.ID] || h.BaseConfidence != nil || h.IsVerified() {
			continue
		}
		s.backfill.Ensure(ctx, h)
		if h.BaseConfidence != nil {
			continue
		}
		cur, err := s.engine.hypotheses.GetByID(ctx, h.ID)
		if err != nil {
			return err
		}
		if cur.BaseConfidence == nil && !cur.IsVerified() {
			return fmt.Errorf("%w: %s", ErrMissingBasePrior, h.ID)
		}
	}
	return nil
}

// recomputeInto records the outcome for one hypothesis. The caller holds
// its lock. Verified and vanished hypotheses keep a nil confidence.
func (s *EvidenceService) recomputeInto(ctx context.Context, r *domain.RecomputedHypothesis) {
	confidence, err := s.engine.recompute(ctx, r.HypothesisID, TriggerEvidenceDelete)
	switch {
	case err == nil:
		r.Confidence = &confidence
	case errors.Is(err, ErrHypothesisLocked), errors.Is(err, ErrHypothesisNotFound):
	default:
		r.Error = err.Error()
	}
}
