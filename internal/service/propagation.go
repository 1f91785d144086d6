package service

import (
	"context"
	"errors"
	"math"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// DefaultDampening scales the first hop of a propagated change.
	DefaultDampening = 0.8
	// DampeningDecay multiplies the dampening at every further hop.
	DampeningDecay = 0.8
	// MinPropagatedImpact stops the walk below this absolute change.
	MinPropagatedImpact = 0.01
	MaxPropagationDepth = 6

	DefaultContradictionThreshold = 0.7
)

var ErrInvalidDampening = errors.New("dampening must be within (0, 1]")

// PropagationService spreads a confidence change along depends_on edges and
// finds strongly held contradictions.
type PropagationService struct {
	hypotheses domain.HypothesisStore
	relations  domain.RelationStore
	engine     *Engine
	logger     *zap.Logger
}

func NewPropagationService(hs domain.HypothesisStore, rs domain.RelationStore, engine *Engine, logger *zap.Logger) *PropagationService {
	return &PropagationService{hypotheses: hs, relations: rs, engine: engine, logger: logger}
}

type propagationStep struct {
	id        string
	change    float64
	dampening float64
	depth     int
}

// Propagate walks dependents breadth first. Each hypothesis is touched at
// most once, so cycles terminate. Verified dependents are skipped. A
// dependent that cannot be written is logged and skipped.
func (s *PropagationService) Propagate(ctx context.Context, hypothesisID string, change, dampening float64) ([]domain.PropagationImpact, error) {
	if dampening <= 0 || dampening > 1 || math.IsNaN(dampening) {
		return nil, ErrInvalidDampening
	}

	ctx, span := tracer.Start(ctx, "service.PropagationService.Propagate")
	defer span.End()
	span.SetAttributes(
		attribute.String("hypothesis.id", hypothesisID),
		attribute.Float64("change", change),
	)

	impacts := []domain.PropagationImpact{}
	visited := map[string]bool{hypothesisID: true}
	queue := []propagationStep{{id: hypothesisID, change: change, dampening: dampening, depth: 1}}

	for len(queue) > 0 {
		step := queue[0]
		queue = queue[1:]

		deps, err := s.relations.Dependents(ctx, step.id)
		if err != nil {
			return impacts, err
		}

		for _, d := range deps {
			if visited[d.HypothesisID] {
				continue
			}
			visited[d.HypothesisID] = true
			if d.Verified {
				continue
			}

			impact := step.change * d.Strength * step.dampening
			confidence, ok := s.nudge(ctx, d.HypothesisID, impact)
			if !ok {
				continue
			}
			impacts = append(impacts, domain.PropagationImpact{
				HypothesisID: d.HypothesisID,
				Impact:       impact,
				Depth:        step.depth,
				Confidence:   confidence,
			})

			if math.Abs(impact) > MinPropagatedImpact && step.depth < MaxPropagationDepth {
				queue = append(queue, propagationStep{
					id:        d.HypothesisID,
					change:    impact,
					dampening: step.dampening * DampeningDecay,
					depth:     step.depth + 1,
				})
			}
		}
	}

	span.SetAttributes(attribute.Int("impacted", len(impacts)))
	return impacts, nil
}

// nudge adds impact to a dependent's current confidence under its lock.
func (s *PropagationService) nudge(ctx context.Context, id string, impact float64) (float64, bool) {
	var confidence float64
	err := s.engine.WithLock(ctx, id, func(ctx context.Context) error {
		h, err := s.hypotheses.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if h.IsVerified() {
			return store.ErrLocked
		}
		confidence = clamp01(h.Confidence + impact)
		return s.hypotheses.UpdateConfidence(ctx, id, confidence)
	})
	if err != nil {
		if !errors.Is(err, store.ErrLocked) {
			s.logger.Warn("propagation skipped dependent", zap.String("hypothesis_id", id), zap.Error(err))
		}
		return 0, false
	}
	return confidence, true
}

// FindContradictions lists contradicting pairs held above minConfidence.
func (s *PropagationService) FindContradictions(ctx context.Context, minConfidence float64) ([]domain.Contradiction, error) {
	if !domain.ValidProbability(minConfidence) {
		return nil, ErrInvalidProbability
	}
	out, err := s.relations.Contradictions(ctx, minConfidence)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Contradiction{}
	}
	return out, nil
}

type ConfidenceChange struct {
	Old    float64 `json:"old_confidence"`
	New    float64 `json:"new_confidence"`
	Change float64 `json:"change"`
}

type UpdateResult struct {
	HypothesisID string                     `json:"hypothesis_id"`
	EvidenceID   string                     `json:"evidence_id"`
	Update       ConfidenceChange           `json:"update"`
	Propagation  []domain.PropagationImpact `json:"propagation"`
}

// UpdateService is the manual update trigger: recompute one hypothesis for a
// linked evidence item and optionally push the change to dependents.
type UpdateService struct {
	hypotheses  domain.HypothesisStore
	links       domain.LinkStore
	engine      *Engine
	backfill    *Backfiller
	propagation *PropagationService
	logger      *zap.Logger
}

func NewUpdateService(stores domain.Stores, engine *Engine, backfill *Backfiller, propagation *PropagationService, logger *zap.Logger) *UpdateService {
	return &UpdateService{
		hypotheses:  stores.Hypotheses,
		links:       stores.Links,
		engine:      engine,
		backfill:    backfill,
		propagation: propagation,
		logger:      logger,
	}
}

// Update recomputes from base. The link is already part of the replayed
// set, so repeating the call yields the same confidence.
func (s *UpdateService) Update(ctx context.Context, hypothesisID, evidenceID string, propagate bool, dampening float64) (*UpdateResult, error) {
	if dampening == 0 {
		dampening = DefaultDampening
	}
	if propagate && (dampening < 0 || dampening > 1 || math.IsNaN(dampening)) {
		return nil, ErrInvalidDampening
	}

	result := &UpdateResult{HypothesisID: hypothesisID, EvidenceID: evidenceID}
	err := s.engine.WithLock(ctx, hypothesisID, func(ctx context.Context) error {
		h, err := s.hypotheses.GetByID(ctx, hypothesisID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrHypothesisNotFound
			}
			return err
		}
		if h.IsVerified() {
			return ErrHypothesisLocked
		}
		exists, err := s.links.Exists(ctx, evidenceID, hypothesisID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrLinkNotFound
		}

		s.backfill.Ensure(ctx, h)

		result.Update.Old = h.Confidence
		result.Update.New, err = s.engine.recompute(ctx, hypothesisID, TriggerManual)
		result.Update.Change = result.Update.New - result.Update.Old
		return err
	})
	if err != nil {
		return nil, err
	}

	if propagate {
		impacts, err := s.propagation.Propagate(ctx, hypothesisID, result.Update.Change, dampening)
		if err != nil {
			s.logger.Warn("propagation failed", zap.String("hypothesis_id", hypothesisID), zap.Error(err))
		}
		result.Propagation = impacts
	}
	return result, nil
}
