package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/metrics"
	"go.uber.org/zap"
)

// BackfillItem describes one reconstructed base prior.
type BackfillItem struct {
	HypothesisID string  `json:"id"`
	Posterior    float64 `json:"posterior"`
	Base         float64 `json:"base_confidence"`
	Links        int     `json:"links"`
	Written      bool    `json:"written"`
}

type BackfillResult struct {
	Scanned int            `json:"scanned"`
	Written int            `json:"written"`
	DryRun  bool           `json:"dry_run"`
	Items   []BackfillItem `json:"items"`
}

// Backfiller reconstructs missing base priors for hypotheses created before
// base_confidence existed. Run is the migration; Ensure is the online
// fallback for anything the migration has not reached yet.
type Backfiller struct {
	hypotheses domain.HypothesisStore
	links      domain.LinkStore
	engine     *Engine
	logger     *zap.Logger
}

func NewBackfiller(hs domain.HypothesisStore, ls domain.LinkStore, engine *Engine, logger *zap.Logger) *Backfiller {
	return &Backfiller{hypotheses: hs, links: ls, engine: engine, logger: logger}
}

func (b *Backfiller) reconcile(ctx context.Context, h *domain.Hypothesis) (BackfillItem, error) {
	links, err := b.links.ListByHypothesis(ctx, h.ID)
	if err != nil {
		return BackfillItem{}, err
	}
	return BackfillItem{
		HypothesisID: h.ID,
		Posterior:    h.Confidence,
		Base:         ReconcileBasePrior(h.Confidence, likelihoodsOf(links)),
		Links:        len(links),
	}, nil
}

// Run backfills every unverified hypothesis missing a base prior. Each item
// is reconciled under its hypothesis lock so it cannot interleave with a
// link mutation. With dryRun nothing is written.
func (b *Backfiller) Run(ctx context.Context, dryRun bool) (*BackfillResult, error) {
	pending, err := b.hypotheses.ListMissingBasePrior(ctx)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{DryRun: dryRun}
	for i := range pending {
		h := &pending[i]
		result.Scanned++

		err := b.engine.WithLock(ctx, h.ID, func(ctx context.Context) error {
			item, err := b.reconcile(ctx, h)
			if err != nil {
				return err
			}
			if !dryRun {
				item.Written, err = b.hypotheses.SetBaseConfidenceIfAbsent(ctx, h.ID, item.Base)
				if err != nil {
					return err
				}
			}
			if item.Written {
				result.Written++
				metrics.BackfilledPriors.WithLabelValues("migration").Inc()
			}
			result.Items = append(result.Items, item)
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			b.logger.Warn("backfill item failed", zap.String("hypothesis_id", h.ID), zap.Error(err))
			metrics.BestEffortFailures.WithLabelValues("backfill_migration").Inc()
		}
	}

	b.logger.Info("base prior backfill finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("written", result.Written),
		zap.Bool("dry_run", dryRun),
	)
	return result, nil
}

// Ensure reconstructs h's base prior from its current links if it is still
// absent. It must run under the hypothesis lock and before the mutation
// that needs it. Failures are logged and swallowed.
func (b *Backfiller) Ensure(ctx context.Context, h *domain.Hypothesis) {
	if h.BaseConfidence != nil || h.IsVerified() {
		return
	}

	item, err := b.reconcile(ctx, h)
	if err == nil {
		item.Written, err = b.hypotheses.SetBaseConfidenceIfAbsent(ctx, h.ID, item.Base)
	}
	if err != nil {
		b.logger.Warn("base prior fallback failed", zap.String("hypothesis_id", h.ID), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("backfill_online").Inc()
		return
	}
	if item.Written {
		base := item.Base
		h.BaseConfidence = &base
		metrics.BackfilledPriors.WithLabelValues("online").Inc()
		b.logger.Info("base prior reconstructed",
			zap.String("hypothesis_id", h.ID),
			zap.Float64("posterior", item.Posterior),
			zap.Float64("base", item.Base),
			zap.Int("links", item.Links),
		)
	}
}
