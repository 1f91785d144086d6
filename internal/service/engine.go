package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/metrics"
	"github.com/Harshitk-cp/credence/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	ErrHypothesisNotFound = errors.New("hypothesis not found")
	ErrHypothesisLocked   = errors.New("hypothesis is verified and locked")
	ErrMissingBasePrior   = errors.New("hypothesis has no base prior")
	ErrLockTimeout        = errors.New("timed out waiting for hypothesis lock")
)

// DefaultLockTimeout bounds how long an operation waits for a hypothesis lock.
const DefaultLockTimeout = 5 * time.Second

// Recompute triggers, used as the metrics label.
const (
	TriggerLinkCreate     = "link_create"
	TriggerLinkUpdate     = "link_update"
	TriggerLinkDelete     = "link_delete"
	TriggerEvidenceDelete = "evidence_delete"
	TriggerManual         = "manual"
)

var tracer = otel.Tracer("credence/service")

// Locker serializes work on one hypothesis. The returned func releases it.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// keyLock runs work under a per-hypothesis lock with a bounded wait.
type keyLock struct {
	locker  Locker
	timeout time.Duration
}

func (k *keyLock) acquire(ctx context.Context, hypothesisID string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, k.timeout)
	start := time.Now()
	release, err := k.locker.Acquire(waitCtx, hypothesisID)
	timedOut := waitCtx.Err() != nil
	cancel()
	metrics.LockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case timedOut:
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, hypothesisID)
		}
		return nil, fmt.Errorf("acquire lock %s: %w", hypothesisID, err)
	}
	return release, nil
}

func (k *keyLock) withLock(ctx context.Context, hypothesisID string, fn func(ctx context.Context) error) error {
	release, err := k.acquire(ctx, hypothesisID)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// withLocks takes every lock in ascending id order so two multi-key callers
// cannot deadlock. Nothing runs unless all of them are held.
func (k *keyLock) withLocks(ctx context.Context, hypothesisIDs []string, fn func(ctx context.Context) error) error {
	ids := append([]string(nil), hypothesisIDs...)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	releases := make([]func(), 0, len(ids))
	defer func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}()
	for _, id := range ids {
		release, err := k.acquire(ctx, id)
		if err != nil {
			return err
		}
		releases = append(releases, release)
	}
	return fn(ctx)
}

// Engine replays a hypothesis's evidence links over its base prior.
type Engine struct {
	hypotheses domain.HypothesisStore
	links      domain.LinkStore
	lock       *keyLock
	logger     *zap.Logger
}

func NewEngine(hs domain.HypothesisStore, ls domain.LinkStore, locker Locker, logger *zap.Logger) *Engine {
	return &Engine{
		hypotheses: hs,
		links:      ls,
		lock:       &keyLock{locker: locker, timeout: DefaultLockTimeout},
		logger:     logger,
	}
}

func (e *Engine) SetLockTimeout(d time.Duration) {
	if d > 0 {
		e.lock.timeout = d
	}
}

// WithLock runs fn while holding hypothesisID's lock.
func (e *Engine) WithLock(ctx context.Context, hypothesisID string, fn func(ctx context.Context) error) error {
	return e.lock.withLock(ctx, hypothesisID, fn)
}

// WithLocks runs fn while holding the lock of every listed hypothesis.
func (e *Engine) WithLocks(ctx context.Context, hypothesisIDs []string, fn func(ctx context.Context) error) error {
	return e.lock.withLocks(ctx, hypothesisIDs, fn)
}

// RecomputeFromBase takes the hypothesis lock and rebuilds its confidence.
func (e *Engine) RecomputeFromBase(ctx context.Context, hypothesisID string) (float64, error) {
	var confidence float64
	err := e.WithLock(ctx, hypothesisID, func(ctx context.Context) error {
		var err error
		confidence, err = e.recompute(ctx, hypothesisID, TriggerManual)
		return err
	})
	return confidence, err
}

// recompute must be called with the hypothesis lock held.
func (e *Engine) recompute(ctx context.Context, hypothesisID, trigger string) (float64, error) {
	ctx, span := tracer.Start(ctx, "service.Engine.recompute")
	defer span.End()
	span.SetAttributes(
		attribute.String("hypothesis.id", hypothesisID),
		attribute.String("trigger", trigger),
	)

	h, err := e.hypotheses.GetByID(ctx, hypothesisID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrHypothesisNotFound
		}
		span.RecordError(err)
		return 0, err
	}
	if h.IsVerified() {
		return 0, ErrHypothesisLocked
	}
	if h.BaseConfidence == nil {
		e.logger.Error("recompute without base prior",
			zap.String("hypothesis_id", hypothesisID),
			zap.String("trigger", trigger),
		)
		span.SetStatus(codes.Error, "missing base prior")
		return 0, ErrMissingBasePrior
	}

	links, err := e.links.ListByHypothesis(ctx, hypothesisID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	confidence := ApplyLinks(*h.BaseConfidence, likelihoodsOf(links))
	if err := e.hypotheses.UpdateConfidence(ctx, hypothesisID, confidence); err != nil {
		switch {
		case errors.Is(err, store.ErrLocked):
			return 0, ErrHypothesisLocked
		case errors.Is(err, store.ErrNotFound):
			return 0, ErrHypothesisNotFound
		}
		span.RecordError(err)
		return 0, err
	}

	metrics.Recomputes.WithLabelValues(trigger).Inc()
	span.SetAttributes(
		attribute.Int("links", len(links)),
		attribute.Float64("confidence", confidence),
	)
	e.logger.Debug("confidence recomputed",
		zap.String("hypothesis_id", hypothesisID),
		zap.Float64("base", *h.BaseConfidence),
		zap.Float64("confidence", confidence),
		zap.Int("links", len(links)),
	)
	return confidence, nil
}
