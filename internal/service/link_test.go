package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkLifecycle_RecomputesFromBase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustHypothesis(t, "h1", 0.5)
	env.mustEvidence(t, "e1")

	l := domain.Likelihoods{PEGivenH: 0.8, PEGivenNotH: 0.2}

	c, err := env.links.Create(ctx, "e1", "h1", l)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, c, 1e-9)

	c, err = env.links.Update(ctx, "e1", "h1", l)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, c, 1e-9, "same likelihoods are not applied twice")

	c, err = env.links.Delete(ctx, "e1", "h1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, c, 1e-9)

	h := env.db.hypothesis("h1")
	require.NotNil(t, h.BaseConfidence)
	assert.Equal(t, 0.5, *h.BaseConfidence)
	assert.InDelta(t, 0.5, h.Confidence, 1e-9)
}

func TestLinkCreate_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustHypothesis(t, "h1", 0.5)
	env.mustEvidence(t, "e1")

	l := domain.Likelihoods{PEGivenH: 0.8, PEGivenNotH: 0.2}
	_, err := env.links.Create(ctx, "e1", "h1", l)
	require.NoError(t, err)

	_, err = env.links.Create(ctx, "e1", "h1", domain.Likelihoods{PEGivenH: 0.1, PEGivenNotH: 0.9})
	assert.ErrorIs(t, err, ErrDuplicateLink)
	assert.InDelta(t, 0.8, env.db.hypothesis("h1").Confidence, 1e-9)
}

func TestLinkCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustHypothesis(t, "h1", 0.5)
	env.mustEvidence(t, "e1")

	_, err := env.links.Create(ctx, "e1", "h1", domain.Likelihoods{PEGivenH: 1.2, PEGivenNotH: 0.2})
	assert.ErrorIs(t, err, ErrInvalidProbability)

	_, err = env.links.Create(ctx, "missing", "h1", domain.Likelihoods{PEGivenH: 0.5, PEGivenNotH: 0.2})
	assert.ErrorIs(t, err, ErrEvidenceNotFound)

	_, err = env.links.Create(ctx, "e1", "missing", domain.Likelihoods{PEGivenH: 0.5, PEGivenNotH: 0.2})
	assert.ErrorIs(t, err, ErrHypothesisNotFound)

	_, err = env.links.Update(ctx, "e1", "h1", domain.Likelihoods{PEGivenH: 0.5, PEGivenNotH: 0.2})
	assert.ErrorIs(t, err, ErrLinkNotFound)

	_, err = env.links.Delete(ctx, "e1", "h1")
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestLockInvariant_VerifiedHypothesisRejectsMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustHypothesis(t, "h1", 0.5)
	env.mustEvidence(t, "e1")
	env.mustEvidence(t, "e2")

	_, err := env.links.Create(ctx, "e1", "h1", domain.Likelihoods{PEGivenH: 0.8, PEGivenNotH: 0.2})
	require.NoError(t, err)
	_, err = env.verifications.Verify(ctx, "h1", "e1", "confirmed")
	require.NoError(t, err)

	_, err = env.links.Create(ctx, "e2", "h1", domain.Likelihoods{PEGivenH: 0.1, PEGivenNotH: 0.9})
	assert.ErrorIs(t, err, ErrHypothesisLocked)
	_, err = env.links.Update(ctx, "e1", "h1", domain.Likelihoods{PEGivenH: 0.1, PEGivenNotH: 0.9})
	assert.ErrorIs(t, err, ErrHypothesisLocked)
	_, err = env.links.Delete(ctx, "e1", "h1")
	assert.ErrorIs(t, err, ErrHypothesisLocked)
	_, err = env.engine.RecomputeFromBase(ctx, "h1")
	assert.ErrorIs(t, err, ErrHypothesisLocked)
	_, err = env.hypotheses.SetConfidence(ctx, "h1", 0.2)
	assert.ErrorIs(t, err, ErrHypothesisLocked)

	assert.Equal(t, 1.0, env.db.hypothesis("h1").Confidence)
}

func TestLinkCreate_ConcurrentMutationsSerialize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustHypothesis(t, "h1", 0.3)

	const n = 12
	var want []domain.Likelihoods
	for i := 0; i < n; i++ {
		env.mustEvidence(t, fmt.Sprintf("e%02d", i))
		want = append(want, domain.Likelihoods{PEGivenH: 0.5 + float64(i)/50, PEGivenNotH: 0.4})
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.links.Create(ctx, fmt.Sprintf("e%02d", i), "h1", want[i])
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.InDelta(t, ApplyLinks(0.3, want), env.db.hypothesis("h1").Confidence, 1e-9)
}

func TestRecomputeFromBase_MissingBasePrior(t *testing.T) {
	env := newTestEnv(t)
	env.db.seedHypothesis(domain.Hypothesis{ID: "legacy", Statement: "s", Confidence: 0.7})

	_, err := env.engine.RecomputeFromBase(context.Background(), "legacy")
	assert.ErrorIs(t, err, ErrMissingBasePrior)

	_, err = env.engine.RecomputeFromBase(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrHypothesisNotFound)
}

type blockingLocker struct{}

func (blockingLocker) Acquire(ctx context.Context, key string) (func(), error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEngine_LockTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.engine.lock.locker = blockingLocker{}
	env.engine.SetLockTimeout(20 * time.Millisecond)

	err := env.engine.WithLock(context.Background(), "h1", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrLockTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = env.engine.WithLock(ctx, "h1", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_WithLocksAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.engine.SetLockTimeout(30 * time.Millisecond)

	held, err := env.engine.lock.locker.Acquire(ctx, "h2")
	require.NoError(t, err)

	ran := false
	err = env.engine.WithLocks(ctx, []string{"h3", "h1", "h2", "h1"}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, ran)

	// h1 was taken before h2 blocked and must have been released.
	require.NoError(t, env.engine.WithLock(ctx, "h1", func(ctx context.Context) error { return nil }))

	held()
	err = env.engine.WithLocks(ctx, []string{"h3", "h1", "h2"}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
