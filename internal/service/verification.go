package service

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/metrics"
	"github.com/Harshitk-cp/credence/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrAlreadyVerified         = errors.New("hypothesis is already verified")
	ErrInvalidVerificationType = errors.New("verification_type must be confirmed or refuted")
)

// VerificationService moves a hypothesis from unverified to confirmed or
// refuted. The transition happens once; there is no unverify.
type VerificationService struct {
	hypotheses    domain.HypothesisStore
	evidence      domain.EvidenceStore
	verifications domain.VerificationStore
	engine        *Engine
	logger        *zap.Logger
	now           func() time.Time
}

func NewVerificationService(stores domain.Stores, engine *Engine, logger *zap.Logger) *VerificationService {
	return &VerificationService{
		hypotheses:    stores.Hypotheses,
		evidence:      stores.Evidence,
		verifications: stores.Verifications,
		engine:        engine,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *VerificationService) Verify(ctx context.Context, hypothesisID, evidenceID, verificationType string) (*domain.Hypothesis, error) {
	if !domain.ValidVerificationType(verificationType) {
		return nil, ErrInvalidVerificationType
	}
	vType := domain.VerificationType(verificationType)

	ctx, span := tracer.Start(ctx, "service.VerificationService.Verify")
	defer span.End()
	span.SetAttributes(
		attribute.String("hypothesis.id", hypothesisID),
		attribute.String("verification.type", verificationType),
	)

	var verified *domain.Hypothesis
	err := s.engine.WithLock(ctx, hypothesisID, func(ctx context.Context) error {
		h, err := s.hypotheses.GetByID(ctx, hypothesisID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrHypothesisNotFound
			}
			return err
		}
		if _, err := s.evidence.GetByID(ctx, evidenceID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrEvidenceNotFound
			}
			return err
		}
		if h.IsVerified() {
			return ErrAlreadyVerified
		}

		// The store re-checks verified IS NULL atomically.
		verified, err = s.hypotheses.Verify(ctx, hypothesisID, evidenceID, vType, s.now().UTC())
		if err != nil {
			switch {
			case errors.Is(err, store.ErrLocked):
				return ErrAlreadyVerified
			case errors.Is(err, store.ErrNotFound):
				return ErrHypothesisNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyVerified) {
			span.RecordError(err)
		}
		return nil, err
	}

	metrics.Verifications.WithLabelValues(verificationType).Inc()
	fields := []zap.Field{
		zap.String("hypothesis_id", hypothesisID),
		zap.String("evidence_id", evidenceID),
		zap.String("verification_type", verificationType),
	}
	if verified.PreVerificationConfidence != nil {
		fields = append(fields, zap.Float64("pre_verification_confidence", *verified.PreVerificationConfidence))
	}
	s.logger.Info("hypothesis verified", fields...)
	return verified, nil
}

func (s *VerificationService) History(ctx context.Context, hypothesisID string) ([]domain.Verification, error) {
	if _, err := s.hypotheses.GetByID(ctx, hypothesisID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrHypothesisNotFound
		}
		return nil, err
	}
	return s.verifications.ListByHypothesis(ctx, hypothesisID)
}
