package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"go.uber.org/zap"
)

const calibrationBins = 10

type AccuracyItem struct {
	ID               string                  `json:"id"`
	Statement        string                  `json:"statement"`
	PreConfidence    *float64                `json:"pre_confidence"`
	VerificationType domain.VerificationType `json:"verification_type,omitempty"`
	Verified         *time.Time              `json:"verified"`
	Outcome          *int                    `json:"outcome"`
	Brier            *float64                `json:"brier"`
}

type AccuracySummary struct {
	Total        int      `json:"total"`
	Confirmed    int      `json:"confirmed"`
	Refuted      int      `json:"refuted"`
	WithPreCount int      `json:"with_pre_count"`
	AvgPre       *float64 `json:"avg_pre"`
	BrierMean    *float64 `json:"brier_mean"`
}

type CalibrationBin struct {
	Bin      string   `json:"bin"`
	Count    int      `json:"count"`
	AvgPred  *float64 `json:"avg_pred"`
	Accuracy *float64 `json:"accuracy"`
}

type AccuracyReport struct {
	Summary AccuracySummary  `json:"summary"`
	Bins    []CalibrationBin `json:"bins"`
	Items   []AccuracyItem   `json:"items"`
}

// AnalyticsService scores how well pre-verification confidence predicted
// the eventual outcome.
type AnalyticsService struct {
	hypotheses    domain.HypothesisStore
	verifications domain.VerificationStore
	logger        *zap.Logger
}

func NewAnalyticsService(hs domain.HypothesisStore, vs domain.VerificationStore, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{hypotheses: hs, verifications: vs, logger: logger}
}

func (s *AnalyticsService) Accuracy(ctx context.Context) (*AccuracyReport, error) {
	verified, err := s.hypotheses.ListVerified(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.verifications.LatestPerHypothesis(ctx)
	if err != nil {
		s.logger.Warn("latest verifications unavailable", zap.Error(err))
		latest = nil
	}
	return BuildAccuracyReport(verified, latest), nil
}

// BuildAccuracyReport computes the report from verified hypotheses and their
// latest verification records. Hypotheses should already be ordered by
// verification time, newest first.
func BuildAccuracyReport(verified []domain.Hypothesis, latest map[string]domain.Verification) *AccuracyReport {
	report := &AccuracyReport{
		Bins:  make([]CalibrationBin, calibrationBins),
		Items: make([]AccuracyItem, 0, len(verified)),
	}
	for k := range report.Bins {
		report.Bins[k].Bin = fmt.Sprintf("%d-%d%%", k*10, (k+1)*10)
	}

	var sumPre, sumBrier float64
	predSums := make([]float64, calibrationBins)
	outcomeSums := make([]float64, calibrationBins)

	for _, h := range verified {
		item := AccuracyItem{
			ID:               h.ID,
			Statement:        h.Statement,
			VerificationType: h.VerificationType,
			Verified:         h.Verified,
		}

		var outcome *int
		switch h.VerificationType {
		case domain.VerificationConfirmed:
			o := 1
			outcome = &o
			report.Summary.Confirmed++
		case domain.VerificationRefuted:
			o := 0
			outcome = &o
			report.Summary.Refuted++
		}
		item.Outcome = outcome

		pre := h.PreVerificationConfidence
		if pre == nil {
			if v, ok := latest[h.ID]; ok {
				pre = v.PreVerificationConfidence
			}
		}
		if pre != nil && (math.IsNaN(*pre) || math.IsInf(*pre, 0)) {
			pre = nil
		}
		item.PreConfidence = pre

		if pre != nil && outcome != nil {
			b := Brier(*pre, float64(*outcome))
			item.Brier = &b

			report.Summary.WithPreCount++
			sumPre += *pre
			sumBrier += b

			idx := int(math.Floor(*pre * calibrationBins))
			if idx < 0 {
				idx = 0
			}
			if idx > calibrationBins-1 {
				idx = calibrationBins - 1
			}
			report.Bins[idx].Count++
			predSums[idx] += *pre
			outcomeSums[idx] += float64(*outcome)
		}

		report.Items = append(report.Items, item)
	}

	report.Summary.Total = len(verified)
	if n := float64(report.Summary.WithPreCount); n > 0 {
		avgPre := sumPre / n
		brierMean := sumBrier / n
		report.Summary.AvgPre = &avgPre
		report.Summary.BrierMean = &brierMean
	}
	for k := range report.Bins {
		if c := float64(report.Bins[k].Count); c > 0 {
			avg := predSums[k] / c
			acc := outcomeSums[k] / c
			report.Bins[k].AvgPred = &avg
			report.Bins[k].Accuracy = &acc
		}
	}
	return report
}
