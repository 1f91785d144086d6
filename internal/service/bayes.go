package service

import (
	"math"
	"sort"

	"github.com/Harshitk-cp/credence/internal/domain"
)

// Epsilon bounds probabilities away from 0 and 1 before odds conversion and
// floors likelihoods before taking ratios.
const Epsilon = 1e-6

func clampProbability(p float64) float64 {
	if p < Epsilon {
		return Epsilon
	}
	if p > 1-Epsilon {
		return 1 - Epsilon
	}
	return p
}

func clamp01(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// Posterior applies one Bayesian update. When both signal and noise are zero
// the prior is returned unchanged.
func Posterior(prior, pEGivenH, pEGivenNotH float64) float64 {
	signal := pEGivenH * prior
	noise := pEGivenNotH * (1 - prior)
	if signal+noise == 0 {
		return prior
	}
	return signal / (signal + noise)
}

func ToOdds(p float64) float64 {
	p = clampProbability(p)
	return p / (1 - p)
}

func FromOdds(o float64) float64 {
	return clampProbability(o / (1 + o))
}

func LikelihoodRatio(pEGivenH, pEGivenNotH float64) float64 {
	return math.Max(Epsilon, pEGivenH) / math.Max(Epsilon, pEGivenNotH)
}

// Brier is the squared error between a prediction and a 0/1 outcome.
func Brier(prediction, outcome float64) float64 {
	d := prediction - outcome
	return d * d
}

// SignalNoise breaks an update into its two terms. Ratio is +Inf when noise
// is zero.
type SignalNoise struct {
	Signal float64 `json:"signal"`
	Noise  float64 `json:"noise"`
	Ratio  float64 `json:"ratio"`
}

func ComputeSignalNoise(prior, pEGivenH, pEGivenNotH float64) SignalNoise {
	signal := pEGivenH * prior
	noise := pEGivenNotH * (1 - prior)
	ratio := math.Inf(1)
	if noise != 0 {
		ratio = signal / noise
	}
	return SignalNoise{Signal: signal, Noise: noise, Ratio: ratio}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CombinedLikelihoodRatio multiplies the likelihood ratios of all links.
// Pairs with a non-finite likelihood are skipped.
func CombinedLikelihoodRatio(links []domain.Likelihoods) float64 {
	combined := 1.0
	for _, l := range links {
		if !finite(l.PEGivenH) || !finite(l.PEGivenNotH) {
			continue
		}
		combined *= LikelihoodRatio(l.PEGivenH, l.PEGivenNotH)
	}
	return combined
}

// ReconcileBasePrior recovers the evidence-independent prior from a
// posterior and the links that produced it.
func ReconcileBasePrior(posterior float64, links []domain.Likelihoods) float64 {
	postOdds := ToOdds(clampProbability(posterior))
	combined := CombinedLikelihoodRatio(links)
	baseOdds := math.Max(Epsilon, postOdds/math.Max(Epsilon, combined))
	return FromOdds(baseOdds)
}

// ApplyLinks folds Posterior over links starting from base. The result does
// not depend on link order.
func ApplyLinks(base float64, links []domain.Likelihoods) float64 {
	confidence := base
	for _, l := range links {
		confidence = Posterior(confidence, l.PEGivenH, l.PEGivenNotH)
	}
	return confidence
}

// likelihoodsOf returns the links' likelihood pairs sorted by evidence id so
// replay is deterministic.
func likelihoodsOf(links []domain.AffectsLink) []domain.Likelihoods {
	sorted := make([]domain.AffectsLink, len(links))
	copy(sorted, links)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EvidenceID < sorted[j].EvidenceID })

	out := make([]domain.Likelihoods, len(sorted))
	for i, l := range sorted {
		out[i] = l.Likelihoods
	}
	return out
}
