package domain

import "time"

type Evidence struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	SourceURL string    `json:"source_url"`
	Timestamp time.Time `json:"timestamp"`
}

// Likelihoods is the attribute pair carried by an AFFECTS link.
type Likelihoods struct {
	PEGivenH    float64 `json:"p_e_given_h"`
	PEGivenNotH float64 `json:"p_e_given_not_h"`
}

func (l Likelihoods) Valid() bool {
	return ValidProbability(l.PEGivenH) && ValidProbability(l.PEGivenNotH)
}

// AffectsLink connects one Evidence to one Hypothesis. At most one link
// exists per (EvidenceID, HypothesisID).
type AffectsLink struct {
	EvidenceID   string `json:"evidence_id"`
	HypothesisID string `json:"hypothesis_id"`
	Likelihoods
	Created time.Time `json:"created"`
}

// LinkedEvidence is an evidence item as seen from a hypothesis.
type LinkedEvidence struct {
	Evidence     Evidence    `json:"evidence"`
	Relationship Likelihoods `json:"relationship"`
}

// LinkedHypothesis is a hypothesis as seen from an evidence item.
type LinkedHypothesis struct {
	Hypothesis   Hypothesis  `json:"hypothesis"`
	Relationship Likelihoods `json:"relationship"`
}

// RecomputedHypothesis reports the confidence written for a hypothesis after
// one of its evidence items was removed. Confidence is nil when the
// hypothesis was locked and left untouched, or when Error says why its
// recompute failed after the evidence was already gone.
type RecomputedHypothesis struct {
	HypothesisID string   `json:"id"`
	Confidence   *float64 `json:"updated"`
	Error        string   `json:"error,omitempty"`
}
