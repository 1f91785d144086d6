package domain

import (
	"math"
	"time"
)

type VerificationType string

const (
	VerificationConfirmed VerificationType = "confirmed"
	VerificationRefuted   VerificationType = "refuted"
)

func ValidVerificationType(t string) bool {
	switch VerificationType(t) {
	case VerificationConfirmed, VerificationRefuted:
		return true
	}
	return false
}

// Outcome is the binary truth value used for scoring: 1 for confirmed, 0 for refuted.
func (t VerificationType) Outcome() float64 {
	if t == VerificationConfirmed {
		return 1
	}
	return 0
}

// LockedConfidence is the confidence a hypothesis is frozen at once verified.
func (t VerificationType) LockedConfidence() float64 {
	return t.Outcome()
}

// HypothesisState is the verification lifecycle state. Confirmed and
// Refuted are terminal.
type HypothesisState string

const (
	StateUnverified HypothesisState = "unverified"
	StateConfirmed  HypothesisState = "confirmed"
	StateRefuted    HypothesisState = "refuted"
)

type Hypothesis struct {
	ID                        string           `json:"id"`
	Statement                 string           `json:"statement"`
	Confidence                float64          `json:"confidence"`
	BaseConfidence            *float64         `json:"base_confidence"`
	Updated                   time.Time        `json:"updated"`
	Verified                  *time.Time       `json:"verified"`
	VerificationType          VerificationType `json:"verification_type,omitempty"`
	PreVerificationConfidence *float64         `json:"pre_verification_confidence"`
}

// IsVerified reports whether the hypothesis is locked.
func (h *Hypothesis) IsVerified() bool {
	return h.Verified != nil
}

func (h *Hypothesis) State() HypothesisState {
	if h.Verified == nil {
		return StateUnverified
	}
	if h.VerificationType == VerificationConfirmed {
		return StateConfirmed
	}
	return StateRefuted
}

// ValidProbability reports whether p is a finite value in [0, 1].
func ValidProbability(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0 && p <= 1
}

// Verification is the VERIFIED_BY record: which evidence triggered the
// verification and the confidence snapshot taken just before it. The record
// outlives its evidence; EvidenceID is empty once that evidence is deleted.
type Verification struct {
	EvidenceID                string           `json:"evidence_id"`
	HypothesisID              string           `json:"hypothesis_id"`
	Type                      VerificationType `json:"verification_type"`
	VerifiedAt                time.Time        `json:"verified_date"`
	PreVerificationConfidence *float64         `json:"pre_verification_confidence"`
}
