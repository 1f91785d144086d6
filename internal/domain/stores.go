package domain

import (
	"context"
	"time"
)

// HypothesisStore persists hypotheses. Every confidence write is
// conditioned on the hypothesis being unverified; implementations return
// store.ErrLocked when that condition fails.
type HypothesisStore interface {
	Create(ctx context.Context, h *Hypothesis) error
	GetByID(ctx context.Context, id string) (*Hypothesis, error)
	List(ctx context.Context) ([]Hypothesis, error)
	Delete(ctx context.Context, id string) error

	UpdateConfidence(ctx context.Context, id string, confidence float64) error
	// SetBaseConfidenceIfAbsent writes base only when base_confidence is null
	// and the hypothesis is unverified. It reports whether a write happened.
	SetBaseConfidenceIfAbsent(ctx context.Context, id string, base float64) (bool, error)
	ListMissingBasePrior(ctx context.Context) ([]Hypothesis, error)

	// Verify atomically checks verified IS NULL, snapshots confidence, records
	// the VERIFIED_BY link and locks the hypothesis.
	Verify(ctx context.Context, hypothesisID, evidenceID string, vType VerificationType, at time.Time) (*Hypothesis, error)
	ListVerified(ctx context.Context) ([]Hypothesis, error)
}

type EvidenceStore interface {
	Create(ctx context.Context, e *Evidence) error
	GetByID(ctx context.Context, id string) (*Evidence, error)
	List(ctx context.Context) ([]Evidence, error)
	Update(ctx context.Context, e *Evidence) error
	// Delete removes the evidence and its links and returns the ids of the
	// hypotheses it affected.
	Delete(ctx context.Context, id string) ([]string, error)
}

// LinkStore manages AFFECTS links. Mutations fail with store.ErrLocked when
// the hypothesis is verified.
type LinkStore interface {
	Create(ctx context.Context, l *AffectsLink) error
	Exists(ctx context.Context, evidenceID, hypothesisID string) (bool, error)
	Get(ctx context.Context, evidenceID, hypothesisID string) (*AffectsLink, error)
	Update(ctx context.Context, evidenceID, hypothesisID string, l Likelihoods) error
	Delete(ctx context.Context, evidenceID, hypothesisID string) error
	ListByHypothesis(ctx context.Context, hypothesisID string) ([]AffectsLink, error)
	ListByEvidence(ctx context.Context, evidenceID string) ([]AffectsLink, error)
	ListLinkedEvidence(ctx context.Context, hypothesisID string) ([]LinkedEvidence, error)
	ListLinkedHypotheses(ctx context.Context, evidenceID string) ([]LinkedHypothesis, error)
}

type VerificationStore interface {
	ListByHypothesis(ctx context.Context, hypothesisID string) ([]Verification, error)
	// LatestPerHypothesis maps hypothesis id to its most recent verification.
	LatestPerHypothesis(ctx context.Context) (map[string]Verification, error)
}

type RelationStore interface {
	Create(ctx context.Context, r *Relation) error
	Delete(ctx context.Context, fromID, toID string, relType RelationType) error
	ListFrom(ctx context.Context, fromID string) ([]Relation, error)
	// Dependents returns the hypotheses reached from fromID over depends_on.
	Dependents(ctx context.Context, fromID string) ([]DependentState, error)
	Contradictions(ctx context.Context, minConfidence float64) ([]Contradiction, error)
}

// Stores bundles one backend's implementations.
type Stores struct {
	Hypotheses    HypothesisStore
	Evidence      EvidenceStore
	Links         LinkStore
	Verifications VerificationStore
	Relations     RelationStore
}

// LLMClient is the external text-generation service. It is best-effort and
// never on the consistency-critical path.
type LLMClient interface {
	SuggestLikelihoods(ctx context.Context, req LikelihoodRequest) (*LikelihoodSuggestion, error)
	ReviewHypothesis(ctx context.Context, statement string) (*HypothesisReview, error)
	Chat(ctx context.Context, req ChatRequest) (*ChatReply, error)
}

// TextExtractor turns a social-media post URL into plain text.
type TextExtractor interface {
	Text(ctx context.Context, url string) (string, error)
}
