package domain

// Contradiction is a pair of hypotheses joined by a contradicts relation
// while both are held with high confidence.
type Contradiction struct {
	Hypothesis1 HypothesisRef `json:"hypothesis1"`
	Hypothesis2 HypothesisRef `json:"hypothesis2"`
}

type HypothesisRef struct {
	ID         string  `json:"id"`
	Statement  string  `json:"statement"`
	Confidence float64 `json:"confidence"`
}

// LikelihoodRequest is the context handed to the assistant when asking for
// P(E|H) and P(E|~H).
type LikelihoodRequest struct {
	Statement string
	Prior     float64
	Evidence  string
}

type LikelihoodSuggestion struct {
	Likelihoods
	Rationale string `json:"rationale"`
	Model     string `json:"model,omitempty"`
	Fallback  bool   `json:"fallback"`
}

// NeutralSuggestion is used whenever the assistant cannot answer.
func NeutralSuggestion() *LikelihoodSuggestion {
	return &LikelihoodSuggestion{
		Likelihoods: Likelihoods{PEGivenH: 0.5, PEGivenNotH: 0.5},
		Rationale:   "assistant unavailable; neutral likelihoods",
		Fallback:    true,
	}
}

type Operationalization struct {
	MeasurableEvent string `json:"measurable_event,omitempty"`
	Threshold       string `json:"threshold,omitempty"`
	Timeframe       string `json:"timeframe,omitempty"`
	Scope           string `json:"scope,omitempty"`
}

// HypothesisReview is the assistant's critique of a hypothesis statement.
type HypothesisReview struct {
	ValidBayesian      bool                `json:"valid_bayesian"`
	AtomicityScore     float64             `json:"atomicity_score"`
	Issues             []string            `json:"issues"`
	Falsifiable        bool                `json:"falsifiable"`
	Measurable         bool                `json:"measurable"`
	TimeBound          bool                `json:"time_bound"`
	SuggestedRewrite   string              `json:"suggested_rewrite"`
	Operationalization *Operationalization `json:"operationalization,omitempty"`
	EvidenceIdeas      []string            `json:"evidence_ideas,omitempty"`
	SuggestedTags      []string            `json:"suggested_tags,omitempty"`
	Note               string              `json:"note,omitempty"`
	Model              string              `json:"model,omitempty"`
}

// ReviewIssues is the closed set of issue codes a review may report.
var ReviewIssues = map[string]bool{
	"compound":            true,
	"vague_terms":         true,
	"unbounded_timeframe": true,
	"non_falsifiable":     true,
	"ambiguous_subject":   true,
	"overly_broad_scope":  true,
	"unclear_metric":      true,
	"tautology":           true,
}

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

func (r ChatRole) Valid() bool {
	return r == ChatRoleUser || r == ChatRoleAssistant
}

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatRequest is a conversation about one hypothesis and, optionally, the
// evidence being weighed. Messages are chronological.
type ChatRequest struct {
	HypothesisID string
	Statement    string
	Prior        float64
	Evidence     string
	Messages     []ChatMessage
}

type ChatReply struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}
