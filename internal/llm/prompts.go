package llm

import (
	"fmt"
	"math"
	"strings"

	"github.com/Harshitk-cp/credence/internal/domain"
)

const suggestSystemPrompt = `You are an assistant helping with Bayesian likelihood assessment.
Given a hypothesis and a piece of evidence, suggest values for:
- P(E|H): probability of observing the evidence if the hypothesis is true
- P(E|~H): probability of observing the evidence if the hypothesis is false
Return ONLY a strict JSON object with keys: p_e_given_h, p_e_given_not_h, rationale.
The probabilities MUST be numbers in [0,1]. Keep rationale concise (<= 80 words).`

const suggestUserPrompt = `Hypothesis (prior %d%%): %s
Evidence: %s

Output format:
{"p_e_given_h": 0.80, "p_e_given_not_h": 0.20, "rationale": "..."}`

const reviewSystemPrompt = `You are an assistant evaluating whether a single hypothesis is suitable for Bayesian tracking.
Criteria: atomic (single claim), falsifiable, measurable, time-bound, and framed to be upheld or refuted by concrete evidence.
Return ONLY strict JSON with the exact keys as specified. No prose or extra text.`

const reviewUserPrompt = `Evaluate the following hypothesis for Bayesian suitability and return the JSON object only.
Hypothesis: %s
Output schema:
{
  "valid_bayesian": boolean,
  "atomicity_score": number (0..1),
  "issues": array of strings from [%s],
  "falsifiable": boolean,
  "measurable": boolean,
  "time_bound": boolean,
  "suggested_rewrite": string (<= 160 chars, atomic and testable),
  "operationalization": {
    "measurable_event": string (<= 120 chars),
    "threshold": string (<= 80 chars),
    "timeframe": string (<= 80 chars),
    "scope": string (<= 80 chars)
  },
  "evidence_ideas": array of 3 to 6 short strings (<= 80 chars each),
  "suggested_tags": array of up to 6 short strings,
  "note": string (<= 120 words)
}`

const chatSystemPrompt = `You are an assistant for a Bayesian belief tracker. Be concise and focused on Bayesian reasoning.
The conversation is grounded on a hypothesis with its prior and, when given, the evidence being weighed. Avoid hallucinations.
If asked to suggest likelihoods, explain briefly. Otherwise address the user's question directly.`

var reviewIssueOrder = []string{
	"compound", "vague_terms", "unbounded_timeframe", "non_falsifiable",
	"ambiguous_subject", "overly_broad_scope", "unclear_metric", "tautology",
}

func suggestPrompt(req domain.LikelihoodRequest) string {
	return fmt.Sprintf(suggestUserPrompt, int(math.Round(req.Prior*100)), req.Statement, req.Evidence)
}

func reviewPrompt(statement string) string {
	return fmt.Sprintf(reviewUserPrompt, statement, strings.Join(reviewIssueOrder, ", "))
}

// chatPrompt is the context primer that opens every conversation.
func chatPrompt(req domain.ChatRequest) string {
	var sb strings.Builder
	sb.WriteString("Context for this conversation:\n")
	sb.WriteString("Hypothesis")
	if req.HypothesisID != "" {
		sb.WriteString(" " + req.HypothesisID)
	}
	fmt.Fprintf(&sb, " (prior %d%%): %s", int(math.Round(req.Prior*100)), req.Statement)
	if strings.TrimSpace(req.Evidence) != "" {
		sb.WriteString("\nEvidence: " + req.Evidence)
	}
	return sb.String()
}
