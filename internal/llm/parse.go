package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/credence/internal/domain"
)

var (
	fencePrefix = regexp.MustCompile("(?i)^```(?:json)?")
	pehPattern  = regexp.MustCompile(`(?i)p_e_given_h"?\s*[:=]\s*([0-9.]+)`)
	penhPattern = regexp.MustCompile(`(?i)p_e_given_not_h"?\s*[:=]\s*([0-9.]+)`)
)

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fencePrefix.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// clampProbability maps non-finite input to fallback and clips to [0, 1].
func clampProbability(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return math.Max(0, math.Min(1, v))
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > max {
		return string(r[:max])
	}
	return s
}

func regexNumber(re *regexp.Regexp, s string) float64 {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// parseSuggestion accepts strict JSON, fenced JSON or loose key: value text.
func parseSuggestion(text string) *domain.LikelihoodSuggestion {
	cleaned := stripFences(text)

	var raw struct {
		PEGivenH    *float64 `json:"p_e_given_h"`
		PEGivenNotH *float64 `json:"p_e_given_not_h"`
		Rationale   string   `json:"rationale"`
	}
	peh, penh := math.NaN(), math.NaN()
	rationale := ""
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil {
		if raw.PEGivenH != nil {
			peh = *raw.PEGivenH
		}
		if raw.PEGivenNotH != nil {
			penh = *raw.PEGivenNotH
		}
		rationale = raw.Rationale
	} else {
		peh = regexNumber(pehPattern, cleaned)
		penh = regexNumber(penhPattern, cleaned)
		rationale = truncate(cleaned, 200)
	}

	return &domain.LikelihoodSuggestion{
		Likelihoods: domain.Likelihoods{
			PEGivenH:    clampProbability(peh, 0.5),
			PEGivenNotH: clampProbability(penh, 0.5),
		},
		Rationale: truncate(rationale, 800),
	}
}

// parseReview coerces the model's review into the allowed shape. A response
// that is not JSON yields a conservative review rather than an error.
func parseReview(text, statement string) *domain.HypothesisReview {
	cleaned := stripFences(text)

	var raw struct {
		ValidBayesian      bool     `json:"valid_bayesian"`
		AtomicityScore     *float64 `json:"atomicity_score"`
		Issues             []any    `json:"issues"`
		Falsifiable        bool     `json:"falsifiable"`
		Measurable         bool     `json:"measurable"`
		TimeBound          bool     `json:"time_bound"`
		SuggestedRewrite   string   `json:"suggested_rewrite"`
		Operationalization *struct {
			MeasurableEvent string `json:"measurable_event"`
			Threshold       string `json:"threshold"`
			Timeframe       string `json:"timeframe"`
			Scope           string `json:"scope"`
		} `json:"operationalization"`
		EvidenceIdeas []any  `json:"evidence_ideas"`
		SuggestedTags []any  `json:"suggested_tags"`
		Note          string `json:"note"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return &domain.HypothesisReview{
			AtomicityScore:   0.5,
			Issues:           []string{"vague_terms"},
			SuggestedRewrite: truncate(statement, 140),
			EvidenceIdeas:    []string{},
			SuggestedTags:    []string{},
			Note:             "Model response could not be parsed as JSON.",
		}
	}

	review := &domain.HypothesisReview{
		ValidBayesian:    raw.ValidBayesian,
		AtomicityScore:   0.5,
		Issues:           []string{},
		Falsifiable:      raw.Falsifiable,
		Measurable:       raw.Measurable,
		TimeBound:        raw.TimeBound,
		SuggestedRewrite: truncate(raw.SuggestedRewrite, 160),
		EvidenceIdeas:    []string{},
		SuggestedTags:    []string{},
		Note:             truncate(raw.Note, 1000),
	}
	if raw.AtomicityScore != nil {
		review.AtomicityScore = clampProbability(*raw.AtomicityScore, 0.5)
	}
	for _, v := range raw.Issues {
		issue := strings.TrimSpace(fmt.Sprint(v))
		if domain.ReviewIssues[issue] {
			review.Issues = append(review.Issues, issue)
		}
	}
	for _, v := range raw.EvidenceIdeas {
		if idea := truncate(fmt.Sprint(v), 80); idea != "" && len(review.EvidenceIdeas) < 6 {
			review.EvidenceIdeas = append(review.EvidenceIdeas, idea)
		}
	}
	for _, v := range raw.SuggestedTags {
		if len(review.SuggestedTags) < 6 {
			review.SuggestedTags = append(review.SuggestedTags, truncate(fmt.Sprint(v), 30))
		}
	}
	if op := raw.Operationalization; op != nil {
		review.Operationalization = &domain.Operationalization{
			MeasurableEvent: truncate(op.MeasurableEvent, 120),
			Threshold:       truncate(op.Threshold, 80),
			Timeframe:       truncate(op.Timeframe, 80),
			Scope:           truncate(op.Scope, 80),
		}
	}
	return review
}
