package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	hypotheses *mockHypotheses
	engine     *mockEngine
	evidence   *mockEvidence
	links      *mockLinks
	belief     *mockBelief
	assist     *mockAssist
	router     chi.Router
}

func newFixture() *fixture {
	f := &fixture{
		hypotheses: &mockHypotheses{},
		engine:     &mockEngine{},
		evidence:   &mockEvidence{},
		links:      &mockLinks{},
		belief:     &mockBelief{},
		assist:     &mockAssist{},
	}
	logger := zap.NewNop()
	hh := NewHypothesisHandler(f.hypotheses, f.engine, f.engine, logger)
	eh := NewEvidenceHandler(f.evidence, logger)
	lh := NewLinkHandler(f.links, logger)
	bh := NewBeliefHandler(f.belief, f.belief, f.belief, logger)
	ah := NewAssistHandler(f.assist, logger)

	r := chi.NewRouter()
	r.Post("/hypotheses", hh.Create)
	r.Get("/hypotheses/{id}", hh.Get)
	r.Put("/hypotheses/{id}", hh.SetConfidence)
	r.Get("/hypotheses/{id}/verifications", hh.Verifications)
	r.Post("/hypotheses/{id}/recompute", hh.Recompute)
	r.Post("/hypotheses/{id}/relations", hh.Relate)
	r.Delete("/hypotheses/{id}/relations/{to}", hh.Unrelate)
	r.Get("/contradictions", hh.Contradictions)
	r.Post("/evidence", eh.Create)
	r.Delete("/evidence/{id}", eh.Delete)
	r.Post("/evidence/{id}/links", lh.Create)
	r.Put("/evidence/{id}/links/{hypothesis_id}", lh.Update)
	r.Delete("/evidence/{id}/links/{hypothesis_id}", lh.Delete)
	r.Post("/verify", bh.Verify)
	r.Post("/update", bh.Update)
	r.Post("/assist/suggest", ah.Suggest)
	r.Post("/assist/review", ah.Review)
	r.Post("/assist/chat", ah.Chat)
	r.Get("/extract/x", ah.ExtractX)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateHypothesis(t *testing.T) {
	f := newFixture()
	f.hypotheses.On("Create", mock.Anything, "h1", "It rains", 0.5).
		Return(&domain.Hypothesis{ID: "h1", Statement: "It rains", Confidence: 0.5}, nil)

	rec := f.do(t, http.MethodPost, "/hypotheses", `{"id":"h1","statement":"It rains","confidence":0.5}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "h1", decodeBody(t, rec)["id"])
	f.hypotheses.AssertExpectations(t)
}

func TestCreateHypothesisZeroConfidenceIsValid(t *testing.T) {
	f := newFixture()
	f.hypotheses.On("Create", mock.Anything, "h1", "s", 0.0).
		Return(&domain.Hypothesis{ID: "h1"}, nil)

	rec := f.do(t, http.MethodPost, "/hypotheses", `{"id":"h1","statement":"s","confidence":0}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateHypothesisValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing confidence", `{"id":"h1","statement":"s"}`, "confidence is required"},
		{"confidence above one", `{"id":"h1","statement":"s","confidence":1.5}`, "confidence must be within [0, 1]"},
		{"missing id", `{"statement":"s","confidence":0.5}`, "id is required"},
		{"malformed", `{"id":`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(t, http.MethodPost, "/hypotheses", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody(t, rec)["error"], tt.want)
			f.hypotheses.AssertNotCalled(t, "Create")
		})
	}
}

func TestServiceErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrHypothesisExists, http.StatusConflict},
		{service.ErrHypothesisNotFound, http.StatusNotFound},
		{service.ErrInvalidConfidence, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", service.ErrLockTimeout), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := newFixture()
			f.hypotheses.On("Create", mock.Anything, "h1", "s", 0.5).Return(nil, tt.err)

			rec := f.do(t, http.MethodPost, "/hypotheses", `{"id":"h1","statement":"s","confidence":0.5}`)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestInternalErrorIsHidden(t *testing.T) {
	f := newFixture()
	f.hypotheses.On("Get", mock.Anything, "h1").Return(nil, fmt.Errorf("pq: connection reset"))

	rec := f.do(t, http.MethodGet, "/hypotheses/h1", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeBody(t, rec)["error"])
}

func TestSetConfidenceLocked(t *testing.T) {
	f := newFixture()
	f.hypotheses.On("SetConfidence", mock.Anything, "h1", 0.3).Return(nil, service.ErrHypothesisLocked)

	rec := f.do(t, http.MethodPut, "/hypotheses/h1", `{"confidence":0.3}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, service.ErrHypothesisLocked.Error(), decodeBody(t, rec)["error"])
}

func TestRecomputeMissingBasePrior(t *testing.T) {
	f := newFixture()
	f.engine.On("RecomputeFromBase", mock.Anything, "h1").
		Return(0.0, fmt.Errorf("recompute h1: %w", service.ErrMissingBasePrior))

	rec := f.do(t, http.MethodPost, "/hypotheses/h1/recompute", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, service.ErrMissingBasePrior.Error(), decodeBody(t, rec)["error"])
}

func TestRecompute(t *testing.T) {
	f := newFixture()
	f.engine.On("RecomputeFromBase", mock.Anything, "h1").Return(0.8, nil)

	rec := f.do(t, http.MethodPost, "/hypotheses/h1/recompute", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.8, decodeBody(t, rec)["confidence"], 1e-9)
}

func TestVerificationsNeverNull(t *testing.T) {
	f := newFixture()
	f.hypotheses.On("Verifications", mock.Anything, "h1").Return(nil, nil)

	rec := f.do(t, http.MethodGet, "/hypotheses/h1/verifications", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRelateDefaultsStrength(t *testing.T) {
	f := newFixture()
	f.hypotheses.On("Relate", mock.Anything, "a", "b", "depends_on", 1.0).
		Return(&domain.Relation{FromID: "a", ToID: "b", Type: domain.RelationDependsOn, Strength: 1}, nil)

	rec := f.do(t, http.MethodPost, "/hypotheses/a/relations", `{"to":"b","type":"depends_on"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	f.hypotheses.AssertExpectations(t)
}

func TestRelateRejectsUnknownType(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/hypotheses/a/relations", `{"to":"b","type":"supports"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "type must be one of")
}

func TestUnrelateTypeFromQuery(t *testing.T) {
	f := newFixture()
	f.hypotheses.On("Unrelate", mock.Anything, "a", "b", "contradicts").Return(nil)

	rec := f.do(t, http.MethodDelete, "/hypotheses/a/relations/b?type=contradicts", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.hypotheses.AssertExpectations(t)
}

func TestContradictions(t *testing.T) {
	f := newFixture()
	f.engine.On("FindContradictions", mock.Anything, service.DefaultContradictionThreshold).
		Return([]domain.Contradiction{}, nil)
	f.engine.On("FindContradictions", mock.Anything, 0.9).Return([]domain.Contradiction{{}}, nil)

	rec := f.do(t, http.MethodGet, "/contradictions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/contradictions?min_confidence=0.9", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/contradictions?min_confidence=high", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEvidenceRequiresSourceURL(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/evidence", `{"id":"e1","content":"c"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "source_url is required")
}

func TestDeleteEvidenceReportsRecomputed(t *testing.T) {
	f := newFixture()
	c := 0.5
	f.evidence.On("Delete", mock.Anything, "e1").Return([]domain.RecomputedHypothesis{
		{HypothesisID: "h1", Confidence: &c},
		{HypothesisID: "h2"},
		{HypothesisID: "h3", Error: "store unavailable"},
	}, nil)

	rec := f.do(t, http.MethodDelete, "/evidence/e1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":"e1","recomputed":[{"id":"h1","updated":0.5},{"id":"h2","updated":null},{"id":"h3","updated":null,"error":"store unavailable"}]}`, rec.Body.String())
}

func TestDeleteEvidenceLockTimeout(t *testing.T) {
	f := newFixture()
	f.evidence.On("Delete", mock.Anything, "e1").Return(nil, fmt.Errorf("%w: h1", service.ErrLockTimeout))

	rec := f.do(t, http.MethodDelete, "/evidence/e1", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateLink(t *testing.T) {
	f := newFixture()
	l := domain.Likelihoods{PEGivenH: 0.8, PEGivenNotH: 0.2}
	f.links.On("Create", mock.Anything, "e1", "h1", l).Return(0.8, nil)

	rec := f.do(t, http.MethodPost, "/evidence/e1/links", `{"hypothesis_id":"h1","p_e_given_h":0.8,"p_e_given_not_h":0.2}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.InDelta(t, 0.8, body["confidence"], 1e-9)
	assert.Equal(t, "h1", body["hypothesis_id"])
}

func TestCreateLinkErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrDuplicateLink, http.StatusConflict},
		{service.ErrHypothesisLocked, http.StatusConflict},
		{service.ErrEvidenceNotFound, http.StatusNotFound},
		{service.ErrInvalidProbability, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := newFixture()
			f.links.On("Create", mock.Anything, "e1", "h1", mock.Anything).Return(0.0, tt.err)

			rec := f.do(t, http.MethodPost, "/evidence/e1/links", `{"hypothesis_id":"h1","p_e_given_h":0.8,"p_e_given_not_h":0.2}`)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCreateLinkRejectsOutOfRangeLikelihood(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/evidence/e1/links", `{"hypothesis_id":"h1","p_e_given_h":1.2,"p_e_given_not_h":0.2}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "p_e_given_h")
	f.links.AssertNotCalled(t, "Create")
}

func TestUpdateAndDeleteLink(t *testing.T) {
	f := newFixture()
	l := domain.Likelihoods{PEGivenH: 0.5, PEGivenNotH: 0.5}
	f.links.On("Update", mock.Anything, "e1", "h1", l).Return(0.5, nil)
	f.links.On("Delete", mock.Anything, "e1", "h2").Return(0.0, service.ErrLinkNotFound)

	rec := f.do(t, http.MethodPut, "/evidence/e1/links/h1", `{"p_e_given_h":0.5,"p_e_given_not_h":0.5}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/evidence/e1/links/h2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerify(t *testing.T) {
	f := newFixture()
	f.belief.On("Verify", mock.Anything, "h1", "e1", "confirmed").Return(&domain.Hypothesis{ID: "h1", Confidence: 1}, nil)
	f.belief.On("Verify", mock.Anything, "h2", "e1", "refuted").Return(nil, service.ErrAlreadyVerified)

	rec := f.do(t, http.MethodPost, "/verify", `{"hypothesis_id":"h1","evidence_id":"e1","verification_type":"confirmed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/verify", `{"hypothesis_id":"h2","evidence_id":"e1","verification_type":"refuted"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/verify", `{"hypothesis_id":"h1","evidence_id":"e1","verification_type":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManualUpdateDefaultsDampening(t *testing.T) {
	f := newFixture()
	f.belief.On("Update", mock.Anything, "h1", "e1", true, service.DefaultDampening).
		Return(&service.UpdateResult{HypothesisID: "h1", EvidenceID: "e1"}, nil)

	rec := f.do(t, http.MethodPost, "/update", `{"hypothesis_id":"h1","evidence_id":"e1","propagate":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decodeBody(t, rec)["propagation"])
	f.belief.AssertExpectations(t)
}

func TestManualUpdateRejectsZeroDampening(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/update", `{"hypothesis_id":"h1","evidence_id":"e1","propagate":true,"dampening":0}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestDefaultsPrior(t *testing.T) {
	f := newFixture()
	f.assist.On("Suggest", mock.Anything, "It rains", 0.5, "Clouds").Return(domain.NeutralSuggestion(), nil)

	rec := f.do(t, http.MethodPost, "/assist/suggest", `{"hypothesis":"It rains","evidence":"Clouds"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["fallback"])
}

func TestReviewUnavailable(t *testing.T) {
	f := newFixture()
	f.assist.On("Review", mock.Anything, "It rains").Return(nil, service.ErrAssistantUnavailable)

	rec := f.do(t, http.MethodPost, "/assist/review", `{"statement":"It rains"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChat(t *testing.T) {
	f := newFixture()
	want := domain.ChatRequest{
		HypothesisID: "h1",
		Statement:    "It rains",
		Prior:        0.3,
		Evidence:     "Clouds",
		Messages: []domain.ChatMessage{
			{Role: domain.ChatRoleUser, Content: "Is this strong evidence?"},
			{Role: domain.ChatRoleAssistant, Content: "Somewhat."},
			{Role: domain.ChatRoleUser, Content: "Why?"},
		},
	}
	f.assist.On("Chat", mock.Anything, want).Return(&domain.ChatReply{Reply: "Clouds raise the odds.", Model: "gemini-1.5-pro"}, nil)

	rec := f.do(t, http.MethodPost, "/assist/chat", `{
		"hypothesis":{"id":"h1","statement":"It rains","prior":0.3},
		"evidence":{"content":"Clouds"},
		"messages":[
			{"role":"user","content":"Is this strong evidence?"},
			{"role":"assistant","content":"Somewhat."},
			{"role":"user","content":"Why?"}
		]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"Clouds raise the odds.","model":"gemini-1.5-pro"}`, rec.Body.String())
	f.assist.AssertExpectations(t)
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing statement", `{"hypothesis":{"prior":0.5},"messages":[]}`, "statement is required"},
		{"missing prior", `{"hypothesis":{"statement":"H"},"messages":[]}`, "prior is required"},
		{"prior out of range", `{"hypothesis":{"statement":"H","prior":2},"messages":[]}`, "prior must be within [0, 1]"},
		{"bad role", `{"hypothesis":{"statement":"H","prior":0.5},"messages":[{"role":"system","content":"x"}]}`, "role must be one of"},
		{"empty content", `{"hypothesis":{"statement":"H","prior":0.5},"messages":[{"role":"user","content":""}]}`, "content is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(t, http.MethodPost, "/assist/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody(t, rec)["error"], tt.msg)
			f.assist.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
		})
	}
}

func TestChatUnavailable(t *testing.T) {
	f := newFixture()
	f.assist.On("Chat", mock.Anything, mock.Anything).Return(nil, service.ErrAssistantUnavailable)

	rec := f.do(t, http.MethodPost, "/assist/chat", `{"hypothesis":{"statement":"H","prior":0.5},"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExtractX(t *testing.T) {
	f := newFixture()
	f.assist.On("ExtractText", mock.Anything, "https://x.com/a/status/1").Return("hello", nil)
	f.assist.On("ExtractText", mock.Anything, "https://example.com/a").Return("", service.ErrNotStatusURL)
	f.assist.On("ExtractText", mock.Anything, "https://x.com/a/status/2").Return("", service.ErrExtractionFailed)

	rec := f.do(t, http.MethodGet, "/extract/x?url=https://x.com/a/status/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", decodeBody(t, rec)["text"])

	rec = f.do(t, http.MethodGet, "/extract/x?url=https://example.com/a", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/extract/x?url=https://x.com/a/status/2", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.do(t, http.MethodGet, "/extract/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
