package graph

import (
	"strings"
	"testing"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHypothesisFromNode(t *testing.T) {
	verified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := neo4j.Node{Props: map[string]any{
		"id":                          "H-1",
		"statement":                   "it rains tomorrow",
		"confidence":                  int64(1),
		"base_confidence":             0.5,
		"updated":                     verified,
		"verified":                    verified,
		"verification_type":           "confirmed",
		"pre_verification_confidence": 0.8,
	}}

	h := hypothesisFromNode(n)
	assert.Equal(t, "H-1", h.ID)
	assert.Equal(t, 1.0, h.Confidence)
	require.NotNil(t, h.BaseConfidence)
	assert.Equal(t, 0.5, *h.BaseConfidence)
	require.NotNil(t, h.Verified)
	assert.True(t, h.Verified.Equal(verified))
	assert.Equal(t, domain.StateConfirmed, h.State())
	require.NotNil(t, h.PreVerificationConfidence)
	assert.Equal(t, 0.8, *h.PreVerificationConfidence)
}

func TestHypothesisFromNode_MissingOptionalProps(t *testing.T) {
	h := hypothesisFromNode(neo4j.Node{Props: map[string]any{"id": "H-2", "confidence": 0.4}})
	assert.Nil(t, h.BaseConfidence)
	assert.Nil(t, h.Verified)
	assert.Nil(t, h.PreVerificationConfidence)
	assert.Equal(t, domain.StateUnverified, h.State())
}

func TestAsTime_ParsesStrings(t *testing.T) {
	got, ok := asTime("2024-03-01T12:00:00Z")
	require.True(t, ok)
	assert.Equal(t, 2024, got.Year())

	_, ok = asTime("yesterday")
	assert.False(t, ok)
	_, ok = asTime(nil)
	assert.False(t, ok)
}

func TestLikelihoodsFromProps(t *testing.T) {
	l := likelihoodsFromProps(map[string]any{"p_e_given_h": 0.9, "p_e_given_not_h": int64(0)})
	assert.Equal(t, domain.Likelihoods{PEGivenH: 0.9, PEGivenNotH: 0}, l)
}

func TestVerifyCypherLocksBeforeCheck(t *testing.T) {
	lockAt := strings.Index(verifyCypher, "SET h.__lock = true")
	releaseAt := strings.Index(verifyCypher, "REMOVE h.__lock")
	checkAt := strings.Index(verifyCypher, "WHERE h.verified IS NULL")

	require.GreaterOrEqual(t, lockAt, 0)
	require.GreaterOrEqual(t, checkAt, 0)
	assert.Less(t, lockAt, checkAt)
	assert.Less(t, releaseAt, checkAt)
	assert.NotContains(t, verifyCypher[:lockAt], "WHERE")
}

func TestVerificationFromRecord_RemovedEvidence(t *testing.T) {
	at := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	rel := neo4j.Relationship{Props: map[string]any{
		"verification_type":           "refuted",
		"verified_date":               at,
		"pre_verification_confidence": 0.3,
	}}

	kept := verificationFromRecord(&neo4j.Record{Keys: []string{"eid", "hid", "v"}, Values: []any{nil, "h1", rel}})
	assert.Empty(t, kept.EvidenceID)
	assert.Equal(t, "h1", kept.HypothesisID)
	assert.Equal(t, domain.VerificationRefuted, kept.Type)
	assert.Equal(t, at, kept.VerifiedAt)
	require.NotNil(t, kept.PreVerificationConfidence)
	assert.Equal(t, 0.3, *kept.PreVerificationConfidence)

	live := verificationFromRecord(&neo4j.Record{Keys: []string{"eid", "hid", "v"}, Values: []any{"e1", "h1", rel}})
	assert.Equal(t, "e1", live.EvidenceID)
}
