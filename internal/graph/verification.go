package graph

import (
	"context"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type VerificationStore struct {
	c *Client
}

func verificationFromRecord(rec *neo4j.Record) domain.Verification {
	eid, _ := rec.Get("eid")
	hid, _ := rec.Get("hid")
	r, _ := relAt(rec, "v")
	v := domain.Verification{
		HypothesisID:              hid.(string),
		Type:                      domain.VerificationType(propString(r.Props, "verification_type")),
		VerifiedAt:                propTime(r.Props, "verified_date"),
		PreVerificationConfidence: propFloatPtr(r.Props, "pre_verification_confidence"),
	}
	v.EvidenceID, _ = eid.(string)
	return v
}

func (s *VerificationStore) ListByHypothesis(ctx context.Context, hypothesisID string) ([]domain.Verification, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (e)-[v:VERIFIED_BY]->(h:Hypothesis {id: $id})
			 RETURN CASE WHEN e:Evidence THEN e.id END AS eid, h.id AS hid, v ORDER BY v.verified_date DESC`,
			map[string]any{"id": hypothesisID})
		if err != nil {
			return nil, err
		}
		var out []domain.Verification
		for res.Next(ctx) {
			out = append(out, verificationFromRecord(res.Record()))
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Verification), nil
}

func (s *VerificationStore) LatestPerHypothesis(ctx context.Context) (map[string]domain.Verification, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (e)-[v:VERIFIED_BY]->(h:Hypothesis)
			 WITH h, e, v ORDER BY v.verified_date DESC
			 WITH h, collect({eid: CASE WHEN e:Evidence THEN e.id END, v: v})[0] AS latest
			 RETURN latest.eid AS eid, h.id AS hid, latest.v AS v`, nil)
		if err != nil {
			return nil, err
		}
		out := make(map[string]domain.Verification)
		for res.Next(ctx) {
			ver := verificationFromRecord(res.Record())
			out[ver.HypothesisID] = ver
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]domain.Verification), nil
}
