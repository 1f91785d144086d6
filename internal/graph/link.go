package graph

import (
	"context"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/store"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type LinkStore struct {
	c *Client
}

func (s *LinkStore) Create(ctx context.Context, l *domain.AffectsLink) error {
	now := time.Now().UTC()
	_, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`OPTIONAL MATCH (e:Evidence {id: $eid})
			 OPTIONAL MATCH (h:Hypothesis {id: $hid})
			 OPTIONAL MATCH (e)-[r:AFFECTS]->(h)
			 RETURN e IS NOT NULL AS has_e, h IS NOT NULL AS has_h,
			        h.verified IS NOT NULL AS locked, r IS NOT NULL AS dup`,
			map[string]any{"eid": l.EvidenceID, "hid": l.HypothesisID})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		hasE, _ := rec.Get("has_e")
		hasH, _ := rec.Get("has_h")
		locked, _ := rec.Get("locked")
		dup, _ := rec.Get("dup")
		switch {
		case hasE != true || hasH != true:
			return nil, store.ErrNotFound
		case locked == true:
			return nil, store.ErrLocked
		case dup == true:
			return nil, store.ErrConflict
		}

		_, err = tx.Run(ctx,
			`MATCH (e:Evidence {id: $eid}), (h:Hypothesis {id: $hid})
			 WHERE h.verified IS NULL
			 CREATE (e)-[:AFFECTS {p_e_given_h: $peh, p_e_given_not_h: $penh, created: $now}]->(h)`,
			map[string]any{
				"eid":  l.EvidenceID,
				"hid":  l.HypothesisID,
				"peh":  l.PEGivenH,
				"penh": l.PEGivenNotH,
				"now":  now,
			})
		return nil, err
	})
	if err != nil {
		return err
	}
	l.Created = now
	return nil
}

func (s *LinkStore) Exists(ctx context.Context, evidenceID, hypothesisID string) (bool, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (:Evidence {id: $eid})-[r:AFFECTS]->(:Hypothesis {id: $hid}) RETURN count(r) AS n`,
			map[string]any{"eid": evidenceID, "hid": hypothesisID})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := rec.Get("n")
		return n.(int64) > 0, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *LinkStore) Get(ctx context.Context, evidenceID, hypothesisID string) (*domain.AffectsLink, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (:Evidence {id: $eid})-[r:AFFECTS]->(:Hypothesis {id: $hid}) RETURN r`,
			map[string]any{"eid": evidenceID, "hid": hypothesisID})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, store.ErrNotFound
		}
		r, _ := relAt(res.Record(), "r")
		return &domain.AffectsLink{
			EvidenceID:   evidenceID,
			HypothesisID: hypothesisID,
			Likelihoods:  likelihoodsFromProps(r.Props),
			Created:      propTime(r.Props, "created"),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.AffectsLink), nil
}

// linkGuard runs after a conditional mutation matched nothing.
func linkGuard(ctx context.Context, tx neo4j.ManagedTransaction, evidenceID, hypothesisID string) error {
	res, err := tx.Run(ctx,
		`MATCH (:Evidence {id: $eid})-[r:AFFECTS]->(h:Hypothesis {id: $hid})
		 RETURN h.verified IS NOT NULL AS locked`,
		map[string]any{"eid": evidenceID, "hid": hypothesisID})
	if err != nil {
		return err
	}
	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return err
		}
		return store.ErrNotFound
	}
	if locked, _ := res.Record().Get("locked"); locked == true {
		return store.ErrLocked
	}
	return store.ErrNotFound
}

func (s *LinkStore) Update(ctx context.Context, evidenceID, hypothesisID string, l domain.Likelihoods) error {
	_, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (:Evidence {id: $eid})-[r:AFFECTS]->(h:Hypothesis {id: $hid})
			 WHERE h.verified IS NULL
			 SET r.p_e_given_h = $peh, r.p_e_given_not_h = $penh
			 RETURN h.id AS id`,
			map[string]any{"eid": evidenceID, "hid": hypothesisID, "peh": l.PEGivenH, "penh": l.PEGivenNotH})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			return nil, nil
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nil, linkGuard(ctx, tx, evidenceID, hypothesisID)
	})
	return err
}

func (s *LinkStore) Delete(ctx context.Context, evidenceID, hypothesisID string) error {
	_, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (:Evidence {id: $eid})-[r:AFFECTS]->(h:Hypothesis {id: $hid})
			 WHERE h.verified IS NULL
			 DELETE r
			 RETURN h.id AS id`,
			map[string]any{"eid": evidenceID, "hid": hypothesisID})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			return nil, nil
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nil, linkGuard(ctx, tx, evidenceID, hypothesisID)
	})
	return err
}

func (s *LinkStore) listLinks(ctx context.Context, cypher string, params map[string]any) ([]domain.AffectsLink, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var out []domain.AffectsLink
		for res.Next(ctx) {
			rec := res.Record()
			eid, _ := rec.Get("eid")
			hid, _ := rec.Get("hid")
			r, _ := relAt(rec, "r")
			out = append(out, domain.AffectsLink{
				EvidenceID:   eid.(string),
				HypothesisID: hid.(string),
				Likelihoods:  likelihoodsFromProps(r.Props),
				Created:      propTime(r.Props, "created"),
			})
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.AffectsLink), nil
}

func (s *LinkStore) ListByHypothesis(ctx context.Context, hypothesisID string) ([]domain.AffectsLink, error) {
	return s.listLinks(ctx,
		`MATCH (e:Evidence)-[r:AFFECTS]->(h:Hypothesis {id: $id})
		 RETURN e.id AS eid, h.id AS hid, r ORDER BY e.id`,
		map[string]any{"id": hypothesisID})
}

func (s *LinkStore) ListByEvidence(ctx context.Context, evidenceID string) ([]domain.AffectsLink, error) {
	return s.listLinks(ctx,
		`MATCH (e:Evidence {id: $id})-[r:AFFECTS]->(h:Hypothesis)
		 RETURN e.id AS eid, h.id AS hid, r ORDER BY h.id`,
		map[string]any{"id": evidenceID})
}

func (s *LinkStore) ListLinkedEvidence(ctx context.Context, hypothesisID string) ([]domain.LinkedEvidence, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (e:Evidence)-[r:AFFECTS]->(h:Hypothesis {id: $id})
			 RETURN e, r ORDER BY e.timestamp DESC`,
			map[string]any{"id": hypothesisID})
		if err != nil {
			return nil, err
		}
		var out []domain.LinkedEvidence
		for res.Next(ctx) {
			n, _ := nodeAt(res.Record(), "e")
			r, _ := relAt(res.Record(), "r")
			out = append(out, domain.LinkedEvidence{
				Evidence:     evidenceFromNode(n),
				Relationship: likelihoodsFromProps(r.Props),
			})
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.LinkedEvidence), nil
}

func (s *LinkStore) ListLinkedHypotheses(ctx context.Context, evidenceID string) ([]domain.LinkedHypothesis, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (e:Evidence {id: $id})-[r:AFFECTS]->(h:Hypothesis)
			 RETURN h, r ORDER BY h.id`,
			map[string]any{"id": evidenceID})
		if err != nil {
			return nil, err
		}
		var out []domain.LinkedHypothesis
		for res.Next(ctx) {
			n, _ := nodeAt(res.Record(), "h")
			r, _ := relAt(res.Record(), "r")
			out = append(out, domain.LinkedHypothesis{
				Hypothesis:   hypothesisFromNode(n),
				Relationship: likelihoodsFromProps(r.Props),
			})
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.LinkedHypothesis), nil
}
