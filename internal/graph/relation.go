package graph

import (
	"context"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/store"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type RelationStore struct {
	c *Client
}

func (s *RelationStore) Create(ctx context.Context, r *domain.Relation) error {
	now := time.Now().UTC()
	_, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (a:Hypothesis {id: $from}), (b:Hypothesis {id: $to})
			 MERGE (a)-[r:RELATES_TO {type: $type}]->(b)
			 ON CREATE SET r.created = $now
			 SET r.strength = $strength
			 RETURN r`,
			map[string]any{"from": r.FromID, "to": r.ToID, "type": string(r.Type), "strength": r.Strength, "now": now})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, store.ErrNotFound
		}
		if rel, ok := relAt(res.Record(), "r"); ok {
			r.Created = propTime(rel.Props, "created")
		}
		return nil, nil
	})
	return err
}

func (s *RelationStore) Delete(ctx context.Context, fromID, toID string, relType domain.RelationType) error {
	v, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cypher := `MATCH (:Hypothesis {id: $from})-[r:RELATES_TO {type: $type}]->(:Hypothesis {id: $to}) DELETE r RETURN count(r) AS n`
		if relType == domain.RelationContradicts {
			cypher = `MATCH (:Hypothesis {id: $from})-[r:RELATES_TO {type: $type}]-(:Hypothesis {id: $to}) DELETE r RETURN count(r) AS n`
		}
		res, err := tx.Run(ctx, cypher, map[string]any{"from": fromID, "to": toID, "type": string(relType)})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := rec.Get("n")
		return n.(int64), nil
	})
	if err != nil {
		return err
	}
	if v.(int64) == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *RelationStore) ListFrom(ctx context.Context, fromID string) ([]domain.Relation, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (a:Hypothesis {id: $id})-[r:RELATES_TO]->(b:Hypothesis)
			 RETURN b.id AS to, r ORDER BY r.type, b.id`,
			map[string]any{"id": fromID})
		if err != nil {
			return nil, err
		}
		var out []domain.Relation
		for res.Next(ctx) {
			to, _ := res.Record().Get("to")
			rel, _ := relAt(res.Record(), "r")
			out = append(out, domain.Relation{
				FromID:   fromID,
				ToID:     to.(string),
				Type:     domain.RelationType(propString(rel.Props, "type")),
				Strength: propFloat(rel.Props, "strength"),
				Created:  propTime(rel.Props, "created"),
			})
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Relation), nil
}

func (s *RelationStore) Dependents(ctx context.Context, fromID string) ([]domain.DependentState, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (:Hypothesis {id: $id})-[r:RELATES_TO {type: 'depends_on'}]->(d:Hypothesis)
			 RETURN d.id AS id, d.confidence AS confidence, r.strength AS strength,
			        d.verified IS NOT NULL AS verified
			 ORDER BY d.id`,
			map[string]any{"id": fromID})
		if err != nil {
			return nil, err
		}
		var out []domain.DependentState
		for res.Next(ctx) {
			rec := res.Record()
			id, _ := rec.Get("id")
			conf, _ := rec.Get("confidence")
			strength, _ := rec.Get("strength")
			verified, _ := rec.Get("verified")
			d := domain.DependentState{Verified: verified == true}
			d.HypothesisID, _ = id.(string)
			d.Confidence, _ = asFloat(conf)
			d.Strength, _ = asFloat(strength)
			out = append(out, d)
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.DependentState), nil
}

func (s *RelationStore) Contradictions(ctx context.Context, minConfidence float64) ([]domain.Contradiction, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (a:Hypothesis)-[:RELATES_TO {type: 'contradicts'}]-(b:Hypothesis)
			 WHERE a.id < b.id AND a.confidence > $min AND b.confidence > $min
			 RETURN DISTINCT a, b ORDER BY a.id, b.id`,
			map[string]any{"min": minConfidence})
		if err != nil {
			return nil, err
		}
		var out []domain.Contradiction
		for res.Next(ctx) {
			a, _ := nodeAt(res.Record(), "a")
			b, _ := nodeAt(res.Record(), "b")
			ha, hb := hypothesisFromNode(a), hypothesisFromNode(b)
			out = append(out, domain.Contradiction{
				Hypothesis1: domain.HypothesisRef{ID: ha.ID, Statement: ha.Statement, Confidence: ha.Confidence},
				Hypothesis2: domain.HypothesisRef{ID: hb.ID, Statement: hb.Statement, Confidence: hb.Confidence},
			})
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Contradiction), nil
}
