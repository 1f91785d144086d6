package graph

import (
	"context"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/store"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type HypothesisStore struct {
	c *Client
}

func collectHypotheses(ctx context.Context, res neo4j.ResultWithContext, key string) ([]domain.Hypothesis, error) {
	var out []domain.Hypothesis
	for res.Next(ctx) {
		if n, ok := nodeAt(res.Record(), key); ok {
			out = append(out, hypothesisFromNode(n))
		}
	}
	return out, res.Err()
}

func (s *HypothesisStore) Create(ctx context.Context, h *domain.Hypothesis) error {
	now := time.Now().UTC()
	_, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (h:Hypothesis {id: $id}) RETURN count(h) AS n`, map[string]any{"id": h.ID})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		if n, _ := rec.Get("n"); n.(int64) > 0 {
			return nil, store.ErrConflict
		}

		params := map[string]any{
			"id":         h.ID,
			"statement":  h.Statement,
			"confidence": h.Confidence,
			"updated":    now,
			"base":       nil,
		}
		if h.BaseConfidence != nil {
			params["base"] = *h.BaseConfidence
		}
		_, err = tx.Run(ctx,
			`CREATE (h:Hypothesis {id: $id, statement: $statement, confidence: $confidence,
			                       base_confidence: $base, updated: $updated})`,
			params)
		return nil, err
	})
	if err != nil {
		return err
	}
	h.Updated = now
	return nil
}

func (s *HypothesisStore) GetByID(ctx context.Context, id string) (*domain.Hypothesis, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (h:Hypothesis {id: $id}) RETURN h`, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, store.ErrNotFound
		}
		n, _ := nodeAt(res.Record(), "h")
		h := hypothesisFromNode(n)
		return &h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Hypothesis), nil
}

func (s *HypothesisStore) List(ctx context.Context) ([]domain.Hypothesis, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (h:Hypothesis) RETURN h ORDER BY h.updated DESC`, nil)
		if err != nil {
			return nil, err
		}
		return collectHypotheses(ctx, res, "h")
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Hypothesis), nil
}

func (s *HypothesisStore) Delete(ctx context.Context, id string) error {
	v, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (h:Hypothesis {id: $id}) DETACH DELETE h RETURN 1 AS deleted`,
			map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), res.Err()
	})
	if err != nil {
		return err
	}
	if !v.(bool) {
		return store.ErrNotFound
	}
	return nil
}

// guard reports ErrNotFound or ErrLocked for a hypothesis that a
// conditional write did not match.
func guard(ctx context.Context, tx neo4j.ManagedTransaction, id string) error {
	res, err := tx.Run(ctx, `MATCH (h:Hypothesis {id: $id}) RETURN h.verified IS NOT NULL AS locked`, map[string]any{"id": id})
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

func (s *HypothesisStore) UpdateConfidence(ctx context.Context, id string, confidence float64) error {
	_, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (h:Hypothesis {id: $id}) WHERE h.verified IS NULL
			 SET h.confidence = $confidence, h.updated = $now
			 RETURN h.id AS id`,
			map[string]any{"id": id, "confidence": confidence, "now": time.Now().UTC()})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			return nil, nil
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nil, guard(ctx, tx, id)
	})
	return err
}

func (s *HypothesisStore) SetBaseConfidenceIfAbsent(ctx context.Context, id string, base float64) (bool, error) {
	v, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (h:Hypothesis {id: $id})
			 WHERE h.base_confidence IS NULL AND h.verified IS NULL
			 SET h.base_confidence = $base
			 RETURN h.id AS id`,
			map[string]any{"id": id, "base": base})
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), res.Err()
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *HypothesisStore) ListMissingBasePrior(ctx context.Context) ([]domain.Hypothesis, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (h:Hypothesis)
			 WHERE h.base_confidence IS NULL AND h.verified IS NULL
			 RETURN h ORDER BY h.id`, nil)
		if err != nil {
			return nil, err
		}
		return collectHypotheses(ctx, res, "h")
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Hypothesis), nil
}

// verifyCypher takes the node write lock with a throwaway property before it
// reads verified. A MATCH ... WHERE alone is evaluated against the snapshot
// read before the lock, so two writers could both pass it.
const verifyCypher = `MATCH (h:Hypothesis {id: $hid}), (e:Evidence {id: $eid})
	SET h.__lock = true
	REMOVE h.__lock
	WITH h, e
	WHERE h.verified IS NULL
	WITH h, e, h.confidence AS pre
	SET h.verified = $at,
	    h.verification_type = $vtype,
	    h.pre_verification_confidence = pre,
	    h.confidence = $locked,
	    h.updated = $at
	CREATE (e)-[:VERIFIED_BY {verified_date: $at, verification_type: $vtype,
	                          pre_verification_confidence: pre}]->(h)
	RETURN h`

// Verify locks, checks and sets in one write transaction. Callers also hold
// the service-level hypothesis lock.
func (s *HypothesisStore) Verify(ctx context.Context, hypothesisID, evidenceID string, vType domain.VerificationType, at time.Time) (*domain.Hypothesis, error) {
	v, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, verifyCypher,
			map[string]any{
				"hid":    hypothesisID,
				"eid":    evidenceID,
				"at":     at.UTC(),
				"vtype":  string(vType),
				"locked": vType.LockedConfidence(),
			})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			n, _ := nodeAt(res.Record(), "h")
			h := hypothesisFromNode(n)
			return &h, nil
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		check, err := tx.Run(ctx, `MATCH (e:Evidence {id: $eid}) RETURN e.id AS id`, map[string]any{"eid": evidenceID})
		if err != nil {
			return nil, err
		}
		if !check.Next(ctx) {
			return nil, store.ErrNotFound
		}
		return nil, guard(ctx, tx, hypothesisID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Hypothesis), nil
}

func (s *HypothesisStore) ListVerified(ctx context.Context) ([]domain.Hypothesis, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (h:Hypothesis) WHERE h.verified IS NOT NULL
			 RETURN h ORDER BY h.verified DESC`, nil)
		if err != nil {
			return nil, err
		}
		return collectHypotheses(ctx, res, "h")
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Hypothesis), nil
}
