package graph

import (
	"context"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/store"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type EvidenceStore struct {
	c *Client
}

func (s *EvidenceStore) Create(ctx context.Context, e *domain.Evidence) error {
	now := time.Now().UTC()
	_, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Evidence {id: $id}) RETURN count(e) AS n`, map[string]any{"id": e.ID})
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
		_, err = tx.Run(ctx,
			`CREATE (e:Evidence {id: $id, content: $content, source_url: $url, timestamp: $ts})`,
			map[string]any{"id": e.ID, "content": e.Content, "url": e.SourceURL, "ts": now})
		return nil, err
	})
	if err != nil {
		return err
	}
	e.Timestamp = now
	return nil
}

func (s *EvidenceStore) GetByID(ctx context.Context, id string) (*domain.Evidence, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Evidence {id: $id}) RETURN e`, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, store.ErrNotFound
		}
		n, _ := nodeAt(res.Record(), "e")
		e := evidenceFromNode(n)
		return &e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Evidence), nil
}

func (s *EvidenceStore) List(ctx context.Context) ([]domain.Evidence, error) {
	v, err := s.c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Evidence) RETURN e ORDER BY e.timestamp DESC`, nil)
		if err != nil {
			return nil, err
		}
		var out []domain.Evidence
		for res.Next(ctx) {
			if n, ok := nodeAt(res.Record(), "e"); ok {
				out = append(out, evidenceFromNode(n))
			}
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Evidence), nil
}

func (s *EvidenceStore) Update(ctx context.Context, e *domain.Evidence) error {
	v, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (e:Evidence {id: $id})
			 SET e.content = $content, e.source_url = $url
			 RETURN e`,
			map[string]any{"id": e.ID, "content": e.Content, "url": e.SourceURL})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, store.ErrNotFound
		}
		n, _ := nodeAt(res.Record(), "e")
		updated := evidenceFromNode(n)
		return &updated, nil
	})
	if err != nil {
		return err
	}
	e.Timestamp = v.(*domain.Evidence).Timestamp
	return nil
}

// keepVerificationsCypher re-homes VERIFIED_BY edges onto their hypothesis
// before the evidence node goes, so the record survives without an evidence id.
const keepVerificationsCypher = `MATCH (e:Evidence {id: $id})-[v:VERIFIED_BY]->(h:Hypothesis)
	CREATE (h)-[k:VERIFIED_BY]->(h)
	SET k = properties(v)`

func (s *EvidenceStore) Delete(ctx context.Context, id string) ([]string, error) {
	v, err := s.c.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, keepVerificationsCypher, map[string]any{"id": id}); err != nil {
			return nil, err
		}
		res, err := tx.Run(ctx,
			`MATCH (e:Evidence {id: $id})
			 OPTIONAL MATCH (e)-[:AFFECTS]->(h:Hypothesis)
			 WITH e, collect(h.id) AS affected
			 DETACH DELETE e
			 RETURN affected`,
			map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, store.ErrNotFound
		}
		raw, _ := res.Record().Get("affected")
		var ids []string
		if list, ok := raw.([]any); ok {
			for _, item := range list {
				if hid, ok := item.(string); ok {
					ids = append(ids, hid)
				}
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}
