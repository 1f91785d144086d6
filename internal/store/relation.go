package store

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RelationStore struct {
	db *pgxpool.Pool
}

func NewRelationStore(db *pgxpool.Pool) *RelationStore {
	return &RelationStore{db: db}
}

const upsertRelationSQL = `INSERT INTO hypothesis_relations (from_id, to_id, relation_type, strength)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (from_id, to_id, relation_type) DO UPDATE
	SET strength = EXCLUDED.strength
	RETURNING created`

// relationEdges lists the rows stored for r. contradicts is symmetric, so it
// also yields the reverse edge unless r is a self-loop.
func relationEdges(r domain.Relation) []domain.Relation {
	edges := []domain.Relation{r}
	if r.Type == domain.RelationContradicts && r.FromID != r.ToID {
		edges = append(edges, domain.Relation{FromID: r.ToID, ToID: r.FromID, Type: r.Type, Strength: r.Strength})
	}
	return edges
}

// Create upserts the edge and, for contradicts, its reverse in one
// transaction.
func (s *RelationStore) Create(ctx context.Context, r *domain.Relation) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, e := range relationEdges(*r) {
		var created time.Time
		err := tx.QueryRow(ctx, upsertRelationSQL, e.FromID, e.ToID, string(e.Type), e.Strength).Scan(&created)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return ErrNotFound
			}
			return err
		}
		if i == 0 {
			r.Created = created
		}
	}
	return tx.Commit(ctx)
}

func (s *RelationStore) Delete(ctx context.Context, fromID, toID string, relType domain.RelationType) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM hypothesis_relations
		 WHERE relation_type = $3
		   AND ((from_id = $1 AND to_id = $2)
		        OR ($3 = 'contradicts' AND from_id = $2 AND to_id = $1))`,
		fromID, toID, string(relType),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RelationStore) ListFrom(ctx context.Context, fromID string) ([]domain.Relation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT from_id, to_id, relation_type, strength, created
		 FROM hypothesis_relations WHERE from_id = $1
		 ORDER BY relation_type, to_id`,
		fromID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Relation
	for rows.Next() {
		var r domain.Relation
		if err := rows.Scan(&r.FromID, &r.ToID, &r.Type, &r.Strength, &r.Created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RelationStore) Dependents(ctx context.Context, fromID string) ([]domain.DependentState, error) {
	rows, err := s.db.Query(ctx,
		`SELECT h.id, h.confidence, r.strength, h.verified IS NOT NULL
		 FROM hypothesis_relations r JOIN hypotheses h ON h.id = r.to_id
		 WHERE r.from_id = $1 AND r.relation_type = 'depends_on'
		 ORDER BY h.id`,
		fromID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DependentState
	for rows.Next() {
		var d domain.DependentState
		if err := rows.Scan(&d.HypothesisID, &d.Confidence, &d.Strength, &d.Verified); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Contradictions lists each contradicting pair once, both sides above
// minConfidence.
func (s *RelationStore) Contradictions(ctx context.Context, minConfidence float64) ([]domain.Contradiction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT a.id, a.statement, a.confidence, b.id, b.statement, b.confidence
		 FROM hypothesis_relations r
		 JOIN hypotheses a ON a.id = r.from_id
		 JOIN hypotheses b ON b.id = r.to_id
		 WHERE r.relation_type = 'contradicts'
		   AND r.from_id < r.to_id
		   AND a.confidence > $1 AND b.confidence > $1
		 ORDER BY a.id, b.id`,
		minConfidence,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Contradiction
	for rows.Next() {
		var c domain.Contradiction
		if err := rows.Scan(&c.Hypothesis1.ID, &c.Hypothesis1.Statement, &c.Hypothesis1.Confidence,
			&c.Hypothesis2.ID, &c.Hypothesis2.Statement, &c.Hypothesis2.Confidence); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
