package store

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LinkStore struct {
	db *pgxpool.Pool
}

func NewLinkStore(db *pgxpool.Pool) *LinkStore {
	return &LinkStore{db: db}
}

// Create inserts the link only while the hypothesis is unverified.
func (s *LinkStore) Create(ctx context.Context, l *domain.AffectsLink) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO affects_links (evidence_id, hypothesis_id, p_e_given_h, p_e_given_not_h)
		 SELECT $1, h.id, $3, $4 FROM hypotheses h
		 WHERE h.id = $2 AND h.verified IS NULL
		 RETURNING created`,
		l.EvidenceID, l.HypothesisID, l.PEGivenH, l.PEGivenNotH,
	).Scan(&l.Created)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return s.hypothesisGuard(ctx, l.HypothesisID)
		}
		return err
	}
	return nil
}

func (s *LinkStore) hypothesisGuard(ctx context.Context, hypothesisID string) error {
	var verified *time.Time
	err := s.db.QueryRow(ctx, `SELECT verified FROM hypotheses WHERE id = $1`, hypothesisID).Scan(&verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if verified != nil {
		return ErrLocked
	}
	return ErrNotFound
}

// linkGuard explains why a conditional link mutation touched no rows.
func (s *LinkStore) linkGuard(ctx context.Context, evidenceID, hypothesisID string) error {
	ok, err := s.Exists(ctx, evidenceID, hypothesisID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return s.hypothesisGuard(ctx, hypothesisID)
}

func (s *LinkStore) Exists(ctx context.Context, evidenceID, hypothesisID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM affects_links WHERE evidence_id = $1 AND hypothesis_id = $2)`,
		evidenceID, hypothesisID,
	).Scan(&exists)
	return exists, err
}

func (s *LinkStore) Get(ctx context.Context, evidenceID, hypothesisID string) (*domain.AffectsLink, error) {
	l := &domain.AffectsLink{}
	err := s.db.QueryRow(ctx,
		`SELECT evidence_id, hypothesis_id, p_e_given_h, p_e_given_not_h, created
		 FROM affects_links WHERE evidence_id = $1 AND hypothesis_id = $2`,
		evidenceID, hypothesisID,
	).Scan(&l.EvidenceID, &l.HypothesisID, &l.PEGivenH, &l.PEGivenNotH, &l.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *LinkStore) Update(ctx context.Context, evidenceID, hypothesisID string, l domain.Likelihoods) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE affects_links a
		 SET p_e_given_h = $3, p_e_given_not_h = $4
		 FROM hypotheses h
		 WHERE a.evidence_id = $1 AND a.hypothesis_id = $2
		   AND h.id = a.hypothesis_id AND h.verified IS NULL`,
		evidenceID, hypothesisID, l.PEGivenH, l.PEGivenNotH,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.linkGuard(ctx, evidenceID, hypothesisID)
	}
	return nil
}

func (s *LinkStore) Delete(ctx context.Context, evidenceID, hypothesisID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM affects_links a
		 USING hypotheses h
		 WHERE a.evidence_id = $1 AND a.hypothesis_id = $2
		   AND h.id = a.hypothesis_id AND h.verified IS NULL`,
		evidenceID, hypothesisID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.linkGuard(ctx, evidenceID, hypothesisID)
	}
	return nil
}

func (s *LinkStore) queryLinks(ctx context.Context, query string, arg string) ([]domain.AffectsLink, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AffectsLink
	for rows.Next() {
		var l domain.AffectsLink
		if err := rows.Scan(&l.EvidenceID, &l.HypothesisID, &l.PEGivenH, &l.PEGivenNotH, &l.Created); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *LinkStore) ListByHypothesis(ctx context.Context, hypothesisID string) ([]domain.AffectsLink, error) {
	return s.queryLinks(ctx,
		`SELECT evidence_id, hypothesis_id, p_e_given_h, p_e_given_not_h, created
		 FROM affects_links WHERE hypothesis_id = $1 ORDER BY evidence_id`,
		hypothesisID)
}

func (s *LinkStore) ListByEvidence(ctx context.Context, evidenceID string) ([]domain.AffectsLink, error) {
	return s.queryLinks(ctx,
		`SELECT evidence_id, hypothesis_id, p_e_given_h, p_e_given_not_h, created
		 FROM affects_links WHERE evidence_id = $1 ORDER BY hypothesis_id`,
		evidenceID)
}

func (s *LinkStore) ListLinkedEvidence(ctx context.Context, hypothesisID string) ([]domain.LinkedEvidence, error) {
	rows, err := s.db.Query(ctx,
		`SELECT e.id, e.content, e.source_url, e.timestamp, a.p_e_given_h, a.p_e_given_not_h
		 FROM affects_links a JOIN evidence e ON e.id = a.evidence_id
		 WHERE a.hypothesis_id = $1
		 ORDER BY e.timestamp DESC`,
		hypothesisID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LinkedEvidence
	for rows.Next() {
		var le domain.LinkedEvidence
		if err := rows.Scan(&le.Evidence.ID, &le.Evidence.Content, &le.Evidence.SourceURL, &le.Evidence.Timestamp,
			&le.Relationship.PEGivenH, &le.Relationship.PEGivenNotH); err != nil {
			return nil, err
		}
		out = append(out, le)
	}
	return out, rows.Err()
}

func (s *LinkStore) ListLinkedHypotheses(ctx context.Context, evidenceID string) ([]domain.LinkedHypothesis, error) {
	rows, err := s.db.Query(ctx,
		`SELECT h.id, h.statement, h.confidence, h.base_confidence, h.updated, h.verified,
		        h.verification_type, h.pre_verification_confidence,
		        a.p_e_given_h, a.p_e_given_not_h
		 FROM affects_links a JOIN hypotheses h ON h.id = a.hypothesis_id
		 WHERE a.evidence_id = $1
		 ORDER BY h.id`,
		evidenceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LinkedHypothesis
	for rows.Next() {
		var lh domain.LinkedHypothesis
		var vType *string
		h := &lh.Hypothesis
		if err := rows.Scan(&h.ID, &h.Statement, &h.Confidence, &h.BaseConfidence, &h.Updated, &h.Verified,
			&vType, &h.PreVerificationConfidence,
			&lh.Relationship.PEGivenH, &lh.Relationship.PEGivenNotH); err != nil {
			return nil, err
		}
		if vType != nil {
			h.VerificationType = domain.VerificationType(*vType)
		}
		out = append(out, lh)
	}
	return out, rows.Err()
}
