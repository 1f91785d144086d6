package store

import (
	"context"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VerificationStore struct {
	db *pgxpool.Pool
}

func NewVerificationStore(db *pgxpool.Pool) *VerificationStore {
	return &VerificationStore{db: db}
}

func (s *VerificationStore) ListByHypothesis(ctx context.Context, hypothesisID string) ([]domain.Verification, error) {
	rows, err := s.db.Query(ctx,
		`SELECT COALESCE(evidence_id, ''), hypothesis_id, verification_type, verified_date, pre_verification_confidence
		 FROM verifications WHERE hypothesis_id = $1
		 ORDER BY verified_date DESC`,
		hypothesisID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Verification
	for rows.Next() {
		var v domain.Verification
		if err := rows.Scan(&v.EvidenceID, &v.HypothesisID, &v.Type, &v.VerifiedAt, &v.PreVerificationConfidence); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *VerificationStore) LatestPerHypothesis(ctx context.Context) (map[string]domain.Verification, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT ON (hypothesis_id)
		        COALESCE(evidence_id, ''), hypothesis_id, verification_type, verified_date, pre_verification_confidence
		 FROM verifications
		 ORDER BY hypothesis_id, verified_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.Verification)
	for rows.Next() {
		var v domain.Verification
		if err := rows.Scan(&v.EvidenceID, &v.HypothesisID, &v.Type, &v.VerifiedAt, &v.PreVerificationConfidence); err != nil {
			return nil, err
		}
		out[v.HypothesisID] = v
	}
	return out, rows.Err()
}
