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

const hypothesisColumns = `id, statement, confidence, base_confidence, updated, verified, verification_type, pre_verification_confidence`

type HypothesisStore struct {
	db *pgxpool.Pool
}

func NewHypothesisStore(db *pgxpool.Pool) *HypothesisStore {
	return &HypothesisStore{db: db}
}

func scanHypothesis(row pgx.Row) (*domain.Hypothesis, error) {
	h := &domain.Hypothesis{}
	var vType *string
	if err := row.Scan(&h.ID, &h.Statement, &h.Confidence, &h.BaseConfidence, &h.Updated,
		&h.Verified, &vType, &h.PreVerificationConfidence); err != nil {
		return nil, err
	}
	if vType != nil {
		h.VerificationType = domain.VerificationType(*vType)
	}
	return h, nil
}

func collectHypotheses(rows pgx.Rows) ([]domain.Hypothesis, error) {
	defer rows.Close()
	var out []domain.Hypothesis
	for rows.Next() {
		h, err := scanHypothesis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (s *HypothesisStore) Create(ctx context.Context, h *domain.Hypothesis) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO hypotheses (id, statement, confidence, base_confidence, updated)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING updated`,
		h.ID, h.Statement, h.Confidence, h.BaseConfidence,
	).Scan(&h.Updated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *HypothesisStore) GetByID(ctx context.Context, id string) (*domain.Hypothesis, error) {
	h, err := scanHypothesis(s.db.QueryRow(ctx,
		`SELECT `+hypothesisColumns+` FROM hypotheses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

func (s *HypothesisStore) List(ctx context.Context) ([]domain.Hypothesis, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+hypothesisColumns+` FROM hypotheses ORDER BY updated DESC`)
	if err != nil {
		return nil, err
	}
	return collectHypotheses(rows)
}

func (s *HypothesisStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM hypotheses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// lockedOrMissing explains why a conditional update touched no rows.
func (s *HypothesisStore) lockedOrMissing(ctx context.Context, id string) error {
	var verified *time.Time
	err := s.db.QueryRow(ctx, `SELECT verified FROM hypotheses WHERE id = $1`, id).Scan(&verified)
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

func (s *HypothesisStore) UpdateConfidence(ctx context.Context, id string, confidence float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE hypotheses SET confidence = $2, updated = NOW()
		 WHERE id = $1 AND verified IS NULL`,
		id, confidence,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.lockedOrMissing(ctx, id)
	}
	return nil
}

func (s *HypothesisStore) SetBaseConfidenceIfAbsent(ctx context.Context, id string, base float64) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE hypotheses SET base_confidence = $2
		 WHERE id = $1 AND base_confidence IS NULL AND verified IS NULL`,
		id, base,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *HypothesisStore) ListMissingBasePrior(ctx context.Context) ([]domain.Hypothesis, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+hypothesisColumns+` FROM hypotheses
		 WHERE base_confidence IS NULL AND verified IS NULL
		 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectHypotheses(rows)
}

// Verify locks the row, snapshots its confidence and records the
// verification in one transaction. A concurrent verifier blocks on the row
// lock and then sees verified set.
func (s *HypothesisStore) Verify(ctx context.Context, hypothesisID, evidenceID string, vType domain.VerificationType, at time.Time) (*domain.Hypothesis, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var verified *time.Time
	err = tx.QueryRow(ctx,
		`SELECT verified FROM hypotheses WHERE id = $1 FOR UPDATE`, hypothesisID,
	).Scan(&verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if verified != nil {
		return nil, ErrLocked
	}

	h, err := scanHypothesis(tx.QueryRow(ctx,
		`UPDATE hypotheses
		 SET pre_verification_confidence = confidence,
		     confidence = $2,
		     verified = $3,
		     verification_type = $4,
		     updated = $3
		 WHERE id = $1 AND verified IS NULL
		 RETURNING `+hypothesisColumns,
		hypothesisID, vType.LockedConfidence(), at, string(vType),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocked
		}
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO verifications (evidence_id, hypothesis_id, verification_type, verified_date, pre_verification_confidence)
		 VALUES ($1, $2, $3, $4, $5)`,
		evidenceID, hypothesisID, string(vType), at, h.PreVerificationConfidence,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HypothesisStore) ListVerified(ctx context.Context) ([]domain.Hypothesis, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+hypothesisColumns+` FROM hypotheses
		 WHERE verified IS NOT NULL
		 ORDER BY verified DESC`)
	if err != nil {
		return nil, err
	}
	return collectHypotheses(rows)
}
