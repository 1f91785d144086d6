package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EvidenceStore struct {
	db *pgxpool.Pool
}

func NewEvidenceStore(db *pgxpool.Pool) *EvidenceStore {
	return &EvidenceStore{db: db}
}

func (s *EvidenceStore) Create(ctx context.Context, e *domain.Evidence) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO evidence (id, content, source_url, timestamp)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING timestamp`,
		e.ID, e.Content, e.SourceURL,
	).Scan(&e.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *EvidenceStore) GetByID(ctx context.Context, id string) (*domain.Evidence, error) {
	e := &domain.Evidence{}
	err := s.db.QueryRow(ctx,
		`SELECT id, content, source_url, timestamp FROM evidence WHERE id = $1`, id,
	).Scan(&e.ID, &e.Content, &e.SourceURL, &e.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EvidenceStore) List(ctx context.Context) ([]domain.Evidence, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, content, source_url, timestamp FROM evidence ORDER BY timestamp DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Evidence
	for rows.Next() {
		var e domain.Evidence
		if err := rows.Scan(&e.ID, &e.Content, &e.SourceURL, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update edits content and source_url only.
func (s *EvidenceStore) Update(ctx context.Context, e *domain.Evidence) error {
	err := s.db.QueryRow(ctx,
		`UPDATE evidence SET content = $2, source_url = $3
		 WHERE id = $1
		 RETURNING timestamp`,
		e.ID, e.Content, e.SourceURL,
	).Scan(&e.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *EvidenceStore) Delete(ctx context.Context, id string) ([]string, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT hypothesis_id FROM affects_links WHERE evidence_id = $1 ORDER BY hypothesis_id`, id)
	if err != nil {
		return nil, err
	}
	var affected []string
	for rows.Next() {
		var hid string
		if err := rows.Scan(&hid); err != nil {
			rows.Close()
			return nil, err
		}
		affected = append(affected, hid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM evidence WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return affected, nil
}
