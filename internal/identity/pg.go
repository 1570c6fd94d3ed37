package identity

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implementa Store sobre PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore crea el store con un pool ya inicializado.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Pool expone el pool interno (healthchecks/migraciones).
func (s *PGStore) Pool() *pgxpool.Pool { return s.pool }

func (s *PGStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PGStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" // unique_violation
}

func (s *PGStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	const q = `
INSERT INTO portal_user (id, email, name, picture)
VALUES ($1, $2, $3, $4)
RETURNING id, email, name, picture, created_at, updated_at;
`
	var out User
	err := s.pool.QueryRow(ctx, q, u.ID, u.Email, u.Name, u.Picture).
		Scan(&out.ID, &out.Email, &out.Name, &out.Picture, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, err
	}
	return out, nil
}

func (s *PGStore) GetUser(ctx context.Context, id string) (User, error) {
	const q = `
SELECT id, email, name, picture, created_at, updated_at
FROM portal_user
WHERE id = $1;
`
	var u User
	err := s.pool.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT id, email, name, picture, created_at, updated_at
FROM portal_user
WHERE lower(email) = lower($1);
`
	var u User
	err := s.pool.QueryRow(ctx, q, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PGStore) CreateLink(ctx context.Context, l Link) (Link, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	meta, err := metadataJSON(l.Metadata)
	if err != nil {
		return Link{}, err
	}
	const q = `
INSERT INTO identity (id, user_id, provider, subject, email, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, provider, subject, email, metadata, created_at, updated_at;
`
	out, err := scanLink(s.pool.QueryRow(ctx, q, l.ID, l.UserID, l.Provider, l.Subject, l.Email, meta))
	if err != nil {
		if isUniqueViolation(err) {
			return Link{}, ErrConflict
		}
		return Link{}, err
	}
	return out, nil
}

func (s *PGStore) UpdateLink(ctx context.Context, l Link) (Link, error) {
	meta, err := metadataJSON(l.Metadata)
	if err != nil {
		return Link{}, err
	}
	const q = `
UPDATE identity
SET email      = $3,
    metadata   = metadata || $4::jsonb,
    updated_at = now()
WHERE provider = $1 AND subject = $2
RETURNING id, user_id, provider, subject, email, metadata, created_at, updated_at;
`
	out, err := scanLink(s.pool.QueryRow(ctx, q, l.Provider, l.Subject, l.Email, meta))
	if errors.Is(err, pgx.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, err
	}
	return out, nil
}

func (s *PGStore) GetLink(ctx context.Context, provider, subject string) (Link, error) {
	const q = `
SELECT id, user_id, provider, subject, email, metadata, created_at, updated_at
FROM identity
WHERE provider = $1 AND subject = $2;
`
	l, err := scanLink(s.pool.QueryRow(ctx, q, provider, subject))
	if errors.Is(err, pgx.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, err
	}
	return l, nil
}

func (s *PGStore) ListLinks(ctx context.Context, userID string) ([]Link, error) {
	const q = `
SELECT id, user_id, provider, subject, email, metadata, created_at, updated_at
FROM identity
WHERE user_id = $1
ORDER BY provider ASC;
`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PGStore) DeleteLink(ctx context.Context, userID, provider string) error {
	const q = `DELETE FROM identity WHERE user_id = $1 AND provider = $2;`
	tag, err := s.pool.Exec(ctx, q, userID, provider)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (Link, error) {
	var (
		l    Link
		meta []byte
	)
	err := row.Scan(&l.ID, &l.UserID, &l.Provider, &l.Subject, &l.Email, &meta, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Link{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &l.Metadata); err != nil {
			return Link{}, err
		}
	}
	return l, nil
}

func metadataJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}
