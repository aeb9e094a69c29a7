package repository

import (
	"context"
	"time"

	"folio-api/internal/domain"
)

type PgSessionRepository struct {
	db DBTX
}

func NewPgSessionRepository(db DBTX) *PgSessionRepository {
	return &PgSessionRepository{db: db}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, fingerprint, revoked, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Fingerprint,
		session.Revoked,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return mapPgError(err)
}

func (r *PgSessionRepository) FindActiveByFingerprint(ctx context.Context, userID, fingerprint string, now time.Time) (domain.Session, error) {
	const query = `
		SELECT id, user_id, fingerprint, revoked, expires_at, created_at
		FROM sessions
		WHERE user_id = $1 AND fingerprint = $2 AND revoked = false AND expires_at > $3
		LIMIT 1
		FOR UPDATE
	`
	var s domain.Session
	err := r.db.QueryRow(ctx, query, userID, fingerprint, now).Scan(
		&s.ID,
		&s.UserID,
		&s.Fingerprint,
		&s.Revoked,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		return domain.Session{}, mapPgError(err)
	}
	return s, nil
}

func (r *PgSessionRepository) Revoke(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE sessions SET revoked = true WHERE id = $1 AND revoked = false`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, mapPgError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgSessionRepository) RevokeByFingerprint(ctx context.Context, fingerprint string) (int64, error) {
	const query = `UPDATE sessions SET revoked = true WHERE fingerprint = $1 AND revoked = false`
	tag, err := r.db.Exec(ctx, query, fingerprint)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgSessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	const query = `
		SELECT id, user_id, fingerprint, revoked, expires_at, created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Fingerprint, &s.Revoked, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
