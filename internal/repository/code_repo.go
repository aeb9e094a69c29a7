package repository

import (
	"context"
	"time"

	"folio-api/internal/domain"
)

type PgCodeRepository struct {
	db DBTX
}

func NewPgCodeRepository(db DBTX) *PgCodeRepository {
	return &PgCodeRepository{db: db}
}

func (r *PgCodeRepository) Create(ctx context.Context, code domain.VerificationCode) error {
	const query = `
		INSERT INTO verification_codes (id, user_id, purpose, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		code.ID,
		code.UserID,
		string(code.Purpose),
		code.CodeHash,
		code.ExpiresAt,
		code.CreatedAt,
	)
	return mapPgError(err)
}

func (r *PgCodeRepository) FindLatestUnexpired(ctx context.Context, userID string, purpose domain.Purpose, now time.Time) (domain.VerificationCode, error) {
	const query = `
		SELECT id, user_id, purpose, code_hash, expires_at, created_at
		FROM verification_codes
		WHERE user_id = $1 AND purpose = $2 AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`
	var c domain.VerificationCode
	var p string
	err := r.db.QueryRow(ctx, query, userID, string(purpose), now).Scan(
		&c.ID,
		&c.UserID,
		&p,
		&c.CodeHash,
		&c.ExpiresAt,
		&c.CreatedAt,
	)
	if err != nil {
		return domain.VerificationCode{}, mapPgError(err)
	}
	c.Purpose = domain.Purpose(p)
	return c, nil
}

func (r *PgCodeRepository) DeleteForUser(ctx context.Context, userID string, purpose domain.Purpose) error {
	const query = `DELETE FROM verification_codes WHERE user_id = $1 AND purpose = $2`
	_, err := r.db.Exec(ctx, query, userID, string(purpose))
	return mapPgError(err)
}

func (r *PgCodeRepository) ListForUser(ctx context.Context, userID string, purpose domain.Purpose) ([]domain.VerificationCode, error) {
	const query = `
		SELECT id, user_id, purpose, code_hash, expires_at, created_at
		FROM verification_codes
		WHERE user_id = $1 AND purpose = $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID, string(purpose))
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var codes []domain.VerificationCode
	for rows.Next() {
		var c domain.VerificationCode
		var p string
		if err := rows.Scan(&c.ID, &c.UserID, &p, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Purpose = domain.Purpose(p)
		codes = append(codes, c)
	}
	return codes, rows.Err()
}
