package repository

import (
	"context"

	"folio-api/internal/domain"
)

type PgAccountRepository struct {
	db DBTX
}

func NewPgAccountRepository(db DBTX) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (id, user_id, provider, provider_account_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Provider,
		account.ProviderAccountID,
		account.CreatedAt,
	)
	return mapPgError(err)
}

func (r *PgAccountRepository) GetByProvider(ctx context.Context, provider, providerAccountID string) (domain.Account, error) {
	const query = `
		SELECT id, user_id, provider, provider_account_id, created_at
		FROM accounts
		WHERE provider = $1 AND provider_account_id = $2
	`
	var a domain.Account
	err := r.db.QueryRow(ctx, query, provider, providerAccountID).Scan(
		&a.ID,
		&a.UserID,
		&a.Provider,
		&a.ProviderAccountID,
		&a.CreatedAt,
	)
	if err != nil {
		return domain.Account{}, mapPgError(err)
	}
	return a, nil
}

func (r *PgAccountRepository) ListByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	const query = `
		SELECT id, user_id, provider, provider_account_id, created_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
