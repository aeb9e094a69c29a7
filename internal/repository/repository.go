package repository

import (
	"context"
	"errors"
	"time"

	"folio-api/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	// GetByIDForUpdate y GetByEmailForUpdate bloquean la fila hasta el fin de
	// la transaccion; cualquier lectura previa a Update debe usarlas.
	GetByIDForUpdate(ctx context.Context, id string) (domain.User, error)
	GetByEmailForUpdate(ctx context.Context, email string) (domain.User, error)
	Update(ctx context.Context, user domain.User) error
}

// AccountRepository guarda vinculos con proveedores OAuth.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByProvider(ctx context.Context, provider, providerAccountID string) (domain.Account, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Account, error)
}

// CodeRepository guarda codigos de verificacion y de reseteo de password.
type CodeRepository interface {
	Create(ctx context.Context, code domain.VerificationCode) error
	// FindLatestUnexpired devuelve el codigo mas reciente con ExpiresAt > now.
	FindLatestUnexpired(ctx context.Context, userID string, purpose domain.Purpose, now time.Time) (domain.VerificationCode, error)
	DeleteForUser(ctx context.Context, userID string, purpose domain.Purpose) error
	// ListForUser es de inspeccion (tests y soporte); los flujos no lo usan.
	ListForUser(ctx context.Context, userID string, purpose domain.Purpose) ([]domain.VerificationCode, error)
}

// SessionRepository guarda las sesiones que respaldan refresh tokens.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	// FindActiveByFingerprint solo devuelve sesiones no revocadas con ExpiresAt > now.
	FindActiveByFingerprint(ctx context.Context, userID, fingerprint string, now time.Time) (domain.Session, error)
	// Revoke marca la sesion como revocada; devuelve false si ya lo estaba.
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeByFingerprint(ctx context.Context, fingerprint string) (int64, error)
	// ListByUser es de inspeccion (tests y soporte); incluye sesiones revocadas.
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
}

// Tx agrupa los repositorios ligados a un mismo limite transaccional.
type Tx interface {
	Users() UserRepository
	Accounts() AccountRepository
	Codes() CodeRepository
	Sessions() SessionRepository
}

// Store expone los repositorios fuera de transaccion y la unidad de trabajo.
// Dentro de fn solo debe usarse el Tx recibido: si fn devuelve error nada se
// confirma.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
