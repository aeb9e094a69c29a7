package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"folio-api/internal/domain"
	"folio-api/internal/repository"
)

// SessionManager crea cuentas locales, valida credenciales y administra el
// ciclo de vida de las sesiones respaldadas por refresh tokens.
type SessionManager struct {
	logger     *zap.Logger
	store      repository.Store
	hasher     Hasher
	tokens     *JWTService
	sessionTTL time.Duration
	now        func() time.Time
}

func NewSessionManager(logger *zap.Logger, store repository.Store, hasher Hasher, tokens *JWTService, cfg AuthConfig) *SessionManager {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		logger:     logger,
		store:      store,
		hasher:     hasher,
		tokens:     tokens,
		sessionTTL: cfg.SessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser registra un usuario con email y password. El usuario queda sin
// verificar.
func (s *SessionManager) CreateUser(ctx context.Context, email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if !isValidEmail(email) {
		return domain.User{}, ErrInvalidEmail
	}
	if !isValidPassword(password) {
		return domain.User{}, ErrInvalidPassword
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		existing, err := tx.Users().GetByEmail(ctx, email)
		if err == nil {
			accounts, err := tx.Accounts().ListByUser(ctx, existing.ID)
			if err != nil {
				return err
			}
			if len(accounts) > 0 {
				return errEmailLinkedToOAuth
			}
			return errEmailInUse
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errEmailInUse
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ValidateUser devuelve nil sin error ante cualquier discrepancia: email
// desconocido, cuenta sin password o password incorrecto. No comprueba la
// verificacion del email; eso lo decide quien llama.
func (s *SessionManager) ValidateUser(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil
	}
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, nil
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, nil
	}
	return &user, nil
}

// Login emite un par de tokens y persiste la sesion del refresh token en una
// unica transaccion.
func (s *SessionManager) Login(ctx context.Context, user domain.User) (TokenPair, error) {
	if user.ID == "" {
		return TokenPair{}, errAccessDenied
	}
	var pair TokenPair
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		pair, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// RefreshTokens rota un refresh token: revoca la sesion consumida y crea la
// siguiente en la misma transaccion. Cualquier fallo de firma, expiracion o
// busqueda se devuelve como "access denied".
func (s *SessionManager) RefreshTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		s.logger.Debug("refresh token rejected", zap.String("reason", tokenErrorReason(err)))
		return TokenPair{}, errAccessDenied
	}
	fingerprint := Fingerprint(refreshToken)

	var pair TokenPair
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		session, err := tx.Sessions().FindActiveByFingerprint(ctx, claims.Subject, fingerprint, s.now())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Info("refresh token has no active session", zap.String("user_id", claims.Subject))
				return errAccessDenied
			}
			return err
		}
		revoked, err := tx.Sessions().Revoke(ctx, session.ID)
		if err != nil {
			return err
		}
		if !revoked {
			s.logger.Info("refresh session already revoked", zap.String("session_id", session.ID))
			return errAccessDenied
		}
		user, err := tx.Users().GetByID(ctx, session.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errAccessDenied
			}
			return err
		}
		pair, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Logout revoca las sesiones cuyo fingerprint coincide con el token. Un token
// que no corresponde a ninguna sesion no es un error.
func (s *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return errNoRefreshToken
	}
	fingerprint := Fingerprint(refreshToken)
	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		n, err := tx.Sessions().RevokeByFingerprint(ctx, fingerprint)
		if err != nil {
			return err
		}
		s.logger.Debug("logout", zap.Int64("revoked_sessions", n))
		return nil
	})
}

// SessionTTL es la vida autoritativa de una sesion; la cookie del refresh
// token la usa como max-age.
func (s *SessionManager) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *SessionManager) issue(ctx context.Context, tx repository.Tx, user domain.User) (TokenPair, error) {
	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate tokens: %w", err)
	}
	now := s.now()
	session := domain.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Fingerprint: Fingerprint(pair.RefreshToken),
		ExpiresAt:   now.Add(s.sessionTTL),
		CreatedAt:   now,
	}
	if err := tx.Sessions().Create(ctx, session); err != nil {
		return TokenPair{}, fmt.Errorf("create session: %w", err)
	}
	return pair, nil
}

func tokenErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrJWTExpired):
		return "expired"
	case errors.Is(err, ErrJWTInvalid):
		return "invalid"
	default:
		return "unknown"
	}
}
