package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"folio-api/internal/domain"
	"folio-api/internal/repository"
)

// OAuthProfile es la identidad que un proveedor externo afirma sobre el
// usuario. Cualquier otro dato del proveedor se descarta antes de llegar aqui.
type OAuthProfile struct {
	Provider          string
	ProviderAccountID string
	Email             string
	EmailVerified     bool
	DisplayName       string
}

func (p OAuthProfile) normalized() (OAuthProfile, error) {
	p.Provider = strings.ToLower(strings.TrimSpace(p.Provider))
	p.ProviderAccountID = strings.TrimSpace(p.ProviderAccountID)
	p.Email = normalizeEmail(p.Email)
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.Provider == "" || p.ProviderAccountID == "" || !isValidEmail(p.Email) {
		return OAuthProfile{}, ErrOAuthInvalid
	}
	return p, nil
}

// OAuthService resuelve una identidad externa a un usuario local, enlazando o
// creando segun corresponda.
type OAuthService struct {
	logger *zap.Logger
	store  repository.Store
	now    func() time.Time
}

func NewOAuthService(logger *zap.Logger, store repository.Store) *OAuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthService{
		logger: logger,
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ResolveOAuthUser nunca enlaza un proveedor a un usuario local cuyo email no
// esta verificado.
func (s *OAuthService) ResolveOAuthUser(ctx context.Context, profile OAuthProfile) (domain.User, error) {
	profile, err := profile.normalized()
	if err != nil {
		return domain.User{}, err
	}
	if !profile.EmailVerified {
		return domain.User{}, ErrOAuthEmailUnverified
	}

	resolved, err := s.resolve(ctx, profile)
	if errors.Is(err, repository.ErrDuplicate) {
		// Otro login del mismo usuario confirmo primero; el segundo intento
		// encuentra su cuenta.
		s.logger.Info("oauth link raced, retrying", zap.String("provider", profile.Provider))
		resolved, err = s.resolve(ctx, profile)
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrOAuthEmailExists
		}
	}
	if err != nil {
		return domain.User{}, err
	}
	return resolved, nil
}

func (s *OAuthService) resolve(ctx context.Context, profile OAuthProfile) (domain.User, error) {
	var resolved domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.Accounts().GetByProvider(ctx, profile.Provider, profile.ProviderAccountID)
		if err == nil {
			resolved, err = tx.Users().GetByID(ctx, account.UserID)
			return err
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := s.now()
		user, err := tx.Users().GetByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			if !user.EmailVerified {
				s.logger.Warn("oauth link refused for unverified local user",
					zap.String("user_id", user.ID),
					zap.String("provider", profile.Provider),
				)
				return ErrOAuthEmailExists
			}
		case errors.Is(err, repository.ErrNotFound):
			user = domain.User{
				ID:            uuid.NewString(),
				Email:         profile.Email,
				EmailVerified: profile.EmailVerified,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Users().Create(ctx, user); err != nil {
				return err
			}
		default:
			return err
		}

		if err := tx.Accounts().Create(ctx, domain.Account{
			ID:                uuid.NewString(),
			UserID:            user.ID,
			Provider:          profile.Provider,
			ProviderAccountID: profile.ProviderAccountID,
			CreatedAt:         now,
		}); err != nil {
			return err
		}
		s.logger.Info("oauth account linked", zap.String("user_id", user.ID), zap.String("provider", profile.Provider))
		resolved = user
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return resolved, nil
}
