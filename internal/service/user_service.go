package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"folio-api/internal/domain"
	"folio-api/internal/repository"
)

// UserService expone el perfil del usuario y el alta del nombre de autor.
type UserService struct {
	logger *zap.Logger
	store  repository.Store
	now    func() time.Time
}

func NewUserService(logger *zap.Logger, store repository.Store) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		logger: logger,
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, errUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) GetPublicProfile(ctx context.Context, username string) (domain.PublicProfile, error) {
	username = normalizeUsername(username)
	if username == "" {
		return domain.PublicProfile{}, errUserNotFound
	}
	user, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PublicProfile{}, errUserNotFound
		}
		return domain.PublicProfile{}, err
	}
	return user.PublicProfile(), nil
}

// UpdateUsername asigna o cambia el nombre publico del usuario.
func (s *UserService) UpdateUsername(ctx context.Context, userID, username string) (domain.User, error) {
	username = normalizeUsername(username)
	if !isValidUsername(username) {
		return domain.User{}, ErrInvalidUsername
	}

	var updated domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		user, err := tx.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errUserNotFound
			}
			return err
		}
		if user.Username == username {
			updated = user
			return nil
		}
		other, err := tx.Users().GetByUsername(ctx, username)
		if err == nil && other.ID != user.ID {
			return errUsernameTaken
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		user.Username = username
		user.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errUsernameTaken
			}
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("username updated", zap.String("user_id", updated.ID), zap.String("username", updated.Username))
	return updated, nil
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func isValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func isValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// isValidPassword exige al menos 8 caracteres con mayuscula, minuscula y digito.
func isValidPassword(password string) bool {
	if len(password) < 8 || len(password) > 72 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
