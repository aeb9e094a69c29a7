package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"folio-api/internal/domain"
	"folio-api/internal/email"
	"folio-api/internal/repository"
)

// VerificationService emite y consume codigos de un solo uso ligados a un
// proposito, y firma los email tokens del flujo en dos pasos.
type VerificationService struct {
	logger       *zap.Logger
	store        repository.Store
	hasher       Hasher
	tokens       *JWTService
	mailer       email.Sender
	codeTTL      time.Duration
	resendWindow time.Duration
	codeLength   int
	now          func() time.Time
}

func NewVerificationService(logger *zap.Logger, store repository.Store, hasher Hasher, tokens *JWTService, mailer email.Sender, cfg AuthConfig) *VerificationService {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		logger:       logger,
		store:        store,
		hasher:       hasher,
		tokens:       tokens,
		mailer:       mailer,
		codeTTL:      cfg.CodeTTL,
		resendWindow: cfg.ResendWindow,
		codeLength:   cfg.CodeLength,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type ConsumeCodeInput struct {
	Code    string
	Email   string
	Purpose domain.Purpose
	// NewPassword solo aplica a PurposePasswordReset.
	NewPassword string
}

type EmailTokenPayload struct {
	Email   string         `json:"email"`
	Purpose domain.Purpose `json:"purpose"`
}

type issuedCode struct {
	email     string
	code      string
	purpose   domain.Purpose
	expiresAt time.Time
}

// IssueCode reemplaza los codigos previos del usuario para ese proposito y
// devuelve el nuevo codigo en claro. Solo se persiste su hash.
func (s *VerificationService) IssueCode(ctx context.Context, userID string, purpose domain.Purpose) (string, error) {
	if !purpose.Valid() {
		return "", ErrInvalidPurpose
	}
	var issued issuedCode
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		issued, err = s.issue(ctx, tx, userID, purpose)
		return err
	})
	if err != nil {
		return "", err
	}
	return issued.code, nil
}

// ConsumeCode valida el codigo mas reciente no expirado del usuario y aplica su
// efecto: marca el email verificado o cambia el password. El efecto y el
// borrado de los codigos se confirman juntos.
func (s *VerificationService) ConsumeCode(ctx context.Context, in ConsumeCodeInput) (domain.User, error) {
	if !in.Purpose.Valid() {
		return domain.User{}, ErrInvalidPurpose
	}
	emailAddr := normalizeEmail(in.Email)

	var passwordHash string
	if in.Purpose == domain.PurposePasswordReset {
		if !isValidPassword(in.NewPassword) {
			return domain.User{}, ErrInvalidPassword
		}
		var err error
		passwordHash, err = s.hasher.Hash(in.NewPassword)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
	}

	var updated domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// La fila del usuario se bloquea antes que el codigo: un reset y una
		// verificacion concurrentes no pueden pisarse el Update.
		user, err := tx.Users().GetByEmailForUpdate(ctx, emailAddr)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errInvalidCode
			}
			return err
		}
		record, err := tx.Codes().FindLatestUnexpired(ctx, user.ID, in.Purpose, s.now())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Debug("no active code", zap.String("user_id", user.ID), zap.String("purpose", string(in.Purpose)))
				return errInvalidCode
			}
			return err
		}
		if !s.hasher.Compare(record.CodeHash, in.Code) {
			s.logger.Debug("code mismatch", zap.String("user_id", user.ID), zap.String("purpose", string(in.Purpose)))
			return errInvalidCode
		}

		switch in.Purpose {
		case domain.PurposeEmailVerification:
			user.EmailVerified = true
		case domain.PurposePasswordReset:
			user.PasswordHash = passwordHash
		}
		user.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		if err := tx.Codes().DeleteForUser(ctx, user.ID, in.Purpose); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("code consumed", zap.String("user_id", updated.ID), zap.String("purpose", string(in.Purpose)))
	return updated, nil
}

func (s *VerificationService) VerifyEmail(ctx context.Context, emailAddr, code string) (domain.User, error) {
	return s.ConsumeCode(ctx, ConsumeCodeInput{
		Code:    code,
		Email:   emailAddr,
		Purpose: domain.PurposeEmailVerification,
	})
}

func (s *VerificationService) ResetPassword(ctx context.Context, emailAddr, code, newPassword string) error {
	_, err := s.ConsumeCode(ctx, ConsumeCodeInput{
		Code:        code,
		Email:       emailAddr,
		Purpose:     domain.PurposePasswordReset,
		NewPassword: newPassword,
	})
	return err
}

// StartEmailVerification emite el primer codigo de verificacion de un usuario
// recien registrado y lo envia.
func (s *VerificationService) StartEmailVerification(ctx context.Context, user domain.User) error {
	var issued issuedCode
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		issued, err = s.issue(ctx, tx, user.ID, domain.PurposeEmailVerification)
		return err
	})
	if err != nil {
		return err
	}
	issued.email = user.Email
	return s.dispatch(ctx, issued)
}

// ResendCode reemite un codigo salvo que el ultimo vigente tenga menos de la
// ventana de reenvio. El correo se envia despues del commit.
func (s *VerificationService) ResendCode(ctx context.Context, emailAddr string, purpose domain.Purpose) error {
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}
	emailAddr = normalizeEmail(emailAddr)

	var issued issuedCode
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		user, err := tx.Users().GetByEmail(ctx, emailAddr)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errUnknownAccount
			}
			return err
		}
		if purpose == domain.PurposeEmailVerification && user.EmailVerified {
			return errAlreadyVerified
		}
		issued, err = s.reissue(ctx, tx, user, purpose)
		return err
	})
	if err != nil {
		return err
	}
	return s.dispatch(ctx, issued)
}

// RequestPasswordReset emite un codigo de reseteo. Las cuentas creadas solo
// con OAuth no tienen password que resetear.
func (s *VerificationService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)

	var issued issuedCode
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		user, err := tx.Users().GetByEmail(ctx, emailAddr)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errUserNotFound
			}
			return err
		}
		if !user.HasPassword() {
			accounts, err := tx.Accounts().ListByUser(ctx, user.ID)
			if err != nil {
				return err
			}
			if len(accounts) > 0 {
				return errResetUnavailable
			}
		}
		issued, err = s.reissue(ctx, tx, user, domain.PurposePasswordReset)
		return err
	})
	if err != nil {
		return err
	}
	return s.dispatch(ctx, issued)
}

// GenerateEmailToken firma {email, purpose} para que el cliente no tenga que
// reenviar el email en el segundo paso del flujo.
func (s *VerificationService) GenerateEmailToken(emailAddr string, purpose domain.Purpose) (string, error) {
	return s.tokens.GenerateEmailToken(normalizeEmail(emailAddr), purpose)
}

// VerifyEmailTokenPayload comprueba firma, expiracion y proposito. Si email no
// esta vacio tambien debe coincidir con el del token.
func (s *VerificationService) VerifyEmailTokenPayload(token string, purpose domain.Purpose, emailAddr string) (EmailTokenPayload, bool) {
	claims, err := s.tokens.ParseEmailToken(token)
	if err != nil {
		s.logger.Debug("email token rejected", zap.String("reason", tokenErrorReason(err)))
		return EmailTokenPayload{}, false
	}
	if claims.Purpose != purpose {
		s.logger.Debug("email token rejected", zap.String("reason", "purpose"))
		return EmailTokenPayload{}, false
	}
	if emailAddr != "" && normalizeEmail(emailAddr) != claims.Email {
		s.logger.Debug("email token rejected", zap.String("reason", "email"))
		return EmailTokenPayload{}, false
	}
	return EmailTokenPayload{Email: claims.Email, Purpose: claims.Purpose}, true
}

func (s *VerificationService) EmailTokenTTL() time.Duration {
	return s.tokens.EmailTokenTTL()
}

func (s *VerificationService) reissue(ctx context.Context, tx repository.Tx, user domain.User, purpose domain.Purpose) (issuedCode, error) {
	now := s.now()
	latest, err := tx.Codes().FindLatestUnexpired(ctx, user.ID, purpose, now)
	switch {
	case err == nil:
		if now.Sub(latest.CreatedAt) < s.resendWindow {
			return issuedCode{}, errResendTooSoon
		}
	case !errors.Is(err, repository.ErrNotFound):
		return issuedCode{}, err
	}
	issued, err := s.issue(ctx, tx, user.ID, purpose)
	if err != nil {
		return issuedCode{}, err
	}
	issued.email = user.Email
	return issued, nil
}

func (s *VerificationService) issue(ctx context.Context, tx repository.Tx, userID string, purpose domain.Purpose) (issuedCode, error) {
	code, err := generateCode(s.codeLength)
	if err != nil {
		return issuedCode{}, fmt.Errorf("generate code: %w", err)
	}
	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return issuedCode{}, fmt.Errorf("hash code: %w", err)
	}
	if err := tx.Codes().DeleteForUser(ctx, userID, purpose); err != nil {
		return issuedCode{}, err
	}
	now := s.now()
	record := domain.VerificationCode{
		ID:        uuid.NewString(),
		UserID:    userID,
		Purpose:   purpose,
		CodeHash:  codeHash,
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
	}
	if err := tx.Codes().Create(ctx, record); err != nil {
		return issuedCode{}, err
	}
	return issuedCode{code: code, purpose: purpose, expiresAt: record.ExpiresAt}, nil
}

// dispatch corre despues del commit; un fallo de envio no deshace el codigo.
func (s *VerificationService) dispatch(ctx context.Context, issued issuedCode) error {
	if s.mailer == nil {
		return ErrEmailSendFailure
	}
	if err := s.mailer.SendCode(ctx, issued.email, issued.code, issued.purpose, issued.expiresAt); err != nil {
		s.logger.Warn("send code failed", zap.Error(err), zap.String("email", issued.email), zap.String("purpose", string(issued.purpose)))
		return fmt.Errorf("%w: %s", ErrEmailSendFailure, issued.purpose)
	}
	return nil
}
