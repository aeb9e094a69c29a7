package email

import (
	"context"
	"errors"
	"time"

	"folio-api/internal/domain"
)

// Sender entrega codigos de verificacion y de reseteo de password.
type Sender interface {
	SendCode(ctx context.Context, toEmail string, code string, purpose domain.Purpose, expiresAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendCode(_ context.Context, _ string, _ string, _ domain.Purpose, _ time.Time) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

// subjectFor devuelve asunto y frase de cabecera segun el proposito.
func subjectFor(purpose domain.Purpose) (string, string) {
	switch purpose {
	case domain.PurposePasswordReset:
		return "Reset your password", "Your password reset code is"
	default:
		return "Verify your email", "Your verification code is"
	}
}
