package domain

import "time"

// Purpose identifica el flujo al que pertenece un codigo o un email token.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email-verification"
	PurposePasswordReset     Purpose = "password-reset"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeEmailVerification, PurposePasswordReset:
		return true
	default:
		return false
	}
}

// VerificationCode guarda el hash de un codigo de un solo uso.
type VerificationCode struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Purpose   Purpose   `json:"purpose"`
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (c VerificationCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
