package service

import "errors"

// Tipos de error visibles en el borde del servicio.
var (
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Errores de validacion de entrada.
var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidPassword  = errors.New("password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a number")
	ErrInvalidUsername  = errors.New("username must be 3-30 characters of a-z, 0-9 or _")
	ErrInvalidPurpose   = errors.New("invalid purpose")
	ErrEmailSendFailure = errors.New("email send failed")
)

// Error asocia un mensaje fijo a uno de los tipos de arriba.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	errAccessDenied         = newError(ErrUnauthorized, "access denied")
	errNoRefreshToken       = newError(ErrUnauthorized, "no refresh token found")
	errEmailInUse           = newError(ErrConflict, "Email is already in use.")
	errEmailLinkedToOAuth   = newError(ErrConflict, "This email is already registered.")
	errUsernameTaken        = newError(ErrConflict, "Username is already taken.")
	errInvalidCode          = newError(ErrForbidden, "Invalid or expired verification code.")
	errResendTooSoon        = newError(ErrForbidden, "Please wait before requesting another code.")
	errAlreadyVerified      = newError(ErrForbidden, "Email is already verified.")
	errResetUnavailable     = newError(ErrForbidden, "Password reset is not available for Google accounts. Please sign in with Google.")
	errUserNotFound         = newError(ErrNotFound, "User not found")
	errUnknownAccount       = newError(ErrForbidden, "User not found")
	ErrOAuthInvalid         = newError(ErrForbidden, "invalid oauth profile")
	ErrOAuthEmailUnverified = newError(ErrForbidden, "This Email is not verified")
	ErrOAuthEmailExists     = newError(ErrForbidden, "An account with this email already exists")
)

// KindOf devuelve el tipo de err o nil si no pertenece a la taxonomia.
func KindOf(err error) error {
	for _, kind := range []error{ErrConflict, ErrForbidden, ErrUnauthorized, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
