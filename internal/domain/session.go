package domain

import "time"

// Session respalda un refresh token emitido. Solo se guarda el fingerprint
// SHA-256 del token, nunca el token.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Fingerprint string    `json:"-"`
	Revoked     bool      `json:"revoked"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Active indica si la sesion puede usarse en el instante now.
func (s Session) Active(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(now)
}
