package domain

import "time"

// User es la identidad raiz; PasswordHash vacio indica una cuenta solo OAuth.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username,omitempty"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PublicProfile es la vista de un usuario expuesta sin autenticacion.
type PublicProfile struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) PublicProfile() PublicProfile {
	return PublicProfile{Username: u.Username, CreatedAt: u.CreatedAt}
}

// Account vincula una identidad de un proveedor externo con un User.
// (Provider, ProviderAccountID) es unico globalmente.
type Account struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	CreatedAt         time.Time `json:"created_at"`
}
