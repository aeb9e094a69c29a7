package service

import (
	"errors"
	"time"
)

// AuthConfig agrupa secretos y ventanas de tiempo del nucleo de autenticacion.
// Se inyecta en los constructores; los servicios no leen el entorno.
type AuthConfig struct {
	AccessSecret     string
	RefreshSecret    string
	EmailTokenSecret string
	Issuer           string

	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SessionTTL    time.Duration
	EmailTokenTTL time.Duration

	CodeTTL      time.Duration
	ResendWindow time.Duration
	CodeLength   int
	BcryptCost   int
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Issuer:        "folio-api",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		SessionTTL:    7 * 24 * time.Hour,
		EmailTokenTTL: 10 * time.Minute,
		CodeTTL:       15 * time.Minute,
		ResendWindow:  time.Minute,
		CodeLength:    6,
		BcryptCost:    10,
	}
}

// withDefaults completa los campos vacios con DefaultAuthConfig.
func (c AuthConfig) withDefaults() AuthConfig {
	d := DefaultAuthConfig()
	if c.Issuer == "" {
		c.Issuer = d.Issuer
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = d.AccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = d.RefreshTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.SessionTTL < c.RefreshTTL {
		c.SessionTTL = c.RefreshTTL
	}
	if c.EmailTokenTTL <= 0 {
		c.EmailTokenTTL = d.EmailTokenTTL
	}
	if c.CodeTTL <= 0 {
		c.CodeTTL = d.CodeTTL
	}
	if c.ResendWindow <= 0 {
		c.ResendWindow = d.ResendWindow
	}
	if c.CodeLength <= 0 {
		c.CodeLength = d.CodeLength
	}
	if c.BcryptCost <= 0 {
		c.BcryptCost = d.BcryptCost
	}
	return c
}

func (c AuthConfig) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" || c.EmailTokenSecret == "" {
		return errors.New("auth secrets are required")
	}
	if c.SessionTTL > 0 && c.SessionTTL < c.RefreshTTL {
		return errors.New("session ttl must not be shorter than refresh ttl")
	}
	return nil
}
