package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	refreshCookie           = "refresh_token"
	emailVerificationCookie = "email_verification_token"
	resetPasswordCookie     = "reset_password_token"
	oauthStateCookie        = "oauthstate"
	oauthAccessCookie       = "access_token"
)

// CookieConfig controla los atributos comunes de las cookies de autenticacion.
// Path es la raiz de la API; ninguna cookie se envia fuera de ella.
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// ParseSameSite acepta "none", "strict" o "lax" (por defecto).
func ParseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

func (cc CookieConfig) path() string {
	if cc.Path == "" {
		return "/"
	}
	return cc.Path
}

func (cc CookieConfig) set(c *gin.Context, name, value string, maxAge time.Duration, httpOnly bool) {
	c.SetSameSite(cc.SameSite)
	c.SetCookie(name, value, int(maxAge.Seconds()), cc.path(), cc.Domain, cc.Secure, httpOnly)
}

func (cc CookieConfig) clear(c *gin.Context, name string) {
	c.SetSameSite(cc.SameSite)
	c.SetCookie(name, "", -1, cc.path(), cc.Domain, cc.Secure, true)
}

func readCookie(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}
