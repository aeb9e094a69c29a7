package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"folio-api/internal/challenge"
	"folio-api/internal/domain"
	"folio-api/internal/oauth"
	"folio-api/internal/service"
)

const (
	oauthStateTTL  = 10 * time.Minute
	oauthAccessTTL = 30 * time.Second
)

// OAuthProvider es el lado externo del login social.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (service.OAuthProfile, error)
}

// AuthDeps agrupa las dependencias de AuthHandler.
type AuthDeps struct {
	Sessions     *service.SessionManager
	Verification *service.VerificationService
	OAuth        *service.OAuthService
	Google       OAuthProvider
	Challenge    challenge.Verifier
	Cookies      CookieConfig
	FrontendURL  string
}

// AuthHandler expone el registro, el login y los flujos de verificacion.
type AuthHandler struct {
	logger      *zap.Logger
	sessions    *service.SessionManager
	verify      *service.VerificationService
	oauthSvc    *service.OAuthService
	google      OAuthProvider
	challenge   challenge.Verifier
	cookies     CookieConfig
	frontendURL string
}

func NewAuthHandler(logger *zap.Logger, deps AuthDeps) *AuthHandler {
	if deps.Challenge == nil {
		deps.Challenge = challenge.NewDisabledVerifier()
	}
	return &AuthHandler{
		logger:      logger,
		sessions:    deps.Sessions,
		verify:      deps.Verification,
		oauthSvc:    deps.OAuth,
		google:      deps.Google,
		challenge:   deps.Challenge,
		cookies:     deps.Cookies,
		frontendURL: deps.FrontendURL,
	}
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Token    string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "register", err)
		return
	}
	if !h.passChallenge(c, req.Token) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.sessions.CreateUser(ctx, req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err, "could not create user")
		return
	}
	if err := h.verify.StartEmailVerification(ctx, user); err != nil {
		writeError(c, h.logger, err, "could not send verification code")
		return
	}
	if !h.setEmailTokenCookie(c, user.Email, domain.PurposeEmailVerification) {
		return
	}
	h.logger.Info("user registered", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{"message": "email token sent"})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Token    string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "login", err)
		return
	}
	if !h.passChallenge(c, req.Token) {
		return
	}

	user, err := h.sessions.ValidateUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err, "could not login")
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !user.EmailVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
		return
	}
	h.loginAndRespond(c, *user)
}

// EmailToken maneja POST /auth/email-token: devuelve el email ligado a la
// cookie del flujo indicado.
func (h *AuthHandler) EmailToken(c *gin.Context) {
	var req struct {
		Purpose string `json:"purpose" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "email token", err)
		return
	}
	purpose := domain.Purpose(req.Purpose)
	if !purpose.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidPurpose.Error()})
		return
	}
	payload, ok := h.verify.VerifyEmailTokenPayload(readCookie(c, cookieFor(purpose)), purpose, "")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": payload.Email})
}

// VerifyEmail maneja POST /auth/email-verification.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "email verification", err)
		return
	}
	payload, ok := h.verify.VerifyEmailTokenPayload(readCookie(c, emailVerificationCookie), domain.PurposeEmailVerification, "")
	if !ok {
		h.cookies.clear(c, emailVerificationCookie)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Un codigo incorrecto conserva la cookie para permitir otro intento o un
	// reenvio.
	user, err := h.verify.VerifyEmail(c.Request.Context(), payload.Email, req.Code)
	if err != nil {
		writeError(c, h.logger, err, "could not verify email")
		return
	}
	h.cookies.clear(c, emailVerificationCookie)
	h.loginAndRespond(c, user)
}

// ResendVerification maneja POST /auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "resend verification", err)
		return
	}
	payload, ok := h.verify.VerifyEmailTokenPayload(readCookie(c, emailVerificationCookie), domain.PurposeEmailVerification, req.Email)
	if !ok {
		h.cookies.clear(c, emailVerificationCookie)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Verification time expired", "requires_login": true})
		return
	}
	h.resend(c, payload.Email)
}

// ResendVerificationWithLogin maneja POST /auth/resend-verification-with-login.
func (h *AuthHandler) ResendVerificationWithLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "resend verification", err)
		return
	}
	user, err := h.sessions.ValidateUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err, "could not resend verification")
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	h.resend(c, user.Email)
}

// RequestPasswordReset maneja POST /auth/request-password-reset.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "password reset", err)
		return
	}
	if !h.passChallenge(c, req.Token) {
		return
	}
	if err := h.verify.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, err, "could not request password reset")
		return
	}
	if !h.setEmailTokenCookie(c, req.Email, domain.PurposePasswordReset) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset code sent to your email"})
}

// ResetPassword maneja POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Code     string `json:"code" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "reset password", err)
		return
	}
	payload, ok := h.verify.VerifyEmailTokenPayload(readCookie(c, resetPasswordCookie), domain.PurposePasswordReset, "")
	if !ok {
		h.cookies.clear(c, resetPasswordCookie)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	err := h.verify.ResetPassword(c.Request.Context(), payload.Email, req.Code, req.Password)
	if errors.Is(err, service.ErrInvalidPassword) {
		writeError(c, h.logger, err, "could not reset password")
		return
	}
	h.cookies.clear(c, resetPasswordCookie)
	if err != nil {
		writeError(c, h.logger, err, "could not reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// Refresh maneja POST /auth/refresh. Cualquier fallo borra la cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := readCookie(c, refreshCookie)
	if token == "" {
		h.cookies.clear(c, refreshCookie)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no refresh token found"})
		return
	}
	pair, err := h.sessions.RefreshTokens(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, service.ErrUnauthorized) {
			h.logger.Error("refresh failed", zap.Error(err))
		}
		h.cookies.clear(c, refreshCookie)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	h.cookies.set(c, refreshCookie, pair.RefreshToken, h.sessions.SessionTTL(), true)
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "expires_in": pair.ExpiresIn})
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), readCookie(c, refreshCookie)); err != nil {
		writeError(c, h.logger, err, "could not logout")
		return
	}
	h.cookies.clear(c, refreshCookie)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// CheckRefresh maneja GET /auth/check-refresh.
func (h *AuthHandler) CheckRefresh(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"has_refresh_token": readCookie(c, refreshCookie) != ""})
}

// GoogleLogin maneja GET /auth/google.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google sign-in unavailable"})
		return
	}
	state, err := oauth.NewState()
	if err != nil {
		h.logger.Error("oauth state failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start google sign-in"})
		return
	}
	h.cookies.set(c, oauthStateCookie, state, oauthStateTTL, true)
	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

// GoogleCallback maneja GET /auth/google/callback.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		h.redirectOAuthError(c, "auth-failed")
		return
	}
	state := readCookie(c, oauthStateCookie)
	h.cookies.clear(c, oauthStateCookie)
	if state == "" || c.Query("state") != state {
		h.logger.Warn("oauth state mismatch")
		h.redirectOAuthError(c, "auth-failed")
		return
	}
	if reason := c.Query("error"); reason != "" {
		h.logger.Info("oauth denied by provider", zap.String("reason", reason))
		h.redirectOAuthError(c, "auth-failed")
		return
	}

	ctx := c.Request.Context()
	profile, err := h.google.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.logger.Warn("oauth exchange failed", zap.Error(err))
		h.redirectOAuthError(c, "auth-failed")
		return
	}
	user, err := h.oauthSvc.ResolveOAuthUser(ctx, profile)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOAuthEmailUnverified):
			h.redirectOAuthError(c, "email-not-verified")
		case errors.Is(err, service.ErrOAuthEmailExists):
			h.redirectOAuthError(c, "email-exists")
		default:
			h.logger.Error("oauth resolve failed", zap.Error(err))
			h.redirectOAuthError(c, "auth-failed")
		}
		return
	}
	pair, err := h.sessions.Login(ctx, user)
	if err != nil {
		h.logger.Error("oauth login failed", zap.Error(err))
		h.redirectOAuthError(c, "auth-failed")
		return
	}
	h.cookies.set(c, refreshCookie, pair.RefreshToken, h.sessions.SessionTTL(), true)
	h.cookies.set(c, oauthAccessCookie, pair.AccessToken, oauthAccessTTL, false)
	c.Redirect(http.StatusFound, h.frontendURL+"/auth/google/success")
}

func (h *AuthHandler) loginAndRespond(c *gin.Context, user domain.User) {
	pair, err := h.sessions.Login(c.Request.Context(), user)
	if err != nil {
		writeError(c, h.logger, err, "could not issue tokens")
		return
	}
	h.cookies.set(c, refreshCookie, pair.RefreshToken, h.sessions.SessionTTL(), true)
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "expires_in": pair.ExpiresIn})
}

func (h *AuthHandler) resend(c *gin.Context, email string) {
	if err := h.verify.ResendCode(c.Request.Context(), email, domain.PurposeEmailVerification); err != nil {
		writeError(c, h.logger, err, "could not resend verification")
		return
	}
	if !h.setEmailTokenCookie(c, email, domain.PurposeEmailVerification) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email token sent"})
}

func (h *AuthHandler) setEmailTokenCookie(c *gin.Context, email string, purpose domain.Purpose) bool {
	token, err := h.verify.GenerateEmailToken(email, purpose)
	if err != nil {
		h.logger.Error("email token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue email token"})
		return false
	}
	h.cookies.set(c, cookieFor(purpose), token, h.verify.EmailTokenTTL(), true)
	return true
}

// passChallenge rechaza la solicitud si el verificador anti-abuso falla o no
// responde.
func (h *AuthHandler) passChallenge(c *gin.Context, token string) bool {
	ok, err := h.challenge.Verify(c.Request.Context(), token, c.ClientIP())
	if err != nil {
		h.logger.Warn("challenge verification failed", zap.Error(err))
	}
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please try again"})
		return false
	}
	return true
}

func (h *AuthHandler) redirectOAuthError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.frontendURL+"/auth/error?message="+url.QueryEscape(reason))
}

func cookieFor(purpose domain.Purpose) string {
	if purpose == domain.PurposePasswordReset {
		return resetPasswordCookie
	}
	return emailVerificationCookie
}
