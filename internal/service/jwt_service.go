package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"folio-api/internal/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	tokenTypeEmail   = "email"
)

// JWTService firma y valida access tokens, refresh tokens y email tokens.
// Cada tipo usa su propio secreto.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	emailSecret   []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	emailTTL      time.Duration
	issuer        string
	now           func() time.Time
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims de access y refresh tokens. Subject es el id del usuario; los refresh
// tokens llevan ademas un jti unico.
type Claims struct {
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// EmailClaims ligan un email a un proposito concreto.
type EmailClaims struct {
	Email     string         `json:"email"`
	Purpose   domain.Purpose `json:"purpose"`
	TokenType string         `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewJWTService(cfg AuthConfig) *JWTService {
	cfg = cfg.withDefaults()
	return &JWTService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		emailSecret:   []byte(cfg.EmailTokenSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		emailTTL:      cfg.EmailTokenTTL,
		issuer:        cfg.Issuer,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

func (s *JWTService) EmailTokenTTL() time.Duration { return s.emailTTL }

func (s *JWTService) GeneratePair(user domain.User) (TokenPair, error) {
	if len(s.accessSecret) == 0 || len(s.refreshSecret) == 0 {
		return TokenPair{}, ErrJWTInvalid
	}
	now := s.now()
	access, err := s.signUserToken(user, now, s.accessTTL, tokenTypeAccess, "", s.accessSecret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.signUserToken(user, now, s.refreshTTL, tokenTypeRefresh, uuid.NewString(), s.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *JWTService) ParseRefreshToken(refreshToken string) (Claims, error) {
	claims, err := s.parseUserToken(refreshToken, s.refreshSecret)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeRefresh || claims.ID == "" {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	claims, err := s.parseUserToken(accessToken, s.accessSecret)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeAccess {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) GenerateEmailToken(email string, purpose domain.Purpose) (string, error) {
	if len(s.emailSecret) == 0 || !purpose.Valid() {
		return "", ErrJWTInvalid
	}
	now := s.now()
	claims := EmailClaims{
		Email:     email,
		Purpose:   purpose,
		TokenType: tokenTypeEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.emailTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.emailSecret)
}

func (s *JWTService) ParseEmailToken(token string) (EmailClaims, error) {
	if len(s.emailSecret) == 0 || strings.TrimSpace(token) == "" {
		return EmailClaims{}, ErrJWTInvalid
	}
	var claims EmailClaims
	if err := s.parse(token, &claims, s.emailSecret); err != nil {
		return EmailClaims{}, err
	}
	if claims.TokenType != tokenTypeEmail || claims.Issuer != s.issuer || claims.Email == "" {
		return EmailClaims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) signUserToken(user domain.User, now time.Time, ttl time.Duration, tokenType, jti string, secret []byte) (string, error) {
	claims := Claims{
		Email:     user.Email,
		Username:  user.Username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *JWTService) parseUserToken(tokenString string, secret []byte) (Claims, error) {
	if len(secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrJWTInvalid
	}
	var claims Claims
	if err := s.parse(tokenString, &claims, secret); err != nil {
		return Claims{}, err
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.Issuer != s.issuer {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrJWTExpired
		}
		return ErrJWTInvalid
	}
	return nil
}
