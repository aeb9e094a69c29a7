package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const EnvProduction = "production"

// Config centraliza la configuración del servicio.
type Config struct {
	Environment    string `env:"APP_ENV" envDefault:"development"`
	HTTPPort       string `env:"HTTP_PORT" envDefault:"3000"`
	APIPrefix      string `env:"API_PREFIX" envDefault:"/api"`
	FrontendURL    string `env:"FRONTEND_URL" envDefault:"http://localhost:3001"`
	CookieDomain   string `env:"COOKIE_DOMAIN"`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAMESITE" envDefault:"lax"`

	// TrustedProxies lista IPs/CIDRs cuyo X-Forwarded-For se acepta; vacio no confia en ninguno.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	RunMigrations    bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	DatabaseConnLifetime   time.Duration `env:"DATABASE_CONN_LIFETIME" envDefault:"30m"`
	DatabaseConnectTimeout time.Duration `env:"DATABASE_CONNECT_TIMEOUT" envDefault:"5s"`

	JWTSecret          string        `env:"JWT_SECRET"`
	JWTRefreshSecret   string        `env:"JWT_REFRESH_SECRET"`
	EmailTokenSecret   string        `env:"EMAIL_TOKEN_SECRET"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"folio-api"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	EmailTokenTTL      time.Duration `env:"EMAIL_TOKEN_TTL" envDefault:"10m"`
	CodeTTL            time.Duration `env:"CODE_TTL" envDefault:"15m"`
	CodeResendInterval time.Duration `env:"CODE_RESEND_INTERVAL" envDefault:"60s"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"10"`

	TurnstileSecret    string `env:"TURNSTILE_SECRET_KEY"`
	TurnstileVerifyURL string `env:"TURNSTILE_VERIFY_URL" envDefault:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.APIPrefix = "/" + strings.Trim(cfg.APIPrefix, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// Validate rechaza configuraciones que romperian invariantes de seguridad.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.JWTSecret != "" && c.JWTSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.SessionTTL < c.RefreshTokenTTL {
		errs = append(errs, errors.New("SESSION_TTL must be >= REFRESH_TOKEN_TTL"))
	}
	if c.IsProduction() && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	if c.IsProduction() && c.TurnstileSecret == "" {
		errs = append(errs, errors.New("TURNSTILE_SECRET_KEY is required in production"))
	}
	return errors.Join(errs...)
}

// EmailSecret devuelve el secreto de los email tokens; si no se configura uno
// propio se deriva del secreto de access tokens.
func (c *Config) EmailSecret() string {
	if c.EmailTokenSecret != "" {
		return c.EmailTokenSecret
	}
	return c.JWTSecret + ":email"
}
