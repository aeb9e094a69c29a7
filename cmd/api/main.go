package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"folio-api/internal/challenge"
	"folio-api/internal/config"
	"folio-api/internal/db"
	"folio-api/internal/email"
	apihttp "folio-api/internal/http"
	"folio-api/internal/oauth"
	"folio-api/internal/repository"
	"folio-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	var store repository.Store
	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
				logger.Fatal("db migrate", zap.Error(err))
			}
		}
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		store = repository.NewPgStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = repository.NewMemoryStore()
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			From:        cfg.SMTPFrom,
			FromName:    cfg.SMTPFromName,
			ImplicitTLS: cfg.SMTPUseTLS,
		})
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var limiter service.RequestLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			limiter = service.NewRedisRequestLimiter(redisClient, logger, cfg.RateLimitWindow, cfg.RateLimitMax)
		}
		cancel()
	}
	if limiter == nil {
		limiter = service.NewRequestLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	}

	var verifier challenge.Verifier = challenge.NewDisabledVerifier()
	if cfg.TurnstileSecret != "" {
		turnstile, err := challenge.NewTurnstileVerifier(cfg.TurnstileSecret, cfg.TurnstileVerifyURL)
		if err != nil {
			logger.Fatal("turnstile init", zap.Error(err))
		}
		verifier = turnstile
	} else {
		logger.Warn("turnstile secret not configured, challenge verification disabled")
	}

	var google apihttp.OAuthProvider
	if cfg.GoogleClientID != "" {
		provider, err := oauth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
		if err != nil {
			logger.Warn("google oauth init failed", zap.Error(err))
		} else {
			google = provider
		}
	}

	authCfg := authConfigFrom(cfg)
	if err := authCfg.Validate(); err != nil {
		logger.Fatal("invalid auth configuration", zap.Error(err))
	}
	hasher := service.NewBcryptHasher(authCfg.BcryptCost)
	jwtSvc := service.NewJWTService(authCfg)
	sessions := service.NewSessionManager(logger, store, hasher, jwtSvc, authCfg)
	verification := service.NewVerificationService(logger, store, hasher, jwtSvc, emailSender, authCfg)
	oauthSvc := service.NewOAuthService(logger, store)
	userSvc := service.NewUserService(logger, store)

	authHandler := apihttp.NewAuthHandler(logger, apihttp.AuthDeps{
		Sessions:     sessions,
		Verification: verification,
		OAuth:        oauthSvc,
		Google:       google,
		Challenge:    verifier,
		Cookies: apihttp.CookieConfig{
			Domain:   cfg.CookieDomain,
			Path:     cfg.APIPrefix,
			Secure:   cfg.CookieSecure,
			SameSite: apihttp.ParseSameSite(cfg.CookieSameSite),
		},
		FrontendURL: cfg.FrontendURL,
	})
	router := apihttp.NewRouter(logger, apihttp.RouterDeps{
		APIPrefix:      cfg.APIPrefix,
		TrustedProxies: cfg.TrustedProxies,
		Limiter:        limiter,
		JWT:            jwtSvc,
		Auth:           authHandler,
		Users:          apihttp.NewUserHandler(logger, userSvc),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("prefix", cfg.APIPrefix))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// authConfigFrom traslada la configuracion del entorno al nucleo de auth.
func authConfigFrom(cfg *config.Config) service.AuthConfig {
	return service.AuthConfig{
		AccessSecret:     cfg.JWTSecret,
		RefreshSecret:    cfg.JWTRefreshSecret,
		EmailTokenSecret: cfg.EmailSecret(),
		Issuer:           cfg.JWTIssuer,
		AccessTTL:        cfg.AccessTokenTTL,
		RefreshTTL:       cfg.RefreshTokenTTL,
		SessionTTL:       cfg.SessionTTL,
		EmailTokenTTL:    cfg.EmailTokenTTL,
		CodeTTL:          cfg.CodeTTL,
		ResendWindow:     cfg.CodeResendInterval,
		CodeLength:       6,
		BcryptCost:       cfg.BcryptCost,
	}
}
