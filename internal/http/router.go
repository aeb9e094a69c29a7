package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"folio-api/internal/service"
)

// RouterDeps agrupa lo que NewRouter necesita para montar las rutas.
type RouterDeps struct {
	APIPrefix string
	// TrustedProxies vacio hace que ClientIP sea siempre la IP de la conexion.
	TrustedProxies []string
	Limiter        service.RequestLimiter
	JWT            *service.JWTService
	Auth           *AuthHandler
	Users          *UserHandler
}

// NewRouter configura el router de Gin con middlewares y rutas bajo el prefijo
// de la API.
func NewRouter(logger *zap.Logger, deps RouterDeps) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	api := r.Group(deps.APIPrefix)
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limited := rateLimitMiddleware(deps.Limiter)

	auth := api.Group("/auth")
	auth.POST("/register", limited, deps.Auth.Register)
	auth.POST("/login", limited, deps.Auth.Login)
	auth.POST("/email-token", deps.Auth.EmailToken)
	auth.POST("/email-verification", deps.Auth.VerifyEmail)
	auth.POST("/resend-verification", deps.Auth.ResendVerification)
	auth.POST("/resend-verification-with-login", limited, deps.Auth.ResendVerificationWithLogin)
	auth.POST("/request-password-reset", limited, deps.Auth.RequestPasswordReset)
	auth.POST("/reset-password", deps.Auth.ResetPassword)
	auth.POST("/refresh", deps.Auth.Refresh)
	auth.POST("/logout", deps.Auth.Logout)
	auth.GET("/check-refresh", deps.Auth.CheckRefresh)
	auth.GET("/google", deps.Auth.GoogleLogin)
	auth.GET("/google/callback", deps.Auth.GoogleCallback)

	users := api.Group("/user")
	users.GET("/author/:username", deps.Users.GetAuthor)
	users.GET("/profile", JWTAuthMiddleware(deps.JWT), deps.Users.GetProfile)
	users.PATCH("/username", JWTAuthMiddleware(deps.JWT), deps.Users.UpdateUsername)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// rateLimitMiddleware limita por IP y ruta. Sin limiter no hace nada.
func rateLimitMiddleware(limiter service.RequestLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.Request.Context(), c.ClientIP()+"|"+c.FullPath()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
