package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"folio-api/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

// GetAuthor maneja GET /user/author/:username.
func (h *UserHandler) GetAuthor(c *gin.Context) {
	profile, err := h.userServ.GetPublicProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, h.logger, err, "could not load author")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// GetProfile maneja GET /user/profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	user, err := h.userServ.GetProfile(c.Request.Context(), claims.Subject)
	if err != nil {
		writeError(c, h.logger, err, "could not load profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUsername maneja PATCH /user/username.
func (h *UserHandler) UpdateUsername(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update username", err)
		return
	}
	user, err := h.userServ.UpdateUsername(c.Request.Context(), claims.Subject, req.Username)
	if err != nil {
		writeError(c, h.logger, err, "could not update username")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
