package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lethabomaepa11/rocketsales-sub001/config"
	"github.com/lethabomaepa11/rocketsales-sub001/middleware"
	"github.com/lethabomaepa11/rocketsales-sub001/service"
)

type AuthHandler struct {
	config *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user := h.config.FindUser(req.Username)
	if user == nil || user.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user.Username, user.Roles, &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		Username:  user.Username,
		Roles:     user.Roles,
	})
}

// GetCurrentUser returns the caller and the roles the policy gate recognises
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	roles := service.NormalizeRoles(middleware.GetRoles(c))
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	c.JSON(http.StatusOK, gin.H{
		"username": middleware.GetUsername(c),
		"roles":    names,
	})
}
