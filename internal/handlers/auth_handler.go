package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/services"
)

type RegisterUserRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Specialization string `json:"specialization"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterUser creates an account and signs the new user in.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := h.Credentials.Create(c.Request.Context(), services.NewUser{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		Specialization: req.Specialization,
		Phone:          req.Phone,
		Address:        req.Address,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Logger.Info().Str("user_id", user.ID.Hex()).Str("role", user.Role).Msg("user registered")

	token, err := h.Tokens.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login exchanges credentials for a session token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		badRequest(c, "Email and password are required")
		return
	}

	user, err := h.Credentials.Verify(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.Tokens.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
}

// Logout revokes the presented token for the rest of its lifetime.
func (h *Handler) Logout(c *gin.Context) {
	if h.Revoker != nil {
		ttl := time.Until(c.GetTime(middleware.KeyTokenExpiry))
		if err := h.Revoker.Revoke(c.Request.Context(), c.GetString(middleware.KeyTokenID), ttl); err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
