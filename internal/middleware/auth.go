package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/harentsoaR/clinic-api/internal/errors"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

// Context keys set by AuthMiddleware.
const (
	KeyUserID      = "userID"
	KeyUserRole    = "userRole"
	KeyTokenID     = "tokenID"
	KeyTokenExpiry = "tokenExpiry"
)

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) bool
}

func AuthMiddleware(tokens *utils.TokenService, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.ErrorResponse{Message: "No token, authorization denied"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := tokens.ValidateJWT(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.ErrorResponse{Message: "Token is not valid"})
			return
		}
		if revoked != nil && revoked.IsRevoked(c.Request.Context(), claims.ID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.ErrorResponse{Message: "Token is not valid"})
			return
		}

		// Set user info in the context for handlers to use
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyUserRole, claims.Role)
		c.Set(KeyTokenID, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(KeyTokenExpiry, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}
