package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/harentsoaR/clinic-api/internal/errors"
)

// RequireRole lets the request through only when the authenticated role is
// one of roles. It must run after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString(KeyUserRole)] {
			c.AbortWithStatusJSON(http.StatusForbidden, apperrors.ErrorResponse{Message: "Access denied"})
			return
		}
		c.Next()
	}
}
