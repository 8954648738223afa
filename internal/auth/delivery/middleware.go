package delivery

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "taskmind-backend/internal/auth/domain"
	"taskmind-backend/internal/auth/usecase"
)

// AuthMiddleware validates the Bearer token and stores the user in the context
func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		user, err := authUsecase.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by AuthMiddleware
func CurrentUser(c *gin.Context) *authdomain.User {
	if value, exists := c.Get("user"); exists {
		if user, ok := value.(*authdomain.User); ok {
			return user
		}
	}
	return nil
}
