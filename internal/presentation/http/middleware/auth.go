package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nedlia/placement-api/internal/presentation/http/dto/response"
	"github.com/nedlia/placement-api/pkg/apperror"
	"github.com/nedlia/placement-api/pkg/utils"
)

// AuthMiddleware creates a JWT authentication middleware
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperror.ErrUnauthorized.WithDetail("Authorization header is required"))
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Error(c, apperror.ErrUnauthorized.WithDetail("Invalid authorization header format"))
			c.Abort()
			return
		}

		tokenString := parts[1]

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			response.Error(c, apperror.ErrUnauthorized.WithDetail("Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)

		c.Next()
	}
}
