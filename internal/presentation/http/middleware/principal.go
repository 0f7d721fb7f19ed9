package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PrincipalKey identifies the caller for idempotency scoping and rate
// limiting: the authenticated user ID when present, the client IP otherwise.
func PrincipalKey(c *gin.Context) string {
	if userIDVal, exists := c.Get("user_id"); exists {
		if userID, ok := userIDVal.(uuid.UUID); ok {
			return "user:" + userID.String()
		}
	}
	return "ip:" + c.ClientIP()
}
