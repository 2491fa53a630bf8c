package middleware

import (
	"net/http"
	"strings"

	"landmarket/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWT.
const (
	UserIDKey   = "user_id"
	UserNameKey = "user_name"
)

// JWT requires a valid bearer token and stores the caller's identity in the
// gin context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := BearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token"})
			return
		}
		id, err := service.ParseJWT(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
			return
		}
		c.Set(UserIDKey, id.UserID)
		c.Set(UserNameKey, id.Name)
		c.Next()
	}
}

// Admin rejects callers that isAdmin does not accept. Must run after JWT.
func Admin(isAdmin func(userID string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c.GetString(UserIDKey)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "admin only"})
			return
		}
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
