package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	UserKey  = "userID"
	EmailKey = "email"
	RoleKey  = "role"
)

// TokenValidator is satisfied by *services.TokenService.
type TokenValidator interface {
	ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error)
}

// AuthMiddleware requires a valid "Bearer <access token>" and stores the
// caller's ID, email and role on the context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			unauthorized(c, "Missing token")
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(tokenStr), "access")
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}
		userID, _ := claims["sub"].(string)
		if userID == "" {
			unauthorized(c, "Invalid token")
			return
		}
		email, _ := claims["email"].(string)
		role, _ := claims["role"].(string)

		c.Set(UserKey, userID)
		c.Set(EmailKey, email)
		c.Set(RoleKey, role)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   gin.H{"message": "Access denied"},
			})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(UserKey)
}

func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"message": msg},
	})
}
