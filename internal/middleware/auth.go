package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
)

func bearer(c *gin.Context) (string, bool) {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[7:]), true
}

// Auth guards the sync API with a static bearer token. An empty token leaves it open.
func Auth(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got, ok := bearer(c)
		if !ok || got != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
			return
		}
		c.Next()
	}
}

// PushSecret guards push delivery. The header must equal "Bearer <secret>"
// exactly; with no secret configured every request is refused.
func PushSecret(secret string) gin.HandlerFunc {
	want := "Bearer " + secret
	return func(c *gin.Context) {
		if secret == "" || c.GetHeader("Authorization") != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
			return
		}
		c.Next()
	}
}
