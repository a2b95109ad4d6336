package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/stemsi/institute-portal/internal/response"
)

// LoginPath is where unauthorized requests are sent.
const LoginPath = "/login"

// RequireAdmin lets only the admin identity through. Everyone else is
// redirected to the login page without an explanation.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil || !sess.IsAdmin() {
			response.AbortRedirect(c, LoginPath)
			return
		}
		c.Next()
	}
}

// RequireAuthenticated lets the admin identity or any signed-in role through.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil || !sess.IsAuthenticated() {
			response.AbortRedirect(c, LoginPath)
			return
		}
		c.Next()
	}
}
