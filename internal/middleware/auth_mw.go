package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAuth redirects anonymous requests to the login page
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := CurrentSession(c)
		if session == nil || !session.Authenticated {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin guards admin routes: anonymous requests go to the login
// page, authenticated non-admins back to the members area.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := CurrentSession(c)
		if session == nil || !session.Authenticated {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		if !session.IsAdmin {
			c.Redirect(http.StatusFound, "/members")
			c.Abort()
			return
		}
		c.Next()
	}
}
