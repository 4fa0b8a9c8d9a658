package middleware

import (
	"log"
	"net/http"

	"membership_site/internal/model"
	"membership_site/internal/service"
	"membership_site/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	// SessionKey is the gin context key holding the current *model.Session
	SessionKey = "authSession"
	// SessionCookieName is the cookie carrying the signed session reference
	SessionCookieName = "session"
)

// SessionMiddleware resolves the session cookie into server-side session
// state. Missing, tampered or expired sessions leave the request anonymous;
// only a storage failure is surfaced to the client.
func SessionMiddleware(signer *utils.CookieSigner, sessions service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(SessionCookieName)
		if err != nil || cookie == "" {
			c.Next()
			return
		}

		sessionID, err := signer.Parse(cookie)
		if err != nil {
			// Tampered or stale cookie, proceed anonymous
			c.Next()
			return
		}

		session, err := sessions.Get(c.Request.Context(), sessionID)
		if err != nil {
			// Storage failure: fail the request, do not downgrade to anonymous
			log.Printf("Failed to load session %s: %v", sessionID, err)
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"title": "Error"})
			c.Abort()
			return
		}
		if session != nil {
			c.Set(SessionKey, session)
		}

		c.Next()
	}
}

// CurrentSession returns the session attached to the request, or nil for
// anonymous requests
func CurrentSession(c *gin.Context) *model.Session {
	val, exists := c.Get(SessionKey)
	if !exists {
		return nil
	}
	session, ok := val.(*model.Session)
	if !ok {
		return nil
	}
	return session
}
