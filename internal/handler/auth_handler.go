package handler

import (
	"errors"
	"log"
	"net/http"

	"membership_site/internal/middleware"
	"membership_site/internal/service"
	"membership_site/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles signup, login and logout requests
type AuthHandler struct {
	service  service.AuthService
	sessions service.SessionService
	signer   *utils.CookieSigner
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, sessions service.SessionService, signer *utils.CookieSigner) *AuthHandler {
	return &AuthHandler{service: s, sessions: sessions, signer: signer}
}

// ShowLogin renders the login form
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"title": "Login", "error": nil})
}

// Login authenticates the submitted credentials, creates a session and
// sets the signed session cookie. Every failure renders the login form
// again with the error message; only storage failures degrade to the
// generic error page.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `form:"username"`
		Password string `form:"password"`
	}
	// Shape validation happens in the service, binding cannot fail here
	_ = c.ShouldBind(&req)

	current := middleware.CurrentSession(c)
	grant, err := h.service.Login(c.Request.Context(), current, req.Username, req.Password)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, service.ErrAlreadyAuthenticated):
			c.Redirect(http.StatusFound, "/members")
		case errors.As(err, &verr):
			h.renderLoginError(c, verr.Message)
		case errors.Is(err, service.ErrUserNotFound):
			h.renderLoginError(c, "User not found")
		case errors.Is(err, service.ErrInvalidPassword):
			h.renderLoginError(c, "Invalid password")
		default:
			log.Printf("Error during login: %v", err)
			renderServerError(c)
		}
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), grant)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		renderServerError(c)
		return
	}

	cookieValue, err := h.signer.Sign(session.ID, session.ExpiresAt)
	if err != nil {
		log.Printf("Error signing session cookie: %v", err)
		renderServerError(c)
		return
	}

	c.SetCookie(middleware.SessionCookieName, cookieValue, int(h.sessions.TTL().Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/members")
}

// ShowSignup renders the signup form
func (h *AuthHandler) ShowSignup(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{"title": "Signup"})
}

// Signup creates a new user and redirects to the login page
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Name     string `form:"name"`
		Username string `form:"username"`
		Password string `form:"password"`
	}
	_ = c.ShouldBind(&req)

	_, err := h.service.Signup(c.Request.Context(), req.Name, req.Username, req.Password)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderSignupError(c, verr.Message)
		case errors.Is(err, service.ErrDuplicateUser):
			h.renderSignupError(c, "Email already exists")
		default:
			log.Printf("Error during signup: %v", err)
			renderServerError(c)
		}
		return
	}

	c.Redirect(http.StatusFound, "/login")
}

// Logout destroys the session, clears the cookie and redirects home
func (h *AuthHandler) Logout(c *gin.Context) {
	if session := middleware.CurrentSession(c); session != nil {
		if err := h.service.Logout(c.Request.Context(), session.ID); err != nil {
			log.Printf("Error destroying session %s: %v", session.ID, err)
		}
	}
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) renderLoginError(c *gin.Context, message string) {
	c.HTML(http.StatusOK, "login.html", gin.H{"title": "Login", "error": message})
}

func (h *AuthHandler) renderSignupError(c *gin.Context, message string) {
	c.HTML(http.StatusOK, "signup_error.html", gin.H{"title": "Signup Error", "error": message})
}

// renderServerError renders the degraded generic failure page. Internal
// detail stays in the logs, never in the response.
func renderServerError(c *gin.Context) {
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{"title": "Error"})
}

// RegisterAuthRoutes registers auth routes
func (h *AuthHandler) RegisterAuthRoutes(r *gin.Engine) {
	r.GET("/login", h.ShowLogin)
	r.POST("/login", h.Login)
	r.GET("/signup", h.ShowSignup)
	r.POST("/signup", h.Signup)
	r.GET("/logout", h.Logout)
}
