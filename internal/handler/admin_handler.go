package handler

import (
	"errors"
	"log"
	"net/http"

	"membership_site/internal/middleware"
	"membership_site/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles the user-management routes
type AdminHandler struct {
	service service.AuthService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(s service.AuthService) *AdminHandler {
	return &AdminHandler{service: s}
}

// ListUsers renders the admin page with every registered user
func (h *AdminHandler) ListUsers(c *gin.Context) {
	session := middleware.CurrentSession(c)
	users, err := h.service.ListUsers(c.Request.Context(), session)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			c.Redirect(http.StatusFound, "/members")
			return
		}
		log.Printf("Error listing users: %v", err)
		renderServerError(c)
		return
	}

	c.HTML(http.StatusOK, "admin.html", gin.H{
		"title":   "Admin",
		"session": session,
		"users":   users,
	})
}

// Promote grants the admin flag to the target user
func (h *AdminHandler) Promote(c *gin.Context) {
	h.setAdmin(c, true)
}

// Demote clears the admin flag of the target user
func (h *AdminHandler) Demote(c *gin.Context) {
	h.setAdmin(c, false)
}

func (h *AdminHandler) setAdmin(c *gin.Context, admin bool) {
	session := middleware.CurrentSession(c)
	username := c.Param("username")

	var err error
	if admin {
		err = h.service.Promote(c.Request.Context(), session, username)
	} else {
		err = h.service.Demote(c.Request.Context(), session, username)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			// Unknown target: back to the list unchanged
		case errors.Is(err, service.ErrUnauthorized):
			c.Redirect(http.StatusFound, "/members")
			return
		default:
			log.Printf("Error updating admin flag for %s: %v", username, err)
			renderServerError(c)
			return
		}
	}

	c.Redirect(http.StatusFound, "/admin")
}

// RegisterAdminRoutes registers the admin routes behind the auth guards
func (h *AdminHandler) RegisterAdminRoutes(r *gin.Engine, requireAdmin gin.HandlerFunc) {
	adminGroup := r.Group("/admin", requireAdmin)
	{
		adminGroup.GET("", h.ListUsers)
		adminGroup.GET("/promote/:username", h.Promote)
		adminGroup.GET("/demote/:username", h.Demote)
	}
}
