package handler

import (
	"net/http"

	"membership_site/internal/middleware"

	"github.com/gin-gonic/gin"
)

// galleryImages are the static members-only gallery files under ./public
var galleryImages = []string{"1.jpg", "2.jpg", "3.jpg"}

// PageHandler renders the public and member pages
type PageHandler struct{}

// NewPageHandler creates a new PageHandler
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Home renders the landing page; authenticated sessions see the members greeting
func (h *PageHandler) Home(c *gin.Context) {
	session := middleware.CurrentSession(c)
	title := "Home"
	if session != nil && session.Authenticated {
		title = "Members"
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":   title,
		"session": session,
	})
}

// Members renders the members-only gallery. The auth guard runs first, so
// the session is always present here.
func (h *PageHandler) Members(c *gin.Context) {
	session := middleware.CurrentSession(c)
	c.HTML(http.StatusOK, "members.html", gin.H{
		"title":   "Members",
		"name":    session.UserName,
		"images":  galleryImages,
		"session": session,
	})
}

// NotFound renders the 404 page for unmatched paths
func (h *PageHandler) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "404.html", gin.H{
		"title": "404 Not Found",
	})
}

// RegisterPageRoutes registers the page routes
func (h *PageHandler) RegisterPageRoutes(r *gin.Engine, requireAuth gin.HandlerFunc) {
	r.GET("/", h.Home)
	r.GET("/members", requireAuth, h.Members)
	r.NoRoute(h.NotFound)
}
