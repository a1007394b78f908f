package handlers

import (
	"pocketchef/internal/app"

	"github.com/gin-gonic/gin"
)

// handleHome with ?q= only filters what is cached. A plain visit reloads
// the recipes from the server.
func (h *Handler) handleHome(c *gin.Context) {
	if query, ok := c.GetQuery("q"); ok {
		h.app.Search(query)
		h.render(c)
		return
	}

	h.app.Search("")
	_ = h.app.ShowHome(c.Request.Context())
	h.render(c)
}

func (h *Handler) handleCategories(c *gin.Context) {
	h.app.ShowCategories(c.Query("category"))
	h.render(c)
}

// Gated views render the login prompt over the current view when
// nobody is logged in.
func (h *Handler) handleFavorites(c *gin.Context) {
	_ = h.app.ShowFavorites()
	h.render(c)
}

func (h *Handler) handleMyRecipes(c *gin.Context) {
	_ = h.app.ShowMyRecipes()
	h.render(c)
}

func (h *Handler) handleAbout(c *gin.Context) {
	h.app.ShowAbout()
	h.render(c)
}

func (h *Handler) handleLoginPage(c *gin.Context) {
	h.app.OpenAuth(app.AuthLogin)
	h.render(c)
}

func (h *Handler) handleSignupPage(c *gin.Context) {
	h.app.OpenAuth(app.AuthSignup)
	h.render(c)
}

func (h *Handler) handleCloseModal(c *gin.Context) {
	h.app.CloseModal()
	h.back(c)
}
