package handlers

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) handleLogin(c *gin.Context) {
	_, _ = h.app.Login(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	h.back(c)
}

func (h *Handler) handleRegister(c *gin.Context) {
	_, _ = h.app.Register(c.Request.Context(),
		c.PostForm("username"),
		c.PostForm("password"),
		c.PostForm("confirm_password"),
		c.PostForm("role"),
	)
	h.back(c)
}

func (h *Handler) handleLogout(c *gin.Context) {
	_ = h.app.Logout()
	h.back(c)
}
