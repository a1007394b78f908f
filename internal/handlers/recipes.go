package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pocketchef/internal/app"
	"pocketchef/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) handleNewRecipePage(c *gin.Context) {
	_ = h.app.OpenAddRecipe()
	h.render(c)
}

func (h *Handler) handleRecipeDetail(c *gin.Context) {
	id, ok := h.recipeID(c)
	if ok {
		_ = h.app.OpenRecipe(c.Request.Context(), id)
	}
	h.render(c)
}

func (h *Handler) handleEditRecipePage(c *gin.Context) {
	id, ok := h.recipeID(c)
	if ok {
		_ = h.app.OpenEditRecipe(id)
	}
	h.render(c)
}

func (h *Handler) handleCreateRecipe(c *gin.Context) {
	draft, ok := h.readDraft(c)
	if !ok {
		h.back(c)
		return
	}

	file, header, err := c.Request.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > app.MaxImageBytes {
			h.app.Notify(app.NoticeError, fmt.Sprintf("Images must be smaller than %d MB", app.MaxImageBytes>>20))
			h.back(c)
			return
		}
		draft.ImageFile = file
		draft.ImageName = header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		h.app.Notify(app.NoticeError, "Could not read the uploaded image")
		h.back(c)
		return
	}

	_, _ = h.app.CreateRecipe(c.Request.Context(), draft)
	h.back(c)
}

func (h *Handler) handleUpdateRecipe(c *gin.Context) {
	id, ok := h.recipeID(c)
	if !ok {
		h.back(c)
		return
	}
	draft, ok := h.readDraft(c)
	if !ok {
		h.back(c)
		return
	}

	_, _ = h.app.UpdateRecipe(c.Request.Context(), id, draft)
	h.back(c)
}

func (h *Handler) handleDeleteRecipe(c *gin.Context) {
	if id, ok := h.recipeID(c); ok {
		_ = h.app.DeleteRecipe(c.Request.Context(), id)
	}
	h.back(c)
}

func (h *Handler) handleToggleLike(c *gin.Context) {
	if id, ok := h.recipeID(c); ok {
		_, _ = h.app.ToggleLike(c.Request.Context(), id)
	}
	h.back(c)
}

func (h *Handler) handleToggleFavorite(c *gin.Context) {
	if id, ok := h.recipeID(c); ok {
		_, _ = h.app.ToggleFavorite(id)
	}
	h.back(c)
}

func (h *Handler) handleAddComment(c *gin.Context) {
	if id, ok := h.recipeID(c); ok {
		_, _ = h.app.AddComment(c.Request.Context(), id, c.PostForm("content"))
	}
	h.back(c)
}

func (h *Handler) handleShareRecipe(c *gin.Context) {
	if id, ok := h.recipeID(c); ok {
		_ = h.app.ShareRecipe(c.Request.Context(), id, c.PostForm("email"))
	}
	h.back(c)
}

func (h *Handler) recipeID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.app.Notify(app.NoticeError, "Recipe not found")
		return 0, false
	}
	return id, true
}

// readDraft collects the recipe form. Textareas hold one ingredient or
// step per line.
func (h *Handler) readDraft(c *gin.Context) (models.RecipeDraft, bool) {
	prepTime := 0
	if raw := strings.TrimSpace(c.PostForm("prepTime")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.app.Notify(app.NoticeError, "Prep time must be a whole number of minutes")
			return models.RecipeDraft{}, false
		}
		prepTime = n
	}

	rating := 0.0
	if raw := strings.TrimSpace(c.PostForm("rating")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.app.Notify(app.NoticeError, "Rating must be a number between 0 and 5")
			return models.RecipeDraft{}, false
		}
		rating = f
	}

	return models.RecipeDraft{
		Title:       c.PostForm("title"),
		Category:    strings.TrimSpace(c.PostForm("category")),
		PrepTime:    prepTime,
		Difficulty:  strings.TrimSpace(c.PostForm("difficulty")),
		Ingredients: app.SplitLines(c.PostForm("ingredients")),
		Steps:       app.SplitLines(c.PostForm("steps")),
		Rating:      rating,
		ImageURL:    strings.TrimSpace(c.PostForm("image_url")),
	}, true
}
