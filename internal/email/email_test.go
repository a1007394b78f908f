package email

import (
	"context"
	"strings"
	"testing"

	"pocketchef/internal/config"
	"pocketchef/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDisabledWithoutCredentials(t *testing.T) {
	s := NewService(config.Defaults())
	assert.False(t, s.IsEnabled())

	err := s.ShareRecipe(context.Background(), "friend@example.com", "al", models.Recipe{Title: "Soup"}, "")
	assert.Error(t, err)
}

func TestEnabledWithCredentials(t *testing.T) {
	cfg := config.Defaults()
	cfg.MailgunDomain = "mg.example.com"
	cfg.MailgunAPIKey = "key-test"

	assert.True(t, NewService(cfg).IsEnabled())
}

func TestShareBodies(t *testing.T) {
	recipe := models.Recipe{
		Title:       "Mac <& Cheese>",
		Author:      "al",
		Category:    "Main Course",
		PrepTime:    20,
		Difficulty:  "Easy",
		Ingredients: []string{"macaroni", "cheddar"},
		Steps:       []string{"boil", "stir"},
	}

	page := shareHTML("bo", recipe, "http://127.0.0.1:5000/uploads/mac.png")
	assert.Contains(t, page, "Mac &lt;&amp; Cheese&gt;")
	assert.NotContains(t, page, "<& Cheese>")
	assert.Contains(t, page, `src="http://127.0.0.1:5000/uploads/mac.png"`)
	assert.Contains(t, page, "<li>cheddar</li>")
	assert.Contains(t, page, "width: 100%;")

	text := shareText("bo", recipe)
	assert.True(t, strings.HasPrefix(text, "bo thought you would like this recipe."))
	assert.Contains(t, text, "- macaroni\n")
	assert.Contains(t, text, "2. stir\n")
}
