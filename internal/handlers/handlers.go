package handlers

import (
	"database/sql"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"pocketchef/internal/app"
	"pocketchef/internal/config"
	"pocketchef/internal/database"
	"pocketchef/internal/logger"
	"pocketchef/internal/middleware"
	"pocketchef/internal/recipes"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Handler struct {
	app *app.App
	db  *sql.DB
	cfg *config.Config
}

// cardContext carries the form token into the card partial.
type cardContext struct {
	Card      app.Card
	CSRFToken string
}

var difficulties = []string{"Easy", "Medium", "Hard"}

var funcMap = template.FuncMap{
	"join": strings.Join,
	"add": func(a, b int) int {
		return a + b
	},
	"stars": func(rating float64) string {
		full := int(rating + 0.5)
		if full > 5 {
			full = 5
		}
		if full < 0 {
			full = 0
		}
		return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
	},
	"cardContext": func(card app.Card, token string) cardContext {
		return cardContext{Card: card, CSRFToken: token}
	},
	"knownCategories": func() []string {
		return app.KnownCategories
	},
	"difficulties": func() []string {
		return difficulties
	},
	"minutes": func(n int) string {
		if n <= 0 {
			return "?"
		}
		return fmt.Sprintf("%d min", n)
	},
}

// LoadTemplates parses the embedded page templates.
func LoadTemplates() (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
}

func SetupRoutes(r *gin.Engine, a *app.App, db *sql.DB, cfg *config.Config) error {
	tmpl, err := LoadTemplates()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	h := &Handler{app: a, db: db, cfg: cfg}
	blocker := middleware.NewBlocker()

	r.Use(middleware.LogRequests())
	r.Use(middleware.LocalOnly(cfg))
	r.Use(middleware.SecurityHeaders(cfg))
	r.Use(blocker.Guard(cfg), blocker.Track404(cfg))
	r.Use(middleware.RateLimit(cfg))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.TrimSpaces())
	r.Use(middleware.CSRF(db, cfg))

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	r.StaticFS("/static", http.FS(static))

	r.GET("/", h.handleHome)
	r.GET("/categories", h.handleCategories)
	r.GET("/favorites", h.handleFavorites)
	r.GET("/my-recipes", h.handleMyRecipes)
	r.GET("/about", h.handleAbout)

	r.GET("/login", h.handleLoginPage)
	r.GET("/signup", h.handleSignupPage)
	r.POST("/login", middleware.AuthRateLimit(cfg), h.handleLogin)
	r.POST("/register", middleware.AuthRateLimit(cfg), h.handleRegister)
	r.POST("/logout", h.handleLogout)

	r.GET("/recipes/new", h.handleNewRecipePage)
	r.POST("/recipes", h.handleCreateRecipe)
	r.GET("/recipes/:id", h.handleRecipeDetail)
	r.GET("/recipes/:id/edit", h.handleEditRecipePage)
	r.POST("/recipes/:id", h.handleUpdateRecipe)
	r.POST("/recipes/:id/delete", h.handleDeleteRecipe)
	r.POST("/recipes/:id/like", h.handleToggleLike)
	r.POST("/recipes/:id/favorite", h.handleToggleFavorite)
	r.POST("/recipes/:id/comments", h.handleAddComment)
	r.POST("/recipes/:id/share", h.handleShareRecipe)

	r.POST("/modal/close", h.handleCloseModal)

	return nil
}

// render draws the current application state. Every GET ends here.
func (h *Handler) render(c *gin.Context) {
	page := h.app.Render()

	csrfToken, err := database.CreateCSRFToken(h.db)
	if err != nil {
		logger.Error("Failed to create CSRF token", "error", err)
		c.String(http.StatusInternalServerError, "Failed to generate security token")
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":     title(page),
		"Page":      page,
		"CSRFToken": csrfToken,
	})
}

// back sends the browser to the current view after a POST.
func (h *Handler) back(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, h.app.CurrentPath())
}

func title(page app.Page) string {
	if page.Detail != nil && page.Modal == app.ModalRecipe {
		return page.Detail.Title + " - Pocket Chef"
	}
	for _, item := range page.Nav {
		if item.Active && item.View != recipes.ViewHome {
			return item.Label + " - Pocket Chef"
		}
	}
	return "Pocket Chef - Share your recipes"
}
