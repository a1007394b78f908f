// Package app is the view controller: one explicit state object that owns the
// session, favorites and recipe cache, applies user actions to them and
// renders pages from the result.
package app

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"pocketchef/internal/favorites"
	"pocketchef/internal/imageurl"
	"pocketchef/internal/logger"
	"pocketchef/internal/models"
	"pocketchef/internal/recipes"
	"pocketchef/internal/session"
)

type Modal string

const (
	ModalNone       Modal = ""
	ModalAuth       Modal = "auth"
	ModalRecipe     Modal = "recipe"
	ModalAddRecipe  Modal = "addRecipe"
	ModalEditRecipe Modal = "editRecipe"
)

type AuthMode string

const (
	AuthLogin  AuthMode = "login"
	AuthSignup AuthMode = "signup"
)

var (
	ErrNotFound     = errors.New("recipe not found")
	ErrForbidden    = errors.New("you can only change your own recipes")
	ErrMailDisabled = errors.New("email sharing is not configured")
)

// Gateway is everything the controller needs from the remote API.
type Gateway interface {
	ListRecipes(ctx context.Context) ([]models.Recipe, error)
	CreateRecipe(ctx context.Context, draft models.RecipeDraft) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, id int, recipe models.Recipe) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id int) (*models.Confirmation, error)
	ToggleLike(ctx context.Context, id int, username string) (*models.LikeResult, error)
	Register(ctx context.Context, username, password, role string) (*models.Identity, error)
	Login(ctx context.Context, username, password string) (*models.Identity, error)
	ListComments(ctx context.Context, recipeID int) ([]models.Comment, error)
	AddComment(ctx context.Context, recipeID int, comment models.NewComment, author string) (*models.Comment, error)
}

// Mailer sends a recipe to someone. Optional.
type Mailer interface {
	IsEnabled() bool
	ShareRecipe(ctx context.Context, to, from string, recipe models.Recipe, imageURL string) error
}

type Options struct {
	Gateway   Gateway
	Resolver  imageurl.Resolver
	Session   *session.State
	Favorites *favorites.Store
	Mailer    Mailer

	// QuickPrepMinutes is the threshold of the synthetic "quick" category.
	QuickPrepMinutes int
}

type App struct {
	gateway    Gateway
	resolver   imageurl.Resolver
	session    *session.State
	favorites  *favorites.Store
	collection *recipes.Collection
	mailer     Mailer

	mu             sync.Mutex
	view           recipes.View
	modal          Modal
	authMode       AuthMode
	query          string
	category       string
	detailID       int
	comments       []models.Comment
	commentsFailed bool
	liked          map[int]bool
	notice         *Notice
}

func New(opts Options) *App {
	return &App{
		gateway:    opts.Gateway,
		resolver:   opts.Resolver,
		session:    opts.Session,
		favorites:  opts.Favorites,
		collection: recipes.NewCollection(opts.Gateway, opts.QuickPrepMinutes),
		mailer:     opts.Mailer,
		view:       recipes.ViewHome,
		authMode:   AuthLogin,
		liked:      make(map[int]bool),
	}
}

// Start rehydrates the persisted session and favorites and loads the
// recipes for the home view.
func (a *App) Start(ctx context.Context) error {
	if err := a.session.Restore(); err != nil {
		return err
	}
	if err := a.favorites.Load(); err != nil {
		return err
	}
	if identity, ok := a.session.Current(); ok {
		logger.Info("Restored session", "username", identity.Username)
	}
	_ = a.ShowHome(ctx)
	return nil
}

func (a *App) Collection() *recipes.Collection {
	return a.collection
}

func (a *App) Session() *session.State {
	return a.session
}

func (a *App) Favorites() *favorites.Store {
	return a.favorites
}

func (a *App) View() recipes.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

func (a *App) Modal() Modal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.modal
}

// ShowHome makes home current and refreshes the collection from the server.
func (a *App) ShowHome(ctx context.Context) error {
	a.setView(recipes.ViewHome, "")
	_, err := a.collection.Refresh(ctx)
	return err
}

// Search sets the home query. Filtering runs on the cached collection.
func (a *App) Search(query string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.view = recipes.ViewHome
	a.query = query
}

func (a *App) ShowCategories(category string) {
	a.setView(recipes.ViewCategories, category)
}

func (a *App) ShowFavorites() error {
	if _, err := a.requireSession("view your favorites"); err != nil {
		return err
	}
	a.setView(recipes.ViewFavorites, "")
	return nil
}

func (a *App) ShowMyRecipes() error {
	if _, err := a.requireSession("view your recipes"); err != nil {
		return err
	}
	a.setView(recipes.ViewMyRecipes, "")
	return nil
}

func (a *App) ShowAbout() {
	a.setView(recipes.ViewAbout, "")
}

func (a *App) setView(view recipes.View, category string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.view = view
	a.category = category
}

func (a *App) OpenAuth(mode AuthMode) {
	if mode != AuthSignup {
		mode = AuthLogin
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.modal = ModalAuth
	a.authMode = mode
}

// OpenRecipe shows the detail modal and loads its comments. A failed comment
// load leaves the list empty and marks it failed.
func (a *App) OpenRecipe(ctx context.Context, id int) error {
	if _, ok := a.collection.Get(id); !ok {
		a.flash(NoticeError, "Recipe not found")
		return ErrNotFound
	}

	comments, err := a.gateway.ListComments(ctx, id)
	if err != nil {
		logger.Warn("Failed to load comments", "recipe_id", id, "error", err)
		comments = []models.Comment{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.modal = ModalRecipe
	a.detailID = id
	a.comments = comments
	a.commentsFailed = err != nil
	return nil
}

func (a *App) OpenAddRecipe() error {
	if _, err := a.requireSession("add a recipe"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.modal = ModalAddRecipe
	a.detailID = 0
	return nil
}

func (a *App) OpenEditRecipe(id int) error {
	identity, err := a.requireSession("edit a recipe")
	if err != nil {
		return err
	}
	if _, err := a.ownedRecipe(identity, id); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.modal = ModalEditRecipe
	a.detailID = id
	return nil
}

// CloseModal leaves the current view as it was.
func (a *App) CloseModal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeModalLocked()
}

func (a *App) closeModalLocked() {
	a.modal = ModalNone
	a.detailID = 0
	a.comments = nil
	a.commentsFailed = false
}

// CurrentPath is where the browser surface sends the user after an action.
func (a *App) CurrentPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.view {
	case recipes.ViewCategories:
		if a.category != "" {
			return "/categories?category=" + url.QueryEscape(a.category)
		}
		return "/categories"
	case recipes.ViewFavorites:
		return "/favorites"
	case recipes.ViewMyRecipes:
		return "/my-recipes"
	case recipes.ViewAbout:
		return "/about"
	default:
		if a.query != "" {
			return "/?q=" + url.QueryEscape(a.query)
		}
		return "/"
	}
}

// requireSession is the single gate for capabilities that need a login. On
// rejection nothing else changes except that the login prompt opens.
func (a *App) requireSession(action string) (*models.Identity, error) {
	identity, err := a.session.Require()
	if err != nil {
		a.mu.Lock()
		a.modal = ModalAuth
		a.authMode = AuthLogin
		a.notice = &Notice{Kind: NoticeInfo, Message: "Please log in to " + action + "."}
		a.mu.Unlock()
		return nil, err
	}
	return identity, nil
}

func (a *App) ownedRecipe(identity *models.Identity, id int) (models.Recipe, error) {
	recipe, ok := a.collection.Get(id)
	if !ok {
		a.flash(NoticeError, "Recipe not found")
		return models.Recipe{}, ErrNotFound
	}
	if !canModify(identity, recipe) {
		a.flash(NoticeError, "You can only change your own recipes")
		return models.Recipe{}, ErrForbidden
	}
	return recipe, nil
}

func canModify(identity *models.Identity, recipe models.Recipe) bool {
	if identity == nil {
		return false
	}
	return recipe.Author == identity.Username || identity.Role == RoleAdmin
}
