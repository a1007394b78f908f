package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"pocketchef/internal/api"
	"pocketchef/internal/logger"
	"pocketchef/internal/models"
	"pocketchef/internal/recipes"
	"pocketchef/internal/session"
)

func (a *App) Login(ctx context.Context, username, password string) (*models.Identity, error) {
	username = strings.TrimSpace(username)
	if err := validateLogin(username, password); err != nil {
		a.flash(NoticeError, err.Error())
		return nil, err
	}

	identity, err := a.gateway.Login(ctx, username, password)
	if err != nil {
		a.flash(NoticeError, api.Message(err))
		return nil, err
	}

	if err := a.beginSession(*identity); err != nil {
		return nil, err
	}
	a.flash(NoticeSuccess, fmt.Sprintf("Welcome back, %s!", identity.Username))
	return identity, nil
}

func (a *App) Register(ctx context.Context, username, password, confirm, role string) (*models.Identity, error) {
	username = strings.TrimSpace(username)
	if err := validateRegistration(username, password, confirm, role); err != nil {
		a.flash(NoticeError, err.Error())
		return nil, err
	}

	identity, err := a.gateway.Register(ctx, username, password, role)
	if err != nil {
		a.flash(NoticeError, api.Message(err))
		return nil, err
	}

	if err := a.beginSession(*identity); err != nil {
		return nil, err
	}
	a.flash(NoticeSuccess, fmt.Sprintf("Welcome, %s!", identity.Username))
	return identity, nil
}

func (a *App) beginSession(identity models.Identity) error {
	if err := a.session.Establish(identity); err != nil {
		a.flash(NoticeError, "Could not save your session")
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.liked = make(map[int]bool)
	a.closeModalLocked()
	return nil
}

// Logout clears the session. A gated view falls back to home.
func (a *App) Logout() error {
	if err := a.session.Clear(); err != nil {
		a.flash(NoticeError, "Could not clear your session")
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.liked = make(map[int]bool)
	a.closeModalLocked()
	if a.view == recipes.ViewFavorites || a.view == recipes.ViewMyRecipes {
		a.view = recipes.ViewHome
	}
	a.notice = &Notice{Kind: NoticeInfo, Message: "You have been logged out."}
	return nil
}

func (a *App) CreateRecipe(ctx context.Context, draft models.RecipeDraft) (*models.Recipe, error) {
	identity, err := a.requireSession("add a recipe")
	if err != nil {
		return nil, err
	}
	if err := validateDraft(draft); err != nil {
		a.flash(NoticeError, err.Error())
		return nil, err
	}

	draft.Title = strings.TrimSpace(draft.Title)
	draft.Rating = math.Round(draft.Rating)
	draft.Author = identity.Username
	draft.Likes = 0
	if draft.Difficulty == "" {
		draft.Difficulty = models.DefaultDifficulty
	}

	created, err := a.gateway.CreateRecipe(ctx, draft)
	if err != nil {
		a.flash(NoticeError, api.Message(err))
		return nil, err
	}

	logger.Info("Recipe created", "recipe_id", created.ID, "username", identity.Username)
	a.afterMutation(ctx, NoticeSuccess, "Recipe added!")
	return created, nil
}

// UpdateRecipe sends the full recipe. Fields the form leaves blank keep the
// cached values where blank is not meaningful (image, difficulty).
func (a *App) UpdateRecipe(ctx context.Context, id int, draft models.RecipeDraft) (*models.Recipe, error) {
	identity, err := a.requireSession("edit a recipe")
	if err != nil {
		return nil, err
	}
	existing, err := a.ownedRecipe(identity, id)
	if err != nil {
		return nil, err
	}
	draft.ImageFile = nil
	if err := validateDraft(draft); err != nil {
		a.flash(NoticeError, err.Error())
		return nil, err
	}

	recipe := existing
	recipe.Title = strings.TrimSpace(draft.Title)
	recipe.Category = draft.Category
	recipe.PrepTime = draft.PrepTime
	recipe.Ingredients = draft.Ingredients
	recipe.Steps = draft.Steps
	recipe.Rating = math.Round(draft.Rating)
	if draft.Difficulty != "" {
		recipe.Difficulty = draft.Difficulty
	}
	if strings.TrimSpace(draft.ImageURL) != "" {
		recipe.Image = strings.TrimSpace(draft.ImageURL)
	}

	updated, err := a.gateway.UpdateRecipe(ctx, id, recipe)
	if err != nil {
		a.flash(NoticeError, api.Message(err))
		return nil, err
	}

	a.afterMutation(ctx, NoticeSuccess, "Recipe updated!")
	return updated, nil
}

func (a *App) DeleteRecipe(ctx context.Context, id int) error {
	identity, err := a.requireSession("delete a recipe")
	if err != nil {
		return err
	}
	if _, err := a.ownedRecipe(identity, id); err != nil {
		return err
	}

	if _, err := a.gateway.DeleteRecipe(ctx, id); err != nil {
		a.flash(NoticeError, api.Message(err))
		return err
	}

	logger.Info("Recipe deleted", "recipe_id", id, "username", identity.Username)
	a.afterMutation(ctx, NoticeSuccess, "Recipe deleted.")
	return nil
}

// ToggleLike records the server's answer in the liked set, which lives only
// as long as this process and this login.
func (a *App) ToggleLike(ctx context.Context, id int) (*models.LikeResult, error) {
	identity, err := a.requireSession("like recipes")
	if err != nil {
		return nil, err
	}

	result, err := a.gateway.ToggleLike(ctx, id, identity.Username)
	if err != nil {
		a.flash(NoticeError, api.Message(err))
		return nil, err
	}

	a.mu.Lock()
	if result.Liked() {
		a.liked[id] = true
	} else {
		delete(a.liked, id)
	}
	a.mu.Unlock()

	if _, err := a.collection.Refresh(ctx); err != nil {
		logger.Warn("Refresh after like failed", "recipe_id", id, "error", err)
	}
	return result, nil
}

func (a *App) ToggleFavorite(id int) (bool, error) {
	if _, err := a.requireSession("save favorites"); err != nil {
		return false, err
	}

	on, err := a.favorites.Toggle(id)
	if err != nil {
		a.flash(NoticeError, "Could not save favorites")
		return on, err
	}

	if on {
		a.flash(NoticeSuccess, "Added to favorites")
	} else {
		a.flash(NoticeInfo, "Removed from favorites")
	}
	return on, nil
}

// AddComment posts and, when the recipe's detail is open, reloads its
// comments.
func (a *App) AddComment(ctx context.Context, recipeID int, content string) (*models.Comment, error) {
	identity, err := a.requireSession("comment")
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		verr := invalid("content", "Comment cannot be empty")
		a.flash(NoticeError, verr.Message)
		return nil, verr
	}

	comment, err := a.gateway.AddComment(ctx, recipeID, models.NewComment{UserID: identity.ID, Content: content}, identity.Username)
	if err != nil {
		a.flash(NoticeError, api.Message(err))
		return nil, err
	}

	a.mu.Lock()
	open := a.modal == ModalRecipe && a.detailID == recipeID
	a.mu.Unlock()
	if open {
		_ = a.OpenRecipe(ctx, recipeID)
	}

	a.flash(NoticeSuccess, "Comment added")
	return comment, nil
}

func (a *App) Comments(ctx context.Context, recipeID int) ([]models.Comment, error) {
	comments, err := a.gateway.ListComments(ctx, recipeID)
	if err != nil {
		logger.Warn("Failed to load comments", "recipe_id", recipeID, "error", err)
		return []models.Comment{}, err
	}
	return comments, nil
}

func (a *App) ShareRecipe(ctx context.Context, recipeID int, to string) error {
	identity, err := a.requireSession("share recipes")
	if err != nil {
		return err
	}
	if a.mailer == nil || !a.mailer.IsEnabled() {
		a.flash(NoticeError, "Email sharing is not configured")
		return ErrMailDisabled
	}
	if err := validateEmail(to); err != nil {
		a.flash(NoticeError, err.Error())
		return err
	}

	recipe, ok := a.collection.Get(recipeID)
	if !ok {
		a.flash(NoticeError, "Recipe not found")
		return ErrNotFound
	}

	if err := a.mailer.ShareRecipe(ctx, strings.TrimSpace(to), identity.Username, recipe, a.resolver.Resolve(recipe.Image)); err != nil {
		logger.Warn("Failed to share recipe", "recipe_id", recipeID, "email", to, "error", err)
		a.flash(NoticeError, "Failed to send email")
		return err
	}

	a.flash(NoticeSuccess, "Recipe sent to "+strings.TrimSpace(to))
	return nil
}

// afterMutation re-reads the collection, closes the form that caused the
// change and queues the notice.
func (a *App) afterMutation(ctx context.Context, kind NoticeKind, message string) {
	if _, err := a.collection.Refresh(ctx); err != nil {
		logger.Warn("Refresh after mutation failed", "error", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.modal == ModalAddRecipe || a.modal == ModalEditRecipe {
		a.closeModalLocked()
	}
	if a.modal == ModalRecipe {
		if _, ok := a.collection.Get(a.detailID); !ok {
			a.closeModalLocked()
		}
	}
	a.notice = &Notice{Kind: kind, Message: message}
}

// IsAuthRequired reports whether err is the login gate's rejection.
func IsAuthRequired(err error) bool {
	return errors.Is(err, session.ErrAuthRequired)
}
