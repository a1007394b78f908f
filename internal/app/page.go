package app

import (
	"fmt"
	"sort"

	"pocketchef/internal/models"
	"pocketchef/internal/recipes"
)

// KnownCategories are offered even before any recipe uses them.
var KnownCategories = []string{"Breakfast", "Dessert", "Main Course", "Salad", "Soup", "Vegetarian"}

type NavItem struct {
	View   recipes.View
	Label  string
	Path   string
	Active bool
	Gated  bool
}

type CategoryOption struct {
	Name   string
	Label  string
	Active bool
}

// Card is one recipe as a view shows it, with everything the buttons need.
type Card struct {
	models.Recipe
	ImageURL string

	Liked     bool
	Favorited bool
	Own       bool

	CanLike     bool
	CanFavorite bool
	CanEdit     bool
	CanDelete   bool
	CanComment  bool
}

// Page is a complete render of the application state. Every surface (HTML,
// terminal) draws from a Page and nothing else.
type Page struct {
	View     recipes.View
	Nav      []NavItem
	User     *models.Identity
	LoggedIn bool

	Query      string
	Category   string
	Categories []CategoryOption
	Cards      []Card
	Empty      bool
	// FetchFailed is set when the last refresh failed, so Empty alone does
	// not mean the server has no recipes.
	FetchFailed bool

	Modal          Modal
	AuthMode       AuthMode
	Detail         *Card
	Comments       []models.Comment
	CommentsFailed bool

	Notice      *Notice
	MailEnabled bool
	QuickPrep   int
}

// Render snapshots the state into a Page. The pending notice is handed to
// this render and cleared.
func (a *App) Render() Page {
	identity, loggedIn := a.session.Current()

	a.mu.Lock()
	view := a.view
	query := a.query
	category := a.category
	modal := a.modal
	authMode := a.authMode
	detailID := a.detailID
	comments := append([]models.Comment(nil), a.comments...)
	commentsFailed := a.commentsFailed
	liked := make(map[int]bool, len(a.liked))
	for id := range a.liked {
		liked[id] = true
	}
	notice := a.notice
	a.notice = nil
	a.mu.Unlock()

	criteria := recipes.Criteria{
		View:      view,
		Query:     query,
		Category:  category,
		Favorites: a.favorites,
	}
	if loggedIn {
		criteria.Username = identity.Username
	}
	visible := a.collection.Filter(criteria)

	page := Page{
		View:           view,
		Nav:            navigation(view),
		User:           identity,
		LoggedIn:       loggedIn,
		Query:          query,
		Category:       category,
		Modal:          modal,
		AuthMode:       authMode,
		Comments:       comments,
		CommentsFailed: commentsFailed,
		Notice:         notice,
		MailEnabled:    a.mailer != nil && a.mailer.IsEnabled(),
		QuickPrep:      a.collection.QuickPrepMinutes(),
		FetchFailed:    a.collection.FetchFailed(),
	}

	if view != recipes.ViewAbout {
		page.Cards = make([]Card, 0, len(visible))
		for _, r := range visible {
			page.Cards = append(page.Cards, a.card(r, identity, liked))
		}
		page.Empty = len(page.Cards) == 0
	}

	if view == recipes.ViewCategories {
		page.Categories = a.categoryOptions(category)
	}

	if detailID != 0 {
		if r, ok := a.collection.Get(detailID); ok {
			c := a.card(r, identity, liked)
			page.Detail = &c
		}
	}

	return page
}

func (a *App) card(r models.Recipe, identity *models.Identity, liked map[int]bool) Card {
	loggedIn := identity != nil
	own := loggedIn && r.Author == identity.Username
	modify := canModify(identity, r)

	return Card{
		Recipe:      r,
		ImageURL:    a.resolver.OrFallback(r.Image),
		Liked:       liked[r.ID],
		Favorited:   a.favorites.IsFavorite(r.ID),
		Own:         own,
		CanLike:     loggedIn,
		CanFavorite: loggedIn,
		CanEdit:     modify,
		CanDelete:   modify,
		CanComment:  loggedIn,
	}
}

func (a *App) categoryOptions(active string) []CategoryOption {
	seen := make(map[string]bool)
	var names []string
	for _, name := range append(append([]string{}, KnownCategories...), a.collection.Categories()...) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)

	options := []CategoryOption{{
		Name:   recipes.QuickCategory,
		Label:  fmt.Sprintf("Quick (%d min or less)", a.collection.QuickPrepMinutes()),
		Active: active == recipes.QuickCategory,
	}}
	for _, name := range names {
		options = append(options, CategoryOption{Name: name, Label: name, Active: active == name})
	}
	return options
}

func navigation(current recipes.View) []NavItem {
	items := []NavItem{
		{View: recipes.ViewHome, Label: "Home", Path: "/"},
		{View: recipes.ViewCategories, Label: "Categories", Path: "/categories"},
		{View: recipes.ViewFavorites, Label: "Favorites", Path: "/favorites", Gated: true},
		{View: recipes.ViewMyRecipes, Label: "My Recipes", Path: "/my-recipes", Gated: true},
		{View: recipes.ViewAbout, Label: "About", Path: "/about"},
	}
	for i := range items {
		items[i].Active = items[i].View == current
	}
	return items
}
