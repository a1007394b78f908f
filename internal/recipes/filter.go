package recipes

import (
	"strings"

	"pocketchef/internal/models"
)

// View names the list a filter derives.
type View string

const (
	ViewHome       View = "home"
	ViewCategories View = "categories"
	ViewFavorites  View = "favorites"
	ViewMyRecipes  View = "myRecipes"
	ViewAbout      View = "about"
)

// QuickCategory is the synthetic category matching short prep times.
const QuickCategory = "quick"

type Membership interface {
	Contains(id int) bool
}

type Criteria struct {
	View             View
	Query            string
	Category         string
	Username         string
	Favorites        Membership
	QuickPrepMinutes int
}

// Filter derives the visible subset for one view. Home matches the query as
// a case-insensitive substring of the title, author, category or any
// ingredient; an empty query keeps everything. Categories keeps an exact
// category match, or prep time within the threshold for "quick"; no
// category keeps everything. Favorites keeps members of the favorite set.
// My-recipes keeps recipes authored by Username. About shows nothing.
func Filter(all []models.Recipe, criteria Criteria) []models.Recipe {
	quick := criteria.QuickPrepMinutes
	if quick <= 0 {
		quick = DefaultQuickPrepMinutes
	}

	var keep func(models.Recipe) bool
	switch criteria.View {
	case ViewHome, "":
		query := strings.ToLower(strings.TrimSpace(criteria.Query))
		keep = func(r models.Recipe) bool { return MatchesQuery(r, query) }
	case ViewCategories:
		keep = func(r models.Recipe) bool { return inCategory(r, criteria.Category, quick) }
	case ViewFavorites:
		keep = func(r models.Recipe) bool {
			return criteria.Favorites != nil && criteria.Favorites.Contains(r.ID)
		}
	case ViewMyRecipes:
		keep = func(r models.Recipe) bool {
			return criteria.Username != "" && r.Author == criteria.Username
		}
	default:
		return []models.Recipe{}
	}

	out := make([]models.Recipe, 0, len(all))
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// MatchesQuery expects query already lower-cased and trimmed.
func MatchesQuery(r models.Recipe, query string) bool {
	if query == "" {
		return true
	}
	if contains(r.Title, query) || contains(r.Author, query) || contains(r.Category, query) {
		return true
	}
	for _, ingredient := range r.Ingredients {
		if contains(ingredient, query) {
			return true
		}
	}
	return false
}

func inCategory(r models.Recipe, category string, quick int) bool {
	switch category {
	case "":
		return true
	case QuickCategory:
		return r.PrepTime <= quick
	default:
		return r.Category == category
	}
}

func contains(field, query string) bool {
	return strings.Contains(strings.ToLower(field), query)
}
