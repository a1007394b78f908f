// Package recipes holds the client's cached copy of the server's recipes and
// derives what each view shows from it.
package recipes

import (
	"context"
	"sort"
	"sync"

	"pocketchef/internal/logger"
	"pocketchef/internal/models"
)

const DefaultQuickPrepMinutes = 30

// Lister is the slice of the gateway the collection depends on.
type Lister interface {
	ListRecipes(ctx context.Context) ([]models.Recipe, error)
}

type Collection struct {
	lister Lister
	quick  int

	mu      sync.RWMutex
	recipes []models.Recipe
	lastErr error
	issued  uint64
	applied uint64
}

func NewCollection(lister Lister, quickPrepMinutes int) *Collection {
	if quickPrepMinutes <= 0 {
		quickPrepMinutes = DefaultQuickPrepMinutes
	}
	return &Collection{
		lister:  lister,
		quick:   quickPrepMinutes,
		recipes: []models.Recipe{},
	}
}

// Refresh replaces the whole collection with the server's list. Refreshes may
// overlap; a completion older than one already applied is discarded, so the
// cache never moves backwards. A failed fetch empties the cache and is
// remembered for FetchFailed. It returns false when the result was stale.
func (c *Collection) Refresh(ctx context.Context) (bool, error) {
	c.mu.Lock()
	c.issued++
	token := c.issued
	c.mu.Unlock()

	list, err := c.lister.ListRecipes(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if token <= c.applied {
		logger.Debug("Discarding stale recipe refresh", "token", token, "applied", c.applied)
		return false, err
	}
	c.applied = token

	if err != nil {
		logger.Warn("Failed to refresh recipes", "error", err)
		c.recipes = []models.Recipe{}
		c.lastErr = err
		return true, err
	}

	if list == nil {
		list = []models.Recipe{}
	}
	c.recipes = list
	c.lastErr = nil
	return true, nil
}

// All returns a copy of the cached recipes in server order.
func (c *Collection) All() []models.Recipe {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Recipe, len(c.recipes))
	copy(out, c.recipes)
	return out
}

func (c *Collection) Get(id int) (models.Recipe, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.recipes {
		if r.ID == id {
			return r, true
		}
	}
	return models.Recipe{}, false
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.recipes)
}

// FetchFailed tells an empty collection caused by a failed fetch apart from
// a server that simply has no recipes.
func (c *Collection) FetchFailed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr != nil
}

func (c *Collection) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Collection) QuickPrepMinutes() int {
	return c.quick
}

// Categories lists the distinct declared categories, sorted.
func (c *Collection) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, r := range c.recipes {
		if r.Category == "" || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Category)
	}
	sort.Strings(out)
	return out
}

func (c *Collection) Filter(criteria Criteria) []models.Recipe {
	if criteria.QuickPrepMinutes == 0 {
		criteria.QuickPrepMinutes = c.quick
	}
	return Filter(c.All(), criteria)
}
