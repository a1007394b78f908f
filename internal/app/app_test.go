package app

import (
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"

	"pocketchef/internal/api"
	"pocketchef/internal/api/apitest"
	"pocketchef/internal/database"
	"pocketchef/internal/favorites"
	"pocketchef/internal/imageurl"
	"pocketchef/internal/models"
	"pocketchef/internal/recipes"
	"pocketchef/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	app  *App
	fake *apitest.Server
	kv   *database.KV
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fake := apitest.NewServer()
	t.Cleanup(fake.Close)

	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	kv := database.NewKV(db)

	return &harness{app: build(fake, kv), fake: fake, kv: kv}
}

func build(fake *apitest.Server, kv *database.KV) *App {
	return New(Options{
		Gateway:   api.NewClient(fake.URL),
		Resolver:  imageurl.New(fake.URL, ""),
		Session:   session.New(kv),
		Favorites: favorites.New(kv),
	})
}

// reload simulates a restart against the same persisted state.
func (h *harness) reload(t *testing.T) *App {
	t.Helper()
	a := build(h.fake, h.kv)
	require.NoError(t, a.Start(context.Background()))
	return a
}

func seed(h *harness) (models.Recipe, models.Recipe) {
	pasta := h.fake.AddRecipe(models.Recipe{Title: "Pasta Bake", Author: "al", Category: "Main Course", PrepTime: 45, Ingredients: []string{"tomato", "cheese"}})
	salad := h.fake.AddRecipe(models.Recipe{Title: "Salad", Author: "bo", Category: "Vegetarian", PrepTime: 10, Ingredients: []string{"lettuce"}})
	return pasta, salad
}

func cardTitles(p Page) []string {
	out := []string{}
	for _, c := range p.Cards {
		out = append(out, c.Title)
	}
	return out
}

func TestAnonymousGatedActionsPromptForLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, salad := seed(h)
	require.NoError(t, h.app.Start(ctx))
	h.app.ShowCategories("Vegetarian")

	attempts := map[string]func() error{
		"open add":   func() error { return h.app.OpenAddRecipe() },
		"create":     func() error { _, err := h.app.CreateRecipe(ctx, models.RecipeDraft{Title: "x"}); return err },
		"open edit":  func() error { return h.app.OpenEditRecipe(salad.ID) },
		"update":     func() error { _, err := h.app.UpdateRecipe(ctx, salad.ID, models.RecipeDraft{Title: "x"}); return err },
		"delete":     func() error { return h.app.DeleteRecipe(ctx, salad.ID) },
		"like":       func() error { _, err := h.app.ToggleLike(ctx, salad.ID); return err },
		"favorite":   func() error { _, err := h.app.ToggleFavorite(salad.ID); return err },
		"comment":    func() error { _, err := h.app.AddComment(ctx, salad.ID, "hi"); return err },
		"share":      func() error { return h.app.ShareRecipe(ctx, salad.ID, "x@example.com") },
		"favorites":  func() error { return h.app.ShowFavorites() },
		"my recipes": func() error { return h.app.ShowMyRecipes() },
	}

	for name, attempt := range attempts {
		t.Run(name, func(t *testing.T) {
			h.app.CloseModal()

			err := attempt()
			assert.ErrorIs(t, err, session.ErrAuthRequired)
			assert.True(t, IsAuthRequired(err))

			page := h.app.Render()
			assert.Equal(t, ModalAuth, page.Modal)
			assert.Equal(t, AuthLogin, page.AuthMode)
			assert.Equal(t, recipes.ViewCategories, page.View)
			require.NotNil(t, page.Notice)
			assert.Equal(t, NoticeInfo, page.Notice.Kind)
		})
	}

	assert.Empty(t, h.app.Favorites().IDs())
	for _, route := range []string{"POST /recipes", "PUT /recipes/2", "DELETE /recipes/2", "POST /recipes/2/like", "POST /comments/2"} {
		assert.Zero(t, h.fake.Calls(route), route)
	}
	stored, _ := h.fake.Recipe(salad.ID)
	assert.Equal(t, "Salad", stored.Title)
}

func TestLoginFavoriteSurvivesReload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, salad := seed(h)
	h.fake.AddUser("al", "secret1", "user")
	require.NoError(t, h.app.Start(ctx))

	_, err := h.app.Login(ctx, "al", "wrong")
	require.Error(t, err)
	notice := h.app.Render().Notice
	require.NotNil(t, notice)
	assert.Equal(t, "Invalid credentials", notice.Message)

	identity, err := h.app.Login(ctx, "al", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "al", identity.Username)

	on, err := h.app.ToggleFavorite(salad.ID)
	require.NoError(t, err)
	assert.True(t, on)

	reloaded := h.reload(t)
	current, ok := reloaded.Session().Current()
	require.True(t, ok)
	assert.Equal(t, "al", current.Username)
	assert.Equal(t, []int{salad.ID}, reloaded.Favorites().IDs())

	require.NoError(t, reloaded.ShowFavorites())
	page := reloaded.Render()
	assert.Equal(t, []string{"Salad"}, cardTitles(page))
	assert.True(t, page.Cards[0].Favorited)
}

func TestCreateRecipeWithUploadedImage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fake.AddUser("al", "secret1", "user")
	require.NoError(t, h.app.Start(ctx))
	_, err := h.app.Login(ctx, "al", "secret1")
	require.NoError(t, err)

	require.NoError(t, h.app.OpenAddRecipe())

	created, err := h.app.CreateRecipe(ctx, models.RecipeDraft{
		Title:       "Pancakes",
		Category:    "Breakfast",
		PrepTime:    15,
		Ingredients: []string{"flour", "milk"},
		Steps:       []string{"mix", "fry"},
		ImageName:   "pancakes.png",
		ImageFile:   strings.NewReader("\x89PNG fake"),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(created.Image, imageurl.DefaultUploadPrefix))

	resolver := imageurl.New(h.fake.URL, "")
	resolved := resolver.Resolve(created.Image)
	assert.NotEqual(t, created.Image, resolved)
	assert.Equal(t, h.fake.URL+created.Image, resolved)

	resp, err := http.Get(resolved)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "\x89PNG fake", string(body))

	page := h.app.Render()
	assert.Equal(t, ModalNone, page.Modal)
	require.Len(t, page.Cards, 1)
	card := page.Cards[0]
	assert.Equal(t, resolved, card.ImageURL)
	assert.Equal(t, "al", card.Author)
	assert.True(t, card.Own)
	assert.True(t, card.CanEdit)
	assert.Equal(t, NoticeSuccess, page.Notice.Kind)
}

func TestValidationShortCircuits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.app.Start(ctx))

	_, err := h.app.Register(ctx, "al", "secret1", "secret1", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "username", verr.Field)

	_, err = h.app.Register(ctx, "alice", "short", "short", "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)

	_, err = h.app.Register(ctx, "alice", "secret1", "secret2", "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "confirm_password", verr.Field)

	_, err = h.app.Login(ctx, "", "x")
	require.ErrorAs(t, err, &verr)

	assert.Zero(t, h.fake.Calls("POST /register"))
	assert.Zero(t, h.fake.Calls("POST /login"))

	identity, err := h.app.Register(ctx, "alice", "secret1", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, "user", identity.Role)

	_, err = h.app.CreateRecipe(ctx, models.RecipeDraft{Title: "  "})
	require.ErrorAs(t, err, &verr)
	_, err = h.app.CreateRecipe(ctx, models.RecipeDraft{Title: "Cake", ImageName: "cake.exe", ImageFile: strings.NewReader("x")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "image", verr.Field)
	for _, rating := range []float64{math.NaN(), math.Inf(1), -1, 5.5} {
		_, err = h.app.CreateRecipe(ctx, models.RecipeDraft{Title: "Cake", Rating: rating})
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "rating", verr.Field)
	}
	_, err = h.app.CreateRecipe(ctx, models.RecipeDraft{Title: strings.Repeat("é", 121)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
	_, err = h.app.AddComment(ctx, 1, "   ")
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, h.fake.Calls("POST /recipes"))

	created, err := h.app.CreateRecipe(ctx, models.RecipeDraft{Title: strings.Repeat("é", 120), Rating: 3.6})
	require.NoError(t, err)
	stored, ok := h.fake.Recipe(created.ID)
	require.True(t, ok)
	assert.Equal(t, 4.0, stored.Rating)
}

func TestModalDoesNotChangeView(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pasta, _ := seed(h)
	require.NoError(t, h.app.Start(ctx))

	h.app.ShowCategories(recipes.QuickCategory)
	before := h.app.Render()
	assert.Equal(t, []string{"Salad"}, cardTitles(before))

	require.NoError(t, h.app.OpenRecipe(ctx, pasta.ID))
	during := h.app.Render()
	assert.Equal(t, recipes.ViewCategories, during.View)
	assert.Equal(t, ModalRecipe, during.Modal)
	require.NotNil(t, during.Detail)
	assert.Equal(t, "Pasta Bake", during.Detail.Title)
	assert.Equal(t, cardTitles(before), cardTitles(during))

	h.app.CloseModal()
	after := h.app.Render()
	assert.Equal(t, ModalNone, after.Modal)
	assert.Nil(t, after.Detail)
	assert.Equal(t, cardTitles(before), cardTitles(after))
	assert.Equal(t, "/categories?category=quick", h.app.CurrentPath())

	assert.ErrorIs(t, h.app.OpenRecipe(ctx, 999), ErrNotFound)
}

func TestLikeAndCommentFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pasta, _ := seed(h)
	h.fake.AddUser("bo", "secret1", "user")
	require.NoError(t, h.app.Start(ctx))
	_, err := h.app.Login(ctx, "bo", "secret1")
	require.NoError(t, err)

	result, err := h.app.ToggleLike(ctx, pasta.ID)
	require.NoError(t, err)
	assert.True(t, result.Liked())

	page := h.app.Render()
	require.Len(t, page.Cards, 2)
	assert.True(t, page.Cards[0].Liked)
	assert.Equal(t, 1, page.Cards[0].Likes)
	assert.False(t, page.Cards[0].Own)
	assert.False(t, page.Cards[0].CanEdit)
	assert.True(t, page.Cards[1].Own)

	require.NoError(t, h.app.OpenRecipe(ctx, pasta.ID))
	_, err = h.app.AddComment(ctx, pasta.ID, "Delicious")
	require.NoError(t, err)

	page = h.app.Render()
	assert.Equal(t, ModalRecipe, page.Modal)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, "bo", page.Comments[0].User)
	assert.Equal(t, "Delicious", page.Comments[0].Content)

	require.NoError(t, h.app.Logout())
	page = h.app.Render()
	assert.False(t, page.LoggedIn)
	assert.False(t, page.Cards[0].Liked)
	assert.False(t, page.Cards[0].CanLike)
}

func TestEditAndDeleteRequireOwnership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pasta, salad := seed(h)
	h.fake.AddUser("al", "secret1", "user")
	require.NoError(t, h.app.Start(ctx))
	_, err := h.app.Login(ctx, "al", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, h.app.OpenEditRecipe(salad.ID), ErrForbidden)
	assert.ErrorIs(t, h.app.DeleteRecipe(ctx, salad.ID), ErrForbidden)
	assert.Zero(t, h.fake.Calls("DELETE /recipes/2"))

	require.NoError(t, h.app.OpenEditRecipe(pasta.ID))
	updated, err := h.app.UpdateRecipe(ctx, pasta.ID, models.RecipeDraft{
		Title:       "Baked Pasta",
		Category:    "Main Course",
		PrepTime:    25,
		Ingredients: []string{"tomato", "mozzarella"},
		Steps:       []string{"bake"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Baked Pasta", updated.Title)

	require.NoError(t, h.app.ShowMyRecipes())
	page := h.app.Render()
	assert.Equal(t, ModalNone, page.Modal)
	assert.Equal(t, []string{"Baked Pasta"}, cardTitles(page))

	require.NoError(t, h.app.DeleteRecipe(ctx, pasta.ID))
	page = h.app.Render()
	assert.True(t, page.Empty)
	assert.False(t, page.FetchFailed)
}

func TestFetchFailureIsVisibleOnThePage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seed(h)
	h.fake.Fail("GET /recipes", http.StatusInternalServerError, `{"error":"db down"}`)

	require.NoError(t, h.app.Start(ctx))
	page := h.app.Render()
	assert.True(t, page.Empty)
	assert.True(t, page.FetchFailed)

	h.fake.Recover("GET /recipes")
	require.NoError(t, h.app.ShowHome(ctx))
	page = h.app.Render()
	assert.False(t, page.FetchFailed)
	assert.Len(t, page.Cards, 2)
}

func TestSearchFiltersCachedCollection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seed(h)
	require.NoError(t, h.app.Start(ctx))
	calls := h.fake.Calls("GET /recipes")

	h.app.Search("tomato")
	page := h.app.Render()
	assert.Equal(t, []string{"Pasta Bake"}, cardTitles(page))
	assert.Equal(t, "/?q=tomato", h.app.CurrentPath())
	assert.Equal(t, calls, h.fake.Calls("GET /recipes"))

	h.app.ShowAbout()
	page = h.app.Render()
	assert.Nil(t, page.Cards)
	for _, item := range page.Nav {
		assert.Equal(t, item.View == recipes.ViewAbout, item.Active)
	}
}

func TestNoticeIsShownOnce(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.app.Start(context.Background()))

	_, _ = h.app.ToggleFavorite(1)
	assert.NotNil(t, h.app.Render().Notice)
	assert.Nil(t, h.app.Render().Notice)
}

type stubMailer struct {
	enabled bool
	sentTo  string
	image   string
}

func (m *stubMailer) IsEnabled() bool { return m.enabled }

func (m *stubMailer) ShareRecipe(_ context.Context, to, _ string, _ models.Recipe, imageURL string) error {
	m.sentTo = to
	m.image = imageURL
	return nil
}

func TestShareRecipe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pasta := h.fake.AddRecipe(models.Recipe{Title: "Pasta", Author: "al", Image: "/uploads/p.png"})
	h.fake.AddUser("al", "secret1", "user")

	mailer := &stubMailer{}
	h.app.mailer = mailer
	require.NoError(t, h.app.Start(ctx))
	_, err := h.app.Login(ctx, "al", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, h.app.ShareRecipe(ctx, pasta.ID, "friend@example.com"), ErrMailDisabled)

	mailer.enabled = true
	var verr *ValidationError
	assert.ErrorAs(t, h.app.ShareRecipe(ctx, pasta.ID, "not-an-email"), &verr)

	require.NoError(t, h.app.ShareRecipe(ctx, pasta.ID, "friend@example.com"))
	assert.Equal(t, "friend@example.com", mailer.sentTo)
	assert.Equal(t, h.fake.URL+"/uploads/p.png", mailer.image)
}
