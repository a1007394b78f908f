package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pocketchef/internal/api"
	"pocketchef/internal/api/apitest"
	"pocketchef/internal/app"
	"pocketchef/internal/config"
	"pocketchef/internal/database"
	"pocketchef/internal/favorites"
	"pocketchef/internal/imageurl"
	"pocketchef/internal/models"
	"pocketchef/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	fake   *apitest.Server
	app    *app.App
}

func newTestServer(t *testing.T, environment string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := apitest.NewServer()
	t.Cleanup(fake.Close)

	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	cfg.Environment = environment
	cfg.APIBaseURL = fake.URL

	kv := database.NewKV(db)
	a := app.New(app.Options{
		Gateway:   api.NewClient(fake.URL),
		Resolver:  imageurl.New(fake.URL, cfg.UploadPrefix),
		Session:   session.New(kv),
		Favorites: favorites.New(kv),
	})

	fake.AddRecipe(models.Recipe{Title: "Tomato Soup", Author: "al", Category: "Soup", PrepTime: 20, Ingredients: []string{"tomato"}})
	fake.AddUser("al", "secret1", "user")
	require.NoError(t, a.Start(context.Background()))

	r := gin.New()
	require.NoError(t, SetupRoutes(r, a, db, cfg))

	return &testServer{router: r, fake: fake, app: a}
}

const localAddr = "127.0.0.1:40000"

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = localAddr
	return s.serve(req)
}

func (s *testServer) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = localAddr
	return s.serve(req)
}

func TestTemplatesParse(t *testing.T) {
	tmpl, err := LoadTemplates()
	require.NoError(t, err)
	for _, name := range []string{"index.html", "card", "modals", "about", "close"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestHomeListsRecipes(t *testing.T) {
	s := newTestServer(t, "development")

	w := s.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Tomato Soup")
	assert.Contains(t, w.Body.String(), "/static/placeholder.svg")

	w = s.get("/?q=pancake")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Tomato Soup")
	assert.Contains(t, w.Body.String(), "No recipes to show here yet.")
}

func TestGatedViewShowsLoginPrompt(t *testing.T) {
	s := newTestServer(t, "development")

	w := s.get("/favorites")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Please log in to view your favorites.")
	assert.Contains(t, body, `action="/login"`)
	assert.Equal(t, "/", s.app.CurrentPath())

	w = s.post("/recipes/1/favorite", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, s.app.Favorites().IDs())
}

func TestLoginThenFavorite(t *testing.T) {
	s := newTestServer(t, "development")

	w := s.post("/login", url.Values{"username": {"al"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = s.get("/")
	assert.Contains(t, w.Body.String(), "Welcome back, al!")
	assert.Contains(t, w.Body.String(), "Hi, al")

	w = s.post("/recipes/1/favorite", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []int{1}, s.app.Favorites().IDs())

	s.get("/favorites")
	assert.Equal(t, "/favorites", s.app.CurrentPath())

	w = s.post("/logout", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestCreateRecipeWithUpload(t *testing.T) {
	s := newTestServer(t, "development")
	s.post("/login", url.Values{"username": {"al"}, "password": {"secret1"}})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Pancakes"))
	require.NoError(t, mw.WriteField("category", "Breakfast"))
	require.NoError(t, mw.WriteField("prepTime", "15"))
	require.NoError(t, mw.WriteField("ingredients", "flour\r\n\r\nmilk\r\n"))
	require.NoError(t, mw.WriteField("steps", "mix\nfry"))
	part, err := mw.CreateFormFile("image", "pancakes.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/recipes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = localAddr
	w := s.serve(req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	created, ok := s.fake.Recipe(3)
	require.True(t, ok)
	assert.Equal(t, "Pancakes", created.Title)
	assert.Equal(t, "al", created.Author)
	assert.Equal(t, []string{"flour", "milk"}, created.Ingredients)
	require.True(t, strings.HasPrefix(created.Image, "/uploads/"))

	page := s.get("/").Body.String()
	assert.Contains(t, page, s.fake.URL+created.Image)
	assert.Contains(t, page, "Recipe added!")
}

func TestBadPrepTimeIsReported(t *testing.T) {
	s := newTestServer(t, "development")
	s.post("/login", url.Values{"username": {"al"}, "password": {"secret1"}})

	w := s.post("/recipes", url.Values{"title": {"Cake"}, "prepTime": {"soon"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Zero(t, s.fake.Calls("POST /recipes"))
	assert.Contains(t, s.get("/").Body.String(), "Prep time must be a whole number of minutes")
}

func TestRecipeDetailAndClose(t *testing.T) {
	s := newTestServer(t, "development")

	w := s.get("/recipes/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>Tomato Soup - Pocket Chef</title>")
	assert.Contains(t, w.Body.String(), "No comments yet.")

	w = s.post("/modal/close", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, app.ModalNone, s.app.Modal())
}

func TestCSRFEnforcedInProduction(t *testing.T) {
	s := newTestServer(t, "production")

	w := s.post("/logout", url.Values{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.get("/static/placeholder.svg")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRemoteVisitorCannotActAsStoredUser(t *testing.T) {
	s := newTestServer(t, "production")
	_, err := s.app.Login(context.Background(), "al", "secret1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/my-recipes", nil)
	req.RemoteAddr = "203.0.113.7:51000"
	w := s.serve(req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "Tomato Soup")

	req = httptest.NewRequest(http.MethodPost, "/recipes/1/delete", strings.NewReader(url.Values{"csrf_token": {"anything"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "203.0.113.7:51000"
	w = s.serve(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, ok := s.fake.Recipe(1)
	assert.True(t, ok)
	assert.Zero(t, s.fake.Calls("DELETE /recipes/1"))
}

func TestRegisterFormCarriesRole(t *testing.T) {
	s := newTestServer(t, "development")

	assert.Contains(t, s.get("/signup").Body.String(), `name="role"`)

	w := s.post("/register", url.Values{"username": {"chief"}, "password": {"secret1"}, "confirm_password": {"secret1"}, "role": {"admin"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	identity, ok := s.app.Session().Current()
	require.True(t, ok)
	assert.Equal(t, "admin", identity.Role)

	page := s.get("/").Body.String()
	assert.Contains(t, page, `action="/recipes/1/delete"`)
}
