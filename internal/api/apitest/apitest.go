// Package apitest runs an in-memory stand-in for the remote recipe API that
// answers with the same shapes as the real server.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"pocketchef/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true, "avif": true,
}

type user struct {
	models.Identity
	password string
}

type comment struct {
	id       int
	userID   int
	recipeID int
	content  string
}

type failure struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*user
	recipes  map[int]*models.Recipe
	likes    map[[2]int]bool
	comments []comment
	uploads  map[string][]byte
	failures map[string]failure
	calls    map[string]int
	nextID   int
}

func NewServer() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		users:    make(map[string]*user),
		recipes:  make(map[int]*models.Recipe),
		likes:    make(map[[2]int]bool),
		uploads:  make(map[string][]byte),
		failures: make(map[string]failure),
		calls:    make(map[string]int),
	}

	r := gin.New()
	r.Use(s.intercept())
	r.GET("/recipes", s.handleListRecipes)
	r.POST("/recipes", s.handleCreateRecipe)
	r.PUT("/recipes/:id", s.handleUpdateRecipe)
	r.DELETE("/recipes/:id", s.handleDeleteRecipe)
	r.POST("/recipes/:id/like", s.handleLike)
	r.GET("/comments/:id", s.handleListComments)
	r.POST("/comments/:id", s.handleAddComment)
	r.POST("/register", s.handleRegister)
	r.POST("/login", s.handleLogin)
	r.GET("/uploads/:name", s.handleUpload)

	s.Server = httptest.NewServer(r)
	return s
}

// Fail makes every later request matching "METHOD /path" answer with status
// and body. An empty body produces an unparseable response.
func (s *Server) Fail(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, body: body}
}

func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Calls counts requests that reached the route, failed or not.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) AddUser(username, password, role string) models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, role)
}

func (s *Server) addUserLocked(username, password, role string) models.Identity {
	s.nextID++
	u := &user{Identity: models.Identity{ID: s.nextID, Username: username, Role: role}, password: password}
	s.users[username] = u
	return u.Identity
}

func (s *Server) AddRecipe(recipe models.Recipe) models.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	recipe.ID = s.nextID
	stored := recipe
	s.recipes[recipe.ID] = &stored
	return recipe
}

func (s *Server) Recipe(id int) (models.Recipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	if !ok {
		return models.Recipe{}, false
	}
	return *r, true
}

// Upload returns the stored bytes of an uploaded image path.
func (s *Server) Upload(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.uploads[strings.TrimPrefix(path, "/uploads/")]
	return data, ok
}

func (s *Server) intercept() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.Request.URL.Path

		s.mu.Lock()
		s.calls[route]++
		f, failing := s.failures[route]
		s.mu.Unlock()

		if failing {
			c.Data(f.status, "application/json", []byte(f.body))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) handleListRecipes(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.recipes))
	for id := range s.recipes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		r := s.recipes[id]
		out = append(out, gin.H{
			"id":          r.ID,
			"title":       r.Title,
			"category":    r.Category,
			"prepTime":    r.PrepTime,
			"image":       r.Image,
			"ingredients": nonNil(r.Ingredients),
			"steps":       nonNil(r.Steps),
			"likes":       r.Likes,
			"author":      r.Author,
			"rating":      r.Rating,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateRecipe(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	recipe := models.Recipe{
		Title:       title,
		Category:    strings.TrimSpace(c.PostForm("category")),
		Author:      strings.TrimSpace(c.PostForm("author")),
		PrepTime:    atoi(c.PostForm("prepTime")),
		Likes:       atoi(c.PostForm("likes")),
		Rating:      float64(wholeNumber(c.PostForm("rating"))),
		Ingredients: parseList(c.PostForm("ingredients")),
		Steps:       parseList(c.PostForm("steps")),
		Image:       strings.TrimSpace(c.PostForm("image")),
	}

	if header, err := c.FormFile("image"); err == nil && header.Filename != "" {
		name := filepath.Base(header.Filename)
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if !allowedExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
			return
		}
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable upload"})
			return
		}
		data, _ := io.ReadAll(f)
		f.Close()

		unique := strings.ReplaceAll(uuid.New().String(), "-", "") + "_" + name
		s.mu.Lock()
		s.uploads[unique] = data
		s.mu.Unlock()
		recipe.Image = "/uploads/" + unique
	}

	s.mu.Lock()
	s.nextID++
	recipe.ID = s.nextID
	stored := recipe
	s.recipes[recipe.ID] = &stored
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{
		"status": "ok",
		"recipe": gin.H{"id": recipe.ID, "title": recipe.Title, "image": recipe.Image},
	})
}

func (s *Server) handleUpdateRecipe(c *gin.Context) {
	id := atoi(c.Param("id"))

	var data map[string]json.RawMessage
	if err := c.ShouldBindJSON(&data); err != nil {
		data = map[string]json.RawMessage{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	var str string
	var n float64
	var list []string
	if v, ok := data["title"]; ok && json.Unmarshal(v, &str) == nil && strings.TrimSpace(str) != "" {
		r.Title = strings.TrimSpace(str)
	}
	if v, ok := data["category"]; ok && json.Unmarshal(v, &str) == nil {
		r.Category = strings.TrimSpace(str)
	}
	if v, ok := data["prepTime"]; ok && json.Unmarshal(v, &n) == nil {
		r.PrepTime = int(n)
	}
	if v, ok := data["image"]; ok && json.Unmarshal(v, &str) == nil {
		r.Image = strings.TrimSpace(str)
	}
	if v, ok := data["ingredients"]; ok && json.Unmarshal(v, &list) == nil {
		r.Ingredients = list
	}
	list = nil
	if v, ok := data["steps"]; ok && json.Unmarshal(v, &list) == nil {
		r.Steps = list
	}
	if v, ok := data["rating"]; ok && json.Unmarshal(v, &n) == nil {
		r.Rating = float64(int(n))
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) handleDeleteRecipe(c *gin.Context) {
	id := atoi(c.Param("id"))

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}
	if strings.HasPrefix(r.Image, "/uploads/") {
		delete(s.uploads, strings.TrimPrefix(r.Image, "/uploads/"))
	}
	delete(s.recipes, id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleLike(c *gin.Context) {
	id := atoi(c.Param("id"))

	var body struct {
		Username string `json:"username"`
	}
	_ = c.ShouldBindJSON(&body)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[body.Username]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	r, ok := s.recipes[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	key := [2]int{u.ID, r.ID}
	action := "liked"
	if s.likes[key] {
		delete(s.likes, key)
		if r.Likes > 0 {
			r.Likes--
		}
		action = "unliked"
	} else {
		s.likes[key] = true
		r.Likes++
	}
	c.JSON(http.StatusOK, gin.H{"status": action, "likes": r.Likes})
}

func (s *Server) handleListComments(c *gin.Context) {
	recipeID := atoi(c.Param("id"))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]gin.H, 0)
	for _, cm := range s.comments {
		if cm.recipeID != recipeID {
			continue
		}
		name := "Unknown"
		for _, u := range s.users {
			if u.ID == cm.userID {
				name = u.Username
			}
		}
		out = append(out, gin.H{"id": cm.id, "user": name, "content": cm.content})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAddComment(c *gin.Context) {
	recipeID := atoi(c.Param("id"))

	var body struct {
		UserID  int    `json:"user_id"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID == 0 || body.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	s.mu.Lock()
	s.nextID++
	s.comments = append(s.comments, comment{id: s.nextID, userID: body.UserID, recipeID: recipeID, content: body.Content})
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRegister(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	_ = c.ShouldBindJSON(&body)
	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User exists"})
		return
	}
	role := body.Role
	if role == "" {
		role = "user"
	}
	identity := s.addUserLocked(username, password, role)
	c.JSON(http.StatusOK, gin.H{"status": "registered", "user": identity})
}

func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&body)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.TrimSpace(body.Username)]
	if !ok || u.password != strings.TrimSpace(body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "user": u.Identity})
}

func (s *Server) handleUpload(c *gin.Context) {
	s.mu.Lock()
	data, ok := s.uploads[c.Param("name")]
	s.mu.Unlock()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// parseList accepts a JSON array or a comma/newline separated string.
func parseList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}

	var parsed []interface{}
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		out := make([]string, 0, len(parsed))
		for _, v := range parsed {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	out := []string{}
	for _, part := range strings.Split(strings.ReplaceAll(value, ",", "\n"), "\n") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// wholeNumber parses like the server's int(): anything but an integer is 0.
func wholeNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
