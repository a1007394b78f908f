// Package api is the only code that talks to the remote recipe API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pocketchef/internal/logger"
	"pocketchef/internal/models"

	"github.com/google/uuid"
)

const (
	msgListRecipes  = "Failed to load recipes"
	msgCreateRecipe = "Failed to add recipe"
	msgUpdateRecipe = "Failed to update recipe"
	msgDeleteRecipe = "Failed to delete recipe"
	msgLike         = "Failed to like recipe"
	msgRegister     = "Registration failed"
	msgLogin        = "Login failed"
	msgListComments = "Failed to load comments"
	msgAddComment   = "Failed to add comment"
)

const DefaultRole = "user"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListRecipes(ctx context.Context) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := c.doJSON(ctx, "list recipes", http.MethodGet, "/recipes", nil, msgListRecipes, &recipes); err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].Normalize()
	}
	return recipes, nil
}

func (c *Client) CreateRecipe(ctx context.Context, draft models.RecipeDraft) (*models.Recipe, error) {
	body, contentType, err := encodeDraft(draft)
	if err != nil {
		return nil, &Error{Op: "create recipe", Message: msgCreateRecipe, Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/recipes", body)
	if err != nil {
		return nil, &Error{Op: "create recipe", Message: msgCreateRecipe, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	raw, err := c.do(req, "create recipe", msgCreateRecipe)
	if err != nil {
		return nil, err
	}

	created := recipeFromDraft(draft)
	if err := decodeRecipe(raw, &created); err != nil {
		return nil, &Error{Op: "create recipe", Message: msgCreateRecipe, Err: err}
	}
	created.Normalize()
	return &created, nil
}

func (c *Client) UpdateRecipe(ctx context.Context, id int, recipe models.Recipe) (*models.Recipe, error) {
	recipe.ID = id
	var raw json.RawMessage
	if err := c.doJSON(ctx, "update recipe", http.MethodPut, "/recipes/"+strconv.Itoa(id), recipe, msgUpdateRecipe, &raw); err != nil {
		return nil, err
	}

	updated := recipe
	if err := decodeRecipe(raw, &updated); err != nil {
		return nil, &Error{Op: "update recipe", Message: msgUpdateRecipe, Err: err}
	}
	updated.ID = id
	updated.Normalize()
	return &updated, nil
}

func (c *Client) DeleteRecipe(ctx context.Context, id int) (*models.Confirmation, error) {
	var confirmation models.Confirmation
	if err := c.doJSON(ctx, "delete recipe", http.MethodDelete, "/recipes/"+strconv.Itoa(id), nil, msgDeleteRecipe, &confirmation); err != nil {
		return nil, err
	}
	return &confirmation, nil
}

func (c *Client) ToggleLike(ctx context.Context, id int, username string) (*models.LikeResult, error) {
	payload := map[string]string{"username": username}
	var result models.LikeResult
	if err := c.doJSON(ctx, "like recipe", http.MethodPost, "/recipes/"+strconv.Itoa(id)+"/like", payload, msgLike, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Register(ctx context.Context, username, password, role string) (*models.Identity, error) {
	if role == "" {
		role = DefaultRole
	}
	payload := map[string]string{"username": username, "password": password, "role": role}
	return c.authenticate(ctx, "register", "/register", payload, msgRegister)
}

func (c *Client) Login(ctx context.Context, username, password string) (*models.Identity, error) {
	payload := map[string]string{"username": username, "password": password}
	return c.authenticate(ctx, "login", "/login", payload, msgLogin)
}

func (c *Client) authenticate(ctx context.Context, op, path string, payload interface{}, generic string) (*models.Identity, error) {
	var resp struct {
		User *models.Identity `json:"user"`
	}
	if err := c.doJSON(ctx, op, http.MethodPost, path, payload, generic, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.User.Username == "" {
		return nil, &Error{Op: op, Status: http.StatusOK, Message: generic, Err: fmt.Errorf("response carried no user")}
	}
	return resp.User, nil
}

func (c *Client) ListComments(ctx context.Context, recipeID int) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.doJSON(ctx, "list comments", http.MethodGet, "/comments/"+strconv.Itoa(recipeID), nil, msgListComments, &comments); err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// AddComment posts a comment. The original server answers {"status":"ok"},
// so author and content are filled from the request when absent.
func (c *Client) AddComment(ctx context.Context, recipeID int, comment models.NewComment, author string) (*models.Comment, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "add comment", http.MethodPost, "/comments/"+strconv.Itoa(recipeID), comment, msgAddComment, &raw); err != nil {
		return nil, err
	}

	created := models.Comment{User: author, Content: comment.Content}
	if len(raw) > 0 {
		var decoded models.Comment
		if err := json.Unmarshal(raw, &decoded); err == nil {
			if decoded.ID != 0 {
				created.ID = decoded.ID
			}
			if decoded.User != "" {
				created.User = decoded.User
			}
			if decoded.Content != "" {
				created.Content = decoded.Content
			}
		}
	}
	return &created, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, payload interface{}, generic string, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &Error{Op: op, Message: generic, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return &Error{Op: op, Message: generic, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := c.do(req, op, generic)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Message: generic, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// do sends one request, once. Non-2xx statuses become *Error carrying the
// API's message when the body has one.
func (c *Client) do(req *http.Request, op, generic string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("Remote request failed",
			"op", op,
			"request_id", req.Header.Get("X-Request-ID"),
			"error", err)
		return nil, &Error{Op: op, Message: generic, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: generic, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	logger.Debug("Remote request",
		"op", op,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"latency", time.Since(start),
		"request_id", req.Header.Get("X-Request-ID"))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Op:      op,
			Status:  resp.StatusCode,
			Message: errorMessage(raw, generic),
			Err:     fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode),
		}
	}

	return raw, nil
}

func encodeDraft(draft models.RecipeDraft) (io.Reader, string, error) {
	ingredients, err := json.Marshal(nonNil(draft.Ingredients))
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode ingredients: %w", err)
	}
	steps, err := json.Marshal(nonNil(draft.Steps))
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode steps: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"title", draft.Title},
		{"category", draft.Category},
		{"prepTime", strconv.Itoa(draft.PrepTime)},
		{"difficulty", draft.Difficulty},
		{"ingredients", string(ingredients)},
		{"steps", string(steps)},
		{"likes", strconv.Itoa(draft.Likes)},
		{"author", draft.Author},
		{"rating", strconv.Itoa(int(math.Round(draft.Rating)))},
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", field[0], err)
		}
	}

	if draft.ImageFile != nil {
		name := draft.ImageName
		if name == "" {
			name = "image"
		}
		part, err := w.CreateFormFile("image", name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := io.Copy(part, draft.ImageFile); err != nil {
			return nil, "", fmt.Errorf("failed to copy image: %w", err)
		}
	} else if err := w.WriteField("image", draft.ImageURL); err != nil {
		return nil, "", fmt.Errorf("failed to write field image: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func recipeFromDraft(draft models.RecipeDraft) models.Recipe {
	return models.Recipe{
		Title:       draft.Title,
		Author:      draft.Author,
		Category:    draft.Category,
		PrepTime:    draft.PrepTime,
		Difficulty:  draft.Difficulty,
		Image:       draft.ImageURL,
		Ingredients: nonNil(draft.Ingredients),
		Steps:       nonNil(draft.Steps),
		Likes:       draft.Likes,
		Rating:      math.Round(draft.Rating),
	}
}

// decodeRecipe overlays whatever recipe the body carries onto dst. Both the
// wrapped {"recipe": {...}} form and a bare object are accepted; a body with
// neither leaves dst untouched.
func decodeRecipe(raw []byte, dst *models.Recipe) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var wrapped struct {
		Recipe json.RawMessage `json:"recipe"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return fmt.Errorf("failed to decode recipe: %w", err)
	}
	if len(wrapped.Recipe) > 0 && string(wrapped.Recipe) != "null" {
		return json.Unmarshal(wrapped.Recipe, dst)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("failed to decode recipe: %w", err)
	}
	if _, ok := probe["id"]; ok {
		return json.Unmarshal(raw, dst)
	}
	return nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
