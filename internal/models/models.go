package models

import "io"

const DefaultDifficulty = "Medium"

type Recipe struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Category    string   `json:"category"`
	PrepTime    int      `json:"prepTime"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Image       string   `json:"image"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	Likes       int      `json:"likes"`
	Rating      float64  `json:"rating"`
}

// Normalize fills the defaults the server may leave out.
func (r *Recipe) Normalize() {
	if r.Difficulty == "" {
		r.Difficulty = DefaultDifficulty
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Steps == nil {
		r.Steps = []string{}
	}
	if r.Likes < 0 {
		r.Likes = 0
	}
}

// RecipeDraft is the payload of the multipart create request. When ImageFile
// is set it is uploaded under ImageName and ImageURL is ignored.
type RecipeDraft struct {
	Title       string
	Category    string
	PrepTime    int
	Difficulty  string
	Ingredients []string
	Steps       []string
	Likes       int
	Author      string
	Rating      float64
	ImageURL    string
	ImageName   string
	ImageFile   io.Reader
}

type Comment struct {
	ID      int    `json:"id,omitempty"`
	User    string `json:"user"`
	Content string `json:"content"`
}

type NewComment struct {
	UserID  int    `json:"user_id"`
	Content string `json:"content"`
}

type Identity struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LikeResult struct {
	Status string `json:"status"`
	Likes  int    `json:"likes"`
}

// Liked reports whether the toggle left the recipe liked.
func (l LikeResult) Liked() bool {
	return l.Status == "liked"
}

type Confirmation struct {
	Status string `json:"status"`
}
