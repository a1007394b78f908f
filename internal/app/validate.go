package app

import (
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"pocketchef/internal/models"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
	maxTitleLength    = 120
	MaxImageBytes     = 16 << 20
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	allowedImageExtensions = map[string]bool{
		"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true, "avif": true,
	}
)

// ValidationError is a client-side rejection raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func validateLogin(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return invalid("username", "Username is required")
	}
	if password == "" {
		return invalid("password", "Password is required")
	}
	return nil
}

func validateRegistration(username, password, confirm, role string) error {
	if len(strings.TrimSpace(username)) < minUsernameLength {
		return invalid("username", "Username must be at least 3 characters")
	}
	if len(password) < minPasswordLength {
		return invalid("password", "Password must be at least 6 characters")
	}
	if password != confirm {
		return invalid("confirm_password", "Passwords do not match")
	}
	if role != "" && role != RoleUser && role != RoleAdmin {
		return invalid("role", "Role must be user or admin")
	}
	return nil
}

func validateDraft(draft models.RecipeDraft) error {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return invalid("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return invalid("title", "Title must be at most 120 characters")
	}
	if draft.PrepTime < 0 {
		return invalid("prepTime", "Prep time cannot be negative")
	}
	if math.IsNaN(draft.Rating) || math.IsInf(draft.Rating, 0) || draft.Rating < 0 || draft.Rating > 5 {
		return invalid("rating", "Rating must be between 0 and 5")
	}
	if draft.ImageFile != nil && !AllowedImage(draft.ImageName) {
		return invalid("image", "Images must be png, jpg, jpeg, gif, webp or avif")
	}
	return nil
}

// AllowedImage reports whether a file name has an accepted image extension.
func AllowedImage(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return allowedImageExtensions[ext]
}

func validateEmail(address string) error {
	if !emailRegex.MatchString(strings.TrimSpace(address)) {
		return invalid("email", "Please enter a valid email address")
	}
	return nil
}

// SplitLines turns a textarea into a list, dropping blank lines.
func SplitLines(text string) []string {
	out := []string{}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}
