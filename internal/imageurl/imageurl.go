// Package imageurl turns the image references stored on recipes into URLs a
// browser can load.
package imageurl

import "strings"

const DefaultUploadPrefix = "/uploads/"

// Fallback is shown by the views when a recipe has no image.
const Fallback = "/static/placeholder.svg"

type Resolver struct {
	BaseURL      string
	UploadPrefix string
}

func New(baseURL, uploadPrefix string) Resolver {
	if uploadPrefix == "" {
		uploadPrefix = DefaultUploadPrefix
	}
	return Resolver{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		UploadPrefix: uploadPrefix,
	}
}

// Resolve returns "" for an empty reference and leaves absolute URLs and
// unknown forms (data URLs, CDN paths) alone. Only server-relative upload
// paths are joined to the API base. Resolve(Resolve(s)) == Resolve(s).
func (r Resolver) Resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case IsAbsolute(raw):
		return raw
	case r.UploadPrefix != "" && strings.HasPrefix(raw, r.UploadPrefix):
		return r.BaseURL + raw
	default:
		return raw
	}
}

// OrFallback is Resolve with the placeholder substituted for empty input.
func (r Resolver) OrFallback(raw string) string {
	if u := r.Resolve(raw); u != "" {
		return u
	}
	return Fallback
}

func IsAbsolute(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
