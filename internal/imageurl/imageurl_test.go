package imageurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	r := New("http://127.0.0.1:5000/", "")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"http", "http://cdn.example.com/a.png", "http://cdn.example.com/a.png"},
		{"https", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"upload path", "/uploads/abc_pasta.jpg", "http://127.0.0.1:5000/uploads/abc_pasta.jpg"},
		{"data url", "data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"other relative", "/static/cake.png", "/static/cake.png"},
		{"bare name", "cake.png", "cake.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, r.Resolve(got), "resolve must be idempotent")
		})
	}
}

func TestOrFallback(t *testing.T) {
	r := New("http://api", "/uploads/")
	assert.Equal(t, Fallback, r.OrFallback(""))
	assert.Equal(t, "http://api/uploads/x.png", r.OrFallback("/uploads/x.png"))
}
