package middleware

import (
	"database/sql"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"pocketchef/internal/config"
	"pocketchef/internal/database"
	"pocketchef/internal/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type rateLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientTracker struct {
	errors404    []time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// limiterSet hands out one token bucket per client IP and forgets clients
// idle for longer than ttl.
type limiterSet struct {
	mu      sync.Mutex
	clients map[string]*rateLimiter
	every   time.Duration
	burst   int
	ttl     time.Duration
}

func newLimiterSet(every time.Duration, burst int, ttl time.Duration) *limiterSet {
	return &limiterSet{
		clients: make(map[string]*rateLimiter),
		every:   every,
		burst:   burst,
		ttl:     ttl,
	}
}

func (s *limiterSet) allow(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	client, exists := s.clients[ip]
	if !exists {
		client = &rateLimiter{limiter: rate.NewLimiter(rate.Every(s.every), s.burst)}
		s.clients[ip] = client
	}
	client.lastSeen = now

	for other, c := range s.clients {
		if now.Sub(c.lastSeen) > s.ttl {
			delete(s.clients, other)
		}
	}

	return client.limiter.Allow()
}

func RateLimit(cfg *config.Config) gin.HandlerFunc {
	clients := newLimiterSet(time.Second/20, 20, 10*time.Minute)

	return func(c *gin.Context) {
		// Skip rate limiting in development mode
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		if !clients.allow(c.ClientIP()) {
			c.String(http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthRateLimit guards login and registration, which are forwarded to the
// recipe API.
func AuthRateLimit(cfg *config.Config) gin.HandlerFunc {
	clients := newLimiterSet(time.Minute, 5, 30*time.Minute)

	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		if !clients.allow(c.ClientIP()) {
			logger.Warn("Authentication rate limit exceeded", "ip", c.ClientIP())
			c.String(http.StatusTooManyRequests, "Too many login attempts. Please wait a minute.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Blocker temporarily refuses clients that produce many 404s in a short
// window.
type Blocker struct {
	mu       sync.Mutex
	trackers map[string]*clientTracker
	limit    int
	window   time.Duration
	penalty  time.Duration
}

func NewBlocker() *Blocker {
	return &Blocker{
		trackers: make(map[string]*clientTracker),
		limit:    10,
		window:   5 * time.Minute,
		penalty:  15 * time.Minute,
	}
}

func (b *Blocker) Guard(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		b.mu.Lock()
		tracker, exists := b.trackers[c.ClientIP()]
		blocked := exists && time.Now().Before(tracker.blockedUntil)
		b.mu.Unlock()

		if blocked {
			c.String(http.StatusForbidden, "Your IP has been temporarily blocked due to excessive invalid requests. Please try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (b *Blocker) Track404(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if cfg.IsDevelopment() || c.Writer.Status() != http.StatusNotFound {
			return
		}

		ip := c.ClientIP()
		now := time.Now()

		b.mu.Lock()
		defer b.mu.Unlock()

		tracker, exists := b.trackers[ip]
		if !exists {
			tracker = &clientTracker{}
			b.trackers[ip] = tracker
		}
		tracker.lastSeen = now

		cutoff := now.Add(-b.window)
		recent := tracker.errors404[:0]
		for _, at := range tracker.errors404 {
			if at.After(cutoff) {
				recent = append(recent, at)
			}
		}
		tracker.errors404 = append(recent, now)

		if len(tracker.errors404) >= b.limit {
			tracker.blockedUntil = now.Add(b.penalty)
			logger.Warn("Blocked client after repeated 404s", "ip", ip, "count", len(tracker.errors404))
			tracker.errors404 = nil
		}

		for other, t := range b.trackers {
			if now.Sub(t.lastSeen) > 30*time.Minute && now.After(t.blockedUntil) {
				delete(b.trackers, other)
			}
		}
	}
}

func CORS(allowedOrigins string) gin.HandlerFunc {
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := false
		for _, allowedOrigin := range origins {
			if origin != "" && origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-CSRF-Token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// LocalOnly turns away peers that are not on this machine unless remote
// access is switched on. The web front shares one stored session, so any
// peer it serves acts as the logged-in user. Forwarding headers are not
// trusted here.
func LocalOnly(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AllowRemote {
			c.Next()
			return
		}

		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
			logger.Warn("Rejected remote client", "remote", host, "path", c.Request.URL.Path)
			c.String(http.StatusForbidden, "Pocket Chef only answers on this machine")
			c.Abort()
			return
		}

		c.Next()
	}
}

// CSRF checks the single-use token every rendered form carries.
func CSRF(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		token := c.GetHeader("X-CSRF-Token")
		if token == "" {
			token = c.PostForm("csrf_token")
		}

		if token == "" {
			c.String(http.StatusForbidden, "CSRF token required")
			c.Abort()
			return
		}

		if err := database.ValidateCSRFToken(db, token); err != nil {
			logger.Warn("Rejected CSRF token", "token", token, "path", c.Request.URL.Path)
			c.String(http.StatusForbidden, "Invalid CSRF token. Please reload the page and try again.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// SecurityHeaders lets images load from the recipe API host, which serves
// the uploads.
func SecurityHeaders(cfg *config.Config) gin.HandlerFunc {
	csp := "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https: " + cfg.APIBaseURL + "; form-action 'self'"

	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "same-origin")
		c.Header("Content-Security-Policy", csp)
		c.Next()
	}
}

func LogRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("Request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("Request", fields...)
		default:
			logger.Debug("Request", fields...)
		}
	}
}

// TrimSpaces trims url-encoded form values. Passwords are left alone.
func TrimSpaces() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
			if err := c.Request.ParseForm(); err == nil {
				for key, values := range c.Request.PostForm {
					if strings.Contains(key, "password") {
						continue
					}
					for i, value := range values {
						c.Request.PostForm[key][i] = strings.TrimSpace(value)
					}
				}
			}
		}
		c.Next()
	}
}
