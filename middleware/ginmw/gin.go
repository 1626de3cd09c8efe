// Package ginmw provides Gin HTTP middleware over the route guards.
//
// It is meant for applications that serve the dashboard behind a Go BFF: the
// middleware consults the session controller's snapshot through the pure
// guard functions and translates the decision into HTTP — JSON 401/403 for
// API routes, or 302 redirects (preserving the requested location) when
// redirect mode is on.
package ginmw

import (
	"net/http"

	campushub "github.com/campushub/campushub-go"
	"github.com/campushub/campushub-go/guard"
	"github.com/gin-gonic/gin"
)

// Context keys for session data stored in gin.Context.
const (
	KeyIdentity = "campushub_identity"
	KeyRole     = "campushub_role"
)

// SessionSource yields the current session snapshot.
// Implemented by session.Controller.
type SessionSource interface {
	Current() campushub.Session
}

// Option configures middleware behavior.
type Option func(*config)

type config struct {
	redirect bool
}

// WithRedirects makes the middleware answer guard failures with 302
// redirects to /login (carrying ?next=) and /unauthorized instead of JSON
// error bodies.
func WithRedirects() Option {
	return func(cfg *config) { cfg.redirect = true }
}

// RequireSession returns middleware that admits only authenticated sessions.
// On success the identity and role are stored in the context (retrievable
// via GetIdentity / GetRole).
func RequireSession(src SessionSource, opts ...Option) gin.HandlerFunc {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	return func(c *gin.Context) {
		s := src.Current()
		d := guard.Auth(s, c.Request.URL.RequestURI())
		if !admit(c, cfg, d) {
			return
		}
		attach(c, s)
		c.Next()
	}
}

// RequireRoles returns middleware that additionally requires the session's
// role to be in the allowed set. An empty set admits any authenticated user.
func RequireRoles(src SessionSource, allowed []campushub.Role, opts ...Option) gin.HandlerFunc {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	return func(c *gin.Context) {
		s := src.Current()
		d := guard.Role(s, c.Request.URL.RequestURI(), allowed...)
		if !admit(c, cfg, d) {
			return
		}
		attach(c, s)
		c.Next()
	}
}

// admit translates a guard decision into an HTTP response. It returns true
// when the request may proceed.
func admit(c *gin.Context, cfg *config, d guard.Decision) bool {
	switch d.State {
	case guard.StateAllow:
		return true
	case guard.StateLoading:
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session is loading"})
	case guard.StateRedirectLogin:
		if cfg.redirect {
			c.Redirect(http.StatusFound, d.Location)
			c.Abort()
		} else {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		}
	case guard.StateRedirectUnauthorized:
		if cfg.redirect {
			c.Redirect(http.StatusFound, d.Location)
			c.Abort()
		} else {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not allowed"})
		}
	}
	return false
}

func attach(c *gin.Context, s campushub.Session) {
	if s.User == nil {
		return
	}
	c.Set(KeyIdentity, s.User)
	c.Set(KeyRole, s.User.Role.Normalize())
}

// GetIdentity returns the session identity from the Gin context.
func GetIdentity(c *gin.Context) *campushub.Identity {
	v, _ := c.Get(KeyIdentity)
	id, _ := v.(*campushub.Identity)
	return id
}

// GetRole returns the normalized role from the Gin context.
func GetRole(c *gin.Context) campushub.Role {
	v, _ := c.Get(KeyRole)
	r, _ := v.(campushub.Role)
	return r
}
