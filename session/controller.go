// Package session provides the session controller: the single owner of the
// client's Session state.
//
// The controller hydrates from the token store on construction, exposes the
// auth operations (login, register, logout, change password, update
// profile), and implements the transport's TokenSource and Refresher so the
// HTTP layer always reads credentials from live state instead of a mutable
// default header. Operation failures never escape as errors: they become
// Notifier feedback plus a boolean result.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	campushub "github.com/campushub/campushub-go"
	"github.com/campushub/campushub-go/identity"
	"github.com/campushub/campushub-go/metrics"
	"github.com/campushub/campushub-go/transport"
	"github.com/go-playground/validator/v10"
)

// Controller owns the Session. Safe for concurrent use.
type Controller struct {
	store    campushub.TokenStore
	backend  campushub.AccountsBackend
	notifier campushub.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate

	mu    sync.RWMutex
	state campushub.Session
	subs  []func(campushub.Session)
}

// compile-time checks
var (
	_ campushub.SessionController = (*Controller)(nil)
	_ transport.TokenSource       = (*Controller)(nil)
	_ transport.Refresher         = (*Controller)(nil)
)

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithNotifier sets the user-facing feedback hook.
func WithNotifier(n campushub.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New creates a Controller and hydrates it from the token store: a stored
// access token is decoded into the user identity; a token that no longer
// decodes is treated as a corrupt session and cleared rather than left
// half-valid.
func New(store campushub.TokenStore, backend campushub.AccountsBackend, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		backend:  backend,
		notifier: campushub.NopNotifier{},
		logger:   slog.Default(),
		validate: newValidator(),
	}
	c.state.Loading = true
	for _, o := range opts {
		o(c)
	}
	c.hydrate()
	return c
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field errors under the json name the backend also uses.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func (c *Controller) hydrate() {
	pair, err := c.store.Load()
	if err != nil {
		c.logger.Warn("token store unreadable, starting logged out", "error", err)
		pair = campushub.TokenPair{}
	}

	var user *campushub.Identity
	if pair.Access != "" {
		user, err = identity.Decode(pair.Access)
		if err != nil {
			c.logger.Warn("stored access token does not decode, clearing session", "error", err)
			if cerr := c.store.Clear(); cerr != nil {
				c.logger.Warn("clearing corrupt session failed", "error", cerr)
			}
			pair = campushub.TokenPair{}
		}
	}

	c.setState(func(s *campushub.Session) {
		s.AccessToken = pair.Access
		s.RefreshToken = pair.Refresh
		s.User = user
		s.Loading = false
	})
}

// Current returns a snapshot of the session. The User pointer is a copy;
// mutating it does not affect controller state.
func (c *Controller) Current() campushub.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() campushub.Session {
	snap := c.state
	if c.state.User != nil {
		user := *c.state.User
		snap.User = &user
	}
	return snap
}

// OnChange registers a subscriber invoked synchronously (outside the state
// lock) after every state transition, with a snapshot of the new state.
func (c *Controller) OnChange(fn func(campushub.Session)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// setState applies a mutation and notifies subscribers.
func (c *Controller) setState(mutate func(*campushub.Session)) {
	c.mu.Lock()
	mutate(&c.state)
	snap := c.snapshotLocked()
	subs := make([]func(campushub.Session), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Login exchanges credentials for tokens, stores them, and decodes the user
// identity. A failed login leaves the session exactly as it was: the tokens
// and the decoded user are applied together or not at all.
func (c *Controller) Login(ctx context.Context, username, password string) bool {
	start := time.Now()
	c.metrics.RecordLoginAttempt()

	pair, err := c.backend.Authenticate(ctx, username, password)
	if err != nil {
		c.metrics.RecordLoginFailure(failureReason(err))
		c.notifier.Error(loginFailureMessage(err))
		c.logger.Info("login failed", "username", username, "error", err)
		return false
	}

	user, err := identity.Decode(pair.Access)
	if err != nil {
		c.metrics.RecordLoginFailure("decode")
		c.notifier.Error("Login failed: the server returned an unreadable token.")
		c.logger.Warn("login token does not decode", "error", err)
		return false
	}

	if err := c.store.Save(pair); err != nil {
		// Session still works in memory; it just won't survive a restart.
		c.logger.Warn("persisting tokens failed", "error", err)
	}

	c.setState(func(s *campushub.Session) {
		s.AccessToken = pair.Access
		s.RefreshToken = pair.Refresh
		s.User = user
	})

	c.metrics.ObserveLoginDuration(time.Since(start).Seconds())
	c.notifier.Success("Signed in as " + user.FullName())
	return true
}

// Register validates the form client-side, posts it to the public
// registration endpoint, and treats a token-bearing response as an implicit
// login. Field-level errors (local or backend) are reported per field;
// everything else is a generic failure.
func (c *Controller) Register(ctx context.Context, in campushub.RegisterInput) campushub.RegisterResult {
	if fieldErrs := c.validateInput(in); len(fieldErrs) > 0 {
		return campushub.RegisterResult{
			Message:     "Please correct the highlighted fields.",
			FieldErrors: fieldErrs,
		}
	}

	resp, err := c.backend.Register(ctx, in)
	if err != nil {
		if apiErr := campushub.AsAPIError(err); apiErr != nil && apiErr.HasFieldErrors() {
			return campushub.RegisterResult{
				Message:     "Registration failed. Please correct the highlighted fields.",
				FieldErrors: apiErr.Fields,
			}
		}
		c.notifier.Error(genericFailureMessage("Registration failed", err))
		return campushub.RegisterResult{Message: genericFailureMessage("Registration failed", err)}
	}

	result := campushub.RegisterResult{OK: true, Message: "Account created."}

	if resp.Tokens.Access != "" {
		user, err := identity.Decode(resp.Tokens.Access)
		if err != nil {
			// Account exists but the implicit login token is unusable; the
			// user can still sign in normally.
			c.logger.Warn("registration token does not decode", "error", err)
			c.notifier.Success("Account created. Please sign in.")
			return result
		}
		if err := c.store.Save(resp.Tokens); err != nil {
			c.logger.Warn("persisting tokens failed", "error", err)
		}
		c.setState(func(s *campushub.Session) {
			s.AccessToken = resp.Tokens.Access
			s.RefreshToken = resp.Tokens.Refresh
			s.User = user
		})
		result.Authenticated = true
		c.notifier.Success("Welcome, " + user.FullName())
		return result
	}

	c.notifier.Success("Account created. Please sign in.")
	return result
}

func (c *Controller) validateInput(in campushub.RegisterInput) map[string][]string {
	err := c.validate.Struct(in)
	if err == nil {
		return nil
	}

	fieldErrs := make(map[string][]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fieldErrs["non_field"] = []string{"invalid input"}
		return fieldErrs
	}
	for _, fe := range verrs {
		fieldErrs[fe.Field()] = append(fieldErrs[fe.Field()], validationMessage(fe))
	}
	return fieldErrs
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	default:
		return "This value is invalid."
	}
}

// Logout clears the persisted tokens and the in-memory state. The cleared
// state is broadcast to subscribers, which stops the notification poller.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("clearing token store failed", "error", err)
	}
	c.setState(func(s *campushub.Session) {
		*s = campushub.Session{}
	})
	c.notifier.Info("Signed out.")
}

// ChangePassword posts the old and new password. The session itself is
// untouched on success; the backend keeps existing tokens valid.
func (c *Controller) ChangePassword(ctx context.Context, oldPassword, newPassword string) bool {
	if newPassword == "" {
		c.notifier.Error("New password must not be empty.")
		return false
	}
	if err := c.backend.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		c.notifier.Error(genericFailureMessage("Password change failed", err))
		c.logger.Info("password change failed", "error", err)
		return false
	}
	c.notifier.Success("Password changed.")
	return true
}

// UpdateProfile applies a partial update to the current user's resource and
// merges the backend's response into the in-memory identity. The controller
// is the only writer of Identity, so the merge happens under its lock.
func (c *Controller) UpdateProfile(ctx context.Context, patch campushub.ProfilePatch) bool {
	cur := c.Current()
	if !cur.Authenticated() || cur.User == nil {
		c.notifier.Error("You are not signed in.")
		return false
	}

	updated, err := c.backend.UpdateUser(ctx, cur.User.ID, patch)
	if err != nil {
		c.notifier.Error(genericFailureMessage("Profile update failed", err))
		c.logger.Info("profile update failed", "error", err)
		return false
	}

	c.setState(func(s *campushub.Session) {
		if s.User == nil {
			return
		}
		mergeIdentity(s.User, updated)
	})
	c.notifier.Success("Profile updated.")
	return true
}

// mergeIdentity copies the non-empty fields of src onto dst. The backend
// returns the full updated user, but absent fields decode to zero values and
// must not clobber what we already know.
func mergeIdentity(dst, src *campushub.Identity) {
	if src == nil {
		return
	}
	if src.FirstName != "" {
		dst.FirstName = src.FirstName
	}
	if src.LastName != "" {
		dst.LastName = src.LastName
	}
	if src.Email != "" {
		dst.Email = src.Email
	}
	if src.Role != "" {
		dst.Role = src.Role.Normalize()
	}
	if src.SchoolID != "" {
		dst.SchoolID = src.SchoolID
	}
	if src.SchoolName != "" {
		dst.SchoolName = src.SchoolName
	}
}

// --- transport.TokenSource / transport.Refresher ---

// AccessToken returns the current access token, or "" when logged out.
func (c *Controller) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.AccessToken
}

// RefreshAccess exchanges the stored refresh token for a new access token.
// On success the new token is persisted and the in-memory identity is kept
// in sync with its payload. On failure the session is cleared and the user
// is effectively logged out: a stale session must never survive a failed
// refresh.
func (c *Controller) RefreshAccess(ctx context.Context) (string, error) {
	c.mu.RLock()
	refresh := c.state.RefreshToken
	c.mu.RUnlock()

	if refresh == "" {
		return "", campushub.ErrNoSession
	}

	access, err := c.backend.RefreshToken(ctx, refresh)
	if err != nil {
		c.forceLogout()
		return "", fmt.Errorf("campushub/session: refresh token exchange: %w", err)
	}

	user, derr := identity.Decode(access)
	if derr != nil {
		c.logger.Warn("refreshed token does not decode, keeping previous identity", "error", derr)
	}

	if serr := c.store.Save(campushub.TokenPair{Access: access, Refresh: refresh}); serr != nil {
		c.logger.Warn("persisting refreshed token failed", "error", serr)
	}

	c.setState(func(s *campushub.Session) {
		s.AccessToken = access
		if derr == nil {
			s.User = user
		}
	})
	return access, nil
}

func (c *Controller) forceLogout() {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("clearing token store failed", "error", err)
	}
	c.setState(func(s *campushub.Session) {
		*s = campushub.Session{}
	})
	c.notifier.Warning("Your session has expired. Please sign in again.")
}

// --- failure message mapping ---

func failureReason(err error) string {
	switch {
	case errors.Is(err, campushub.ErrNetwork):
		return "network"
	case campushub.AsAPIError(err) != nil:
		return "rejected"
	default:
		return "other"
	}
}

func loginFailureMessage(err error) string {
	if errors.Is(err, campushub.ErrNetwork) {
		return "Network error. Please check your connection and try again."
	}
	if apiErr := campushub.AsAPIError(err); apiErr != nil && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return "Login failed. Please check your credentials."
}

func genericFailureMessage(prefix string, err error) string {
	if errors.Is(err, campushub.ErrNetwork) {
		return prefix + ": network error."
	}
	if apiErr := campushub.AsAPIError(err); apiErr != nil && apiErr.Detail != "" {
		return prefix + ": " + apiErr.Detail
	}
	return prefix + "."
}
