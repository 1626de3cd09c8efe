// Package fake provides in-memory backends for testing.
//
// Use fake.NewBackends (or fake.NewClient for a fully wired client) in unit
// tests to avoid network calls. Tokens minted by the fake are unsigned but
// carry real claims, so identity.Decode works on them.
package fake

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	campushub "github.com/campushub/campushub-go"
	"github.com/campushub/campushub-go/notify"
	"github.com/campushub/campushub-go/session"
	"github.com/campushub/campushub-go/tokenstore"
	"github.com/golang-jwt/jwt/v5"
)

// Option configures the fake backends.
type Option func(*state)

type state struct {
	mu            sync.RWMutex
	accounts      map[string]*account // username → account
	refreshTokens map[string]string   // refresh token → username
	notifications []campushub.Notification

	registerIssuesTokens bool
	failRefresh          bool

	loginCalls   int
	refreshCalls int
	listCalls    int
	nextToken    int
}

type account struct {
	password string
	identity campushub.Identity
}

// WithUser adds a fake account with its decoded identity.
func WithUser(username, password string, id campushub.Identity) Option {
	return func(s *state) {
		s.accounts[username] = &account{password: password, identity: id}
	}
}

// WithNotifications seeds the notification feed.
func WithNotifications(items ...campushub.Notification) Option {
	return func(s *state) {
		s.notifications = append(s.notifications, items...)
	}
}

// WithRegistrationTokens makes Register respond with tokens (implicit
// login). Without it, registration reports success with no tokens.
func WithRegistrationTokens() Option {
	return func(s *state) { s.registerIssuesTokens = true }
}

// WithFailingRefresh makes every refresh attempt fail with a 401.
func WithFailingRefresh() Option {
	return func(s *state) { s.failRefresh = true }
}

// Accounts is the fake campushub.AccountsBackend.
type Accounts struct{ s *state }

// Notifications is the fake campushub.NotificationsBackend.
type Notifications struct{ s *state }

// compile-time checks
var (
	_ campushub.AccountsBackend      = (*Accounts)(nil)
	_ campushub.NotificationsBackend = (*Notifications)(nil)
)

// NewBackends creates paired fake backends sharing one state.
func NewBackends(opts ...Option) (*Accounts, *Notifications) {
	s := &state{
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
	}
	for _, o := range opts {
		o(s)
	}
	return &Accounts{s: s}, &Notifications{s: s}
}

// NewClient wires the fake backends into a complete campushub.Client with a
// memory token store, a real session controller, and a real poller.
func NewClient(opts ...Option) (*campushub.Client, error) {
	accounts, notifications := NewBackends(opts...)
	cfg := campushub.Config{
		BaseURL:      "fake://localhost",
		PollInterval: campushub.DefaultPollInterval,
		Timeout:      campushub.DefaultTimeout,
	}
	store := tokenstore.NewMemory()
	ctrl := session.New(store, accounts)
	feed := notify.New(notifications, notify.WithInterval(cfg.PollInterval))
	feed.Bind(ctrl)

	return campushub.NewClient(
		cfg,
		campushub.WithTokenStore(store),
		campushub.WithAccountsBackend(accounts),
		campushub.WithNotificationsBackend(notifications),
		campushub.WithSessionController(ctrl),
		campushub.WithNotificationFeed(feed),
	)
}

// Token mints an unsigned but decodable access token for the identity.
func Token(id campushub.Identity) string {
	claims := jwt.MapClaims{
		"user_id":     id.ID,
		"first_name":  id.FirstName,
		"last_name":   id.LastName,
		"email":       id.Email,
		"role":        string(id.Role),
		"school_id":   id.SchoolID,
		"school_name": id.SchoolName,
		"exp":         time.Now().Add(time.Hour).Unix(),
		"iat":         time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		// SigningMethodNone cannot fail with the documented key.
		panic(fmt.Sprintf("fake: mint token: %v", err))
	}
	return signed
}

// LoginCalls returns how many Authenticate calls were made.
func (a *Accounts) LoginCalls() int {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return a.s.loginCalls
}

// RefreshCalls returns how many RefreshToken calls were made.
func (a *Accounts) RefreshCalls() int {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return a.s.refreshCalls
}

// Authenticate checks the credentials against the registered accounts.
func (a *Accounts) Authenticate(_ context.Context, username, password string) (campushub.TokenPair, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.loginCalls++

	acct, ok := a.s.accounts[username]
	if !ok || acct.password != password {
		return campushub.TokenPair{}, &campushub.APIError{
			StatusCode: 401,
			Detail:     "No active account found with the given credentials",
		}
	}

	a.s.nextToken++
	refresh := "refresh-" + strconv.Itoa(a.s.nextToken)
	a.s.refreshTokens[refresh] = username
	return campushub.TokenPair{Access: Token(acct.identity), Refresh: refresh}, nil
}

// RefreshToken exchanges a known refresh token for a fresh access token.
func (a *Accounts) RefreshToken(_ context.Context, refresh string) (string, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.refreshCalls++

	if a.s.failRefresh {
		return "", &campushub.APIError{StatusCode: 401, Detail: "Token is invalid or expired"}
	}
	username, ok := a.s.refreshTokens[refresh]
	if !ok {
		return "", &campushub.APIError{StatusCode: 401, Detail: "Token is invalid or expired"}
	}
	return Token(a.s.accounts[username].identity), nil
}

// Register creates a new account; a duplicate username produces the
// field-level error shape the real backend emits.
func (a *Accounts) Register(_ context.Context, in campushub.RegisterInput) (*campushub.RegisterResponse, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, exists := a.s.accounts[in.Username]; exists {
		return nil, &campushub.APIError{
			StatusCode: 400,
			Fields: map[string][]string{
				"username": {"A user with that username already exists."},
			},
		}
	}

	a.s.nextToken++
	id := campushub.Identity{
		ID:        "u" + strconv.Itoa(a.s.nextToken),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Role:      in.Role.Normalize(),
		SchoolID:  in.SchoolID,
	}
	a.s.accounts[in.Username] = &account{password: in.Password, identity: id}

	resp := &campushub.RegisterResponse{User: &id}
	if a.s.registerIssuesTokens {
		refresh := "refresh-" + strconv.Itoa(a.s.nextToken)
		a.s.refreshTokens[refresh] = in.Username
		resp.Tokens = campushub.TokenPair{Access: Token(id), Refresh: refresh}
	}
	return resp, nil
}

// ChangePassword verifies the old password for every registered account that
// matches it.
func (a *Accounts) ChangePassword(_ context.Context, oldPassword, newPassword string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	for _, acct := range a.s.accounts {
		if acct.password == oldPassword {
			acct.password = newPassword
			return nil
		}
	}
	return &campushub.APIError{
		StatusCode: 400,
		Fields:     map[string][]string{"old_password": {"Wrong password."}},
	}
}

// UpdateUser applies the patch to the matching account's identity.
func (a *Accounts) UpdateUser(_ context.Context, userID string, patch campushub.ProfilePatch) (*campushub.Identity, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	for _, acct := range a.s.accounts {
		if acct.identity.ID != userID {
			continue
		}
		if patch.FirstName != nil {
			acct.identity.FirstName = *patch.FirstName
		}
		if patch.LastName != nil {
			acct.identity.LastName = *patch.LastName
		}
		if patch.Email != nil {
			acct.identity.Email = *patch.Email
		}
		if patch.SchoolName != nil {
			acct.identity.SchoolName = *patch.SchoolName
		}
		id := acct.identity
		return &id, nil
	}
	return nil, &campushub.APIError{StatusCode: 404, Detail: "User not found."}
}

// ListCalls returns how many List calls were made.
func (n *Notifications) ListCalls() int {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()
	return n.s.listCalls
}

// List returns a copy of the seeded notifications.
func (n *Notifications) List(_ context.Context) ([]campushub.Notification, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	n.s.listCalls++

	out := make([]campushub.Notification, len(n.s.notifications))
	copy(out, n.s.notifications)
	return out, nil
}

// MarkRead flips one item's read flag.
func (n *Notifications) MarkRead(_ context.Context, id string) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	for i := range n.s.notifications {
		if n.s.notifications[i].ID == id {
			n.s.notifications[i].Read = true
			return nil
		}
	}
	return &campushub.APIError{StatusCode: 404, Detail: "Notification not found."}
}

// Push appends a notification to the backend's list (simulating a new
// server-side event picked up by the next poll).
func (n *Notifications) Push(item campushub.Notification) {
	n.s.mu.Lock()
	n.s.notifications = append([]campushub.Notification{item}, n.s.notifications...)
	n.s.mu.Unlock()
}
