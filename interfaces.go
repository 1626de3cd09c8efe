package campushub

import "context"

// TokenStore persists the access/refresh token pair between runs.
// Implementations: tokenstore/ (memory, credentials file).
// Only the session controller writes to it.
type TokenStore interface {
	// Load returns the stored pair. A missing store yields an empty pair,
	// not an error.
	Load() (TokenPair, error)

	// Save replaces the stored pair.
	Save(TokenPair) error

	// Clear removes any stored credentials.
	Clear() error
}

// AccountsBackend is the accounts surface of the school-administration
// backend. Implementations: rest/ (HTTP), fake/ (testing).
type AccountsBackend interface {
	// Authenticate exchanges credentials for a token pair.
	Authenticate(ctx context.Context, username, password string) (TokenPair, error)

	// RefreshToken exchanges a refresh token for a new access token.
	RefreshToken(ctx context.Context, refresh string) (string, error)

	// Register creates a new account on the public registration endpoint.
	// The response may or may not include tokens.
	Register(ctx context.Context, in RegisterInput) (*RegisterResponse, error)

	// ChangePassword changes the current user's password.
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error

	// UpdateUser applies a partial profile update and returns the updated
	// user record as the backend sees it.
	UpdateUser(ctx context.Context, userID string, patch ProfilePatch) (*Identity, error)
}

// NotificationsBackend is the communications surface of the backend.
type NotificationsBackend interface {
	// List returns the current notification batch, newest first.
	List(ctx context.Context) ([]Notification, error)

	// MarkRead acknowledges a single notification.
	MarkRead(ctx context.Context, id string) error
}

// SessionController owns the Session and exposes the auth operations.
// Implementation: session.Controller. Operations never return raw errors to
// the caller; failures become Notifier feedback plus a boolean result.
type SessionController interface {
	// Current returns a snapshot of the session.
	Current() Session

	// OnChange registers a subscriber invoked synchronously after every
	// state transition.
	OnChange(func(Session))

	Login(ctx context.Context, username, password string) bool
	Register(ctx context.Context, in RegisterInput) RegisterResult
	Logout(ctx context.Context)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) bool
	UpdateProfile(ctx context.Context, patch ProfilePatch) bool
}

// NotificationFeed is the client-side notification state maintained by the
// poller.
type NotificationFeed interface {
	// Items returns a copy of the current feed, newest first.
	Items() []Notification

	// UnreadCount returns the number of unread items, never negative.
	UnreadCount() int

	// MarkRead acknowledges one item, or every unread item when id is the
	// "all" sentinel.
	MarkRead(ctx context.Context, id string) error

	// Add inserts a local-only item at the head of the feed.
	Add(Notification)
}

// Notifier is the user-facing feedback hook (toast/banner in a UI, stdout in
// a CLI). The session controller funnels every operation outcome through it.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// NopNotifier discards all feedback.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Info(string)    {}
func (NopNotifier) Warning(string) {}
func (NopNotifier) Error(string)   {}
