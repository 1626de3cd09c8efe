// Package campushub provides a Go client SDK for the Campushub
// school-administration backend.
//
// The SDK covers the session layer an application needs in front of the REST
// API: token persistence, bearer-payload decoding, an HTTP transport that
// refreshes once on 401 and replays, a session controller owning
// login/register/logout/change-password/update-profile, route-guard decision
// functions, and a session-scoped notification poller. Concrete
// implementations are injected via Option functions, so tests can swap any
// piece for the fakes in fake/.
//
// Typical wiring:
//
//	cfg := campushub.Config{
//	    BaseURL:      "https://api.example.com",
//	    PollInterval: campushub.DefaultPollInterval,
//	    Timeout:      campushub.DefaultTimeout,
//	}
//	store := tokenstore.NewMemory()
//	api := rest.New(cfg.BaseURL)
//	ctrl := session.New(store, api)
//	api.SetAuthHTTPClient(&http.Client{
//	    Transport: transport.New(nil, ctrl, ctrl),
//	    Timeout:   cfg.Timeout,
//	})
//	feed := notify.New(api, notify.WithInterval(cfg.PollInterval))
//	feed.Bind(ctrl)
//
//	client, err := campushub.NewClient(
//	    cfg,
//	    campushub.WithTokenStore(store),
//	    campushub.WithAccountsBackend(api),
//	    campushub.WithNotificationsBackend(api),
//	    campushub.WithSessionController(ctrl),
//	    campushub.WithNotificationFeed(feed),
//	)
package campushub

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"
)

// Client is the main entry point. Services are injected via Option functions.
type Client struct {
	config        Config
	logger        *slog.Logger
	store         TokenStore
	accounts      AccountsBackend
	notifications NotificationsBackend
	session       SessionController
	feed          NotificationFeed
	notifier      Notifier
}

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the root of the backend REST API, without a trailing slash.
	BaseURL string

	// PollInterval is how often the notification feed is re-fetched while a
	// session is active. Default: 30 seconds.
	PollInterval time.Duration

	// Timeout bounds individual backend calls. Default: 15 seconds.
	Timeout time.Duration
}

// Defaults applied by NewClient.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultTimeout      = 15 * time.Second
)

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTokenStore sets the token persistence implementation.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.store = s }
}

// WithAccountsBackend sets the accounts API implementation.
func WithAccountsBackend(b AccountsBackend) Option {
	return func(c *Client) { c.accounts = b }
}

// WithNotificationsBackend sets the communications API implementation.
func WithNotificationsBackend(b NotificationsBackend) Option {
	return func(c *Client) { c.notifications = b }
}

// WithSessionController sets the session controller implementation.
func WithSessionController(s SessionController) Option {
	return func(c *Client) { c.session = s }
}

// WithNotificationFeed sets the notification feed implementation.
func WithNotificationFeed(f NotificationFeed) Option {
	return func(c *Client) { c.feed = f }
}

// WithNotifier sets the user-facing feedback hook.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// NewClient creates a new Campushub client with the given configuration and
// options. Either a BaseURL or an injected AccountsBackend is required.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{config: cfg}
	for _, o := range opts {
		o(c)
	}

	if cfg.BaseURL == "" && c.accounts == nil {
		return nil, fmt.Errorf("campushub: a BaseURL or an AccountsBackend is required")
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.notifier == nil {
		c.notifier = NopNotifier{}
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Store returns the token store, or nil if not configured.
func (c *Client) Store() TokenStore { return c.store }

// Accounts returns the accounts backend, or nil if not configured.
func (c *Client) Accounts() AccountsBackend { return c.accounts }

// NotificationsAPI returns the communications backend, or nil if not
// configured.
func (c *Client) NotificationsAPI() NotificationsBackend { return c.notifications }

// Session returns the session controller, or nil if not configured.
func (c *Client) Session() SessionController { return c.session }

// Notifications returns the notification feed, or nil if not configured.
func (c *Client) Notifications() NotificationFeed { return c.feed }

// Notifier returns the user-facing feedback hook.
func (c *Client) Notifier() Notifier { return c.notifier }

// Close releases all resources held by the client. Any injected service that
// implements io.Closer is closed; the notification poller stops its timer
// here.
func (c *Client) Close() error {
	closers := []any{
		c.feed, c.session, c.accounts, c.notifications, c.store,
	}
	var firstErr error
	for _, svc := range closers {
		cl, ok := svc.(io.Closer)
		if !ok || isNilService(cl) {
			continue
		}
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// isNilService reports whether the injected service is a typed nil, which
// would slip past an interface nil check and panic on the Close call.
func isNilService(v io.Closer) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
