// Package rest adapts the campushub interfaces to the backend's REST API.
//
// One Client implements both campushub.AccountsBackend and
// campushub.NotificationsBackend. Public endpoints (token, refresh,
// register) go through a bare HTTP client that never carries a bearer;
// protected endpoints go through the authenticated client, normally wired
// with a transport.Transport so 401s refresh and replay.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	campushub "github.com/campushub/campushub-go"
)

// Backend endpoint paths.
const (
	pathToken          = "/api/accounts/token/"
	pathTokenRefresh   = "/api/accounts/token/refresh/"
	pathRegister       = "/api/accounts/register/"
	pathChangePassword = "/api/accounts/users/change-password/"
	pathUserUpdate     = "/api/accounts/users/%s/update/"
	pathNotifications  = "/api/communications/notifications/"
	pathNotifRead      = "/api/communications/notifications/%s/read/"
)

// Client talks to the Campushub REST backend.
type Client struct {
	baseURL string
	logger  *slog.Logger

	mu     sync.RWMutex
	bare   *http.Client // public endpoints, never authenticated
	authed *http.Client // protected endpoints, refresh-on-401 transport
}

// compile-time checks
var (
	_ campushub.AccountsBackend      = (*Client)(nil)
	_ campushub.NotificationsBackend = (*Client)(nil)
)

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBareHTTPClient replaces the client used for public endpoints.
func WithBareHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.bare = hc }
}

// New creates a REST client for the backend at baseURL (no trailing slash).
// Until SetAuthHTTPClient is called, protected endpoints use the bare
// client and will simply fail closed with 401s.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.Default(),
		bare:    &http.Client{Timeout: campushub.DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	if c.authed == nil {
		c.authed = c.bare
	}
	return c
}

// SetAuthHTTPClient wires the authenticated HTTP client. Called after the
// session controller exists, since the refresh transport needs it as its
// token source.
func (c *Client) SetAuthHTTPClient(hc *http.Client) {
	c.mu.Lock()
	c.authed = hc
	c.mu.Unlock()
}

func (c *Client) authClient() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authed
}

// --- AccountsBackend ---

// Authenticate exchanges credentials for a token pair.
func (c *Client) Authenticate(ctx context.Context, username, password string) (campushub.TokenPair, error) {
	var out struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	err := c.do(ctx, c.bare, http.MethodPost, pathToken, map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return campushub.TokenPair{}, err
	}
	if out.Access == "" {
		return campushub.TokenPair{}, fmt.Errorf("campushub/rest: token endpoint returned no access token")
	}
	return campushub.TokenPair{Access: out.Access, Refresh: out.Refresh}, nil
}

// RefreshToken exchanges a refresh token for a new access token.
// It uses the bare client: a refresh must never recurse into the
// refresh-on-401 transport.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	err := c.do(ctx, c.bare, http.MethodPost, pathTokenRefresh, map[string]string{
		"refresh": refresh,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", fmt.Errorf("campushub/rest: refresh endpoint returned no access token")
	}
	return out.Access, nil
}

// Register posts the new-account form to the public registration endpoint.
func (c *Client) Register(ctx context.Context, in campushub.RegisterInput) (*campushub.RegisterResponse, error) {
	var out struct {
		Access  string       `json:"access"`
		Refresh string       `json:"refresh"`
		User    *userPayload `json:"user"`
	}
	if err := c.do(ctx, c.bare, http.MethodPost, pathRegister, in, &out); err != nil {
		return nil, err
	}

	resp := &campushub.RegisterResponse{
		Tokens: campushub.TokenPair{Access: out.Access, Refresh: out.Refresh},
	}
	if out.User != nil {
		resp.User = out.User.identity()
	}
	return resp, nil
}

// ChangePassword changes the current user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return c.do(ctx, c.authClient(), http.MethodPost, pathChangePassword, map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}, nil)
}

// UpdateUser applies a partial profile update and returns the updated user.
func (c *Client) UpdateUser(ctx context.Context, userID string, patch campushub.ProfilePatch) (*campushub.Identity, error) {
	var out userPayload
	path := fmt.Sprintf(pathUserUpdate, url.PathEscape(userID))
	if err := c.do(ctx, c.authClient(), http.MethodPatch, path, patch, &out); err != nil {
		return nil, err
	}
	return out.identity(), nil
}

// --- NotificationsBackend ---

// List fetches the current notification batch. Both a bare JSON array and a
// paginated {"results": [...]} envelope are accepted.
func (c *Client) List(ctx context.Context) ([]campushub.Notification, error) {
	var raw json.RawMessage
	if err := c.do(ctx, c.authClient(), http.MethodGet, pathNotifications, nil, &raw); err != nil {
		return nil, err
	}

	var payloads []notificationPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		var envelope struct {
			Results []notificationPayload `json:"results"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("campushub/rest: decode notifications: %w", err)
		}
		payloads = envelope.Results
	}

	items := make([]campushub.Notification, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, p.notification())
	}
	return items, nil
}

// MarkRead acknowledges a single notification.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	path := fmt.Sprintf(pathNotifRead, url.PathEscape(id))
	return c.do(ctx, c.authClient(), http.MethodPatch, path, nil, nil)
}

// --- HTTP plumbing ---

// do performs one request and decodes the response into out (when non-nil).
// Transport-level failures wrap campushub.ErrNetwork; non-2xx responses
// become *campushub.APIError.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("campushub/rest: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("campushub/rest: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("backend request", "method", method, "path", path)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", campushub.ErrNetwork, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", campushub.ErrNetwork, err)
	}

	c.logger.Debug("backend response", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("campushub/rest: decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// --- payload mapping ---

// userPayload tolerates the id being a number or a string.
type userPayload struct {
	ID         any    `json:"id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	SchoolID   any    `json:"school_id"`
	SchoolName string `json:"school_name"`
}

func (p *userPayload) identity() *campushub.Identity {
	return &campushub.Identity{
		ID:         stringify(p.ID),
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Role:       campushub.NormalizeRole(p.Role),
		SchoolID:   stringify(p.SchoolID),
		SchoolName: p.SchoolName,
	}
}

// notificationPayload tolerates the field variants different backend
// versions emit: message|title, unread|read, timestamp|created_at.
type notificationPayload struct {
	ID        any    `json:"id"`
	Message   string `json:"message"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Unread    *bool  `json:"unread"`
	Read      *bool  `json:"read"`
	Timestamp string `json:"timestamp"`
	CreatedAt string `json:"created_at"`
}

func (p *notificationPayload) notification() campushub.Notification {
	n := campushub.Notification{
		ID:      stringify(p.ID),
		Message: p.Message,
		Type:    campushub.NotificationType(strings.ToLower(p.Type)),
	}
	if n.Message == "" {
		n.Message = p.Title
	}
	switch n.Type {
	case campushub.TypeSuccess, campushub.TypeError, campushub.TypeWarning, campushub.TypeMessage, campushub.TypeInfo:
	default:
		n.Type = campushub.TypeInfo
	}
	switch {
	case p.Read != nil:
		n.Read = *p.Read
	case p.Unread != nil:
		n.Read = !*p.Unread
	}
	n.CreatedAt = parseTimestamp(p.CreatedAt, p.Timestamp)
	return n
}

func parseTimestamp(candidates ...string) time.Time {
	layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	for _, s := range candidates {
		if s == "" {
			continue
		}
		for _, layout := range layouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// parseAPIError maps a non-2xx body onto *campushub.APIError. DRF-style
// bodies are either {"detail": "..."} or a field→messages map where each
// value is a string or a list of strings.
func parseAPIError(status int, body []byte) *campushub.APIError {
	apiErr := &campushub.APIError{StatusCode: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		if len(body) > 0 {
			apiErr.Detail = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	for field, msg := range raw {
		var messages []string
		var single string
		switch {
		case json.Unmarshal(msg, &messages) == nil:
		case json.Unmarshal(msg, &single) == nil:
			messages = []string{single}
		default:
			continue
		}
		if len(messages) == 0 {
			continue
		}
		if field == "detail" || field == "non_field_errors" || field == "error" {
			apiErr.Detail = messages[0]
			continue
		}
		if apiErr.Fields == nil {
			apiErr.Fields = make(map[string][]string)
		}
		apiErr.Fields[field] = messages
	}
	return apiErr
}
