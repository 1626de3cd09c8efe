// Package transport provides the authenticated http.RoundTripper.
//
// The transport reads the current access token from a TokenSource at call
// time (there is no mutable default header), and on a 401 it refreshes the
// token exactly once and replays the original request with the new token.
// Concurrent 401s share a single in-flight refresh via singleflight.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/campushub/campushub-go/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const headerRequestID = "X-Request-ID"

// TokenSource yields the access token attached to outgoing requests.
// Implemented by session.Controller.
type TokenSource interface {
	AccessToken() string
}

// Refresher exchanges the stored refresh token for a new access token.
// Implemented by session.Controller, which also owns the forced-logout
// cleanup when the exchange fails.
type Refresher interface {
	RefreshAccess(ctx context.Context) (string, error)
}

// Transport implements http.RoundTripper with bearer attachment and a single
// refresh-and-replay cycle per 401.
type Transport struct {
	base      http.RoundTripper
	source    TokenSource
	refresher Refresher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	sf singleflight.Group
}

// compile-time check
var _ http.RoundTripper = (*Transport)(nil)

// Option configures the Transport.
type Option func(*Transport)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// New creates a Transport wrapping base (http.DefaultTransport when nil).
func New(base http.RoundTripper, source TokenSource, refresher Refresher, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		base:      base,
		source:    source,
		refresher: refresher,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RoundTrip sends the request with the current bearer token. On a 401 it
// refreshes once and replays once; the refresh strictly precedes the replay,
// and a 401 on the replayed request is returned to the caller unchanged.
// Requests that carried no token pass 401s through without any refresh
// attempt, so login and other public calls never trigger the cycle.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	getBody, err := rewindableBody(req)
	if err != nil {
		return nil, fmt.Errorf("campushub/transport: buffer request body: %w", err)
	}

	token := t.source.AccessToken()
	resp, err := t.attempt(req, getBody, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || token == "" {
		return resp, err
	}

	access, refreshErr := t.refresh(req.Context())
	if refreshErr != nil {
		// The refresher already cleared the session; surface the original 401.
		t.logger.Warn("token refresh failed", "url", req.URL.Path, "error", refreshErr)
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	t.metrics.RecordReplay()
	t.logger.Debug("replaying request after refresh", "method", req.Method, "url", req.URL.Path)
	return t.attempt(req, getBody, access)
}

// attempt clones the request, attaches the token and request ID, and sends
// it downstream.
func (t *Transport) attempt(req *http.Request, getBody func() (io.ReadCloser, error), token string) (*http.Response, error) {
	r := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("campushub/transport: rewind request body: %w", err)
		}
		r.Body = body
		r.GetBody = getBody
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}
	if r.Header.Get(headerRequestID) == "" {
		r.Header.Set(headerRequestID, uuid.NewString())
	}
	return t.base.RoundTrip(r)
}

// refresh collapses concurrent refresh attempts into one backend call.
func (t *Transport) refresh(ctx context.Context) (string, error) {
	v, err, _ := t.sf.Do("refresh", func() (any, error) {
		access, err := t.refresher.RefreshAccess(ctx)
		if err != nil {
			t.metrics.RecordRefreshFailure()
			return nil, err
		}
		t.metrics.RecordRefresh()
		return access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// rewindableBody makes the request body replayable. Bodies created by
// http.NewRequest already carry GetBody; anything else is buffered once.
func rewindableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	switch {
	case req.Body == nil || req.Body == http.NoBody:
		return nil, nil
	case req.GetBody != nil:
		return req.GetBody, nil
	default:
		buf, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		return func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}, nil
	}
}
