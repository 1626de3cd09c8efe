package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campushub/campushub-go/transport"
)

// staticSource always yields the same access token.
type staticSource string

func (s staticSource) AccessToken() string { return string(s) }

// stubRefresher counts refresh attempts and yields a fixed token or error.
type stubRefresher struct {
	calls atomic.Int32
	delay time.Duration
	token string
	err   error
}

func (r *stubRefresher) RefreshAccess(ctx context.Context) (string, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.token, r.err
}

// tokenServer answers 200 for the accepted bearer and 401 otherwise.
func tokenServer(t *testing.T, accept string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+accept {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRoundTrip_RefreshAndReplay(t *testing.T) {
	var hits atomic.Int32
	server := tokenServer(t, "fresh", &hits)
	defer server.Close()

	refresher := &stubRefresher{token: "fresh"}
	hc := &http.Client{Transport: transport.New(nil, staticSource("stale"), refresher)}

	resp, err := hc.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after replay", resp.StatusCode)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Errorf("refresher called %d times, want 1", got)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2 (original + replay)", got)
	}
}

func TestRoundTrip_ValidTokenNoRefresh(t *testing.T) {
	var hits atomic.Int32
	server := tokenServer(t, "good", &hits)
	defer server.Close()

	refresher := &stubRefresher{token: "unused"}
	hc := &http.Client{Transport: transport.New(nil, staticSource("good"), refresher)}

	resp, err := hc.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := refresher.calls.Load(); got != 0 {
		t.Errorf("refresher called %d times, want 0", got)
	}
}

func TestRoundTrip_ReplayedRequestNotRetriedAgain(t *testing.T) {
	// Server rejects everything: the replay 401 must come back as-is.
	var hits atomic.Int32
	server := tokenServer(t, "never", &hits)
	defer server.Close()

	refresher := &stubRefresher{token: "fresh"}
	hc := &http.Client{Transport: transport.New(nil, staticSource("stale"), refresher)}

	resp, err := hc.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Errorf("refresher called %d times, want 1", got)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2", got)
	}
}

func TestRoundTrip_RefreshFailureReturnsOriginal401(t *testing.T) {
	var hits atomic.Int32
	server := tokenServer(t, "never", &hits)
	defer server.Close()

	refresher := &stubRefresher{err: errors.New("refresh token rejected")}
	hc := &http.Client{Transport: transport.New(nil, staticSource("stale"), refresher)}

	resp, err := hc.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1 (no replay after failed refresh)", got)
	}
}

func TestRoundTrip_NoTokenPassesThrough(t *testing.T) {
	var hits atomic.Int32
	server := tokenServer(t, "something", &hits)
	defer server.Close()

	refresher := &stubRefresher{token: "fresh"}
	hc := &http.Client{Transport: transport.New(nil, staticSource(""), refresher)}

	resp, err := hc.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	// Public requests must never trigger the refresh cycle.
	if got := refresher.calls.Load(); got != 0 {
		t.Errorf("refresher called %d times, want 0", got)
	}
}

func TestRoundTrip_SingleflightCollapsesRefreshes(t *testing.T) {
	var hits atomic.Int32
	server := tokenServer(t, "fresh", &hits)
	defer server.Close()

	refresher := &stubRefresher{token: "fresh", delay: 100 * time.Millisecond}
	hc := &http.Client{Transport: transport.New(nil, staticSource("stale"), refresher)}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := hc.Get(server.URL)
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	if got := refresher.calls.Load(); got != 1 {
		t.Errorf("refresher called %d times, want 1 (singleflight)", got)
	}
}

func TestRoundTrip_ReplaysRequestBody(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	refresher := &stubRefresher{token: "fresh"}
	hc := &http.Client{Transport: transport.New(nil, staticSource("stale"), refresher)}

	resp, err := hc.Post(server.URL, "application/json", strings.NewReader(`{"old_password":"x"}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(bodies))
	}
	if bodies[0] != bodies[1] || bodies[1] != `{"old_password":"x"}` {
		t.Errorf("replayed body = %q, want original %q", bodies[1], bodies[0])
	}
}

func TestRoundTrip_SetsRequestID(t *testing.T) {
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hc := &http.Client{Transport: transport.New(nil, staticSource("tok"), &stubRefresher{})}
	resp, err := hc.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if requestID == "" {
		t.Error("expected X-Request-ID header on outgoing request")
	}
}
