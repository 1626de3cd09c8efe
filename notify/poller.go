// Package notify maintains the client-side notification feed.
//
// The Poller fetches the notification list as soon as a session becomes
// authenticated, re-fetches on a fixed interval, and stops the moment the
// session goes away — the ticker is the one resource in the SDK whose
// lifetime must match the session's, so Bind ties the two together.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	campushub "github.com/campushub/campushub-go"
	"github.com/campushub/campushub-go/metrics"
	"golang.org/x/sync/errgroup"
)

// MarkAllID is the sentinel accepted by MarkRead to acknowledge every unread
// item.
const MarkAllID = "all"

// Defaults.
const (
	DefaultInterval = 30 * time.Second
	DefaultMaxItems = 100
)

// SessionWatcher is the slice of the session controller the poller needs.
type SessionWatcher interface {
	Current() campushub.Session
	OnChange(func(campushub.Session))
}

// Poller owns the notification feed state. Safe for concurrent use.
type Poller struct {
	backend  campushub.NotificationsBackend
	interval time.Duration
	maxItems int
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	items  []campushub.Notification
	unread int
	gen    int
	cancel context.CancelFunc
}

// compile-time check
var _ campushub.NotificationFeed = (*Poller)(nil)

// Option configures the Poller.
type Option func(*Poller)

// WithInterval sets the re-fetch interval. Default: 30 seconds.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithMaxItems caps the in-memory feed. Default: 100.
func WithMaxItems(n int) Option {
	return func(p *Poller) { p.maxItems = n }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// New creates a Poller over the given backend. It does not poll until
// Start or Bind.
func New(backend campushub.NotificationsBackend, opts ...Option) *Poller {
	p := &Poller{
		backend:  backend,
		interval: DefaultInterval,
		maxItems: DefaultMaxItems,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Bind ties the poll loop to the session lifetime: polling starts when the
// session becomes authenticated and stops when it becomes unauthenticated.
// If the watcher is already authenticated, polling starts immediately.
func (p *Poller) Bind(w SessionWatcher) {
	w.OnChange(func(s campushub.Session) {
		if s.Authenticated() {
			p.Start()
		} else {
			p.Stop()
		}
	})
	if w.Current().Authenticated() {
		p.Start()
	}
}

// Start begins the poll loop: one immediate fetch, then one per interval.
// Starting an already-running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop cancels the poll loop and clears the feed. It never waits for the
// poll goroutine: bumping the feed generation discards any fetch already in
// flight when it lands, so nothing issued before Stop can repopulate the
// feed. That makes Stop safe to call from the poll goroutine itself, which
// happens when a poll-triggered refresh fails and the forced logout reaches
// the Bind subscriber. Stopping a stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	if cancel == nil {
		p.mu.Unlock()
		return
	}
	p.cancel = nil
	p.gen++
	p.items = nil
	p.unread = 0
	p.mu.Unlock()

	cancel()
	p.metrics.SetUnread(0)
}

// Close implements io.Closer for campushub.Client.Close.
func (p *Poller) Close() error {
	p.Stop()
	return nil
}

func (p *Poller) run(ctx context.Context) {
	p.fetch(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx)
		}
	}
}

// Refresh fetches the authoritative list once, outside the poll loop.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	items, err := p.backend.List(ctx)
	if err != nil {
		p.metrics.RecordPollError()
		return fmt.Errorf("campushub/notify: fetch notifications: %w", err)
	}
	p.metrics.RecordPollCycle()
	p.replace(items, gen)
	return nil
}

func (p *Poller) fetch(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		// Poll failures are transient by assumption; the next tick retries.
		p.logger.Warn("notification poll failed", "error", err)
	}
}

// replace installs a fetched batch unless the feed generation moved on (a
// Stop happened while the fetch was in flight).
func (p *Poller) replace(items []campushub.Notification, gen int) {
	if len(items) > p.maxItems {
		items = items[:p.maxItems]
	}
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.items = items
	p.unread = unread
	p.mu.Unlock()
	p.metrics.SetUnread(unread)
}

// Items returns a copy of the feed, newest first.
func (p *Poller) Items() []campushub.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]campushub.Notification, len(p.items))
	copy(out, p.items)
	return out
}

// UnreadCount returns the number of unread items.
func (p *Poller) UnreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unread
}

// MarkRead acknowledges a notification. With the MarkAllID sentinel it
// acknowledges every currently-unread item concurrently and then re-fetches
// the authoritative list. With a specific id it acknowledges that one item
// and optimistically flips it locally, decrementing the unread counter by at
// most one (never below zero) without waiting for a re-fetch.
func (p *Poller) MarkRead(ctx context.Context, id string) error {
	if id == MarkAllID {
		return p.markAllRead(ctx)
	}

	if err := p.backend.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("campushub/notify: mark notification %s read: %w", id, err)
	}

	p.mu.Lock()
	for i := range p.items {
		if p.items[i].ID != id {
			continue
		}
		if !p.items[i].Read {
			p.items[i].Read = true
			if p.unread > 0 {
				p.unread--
			}
		}
		break
	}
	unread := p.unread
	p.mu.Unlock()
	p.metrics.SetUnread(unread)
	return nil
}

func (p *Poller) markAllRead(ctx context.Context) error {
	p.mu.Lock()
	unreadIDs := make([]string, 0, p.unread)
	for _, n := range p.items {
		if !n.Read {
			unreadIDs = append(unreadIDs, n.ID)
		}
	}
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range unreadIDs {
		id := id
		g.Go(func() error {
			return p.backend.MarkRead(gctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("campushub/notify: mark all read: %w", err)
	}

	return p.Refresh(ctx)
}

// Add inserts a local-only item at the head of the feed (for push events).
// It never calls the backend. The feed is trimmed to its cap, adjusting the
// unread counter for anything that falls off the tail.
func (p *Poller) Add(n campushub.Notification) {
	p.mu.Lock()
	p.items = append([]campushub.Notification{n}, p.items...)
	if !n.Read {
		p.unread++
	}
	for len(p.items) > p.maxItems {
		last := p.items[len(p.items)-1]
		if !last.Read && p.unread > 0 {
			p.unread--
		}
		p.items = p.items[:len(p.items)-1]
	}
	unread := p.unread
	p.mu.Unlock()
	p.metrics.SetUnread(unread)
}
